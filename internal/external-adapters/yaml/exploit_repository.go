package yaml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/sbleedy/internal/domain/entities"
	"github.com/ochairo/sbleedy/internal/domain/interfaces"
)

// ExploitRepository implements repositories.ExploitRepository over a
// directory holding one YAML descriptor per exploit
type ExploitRepository struct {
	exploitsDir string
	parser      *ExploitParser
	logger      interfaces.Logger
}

// NewExploitRepository creates a new YAML-based exploit repository
func NewExploitRepository(exploitsDir string, parser *ExploitParser, logger interfaces.Logger) *ExploitRepository {
	if parser == nil {
		parser = NewExploitParser(0)
	}
	return &ExploitRepository{
		exploitsDir: exploitsDir,
		parser:      parser,
		logger:      interfaces.OrNoOp(logger),
	}
}

// GetExploit retrieves an exploit descriptor by name
func (r *ExploitRepository) GetExploit(ctx context.Context, name string) (*entities.Exploit, error) {
	exploits, err := r.ListExploits(ctx)
	if err != nil {
		return nil, err
	}
	for _, exploit := range exploits {
		if exploit.Name == name {
			return exploit, nil
		}
	}
	return nil, fmt.Errorf("exploit %s: %w", name, entities.ErrNotFound)
}

// ListExploits returns every descriptor ordered by file name. Files that
// fail to parse are logged and skipped; duplicate names keep the first.
func (r *ExploitRepository) ListExploits(_ context.Context) ([]*entities.Exploit, error) {
	files, err := yamlFiles(r.exploitsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read exploits directory: %w", err)
	}

	seen := make(map[string]bool, len(files))
	exploits := make([]*entities.Exploit, 0, len(files))
	for _, filePath := range files {
		exploit, err := r.parser.ParseFile(filePath)
		if err != nil {
			r.logger.Warn("Skipping exploit descriptor",
				interfaces.F("file", filepath.Base(filePath)),
				interfaces.F("error", err))
			continue
		}
		if seen[exploit.Name] {
			r.logger.Warn("Duplicate exploit name",
				interfaces.F("exploit", exploit.Name),
				interfaces.F("file", filepath.Base(filePath)))
			continue
		}
		seen[exploit.Name] = true
		exploits = append(exploits, exploit)
	}

	return exploits, nil
}

// HardwareRepository implements repositories.HardwareRepository over a
// directory holding one YAML profile per device
type HardwareRepository struct {
	hardwareDir string
	logger      interfaces.Logger
}

// NewHardwareRepository creates a new YAML-based hardware repository
func NewHardwareRepository(hardwareDir string, logger interfaces.Logger) *HardwareRepository {
	return &HardwareRepository{hardwareDir: hardwareDir, logger: interfaces.OrNoOp(logger)}
}

// ListHardware returns every configured hardware profile. A missing
// directory means no hardware is configured.
func (r *HardwareRepository) ListHardware(_ context.Context) ([]*entities.HardwareProfile, error) {
	files, err := yamlFiles(r.hardwareDir)
	if os.IsNotExist(err) {
		return []*entities.HardwareProfile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hardware directory: %w", err)
	}

	profiles := make([]*entities.HardwareProfile, 0, len(files))
	for _, filePath := range files {
		hw, err := ParseHardwareFile(filePath)
		if err != nil {
			r.logger.Warn("Skipping hardware profile",
				interfaces.F("file", filepath.Base(filePath)),
				interfaces.F("error", err))
			continue
		}
		profiles = append(profiles, hw)
	}
	return profiles, nil
}

// yamlFiles lists .yml and .yaml files in dir, sorted by name
func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}
