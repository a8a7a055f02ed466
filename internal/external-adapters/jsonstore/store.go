// Package jsonstore persists results, checkpoints and reports as JSON files
// under a results directory, one subdirectory per target.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ochairo/sbleedy/internal/domain/entities"
)

const (
	checkpointFile = ".checkpoint.json"
	reportFile     = "report.json"
	exploitLogFile = "exploit_output.log"
	reconDir       = "recon"
)

// Store implements the result, checkpoint and report repositories
type Store struct {
	root string
}

// NewStore creates a store rooted at resultsDir
func NewStore(resultsDir string) *Store {
	return &Store{root: resultsDir}
}

// Root returns the results directory
func (s *Store) Root() string {
	return s.root
}

// targetDir returns the directory for target, creating it when create is set
func (s *Store) targetDir(target string, create bool) (string, error) {
	name, err := safeName(target)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(s.root, name)
	if create {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("failed to create results directory: %w", err)
		}
	}
	return dir, nil
}

// safeName rejects names that would escape the results directory
func safeName(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w %q", entities.ErrInvalidName, name)
	}
	return name, nil
}

// SaveResult writes the verdict of one exploit against target, replacing
// any earlier record
func (s *Store) SaveResult(target, exploit string, record entities.ExploitRecord) error {
	dir, err := s.targetDir(target, true)
	if err != nil {
		return err
	}
	name, err := safeName(exploit)
	if err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, name+".json"), record)
}

// LoadResult reads the stored verdict of one exploit against target
func (s *Store) LoadResult(target, exploit string) (*entities.ExploitRecord, error) {
	dir, err := s.targetDir(target, false)
	if err != nil {
		return nil, err
	}
	name, err := safeName(exploit)
	if err != nil {
		return nil, err
	}

	var record entities.ExploitRecord
	if err := readJSON(filepath.Join(dir, name+".json"), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// DoneExploits lists exploits with a stored record for target, sorted by
// name
func (s *Store) DoneExploits(target string) ([]string, error) {
	dir, err := s.targetDir(target, false)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || name == checkpointFile || name == reportFile {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// LogPath returns the append-only exploit output log for target
func (s *Store) LogPath(target string) (string, error) {
	dir, err := s.targetDir(target, true)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, exploitLogFile), nil
}

// HasCheckpoint reports whether an interrupted run exists for target
func (s *Store) HasCheckpoint(target string) bool {
	dir, err := s.targetDir(target, false)
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(dir, checkpointFile))
	return err == nil
}

// SaveCheckpoint records an interrupted run
func (s *Store) SaveCheckpoint(cp *entities.Checkpoint) error {
	dir, err := s.targetDir(cp.Target, true)
	if err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, checkpointFile), cp)
}

// LoadCheckpoint reads the interrupted run for target
func (s *Store) LoadCheckpoint(target string) (*entities.Checkpoint, error) {
	dir, err := s.targetDir(target, false)
	if err != nil {
		return nil, err
	}

	var cp entities.Checkpoint
	if err := readJSON(filepath.Join(dir, checkpointFile), &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// DeleteCheckpoint removes the checkpoint of target. A missing checkpoint
// is not an error.
func (s *Store) DeleteCheckpoint(target string) error {
	dir, err := s.targetDir(target, false)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(dir, checkpointFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// SaveReport writes the machine-readable report for target
func (s *Store) SaveReport(target string, report *entities.MachineReport) error {
	dir, err := s.targetDir(target, true)
	if err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, reportFile), report)
}

// LoadReport reads the machine-readable report for target
func (s *Store) LoadReport(target string) (*entities.MachineReport, error) {
	dir, err := s.targetDir(target, false)
	if err != nil {
		return nil, err
	}

	var report entities.MachineReport
	if err := readJSON(filepath.Join(dir, reportFile), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ReconDir returns the directory holding recon output for target
func (s *Store) ReconDir(target string) (string, error) {
	dir, err := s.targetDir(target, true)
	if err != nil {
		return "", err
	}
	recon := filepath.Join(dir, reconDir)
	if err := os.MkdirAll(recon, 0o750); err != nil {
		return "", fmt.Errorf("failed to create recon directory: %w", err)
	}
	return recon, nil
}

// Targets lists every target with a results directory
func (s *Store) Targets() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	targets := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			targets = append(targets, entry.Name())
		}
	}
	return targets, nil
}

// writeJSON replaces path atomically through a temporary file
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	//nolint:gosec // G304: path is built from the results directory
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", filepath.Base(path), entities.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
