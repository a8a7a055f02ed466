// Package entities defines core domain models and data structures.
package entities

import (
	"path/filepath"
	"strings"
	"time"
)

// FileType selects the runtime an exploit needs before it can be executed
type FileType string

// Supported exploit runtimes
const (
	FileTypeExecutable   FileType = "executable"
	FileTypePython       FileType = "python"
	FileTypeLegacyPython FileType = "python2"
	FileTypeShell        FileType = "shell"
	FileTypeNative       FileType = "native"
)

// ExploitTypeDoS marks checks whose verdict comes from the availability probe
const ExploitTypeDoS = "DoS"

// NoTimeout disables the supervisor's wall-clock limit
const NoTimeout time.Duration = -1

// Parameter describes how one named value is appended to an exploit command
type Parameter struct {
	Name         string `json:"name"`
	NameRequired bool   `json:"name_required"`
	Connector    string `json:"parameter_connector"`
	Required     bool   `json:"required"`
	IsTarget     bool   `json:"is_target,omitempty"`
}

// Exploit is the static descriptor of one vulnerability check
type Exploit struct {
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Type         string        `json:"type"`
	CVE          string        `json:"cve"`
	Command      []string      `json:"command"`
	Directory    string        `json:"directory"`
	Parameters   []Parameter   `json:"parameters"`
	Hardware     string        `json:"hardware"`
	BTVersionMin float64       `json:"bt_version_min"`
	BTVersionMax float64       `json:"bt_version_max"`
	Profile      string        `json:"profile"`
	MaxTimeout   time.Duration `json:"max_timeout"` // NoTimeout for unbounded
	MassTesting  bool          `json:"mass_testing"`
	FileType     FileType      `json:"file_type"`
	CompileFlags []string      `json:"compile_flags,omitempty"`
	SHA256       string        `json:"sha256,omitempty"`
	Signature    string        `json:"signature,omitempty"`
}

// HardwareList returns the hardware profile names this exploit needs
func (e *Exploit) HardwareList() []string {
	if strings.TrimSpace(e.Hardware) == "" {
		return nil
	}

	names := make([]string, 0)
	for _, name := range strings.Split(e.Hardware, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// IsDoS reports whether the verdict is decided by probing target availability
func (e *Exploit) IsDoS() bool {
	return strings.EqualFold(e.Type, ExploitTypeDoS)
}

// AppliesToVersion reports whether a target Bluetooth version is within the
// exploit's inclusive range. A zero maximum leaves the range open-ended.
func (e *Exploit) AppliesToVersion(version float64) bool {
	if version < e.BTVersionMin {
		return false
	}
	if e.BTVersionMax > 0 && version > e.BTVersionMax {
		return false
	}
	return true
}

// Program returns the file that actually holds the check's code, relative to
// its directory. For interpreted checks this is the script argument.
func (e *Exploit) Program() string {
	if len(e.Command) == 0 {
		return ""
	}
	return filepath.Clean(e.Command[0])
}
