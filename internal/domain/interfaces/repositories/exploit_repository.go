// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/sbleedy/internal/domain/entities"
)

// ExploitRepository defines the interface for accessing the exploit catalog
type ExploitRepository interface {
	// GetExploit retrieves an exploit descriptor by name
	GetExploit(ctx context.Context, name string) (*entities.Exploit, error)

	// ListExploits returns the whole catalog in catalog order
	ListExploits(ctx context.Context) ([]*entities.Exploit, error)
}

// HardwareRepository defines the interface for accessing hardware profiles
type HardwareRepository interface {
	// ListHardware returns every configured hardware profile
	ListHardware(ctx context.Context) ([]*entities.HardwareProfile, error)
}

// ResultRepository persists per-target, per-exploit verdicts
type ResultRepository interface {
	SaveResult(target, exploit string, record entities.ExploitRecord) error
	LoadResult(target, exploit string) (*entities.ExploitRecord, error)
	// DoneExploits lists exploits with a stored record for target, sorted by name
	DoneExploits(target string) ([]string, error)
	// LogPath is the append-only exploit output log for target
	LogPath(target string) (string, error)
}

// CheckpointRepository persists interrupted runs
type CheckpointRepository interface {
	HasCheckpoint(target string) bool
	SaveCheckpoint(cp *entities.Checkpoint) error
	LoadCheckpoint(target string) (*entities.Checkpoint, error)
	DeleteCheckpoint(target string) error
}

// ReportRepository persists machine-readable reports and recon output
type ReportRepository interface {
	SaveReport(target string, report *entities.MachineReport) error
	LoadReport(target string) (*entities.MachineReport, error)
	// ReconDir is where recon command output for target is kept
	ReconDir(target string) (string, error)
}
