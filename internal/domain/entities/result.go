package entities

import "time"

// ExecutionResult is what the process supervisor observed while running a check
type ExecutionResult struct {
	Succeeded   bool
	Output      []byte // stdout captured before the process ended or was stopped
	ExitCode    int
	TimedOut    bool
	Interrupted bool
	Duration    time.Duration
}

// ExploitRecord is the persisted verdict of one exploit against one target
type ExploitRecord struct {
	Code Verdict `json:"code"`
	Data string  `json:"data"`
	CVE  string  `json:"cve"`
}

// Outcome is the in-memory result of one exploit in a run
type Outcome struct {
	Exploit  string
	Verdict  Verdict
	Message  string
	Duration time.Duration
	Skipped  bool
}

// ReconInfo holds what recon learned about a target
type ReconInfo struct {
	BTVersion    *float64
	Manufacturer string
}
