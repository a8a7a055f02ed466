package entities

// ReportEntry is one row of a machine-readable report
type ReportEntry struct {
	Index    int     `json:"index"`
	Name     string  `json:"name"`
	Code     Verdict `json:"code"`
	Data     string  `json:"data"`
	CVE      string  `json:"cve"`
	Summary  string  `json:"cve_summary,omitempty"`
	Severity string  `json:"cve_severity,omitempty"`
}

// MachineReport is the JSON report written for a target
type MachineReport struct {
	DoneExploits          []ReportEntry `json:"done_exploits"`
	SkippedExploits       []ReportEntry `json:"skipped_exploits"`
	ManuallyAddedExploits []ReportEntry `json:"manually_added_exploits"`
	BTVersion             *float64      `json:"bt_version"`
	Manufacturer          string        `json:"manufacturer"`
	MACAddress            string        `json:"mac_address"`
}

// CVEDetails is public advisory information about a CVE
type CVEDetails struct {
	ID       string
	Summary  string
	Severity string
}
