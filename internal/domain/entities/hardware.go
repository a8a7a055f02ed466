package entities

import "strings"

// HardwareKind is the closed set of hardware the toolkit knows how to verify
type HardwareKind int

// Known hardware kinds
const (
	HardwareUnknown HardwareKind = iota
	HardwareHCI
	HardwareNRF52840
)

// ParseHardwareKind maps a hardware profile name to its kind
func ParseHardwareKind(name string) HardwareKind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hci":
		return HardwareHCI
	case "nrf52840", "nrf":
		return HardwareNRF52840
	default:
		return HardwareUnknown
	}
}

func (k HardwareKind) String() string {
	switch k {
	case HardwareHCI:
		return "hci"
	case HardwareNRF52840:
		return "nRF52840"
	default:
		return "unknown"
	}
}

// HardwareProfile is a physical interface (radio, dongle) a check may require.
// Port is discovered at runtime by setup verification.
type HardwareProfile struct {
	Name                   string
	Kind                   HardwareKind
	Port                   string
	NeedsSetupVerification bool
	Firmware               []string
}

// HardwareStatus is the outcome of verifying one hardware profile
type HardwareStatus struct {
	Name      string
	Available bool
	Port      string
	Reason    string
}
