package entities

// Verdict is the closed-set outcome classification of a check.
// The numeric values are part of the marker protocol and the JSON records.
type Verdict int

// Verdict values. 5 is unused so NotTested keeps the value older reports use.
const (
	VerdictError         Verdict = 0
	VerdictNotVulnerable Verdict = 1
	VerdictVulnerable    Verdict = 2
	VerdictUndefined     Verdict = 3
	VerdictNoSignal      Verdict = 4
	VerdictNotTested     Verdict = 6
)

// VerdictFromCode maps a marker code to a verdict; unknown codes are errors
func VerdictFromCode(code int) Verdict {
	switch Verdict(code) {
	case VerdictError, VerdictNotVulnerable, VerdictVulnerable, VerdictUndefined, VerdictNoSignal:
		return Verdict(code)
	default:
		return VerdictError
	}
}

func (v Verdict) String() string {
	switch v {
	case VerdictError:
		return "ERROR"
	case VerdictNotVulnerable:
		return "NOT_VULNERABLE"
	case VerdictVulnerable:
		return "VULNERABLE"
	case VerdictUndefined:
		return "UNDEFINED"
	case VerdictNoSignal:
		return "NO_SIGNAL"
	case VerdictNotTested:
		return "NOT_TESTED"
	default:
		return "UNKNOWN"
	}
}

// Label is the human-readable form used in terminal reports
func (v Verdict) Label() string {
	switch v {
	case VerdictError:
		return "Error"
	case VerdictNotVulnerable:
		return "Not vulnerable"
	case VerdictVulnerable:
		return "Vulnerable"
	case VerdictUndefined:
		return "Undefined"
	case VerdictNoSignal:
		return "Toolkit error"
	case VerdictNotTested:
		return "Not tested"
	default:
		return "Toolkit error during report generation"
	}
}
