package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ochairo/sbleedy/internal/domain/entities"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/gateways"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/services"
)

// DoSPolicy controls how a denial-of-service verdict is decided
type DoSPolicy struct {
	Probes      int // availability probes per check
	MaxFailures int // misses tolerated before the target counts as down
}

// DefaultDoSPolicy returns the standard probing policy
func DefaultDoSPolicy() DoSPolicy {
	return DoSPolicy{Probes: 5, MaxFailures: 3}
}

// assessmentService implements AssessmentService with pure business logic
type assessmentService struct {
	probe  gateways.AvailabilityProbe
	policy DoSPolicy
}

// NewAssessmentService creates a new assessment service with dependency injection
func NewAssessmentService(probe gateways.AvailabilityProbe, policy DoSPolicy) services.AssessmentService {
	if policy.Probes <= 0 {
		policy = DefaultDoSPolicy()
	}
	return &assessmentService{probe: probe, policy: policy}
}

// SelectExploits applies a selection to the catalog
// Pure business logic - no I/O
func (s *assessmentService) SelectExploits(catalog []*entities.Exploit, selection services.Selection) []*entities.Exploit {
	wanted := toSet(selection.Exploits)
	excluded := toSet(selection.Exclude)
	hardware := toSet(selection.Hardware)

	filtered := make([]*entities.Exploit, 0, len(catalog))
	for _, exploit := range catalog {
		if len(wanted) > 0 {
			if !wanted[exploit.Name] {
				continue
			}
		} else if excluded[exploit.Name] {
			continue
		}

		if len(hardware) > 0 && !intersects(exploit.HardwareList(), hardware) {
			continue
		}

		if selection.Profile != "" && !strings.EqualFold(exploit.Profile, selection.Profile) {
			continue
		}

		if selection.BTVersion != nil && !exploit.AppliesToVersion(*selection.BTVersion) {
			continue
		}

		if selection.Unattended && !exploit.MassTesting {
			continue
		}

		filtered = append(filtered, exploit)
	}

	return filtered
}

// MissingHardware returns the hardware names that are not available
// Pure business logic - no I/O
func (s *assessmentService) MissingHardware(exploit *entities.Exploit, available map[string]bool) []string {
	missing := make([]string, 0)
	for _, name := range exploit.HardwareList() {
		if !available[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// ResolveVerdict classifies the captured output, including output captured
// before a timeout or interrupt. When the run failed and no verdict was
// reported, the failure itself becomes the message.
func (s *assessmentService) ResolveVerdict(result *entities.ExecutionResult) (entities.Verdict, string) {
	verdict, message := Classify(result.Output)
	if verdict == entities.VerdictNoSignal && !result.Succeeded {
		switch {
		case result.TimedOut:
			message = "exploit timed out"
		case result.Interrupted:
			message = "exploit interrupted"
		case len(result.Output) > 0:
			message = "exploit execution failed: " + strings.TrimSpace(string(result.Output))
		default:
			message = "exploit execution failed"
		}
	}
	return verdict, message
}

// EvaluateDoS probes the target until it answers or the probe budget is spent.
// More than MaxFailures misses means the check took the target down.
func (s *assessmentService) EvaluateDoS(ctx context.Context, target string) (entities.Verdict, string) {
	if s.probe == nil {
		return entities.VerdictError, "no availability probe configured"
	}

	misses := 0
	for i := 0; i < s.policy.Probes; i++ {
		available, err := s.probe.IsAvailable(ctx, target)
		if err != nil {
			return entities.VerdictError, fmt.Sprintf("availability probe failed: %v", err)
		}
		if available {
			break
		}
		misses++
	}

	message := fmt.Sprintf("target unreachable in %d of %d probes", misses, s.policy.Probes)
	if misses > s.policy.MaxFailures {
		return entities.VerdictVulnerable, message
	}
	return entities.VerdictNotVulnerable, message
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func intersects(values []string, set map[string]bool) bool {
	for _, v := range values {
		if set[v] {
			return true
		}
	}
	return false
}
