// Package services defines interfaces for domain service contracts.
package services

import (
	"context"

	"github.com/ochairo/sbleedy/internal/domain/entities"
)

// Selection narrows the exploit catalog for one run
type Selection struct {
	Exploits   []string // explicit list; Exclude is ignored when set
	Exclude    []string
	Hardware   []string
	Profile    string
	BTVersion  *float64
	Unattended bool // drop checks that need operator interaction
}

// AssessmentService defines the business rules of an assessment run
type AssessmentService interface {
	// SelectExploits applies a selection to the catalog, keeping catalog order
	SelectExploits(catalog []*entities.Exploit, selection Selection) []*entities.Exploit

	// MissingHardware returns the hardware an exploit needs that is not available
	MissingHardware(exploit *entities.Exploit, available map[string]bool) []string

	// ResolveVerdict turns an execution result into a verdict
	ResolveVerdict(result *entities.ExecutionResult) (entities.Verdict, string)

	// EvaluateDoS decides a denial-of-service verdict by probing the target
	EvaluateDoS(ctx context.Context, target string) (entities.Verdict, string)
}
