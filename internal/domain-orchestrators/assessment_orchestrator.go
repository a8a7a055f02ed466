// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ochairo/sbleedy/internal/domain/entities"
	"github.com/ochairo/sbleedy/internal/domain/interfaces"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/gateways"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/repositories"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/services"
	domainservices "github.com/ochairo/sbleedy/internal/domain/services"
)

// CommandBuilder renders an exploit descriptor into an argument vector
type CommandBuilder interface {
	Build(ctx context.Context, target string, ports map[string]string, exploit *entities.Exploit, params []string) ([]string, error)
}

// HardwareRegistry reports which hardware profiles are usable and their ports
type HardwareRegistry interface {
	Available(ctx context.Context, names []string) map[string]bool
	Ports() map[string]string
}

// RunObserver is told about progress while a run executes
type RunObserver interface {
	ExploitStarted(exploit *entities.Exploit, index, total int)
	ExploitFinished(outcome entities.Outcome)
}

// AssessmentOrchestrator runs a selection of exploits against one target,
// one at a time, and records each verdict
type AssessmentOrchestrator struct {
	exploitRepo repositories.ExploitRepository
	results     repositories.ResultRepository
	checkpoints repositories.CheckpointRepository
	service     services.AssessmentService
	builder     CommandBuilder
	supervisor  gateways.Supervisor
	hardware    HardwareRegistry
	integrity   gateways.IntegrityGateway
	modulesDir  string
	logger      interfaces.Logger
}

// AssessmentOrchestratorConfig holds configuration for the orchestrator
type AssessmentOrchestratorConfig struct {
	ModulesDir string
}

// NewAssessmentOrchestrator creates a new assessment orchestrator.
// integrity may be nil, which disables module verification.
func NewAssessmentOrchestrator(
	exploitRepo repositories.ExploitRepository,
	results repositories.ResultRepository,
	checkpoints repositories.CheckpointRepository,
	service services.AssessmentService,
	builder CommandBuilder,
	supervisor gateways.Supervisor,
	hardware HardwareRegistry,
	integrity gateways.IntegrityGateway,
	config AssessmentOrchestratorConfig,
	logger interfaces.Logger,
) *AssessmentOrchestrator {
	modulesDir := config.ModulesDir
	if modulesDir == "" {
		modulesDir = "modules"
	}

	return &AssessmentOrchestrator{
		exploitRepo: exploitRepo,
		results:     results,
		checkpoints: checkpoints,
		service:     service,
		builder:     builder,
		supervisor:  supervisor,
		hardware:    hardware,
		integrity:   integrity,
		modulesDir:  modulesDir,
		logger:      interfaces.OrNoOp(logger),
	}
}

// RunRequest describes one assessment run
type RunRequest struct {
	Target     string
	Selection  services.Selection
	Parameters []string
	Resume     bool      // continue from the target's checkpoint
	Attended   bool      // an operator is present for interactive checks
	Echo       io.Writer // live exploit output, nil when not verbose
	Observer   RunObserver
}

// RunResult summarizes a finished or interrupted run
type RunResult struct {
	RunID         string
	Target        string
	Outcomes      []entities.Outcome
	Resumed       bool
	TotalDuration time.Duration
}

// RunAssessment executes the selected exploits in catalog order. When ctx
// is cancelled the progress so far is checkpointed and ErrInterrupted is
// returned alongside the partial result.
func (o *AssessmentOrchestrator) RunAssessment(ctx context.Context, req RunRequest) (*RunResult, error) {
	startTime := time.Now()

	// Step 1: Work out what to run
	cp, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	result := &RunResult{RunID: cp.RunID, Target: req.Target, Resumed: req.Resume}

	done := cp.DoneNames()
	pending := make([]*entities.Exploit, 0, len(cp.Exploits))
	for _, exploit := range cp.Exploits {
		if !done[exploit.Name] {
			pending = append(pending, exploit)
		}
	}

	o.logger.Info("Starting assessment",
		interfaces.F("run_id", cp.RunID),
		interfaces.F("target", req.Target),
		interfaces.F("exploits", len(pending)),
		interfaces.F("resumed", req.Resume))

	// Step 2: Verify the hardware the pending exploits need
	available := o.hardware.Available(ctx, hardwareNames(pending))
	ports := o.hardware.Ports()

	logPath, err := o.results.LogPath(req.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare exploit log: %w", err)
	}

	// Step 3: Run each exploit in turn
	for i, exploit := range pending {
		if ctx.Err() != nil {
			return o.interrupt(cp, result, startTime)
		}

		if req.Observer != nil {
			req.Observer.ExploitStarted(exploit, i+1, len(pending))
		}

		outcome := o.runExploit(ctx, req, cp.Parameters, exploit, available, ports, logPath)

		// An exploit cut short by the interrupt is run again on resume
		if ctx.Err() != nil && !outcome.Skipped {
			return o.interrupt(cp, result, startTime)
		}

		if req.Observer != nil {
			req.Observer.ExploitFinished(outcome)
		}
		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.Skipped {
			continue
		}

		record := entities.ExploitRecord{Code: outcome.Verdict, Data: outcome.Message, CVE: exploit.CVE}
		if err := o.results.SaveResult(req.Target, exploit.Name, record); err != nil {
			o.logger.Error("Failed to save exploit result",
				interfaces.F("exploit", exploit.Name),
				interfaces.F("error", err))
		}
		cp.DoneExploits = append(cp.DoneExploits, entities.DoneExploit{Name: exploit.Name, Code: outcome.Verdict})
	}

	// Step 4: A completed run leaves no checkpoint behind
	if o.checkpoints.HasCheckpoint(req.Target) {
		if err := o.checkpoints.DeleteCheckpoint(req.Target); err != nil {
			o.logger.Warn("Failed to remove checkpoint",
				interfaces.F("target", req.Target),
				interfaces.F("error", err))
		}
	}

	result.TotalDuration = time.Since(startTime)
	o.logger.Info("Assessment finished",
		interfaces.F("run_id", cp.RunID),
		interfaces.F("target", req.Target),
		interfaces.F("duration", result.TotalDuration.String()))

	return result, nil
}

// prepare builds the working checkpoint, either fresh from the catalog or
// loaded from disk when resuming
func (o *AssessmentOrchestrator) prepare(ctx context.Context, req RunRequest) (*entities.Checkpoint, error) {
	if req.Resume {
		cp, err := o.checkpoints.LoadCheckpoint(req.Target)
		if err != nil {
			return nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if cp.RunID == "" {
			cp.RunID = uuid.NewString()
		}
		cp.Target = req.Target
		return cp, nil
	}

	if _, _, err := domainservices.ParseRuntimeParameters(req.Parameters); err != nil {
		return nil, err
	}

	catalog, err := o.exploitRepo.ListExploits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load exploit catalog: %w", err)
	}

	selected := o.service.SelectExploits(catalog, req.Selection)
	if len(selected) == 0 {
		return nil, fmt.Errorf("no exploits match the selection")
	}

	return &entities.Checkpoint{
		RunID:           uuid.NewString(),
		Exploits:        selected,
		Parameters:      req.Parameters,
		DoneExploits:    []entities.DoneExploit{},
		Target:          req.Target,
		ExploitsToScan:  req.Selection.Exploits,
		ExcludeExploits: req.Selection.Exclude,
	}, nil
}

// runExploit produces the outcome of one exploit. Every failure ends up in
// the outcome; nothing here aborts the run.
func (o *AssessmentOrchestrator) runExploit(
	ctx context.Context,
	req RunRequest,
	params []string,
	exploit *entities.Exploit,
	available map[string]bool,
	ports map[string]string,
	logPath string,
) entities.Outcome {
	started := time.Now()
	outcome := entities.Outcome{Exploit: exploit.Name}

	if missing := o.service.MissingHardware(exploit, available); len(missing) > 0 {
		outcome.Verdict = entities.VerdictNotTested
		outcome.Message = fmt.Sprintf("hardware not available: %v", missing)
		outcome.Skipped = true
		o.logger.Warn("Skipping exploit",
			interfaces.F("exploit", exploit.Name),
			interfaces.F("missing_hardware", missing))
		return outcome
	}

	argv, err := o.prepareCommand(ctx, req.Target, params, exploit, ports)
	if err != nil {
		var cfgErr *entities.ConfigurationError
		if !errors.As(err, &cfgErr) {
			err = &entities.ConfigurationError{Exploit: exploit.Name, Err: err}
		}
		o.logger.Error("Exploit configuration error",
			interfaces.F("exploit", exploit.Name),
			interfaces.F("error", err))
		outcome.Verdict = entities.VerdictError
		outcome.Message = err.Error()
		outcome.Duration = time.Since(started)
		return outcome
	}

	o.logger.Info("Running exploit",
		interfaces.F("exploit", exploit.Name),
		interfaces.F("timeout", exploit.MaxTimeout.String()))

	execution := o.supervisor.Execute(ctx, gateways.ExecuteConfig{
		Name:        exploit.Name,
		Argv:        argv,
		WorkingDir:  o.exploitDir(exploit),
		Timeout:     exploit.MaxTimeout,
		LogPath:     logPath,
		Echo:        req.Echo,
		Interactive: req.Attended && !exploit.MassTesting,
	})

	if exploit.IsDoS() && ctx.Err() == nil {
		outcome.Verdict, outcome.Message = o.service.EvaluateDoS(ctx, req.Target)
	} else {
		outcome.Verdict, outcome.Message = o.service.ResolveVerdict(execution)
	}
	outcome.Duration = time.Since(started)

	o.logger.Info("Exploit finished",
		interfaces.F("exploit", exploit.Name),
		interfaces.F("verdict", outcome.Verdict.String()),
		interfaces.F("exit_code", execution.ExitCode),
		interfaces.F("duration", outcome.Duration.String()))

	return outcome
}

// prepareCommand verifies module integrity and builds the argument vector
func (o *AssessmentOrchestrator) prepareCommand(
	ctx context.Context,
	target string,
	params []string,
	exploit *entities.Exploit,
	ports map[string]string,
) ([]string, error) {
	if err := o.verifyIntegrity(ctx, exploit); err != nil {
		return nil, &entities.ConfigurationError{Exploit: exploit.Name, Err: err}
	}
	return o.builder.Build(ctx, target, ports, exploit, params)
}

func (o *AssessmentOrchestrator) verifyIntegrity(ctx context.Context, exploit *entities.Exploit) error {
	if o.integrity == nil || (exploit.SHA256 == "" && exploit.Signature == "") {
		return nil
	}

	program := filepath.Join(o.exploitDir(exploit), exploit.Program())

	if exploit.SHA256 != "" {
		if err := o.integrity.VerifyChecksum(ctx, program, exploit.SHA256); err != nil {
			return fmt.Errorf("module integrity check failed: %w", err)
		}
	}

	if exploit.Signature != "" && o.integrity.HasKeyring() {
		sigPath := filepath.Join(o.exploitDir(exploit), exploit.Signature)
		if err := o.integrity.VerifySignature(ctx, program, sigPath); err != nil {
			return fmt.Errorf("module signature check failed: %w", err)
		}
	}

	return nil
}

func (o *AssessmentOrchestrator) exploitDir(exploit *entities.Exploit) string {
	return filepath.Join(o.modulesDir, exploit.Directory)
}

// interrupt persists the checkpoint and reports the interruption
func (o *AssessmentOrchestrator) interrupt(cp *entities.Checkpoint, result *RunResult, startTime time.Time) (*RunResult, error) {
	result.TotalDuration = time.Since(startTime)

	if err := o.checkpoints.SaveCheckpoint(cp); err != nil {
		return result, fmt.Errorf("%w: failed to save checkpoint: %v", entities.ErrInterrupted, err)
	}

	o.logger.Warn("Assessment interrupted, checkpoint saved",
		interfaces.F("run_id", cp.RunID),
		interfaces.F("target", cp.Target),
		interfaces.F("done", len(cp.DoneExploits)))

	return result, entities.ErrInterrupted
}

func hardwareNames(exploits []*entities.Exploit) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, exploit := range exploits {
		for _, name := range exploit.HardwareList() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}
