package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/ochairo/sbleedy/internal/domain/entities"
	"github.com/ochairo/sbleedy/internal/domain/interfaces"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/gateways"
)

// Log notes for runs that did not end on their own
const (
	OutputTimedOut    = "timed out"
	OutputInterrupted = "interrupted"
)

// ProcessSupervisor runs exploit processes in their own process group so a
// timeout or interrupt can take down everything they spawned
type ProcessSupervisor struct {
	gracePeriod time.Duration
	stdin       io.Reader
	logger      interfaces.Logger
}

// NewProcessSupervisor creates a supervisor with a 3 second grace period
// between SIGTERM and SIGKILL
func NewProcessSupervisor(logger interfaces.Logger) *ProcessSupervisor {
	return &ProcessSupervisor{
		gracePeriod: 3 * time.Second,
		stdin:       os.Stdin,
		logger:      interfaces.OrNoOp(logger),
	}
}

// WithGracePeriod sets the delay between SIGTERM and SIGKILL
func (ps *ProcessSupervisor) WithGracePeriod(d time.Duration) *ProcessSupervisor {
	ps.gracePeriod = d
	return ps
}

// WithStdin sets the operator input used by interactive runs
func (ps *ProcessSupervisor) WithStdin(r io.Reader) *ProcessSupervisor {
	ps.stdin = r
	return ps
}

// Execute runs the configured command and waits for it, the timeout or ctx
func (ps *ProcessSupervisor) Execute(ctx context.Context, config gateways.ExecuteConfig) *entities.ExecutionResult {
	startTime := time.Now()
	result := &entities.ExecutionResult{ExitCode: -1}
	defer func() { result.Duration = time.Since(startTime) }()

	if len(config.Argv) == 0 {
		result.Output = []byte("empty command")
		return result
	}

	logFile, err := openExploitLog(config.LogPath)
	if err != nil {
		ps.logger.Error("Failed to open exploit log",
			interfaces.F("path", config.LogPath),
			interfaces.F("error", err))
		result.Output = []byte(err.Error())
		return result
	}
	if logFile != nil {
		defer func() { _ = logFile.Close() }()
		_, _ = fmt.Fprintf(logFile, "EXPLOIT: %s\n", config.Name)
	}

	var capture bytes.Buffer
	sinks := newSinks(&capture, logFile, config.Echo)

	//nolint:gosec // G204: argv comes from the exploit catalog
	cmd := exec.Command(config.Argv[0], config.Argv[1:]...)
	cmd.Dir = config.WorkingDir
	cmd.Env = os.Environ()
	cmd.WaitDelay = ps.gracePeriod

	var (
		done     <-chan error
		spawnErr error
	)
	if config.Interactive {
		done, spawnErr = ps.startInteractive(cmd, sinks)
	} else {
		done, spawnErr = ps.start(cmd, sinks)
	}
	if spawnErr != nil {
		ps.logger.Error("Failed to start exploit",
			interfaces.F("exploit", config.Name),
			interfaces.F("error", spawnErr))
		sinks.logOnly(fmt.Sprintf("failed to start: %v\n", spawnErr))
		result.Output = []byte(spawnErr.Error())
		return result
	}

	pgid := cmd.Process.Pid

	var timer <-chan time.Time
	if config.Timeout > 0 {
		t := time.NewTimer(config.Timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case err := <-done:
		// Reap anything the exploit left behind in its group
		_ = unix.Kill(-pgid, unix.SIGKILL)
		result.Output = capture.Bytes()

		// A non-zero exit still counts as a completed run; the verdict
		// comes from the marker, not the exit status
		var exitErr *exec.ExitError
		switch {
		case err == nil, errors.Is(err, exec.ErrWaitDelay):
			result.Succeeded = true
			result.ExitCode = 0
		case errors.As(err, &exitErr):
			result.Succeeded = true
			result.ExitCode = exitErr.ExitCode()
		default:
			ps.logger.Warn("Exploit wait failed",
				interfaces.F("exploit", config.Name),
				interfaces.F("error", err))
			if len(result.Output) == 0 {
				result.Output = []byte(err.Error())
			}
		}
		return result

	case <-timer:
		ps.logger.Warn("Exploit timed out",
			interfaces.F("exploit", config.Name),
			interfaces.F("timeout", config.Timeout))
		ps.terminateGroup(pgid, done)
		sinks.logOnly(fmt.Sprintf("\n%s after %v\n", OutputTimedOut, config.Timeout))
		result.TimedOut = true
		result.Output = capture.Bytes()
		return result

	case <-ctx.Done():
		ps.logger.Warn("Exploit interrupted",
			interfaces.F("exploit", config.Name))
		ps.terminateGroup(pgid, done)
		sinks.logOnly("\n" + OutputInterrupted + "\n")
		result.Interrupted = true
		result.Output = capture.Bytes()
		return result
	}
}

// start spawns cmd with piped output in a fresh process group
func (ps *ProcessSupervisor) start(cmd *exec.Cmd, sinks *outputSinks) (<-chan error, error) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = sinks.stdout()
	cmd.Stderr = sinks.stderr()

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	return done, nil
}

// startInteractive spawns cmd under a pseudo-terminal as a session leader, so
// its pid is also its process group id
func (ps *ProcessSupervisor) startInteractive(cmd *exec.Cmd, sinks *outputSinks) (<-chan error, error) {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}

	if ps.stdin != nil {
		go func() { _, _ = io.Copy(ptmx, ps.stdin) }()
	}

	copied := make(chan struct{})
	go func() {
		// Reading the master fails with EIO once every slave fd is closed
		_, _ = io.Copy(sinks.stdout(), ptmx)
		close(copied)
	}()

	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		select {
		case <-copied:
		case <-time.After(ps.gracePeriod):
		}
		_ = ptmx.Close()
		<-copied
		done <- err
	}()
	return done, nil
}

// terminateGroup sends SIGTERM to the group, then SIGKILL once the grace
// period passes, and waits until the leader is reaped
func (ps *ProcessSupervisor) terminateGroup(pgid int, done <-chan error) {
	_ = unix.Kill(-pgid, unix.SIGTERM)

	grace := time.NewTimer(ps.gracePeriod)
	defer grace.Stop()

	select {
	case <-done:
		// Leader is gone but descendants may have ignored SIGTERM
		_ = unix.Kill(-pgid, unix.SIGKILL)
	case <-grace.C:
		ps.logger.Debug("Grace period expired, killing process group",
			interfaces.F("pgid", pgid))
		_ = unix.Kill(-pgid, unix.SIGKILL)
		<-done
	}
}

func openExploitLog(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	//nolint:gosec // G304: log path is derived from the results directory
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to open exploit log: %w", err)
	}
	return f, nil
}

// outputSinks fans process output out to the capture buffer, the log file
// and the live echo. Stdout and stderr are copied by separate goroutines so
// every write goes through one lock.
type outputSinks struct {
	mu      sync.Mutex
	capture io.Writer
	log     io.Writer
	echo    io.Writer
}

func newSinks(capture io.Writer, logFile *os.File, echo io.Writer) *outputSinks {
	s := &outputSinks{capture: capture}
	if logFile != nil {
		s.log = logFile
	}
	s.echo = echo
	return s
}

func (s *outputSinks) stdout() io.Writer {
	return &lockedWriter{mu: &s.mu, w: multi(s.capture, s.log, s.echo)}
}

func (s *outputSinks) stderr() io.Writer {
	return &lockedWriter{mu: &s.mu, w: multi(s.log, s.echo)}
}

func (s *outputSinks) logOnly(line string) {
	if s.log == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.log, line)
}

func multi(writers ...io.Writer) io.Writer {
	active := make([]io.Writer, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			active = append(active, w)
		}
	}
	if len(active) == 0 {
		return io.Discard
	}
	return io.MultiWriter(active...)
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}
