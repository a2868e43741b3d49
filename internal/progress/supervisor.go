package progress

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

const (
	defaultStallTimeout     = 5 * time.Minute
	defaultTerminationGrace = 10 * time.Second
	diagnosticLineLimit     = 40
	maxLineBytes            = 1024 * 1024
)

// EngineFailure reports an external engine that exited non-zero, stopped
// producing output, or whose output stream broke. Diagnostics carries the
// tail of the engine's combined output.
type EngineFailure struct {
	Engine      string
	Stalled     bool
	Err         error
	Diagnostics string
}

func (e *EngineFailure) Error() string {
	msg := fmt.Sprintf("%s failed", e.Engine)
	if e.Stalled {
		msg = fmt.Sprintf("%s stalled", e.Engine)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Diagnostics != "" {
		msg += ": " + e.Diagnostics
	}
	return msg
}

func (e *EngineFailure) Unwrap() error { return e.Err }

// SuperviseOptions configures one supervised engine invocation.
type SuperviseOptions struct {
	// Engine names the external tool for error reporting.
	Engine string
	// StallTimeout bounds the silence between output lines before the
	// process is treated as hung.
	StallTimeout time.Duration
	// TerminationGrace is the pause between SIGTERM and SIGKILL.
	TerminationGrace time.Duration
	// HandleLine receives every combined stdout/stderr line, in order, from
	// a single goroutine.
	HandleLine func(line string)
}

// Supervise starts cmd and owns it for its whole lifetime: it is the only
// reader of the process's output streams and the only caller of Wait. The
// process is terminated (SIGTERM, then SIGKILL after the grace period) when
// ctx is cancelled or when no output arrives within the stall timeout.
func Supervise(ctx context.Context, cmd *exec.Cmd, opts SuperviseOptions) error {
	if opts.Engine == "" {
		opts.Engine = "engine"
	}
	if opts.StallTimeout <= 0 {
		opts.StallTimeout = defaultStallTimeout
	}
	if opts.TerminationGrace <= 0 {
		opts.TerminationGrace = defaultTerminationGrace
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", opts.Engine, err)
	}

	lines := make(chan string)
	scanDone := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
		scanDone <- scanner.Err()
	}()

	diag := newTail(diagnosticLineLimit)
	stall := time.NewTimer(opts.StallTimeout)
	defer stall.Stop()

	for {
		select {
		case <-ctx.Done():
			terminate(cmd, lines, scanDone, opts.TerminationGrace)
			return ctx.Err()

		case <-stall.C:
			terminate(cmd, lines, scanDone, opts.TerminationGrace)
			return &EngineFailure{
				Engine:      opts.Engine,
				Stalled:     true,
				Err:         fmt.Errorf("no output for %s", opts.StallTimeout),
				Diagnostics: diag.String(),
			}

		case line, ok := <-lines:
			if !ok {
				scanErr := <-scanDone
				waitErr := cmd.Wait()
				if waitErr != nil {
					return &EngineFailure{Engine: opts.Engine, Err: waitErr, Diagnostics: diag.String()}
				}
				if scanErr != nil {
					return &EngineFailure{Engine: opts.Engine, Err: fmt.Errorf("read output: %w", scanErr), Diagnostics: diag.String()}
				}
				return nil
			}
			diag.add(line)
			if opts.HandleLine != nil {
				opts.HandleLine(line)
			}
			if !stall.Stop() {
				select {
				case <-stall.C:
				default:
				}
			}
			stall.Reset(opts.StallTimeout)
		}
	}
}

// terminate asks the process to exit, escalates to SIGKILL after the grace
// period, drains the output stream, and reaps the process.
func terminate(cmd *exec.Cmd, lines <-chan string, scanDone <-chan error, grace time.Duration) {
	if cmd.Process != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM)
	}
	graceTimer := time.NewTimer(grace)
	defer graceTimer.Stop()
	killed := false
	for lines != nil {
		select {
		case _, ok := <-lines:
			if !ok {
				lines = nil
			}
		case <-graceTimer.C:
			if !killed && cmd.Process != nil {
				_ = cmd.Process.Kill()
				killed = true
			}
		}
	}
	<-scanDone
	_ = cmd.Wait()
}

// tail keeps the last n lines of engine output for diagnostics.
type tail struct {
	limit int
	lines []string
}

func newTail(limit int) *tail {
	return &tail{limit: limit}
}

func (t *tail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
}

func (t *tail) String() string {
	return strings.Join(t.lines, "\n")
}
