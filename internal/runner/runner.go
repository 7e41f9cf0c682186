package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/tildaslashalef/codeboost/internal/loggy"
)

// Kind classifies how a process run ended
type Kind string

const (
	KindOK           Kind = "ok"
	KindCompileError Kind = "compile_error"
	KindRuntimeError Kind = "runtime_error"
	KindTimeout      Kind = "timeout"
)

// timeoutExitCode is what coreutils timeout reports
const timeoutExitCode = 124

// Config controls process execution
type Config struct {
	Shell         string
	Timeout       time.Duration
	MaxOutputSize int64
}

// Result describes one executed command line
type Result struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Kind     Kind
	Duration time.Duration
	Err      error
}

// OK reports whether the command exited cleanly
func (r *Result) OK() bool {
	return r.Kind == KindOK
}

// ErrorText is what gets sent back to the model as the error message:
// stderr when present, otherwise stdout, otherwise the exit reason.
func (r *Result) ErrorText() string {
	if r.OK() {
		return ""
	}
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	if s := strings.TrimSpace(r.Stdout); s != "" {
		return s
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return fmt.Sprintf("exit status %d", r.ExitCode)
}

// Runner executes shell command lines
type Runner struct {
	config Config
	logger *loggy.Logger
}

// New creates a runner. Zero values in cfg get defaults.
func New(cfg Config) *Runner {
	if cfg.Shell == "" {
		cfg.Shell = "sh"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Runner{config: cfg, logger: loggy.Component("runner")}
}

// Execute runs command through the shell in dir, feeding stdin. The process
// group is killed when the timeout expires or ctx is cancelled.
func (r *Runner) Execute(ctx context.Context, command, stdin, dir string) *Result {
	start := time.Now()
	result := &Result{Command: command}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.config.Shell, "-c", command)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	stdout := &cappedBuffer{limit: r.config.MaxOutputSize}
	stderr := &cappedBuffer{limit: r.config.MaxOutputSize}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.Kind = KindTimeout
		result.ExitCode = timeoutExitCode
		result.Err = fmt.Errorf("command timed out after %v", r.config.Timeout)
	case err == nil:
		result.Kind = KindOK
	default:
		result.Kind = KindRuntimeError
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = 1
			result.Err = err
		}
		if ctx.Err() != nil {
			result.Err = ctx.Err()
		}
	}

	r.logger.Debug("Command finished",
		"command", command,
		"dir", dir,
		"kind", result.Kind,
		"exit_code", result.ExitCode,
		"duration", result.Duration)

	return result
}

// RunPlan compiles (when the plan has a compile step) and then runs. A failed
// compile step is reported as KindCompileError and the run step is skipped.
func (r *Runner) RunPlan(ctx context.Context, plan Plan, stdin string) *Result {
	if plan.Compile != "" {
		if res := r.Compile(ctx, plan); !res.OK() {
			return res
		}
	}
	return r.Execute(ctx, plan.Run, stdin, plan.Dir)
}

// Compile runs only the compile step. Plans without one succeed immediately.
func (r *Runner) Compile(ctx context.Context, plan Plan) *Result {
	if plan.Compile == "" {
		return &Result{Kind: KindOK}
	}
	res := r.Execute(ctx, plan.Compile, "", plan.Dir)
	if res.Kind == KindRuntimeError {
		res.Kind = KindCompileError
	}
	return res
}

// cappedBuffer keeps at most limit bytes and drops the rest. Writes never
// fail so the child is not killed by a broken pipe.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.limit <= 0 {
		return b.buf.Write(p)
	}
	room := b.limit - int64(b.buf.Len())
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if int64(len(p)) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + "\n... (output truncated)"
	}
	return b.buf.String()
}
