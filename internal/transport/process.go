package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/kr/pty"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/term"
)

// Options configures StartProcess.
type Options struct {
	Path string
	Args []string
	// Env is appended to the host environment.
	Env map[string]string
	// PTY runs the target on a raw pseudo terminal instead of pipes.
	PTY bool
	// Stderr receives the target's stderr when not on a pty. Defaults to os.Stderr.
	Stderr io.Writer
	Logger zerolog.Logger
}

// Process is a target running as a child process. Reads return its
// output and writes feed its input.
type Process struct {
	cmd    *exec.Cmd
	logger zerolog.Logger

	r io.ReadCloser
	w io.WriteCloser

	closeOnce sync.Once
	closeErr  error
}

// StartProcess starts the target binary.
func StartProcess(ctx context.Context, opts Options) (*Process, error) {
	cmd := exec.CommandContext(ctx, opts.Path, opts.Args...)
	cmd.Env = os.Environ()
	for k, v := range opts.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	p := &Process{
		cmd:    cmd,
		logger: opts.Logger.With().Str("component", "transport").Str("binary", opts.Path).Logger(),
	}
	if opts.PTY {
		if err := p.startPTY(); err != nil {
			return nil, err
		}
	} else if err := p.startPipes(opts.Stderr); err != nil {
		return nil, err
	}

	p.logger.Debug().
		Int("pid", cmd.Process.Pid).
		Bool("pty", opts.PTY).
		Msg("Target process started")
	return p, nil
}

func (p *Process) startPipes(stderr io.Writer) error {
	if stderr == nil {
		stderr = os.Stderr
	}
	p.cmd.Stderr = stderr

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", p.cmd.Path, err)
	}
	p.r, p.w = stdout, stdin
	return nil
}

func (p *Process) startPTY() error {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return fmt.Errorf("failed to open PTY: %w", err)
	}
	// Raw mode keeps the line discipline from rewriting protocol bytes.
	if _, err := term.MakeRaw(int(tty.Fd())); err != nil {
		_ = tty.Close()
		_ = ptmx.Close()
		return fmt.Errorf("failed to set PTY raw mode: %w", err)
	}

	p.cmd.Stdin = tty
	p.cmd.Stdout = tty
	p.cmd.Stderr = tty
	if err := p.cmd.Start(); err != nil {
		_ = tty.Close()
		_ = ptmx.Close()
		return fmt.Errorf("failed to start %s with PTY: %w", p.cmd.Path, err)
	}

	// The child has its own copy of the slave side.
	_ = tty.Close()
	p.r, p.w = ptmx, nopWriteCloser{ptmx}
	return nil
}

// Pid is the target's process id.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

func (p *Process) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *Process) Write(b []byte) (int, error) { return p.w.Write(b) }

// Close closes the host ends of the stream.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = errors.Join(p.w.Close(), p.r.Close())
	})
	return p.closeErr
}

// Wait reaps the target and returns its exit code. A non-zero exit is not
// an error.
func (p *Process) Wait() (int, error) {
	p.sample()

	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return -1, fmt.Errorf("failed to wait for target: %w", err)
	}
	code := p.cmd.ProcessState.ExitCode()
	p.logger.Debug().
		Int("exit_code", code).
		Dur("user_time", p.cmd.ProcessState.UserTime()).
		Dur("system_time", p.cmd.ProcessState.SystemTime()).
		Msg("Target process exited")
	return code, nil
}

// sample logs resource usage while the target can still be inspected.
func (p *Process) sample() {
	if p.logger.GetLevel() > zerolog.DebugLevel {
		return
	}
	proc, err := process.NewProcess(int32(p.cmd.Process.Pid))
	if err != nil {
		return
	}
	ev := p.logger.Debug().Int32("pid", proc.Pid)
	if mem, err := proc.MemoryInfo(); err == nil {
		ev = ev.Uint64("rss_bytes", mem.RSS)
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		ev = ev.Float64("cpu_percent", cpu)
	}
	ev.Msg("Target process usage")
}
