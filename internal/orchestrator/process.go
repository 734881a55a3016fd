package orchestrator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// Process owns the OS-level worker child process for one job. The process is
// started in its own process group so termination signals reach any children
// the worker spawns.
type Process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
}

// StartProcess locates and launches the worker executable. It fails fast
// when the binary cannot be found or spawned; that is a terminal condition
// for the job.
func StartProcess(binary string, args []string, workingDir string, env []string) (*Process, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("worker executable %q not found: %w", binary, err)
	}

	cmd := exec.Command(path, args...)
	cmd.Dir = workingDir
	cmd.Env = append(os.Environ(), env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("wiring worker stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("wiring worker stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawning worker %q: %w", binary, err)
	}

	return &Process{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// Stdout returns the worker's stdout stream. Valid until Wait returns.
func (p *Process) Stdout() io.Reader {
	return p.stdout
}

// Stderr returns the worker's stderr stream. Workers emit protocol markers
// on either stream, so stderr is decoded the same way as stdout.
func (p *Process) Stderr() io.Reader {
	return p.stderr
}

// Wait blocks until the process exits. A nil error means exit code 0. Must
// be called after both streams have been drained.
func (p *Process) Wait() error {
	return p.cmd.Wait()
}

// Signal sends sig to the worker's process group. It is idempotent and
// tolerates the process having already exited.
func (p *Process) Signal(sig syscall.Signal) error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := syscall.Kill(-p.cmd.Process.Pid, sig); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return err
	}
	return nil
}

// ExitCode translates the error returned by Wait into the worker's exit
// code. -1 means the process never ran or was killed by a signal.
func ExitCode(waitErr error) int {
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
