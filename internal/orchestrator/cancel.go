package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// scratchTmpSuffix is the naming convention of the worker's interrupted
// atomic writes. Cleanup removes only files carrying this suffix, never
// anything else, so concurrently running jobs keep their outputs.
const scratchTmpSuffix = ".tmp"

type cancelState int

const (
	cancelActive cancelState = iota
	cancelCancelling
	cancelTerminated
)

// Canceller drives graceful-then-forced termination of one job's worker.
// State machine: active -> cancelling -> terminated. The kill timer is owned
// per job, so concurrent jobs cannot interfere with each other's escalation.
type Canceller struct {
	mu         sync.Mutex
	state      cancelState
	requested  bool
	proc       *Process
	grace      time.Duration
	scratchDir string
	killTimer  *time.Timer
	onCancel   func()
}

func NewCanceller(proc *Process, grace time.Duration, scratchDir string, onCancel func()) *Canceller {
	return &Canceller{
		proc:       proc,
		grace:      grace,
		scratchDir: scratchDir,
		onCancel:   onCancel,
	}
}

// Cancel requests termination of the worker. Safe to call more than once;
// only the first call signals the process and arms the kill timer.
func (c *Canceller) Cancel() {
	c.mu.Lock()
	if c.state != cancelActive {
		c.mu.Unlock()
		return
	}
	c.state = cancelCancelling
	c.requested = true
	c.killTimer = time.AfterFunc(c.grace, c.forceKill)
	c.mu.Unlock()

	if c.onCancel != nil {
		c.onCancel()
	}

	CleanupScratch(c.scratchDir)

	if err := c.proc.Signal(syscall.SIGTERM); err != nil {
		zap.S().Named("canceller").Warnw("failed to signal worker", "error", err)
	}
}

func (c *Canceller) forceKill() {
	c.mu.Lock()
	if c.state != cancelCancelling {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	zap.S().Named("canceller").Infow("worker ignored graceful termination, killing",
		"grace", c.grace)
	if err := c.proc.Signal(syscall.SIGKILL); err != nil {
		zap.S().Named("canceller").Warnw("failed to kill worker", "error", err)
	}
}

// Terminated marks the process as exited and clears the kill timer so a
// stray forced kill cannot hit a reused pid.
func (c *Canceller) Terminated() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = cancelTerminated
	if c.killTimer != nil {
		c.killTimer.Stop()
		c.killTimer = nil
	}
}

// Cancelled reports whether cancellation was requested before termination.
func (c *Canceller) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requested
}

// CleanupScratch removes interrupted atomic-write leftovers from the job's
// scratch directory. Failures are logged and otherwise ignored; cleanup
// never blocks the cancellation flow.
func CleanupScratch(dir string) {
	if dir == "" {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		zap.S().Named("canceller").Debugw("scratch directory not readable", "dir", dir, "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), scratchTmpSuffix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			zap.S().Named("canceller").Warnw("failed to remove partial artifact",
				"path", path, "error", err)
			continue
		}
		zap.S().Named("canceller").Infow("removed partial artifact", "path", path)
	}
}
