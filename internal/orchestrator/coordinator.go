package orchestrator

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/archivemind/insight-api/pkg/metrics"
)

// Job terminal states.
const (
	StateCompleted = "completed"
	StateFailed    = "failed"
	StateCancelled = "cancelled"
)

const stderrTailSize = 4 * 1024

// Options configures one job run.
type Options struct {
	JobID       uuid.UUID
	Kind        string
	Binary      string
	Args        []string
	WorkingDir  string
	ScratchDir  string
	GracePeriod time.Duration
	Writer      FrameWriter
}

// Outcome summarises a finished job for persistence.
type Outcome struct {
	State     string
	Result    json.RawMessage
	Error     string
	ErrorType string
	Phase     string
	Stats     map[string]any
	Cost      map[string]float64
	Duration  time.Duration
}

type chunk struct {
	data       string
	fromStderr bool
}

// Coordinator drives one job end to end: it launches the worker, decodes its
// interleaved stdout/stderr output into typed events, pushes them to the
// caller in arrival order and reacts to cancellation. The accumulator and
// parser are not thread safe; both pumps feed a single reducer goroutine so
// they are never touched concurrently.
type Coordinator struct {
	opts    Options
	accum   Accumulator
	channel *Channel

	mu              sync.Mutex
	canceller       *Canceller
	cancelRequested bool

	phase      string
	stats      map[string]any
	cost       map[string]float64
	result     json.RawMessage
	stderrTail []byte
}

func NewCoordinator(opts Options) *Coordinator {
	return &Coordinator{
		opts:  opts,
		stats: make(map[string]any),
		cost:  make(map[string]float64),
	}
}

// Cancel requests cancellation of the running worker. Safe to call at any
// point of the job's lifetime, including more than once.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	c.cancelRequested = true
	canceller := c.canceller
	c.mu.Unlock()

	if canceller != nil {
		canceller.Cancel()
	}
}

// Run executes the job until the worker exits and the terminal event has
// been flushed. Cancellation of ctx (caller disconnect) cancels the job.
func (c *Coordinator) Run(ctx context.Context) Outcome {
	start := time.Now()
	logger := zap.S().Named("coordinator").With("job_id", c.opts.JobID, "kind", c.opts.Kind)

	c.channel = NewChannel(c.opts.Writer)
	defer c.channel.Close()

	c.emit(Event{Type: EventStart, Message: fmt.Sprintf("Starting %s analysis", c.opts.Kind)})

	proc, err := StartProcess(c.opts.Binary, c.opts.Args, c.opts.WorkingDir, nil)
	if err != nil {
		logger.Errorw("failed to start worker", "error", err)
		c.emit(Event{Type: EventError, Error: err.Error(), ErrorType: "spawn_failure"})
		return Outcome{
			State:     StateFailed,
			Error:     err.Error(),
			ErrorType: "spawn_failure",
			Stats:     c.stats,
			Cost:      c.cost,
			Duration:  time.Since(start),
		}
	}
	logger.Infow("worker started", "binary", c.opts.Binary)

	canceller := NewCanceller(proc, c.opts.GracePeriod, c.opts.ScratchDir, func() {
		logger.Infow("cancellation requested, stopping worker")
		c.emit(Event{Type: EventLog, Message: "Cancellation requested, stopping analysis"})
	})

	c.mu.Lock()
	c.canceller = canceller
	requested := c.cancelRequested
	c.mu.Unlock()
	if requested {
		canceller.Cancel()
	}

	// caller disconnect drives the same cancellation path
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			canceller.Cancel()
		case <-watchDone:
		}
	}()

	chunks := make(chan chunk, 64)
	pumps := new(errgroup.Group)
	pumps.Go(func() error {
		c.pump(proc.Stdout(), false, chunks)
		return nil
	})
	pumps.Go(func() error {
		c.pump(proc.Stderr(), true, chunks)
		return nil
	})
	go func() {
		_ = pumps.Wait()
		close(chunks)
	}()

	for ck := range chunks {
		if ck.fromStderr {
			c.appendStderrTail(ck.data)
		}
		for _, ev := range c.reduce(ck) {
			c.observe(ev)
			c.emit(ev)
		}
	}

	waitErr := proc.Wait()
	canceller.Terminated()

	outcome := c.finalize(waitErr, canceller.Cancelled(), time.Since(start))
	logger.Infow("job finished", "state", outcome.State, "duration", outcome.Duration)
	return outcome
}

// pump forwards chunks of one stream to the reducer. Chunks are split on
// newlines so marker lines arrive whole; a trailing unterminated fragment is
// still forwarded at EOF for the accumulator's sake.
func (c *Coordinator) pump(r io.Reader, fromStderr bool, out chan<- chunk) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			out <- chunk{data: line, fromStderr: fromStderr}
		}
		if err != nil {
			return
		}
	}
}

// reduce turns one raw chunk into zero or more events. The accumulator gets
// the chunk first; marker parsing only sees it when the accumulator is not
// consuming, keeping the two mutually exclusive per chunk.
func (c *Coordinator) reduce(ck chunk) []Event {
	if ev, consumed := c.accum.Feed(ck.data); consumed {
		if ev != nil {
			return []Event{*ev}
		}
		return nil
	}

	var events []Event
	for _, line := range strings.Split(ck.data, "\n") {
		if ev, ok := ParseLine(line, ck.fromStderr); ok {
			events = append(events, ev)
		}
	}
	return events
}

// observe accumulates job statistics from the event flow.
func (c *Coordinator) observe(ev Event) {
	metrics.IncreaseWorkerEventsMetric(string(ev.Type))

	switch ev.Type {
	case EventPhase:
		c.phase = ev.Phase
	case EventStat:
		c.stats[ev.Key] = ev.Value
	case EventCost:
		for k, v := range ev.Values {
			c.cost[k] += v
			metrics.AddWorkerCostMetric(k, v)
		}
	case EventResult:
		c.result = ev.Result
	}
}

func (c *Coordinator) emit(ev Event) {
	c.channel.Push(ev)
}

func (c *Coordinator) appendStderrTail(s string) {
	c.stderrTail = append(c.stderrTail, s...)
	if overflow := len(c.stderrTail) - stderrTailSize; overflow > 0 {
		c.stderrTail = c.stderrTail[overflow:]
	}
}

// finalize pushes exactly one terminal event and builds the outcome. On
// cancellation the close of the stream itself is the terminal marker; the
// log event announcing cancellation has already been queued.
func (c *Coordinator) finalize(waitErr error, cancelled bool, duration time.Duration) Outcome {
	outcome := Outcome{
		Phase:    c.phase,
		Stats:    c.stats,
		Cost:     c.cost,
		Duration: duration,
	}

	switch {
	case cancelled:
		outcome.State = StateCancelled
	case waitErr == nil:
		outcome.State = StateCompleted
		outcome.Result = c.result
		c.emit(Event{Type: EventComplete})
	default:
		errorType, message := classifyFailure(ExitCode(waitErr), string(c.stderrTail))
		outcome.State = StateFailed
		outcome.Error = message
		outcome.ErrorType = errorType
		c.emit(Event{Type: EventError, Error: message, ErrorType: errorType})
	}

	return outcome
}

type failureCategory struct {
	match     string
	errorType string
	message   string
}

// failureCategories map known worker stderr fragments to actionable
// remediation messages instead of raw stack traces.
var failureCategories = []failureCategory{
	{
		match:     "database not found",
		errorType: "database_not_found",
		message:   "Corpus database not found. Run a full index build before starting analyses.",
	},
	{
		match:     "no known extraction strategy",
		errorType: "no_extraction_strategy",
		message:   "The library source has no known extraction strategy.",
	},
	{
		match:     "extraction failed",
		errorType: "extraction_failed",
		message:   "Content extraction failed. The library source may be corrupted or unsupported.",
	},
}

func classifyFailure(exitCode int, stderrTail string) (errorType, message string) {
	detail := lastNonEmptyLine(stderrTail)
	lower := strings.ToLower(stderrTail)

	for _, cat := range failureCategories {
		if strings.Contains(lower, cat.match) {
			if detail != "" {
				return cat.errorType, fmt.Sprintf("%s (%s)", cat.message, detail)
			}
			return cat.errorType, cat.message
		}
	}

	if detail != "" {
		return "unknown_error", fmt.Sprintf("worker exited with code %d: %s", exitCode, detail)
	}
	return "unknown_error", fmt.Sprintf("worker exited with code %d", exitCode)
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
