package orchestrator

import "go.uber.org/zap"

// FrameWriter serializes one event frame to the caller's transport.
type FrameWriter interface {
	WriteFrame(e Event) error
}

// Channel is the ordered push stream between the job coordinator and the
// caller. Pushes never block; a single consumer goroutine drains the queue
// into the frame writer in arrival order. Close flushes everything still
// queued, so the terminal event is always written before the channel goes
// away.
type Channel struct {
	queue    *eventQueue
	wakeCh   chan struct{}
	doneCh   chan struct{}
	closedCh chan struct{}
	writer   FrameWriter
}

func NewChannel(w FrameWriter) *Channel {
	c := &Channel{
		queue:    newEventQueue(),
		wakeCh:   make(chan struct{}, 1),
		doneCh:   make(chan struct{}),
		closedCh: make(chan struct{}),
		writer:   w,
	}
	go c.run()
	return c
}

// Push queues an event for delivery.
func (c *Channel) Push(e Event) {
	c.queue.PushBack(e)
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

// Close waits until every queued event has been handed to the writer.
func (c *Channel) Close() {
	close(c.doneCh)
	<-c.closedCh
}

func (c *Channel) run() {
	defer close(c.closedCh)
	for {
		c.drain()
		select {
		case <-c.wakeCh:
		case <-c.doneCh:
			c.drain()
			return
		}
	}
}

func (c *Channel) drain() {
	for {
		e, ok := c.queue.Pop()
		if !ok {
			return
		}
		if err := c.writer.WriteFrame(e); err != nil {
			// the caller is gone; delivery is best-effort
			zap.S().Named("event_channel").Debugw("failed to write event frame",
				"type", e.Type, "error", err)
		}
	}
}
