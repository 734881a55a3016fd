package orchestrator

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frameRecorder captures frames for assertions.
type frameRecorder struct {
	mu     sync.Mutex
	frames []Event
	err    error
}

func (r *frameRecorder) WriteFrame(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, e)
	return nil
}

func (r *frameRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.frames))
	copy(out, r.frames)
	return out
}

func (r *frameRecorder) Types() []EventType {
	var types []EventType
	for _, e := range r.Events() {
		types = append(types, e.Type)
	}
	return types
}

func TestChannelPreservesOrder(t *testing.T) {
	rec := &frameRecorder{}
	ch := NewChannel(rec)

	const n = 500
	for i := 0; i < n; i++ {
		ch.Push(Event{Type: EventLog, Message: fmt.Sprintf("line %d", i)})
	}
	ch.Close()

	events := rec.Events()
	require.Len(t, events, n)
	for i, e := range events {
		assert.Equal(t, fmt.Sprintf("line %d", i), e.Message)
	}
}

func TestChannelCloseFlushesQueuedEvents(t *testing.T) {
	rec := &frameRecorder{}
	ch := NewChannel(rec)

	ch.Push(Event{Type: EventPhase, Phase: "searching"})
	ch.Push(Event{Type: EventComplete})
	ch.Close()

	assert.Equal(t, []EventType{EventPhase, EventComplete}, rec.Types())
}

func TestChannelToleratesWriterFailure(t *testing.T) {
	rec := &frameRecorder{err: errors.New("caller gone")}
	ch := NewChannel(rec)

	assert.NotPanics(t, func() {
		ch.Push(Event{Type: EventLog, Message: "hello"})
		ch.Push(Event{Type: EventComplete})
		ch.Close()
	})
}

func TestEventQueueFIFO(t *testing.T) {
	q := newEventQueue()

	_, ok := q.Pop()
	assert.False(t, ok)

	q.PushBack(Event{Type: EventStart})
	q.PushBack(Event{Type: EventPhase})
	q.PushBack(Event{Type: EventComplete})
	assert.Equal(t, 3, q.Size())

	e, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, EventStart, e.Type)

	e, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, EventPhase, e.Type)

	e, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, EventComplete, e.Type)

	_, ok = q.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Size())
}
