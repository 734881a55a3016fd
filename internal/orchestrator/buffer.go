package orchestrator

import "sync"

type queued struct {
	event Event
	prev  *queued
}

// eventQueue is an unbounded FIFO so the coordinator never blocks on a slow
// caller when queueing progress events.
type eventQueue struct {
	lock sync.Mutex
	head *queued
	tail *queued
	size int
}

func newEventQueue() *eventQueue {
	return &eventQueue{}
}

func (q *eventQueue) PushBack(e Event) {
	q.lock.Lock()
	defer q.lock.Unlock()

	msg := &queued{event: e}
	if q.head == nil {
		q.head = msg
		q.tail = msg
	} else {
		q.tail.prev = msg
		q.tail = msg
	}
	q.size++
}

func (q *eventQueue) Pop() (Event, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.head == nil {
		return Event{}, false
	}
	tmp := q.head
	if q.head.prev != nil {
		q.head = q.head.prev
	} else {
		q.head = nil
		q.tail = nil
	}
	q.size--
	return tmp.event, true
}

func (q *eventQueue) Size() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.size
}
