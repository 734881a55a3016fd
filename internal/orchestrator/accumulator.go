package orchestrator

import (
	"bytes"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// maxAccumulatorSize caps the buffer so malformed or truncated worker output
// cannot grow it without bound.
const maxAccumulatorSize = 64 * 1024

// Accumulator reconstructs the single trailing JSON object a worker may write
// in arbitrarily sized chunks. A chunk may start mid-object, end mid-object,
// or be the whole payload. While the accumulator is consuming, chunks must
// not also be fed to the marker parser; the coordinator checks Consuming()
// to keep the two mutually exclusive.
//
// Completeness is approximated by the cheap "starts with '{' and ends with
// '}'" check rather than brace-depth tracking. The worker contract never
// emits unescaped braces inside string values, and the size ceiling guards
// the pathological case.
type Accumulator struct {
	buf bytes.Buffer
}

// Consuming reports whether a partial JSON object is buffered.
func (a *Accumulator) Consuming() bool {
	return a.buf.Len() > 0
}

// Feed offers a chunk to the accumulator. consumed=false means the chunk was
// not taken and should go to the line parser instead. When the buffered text
// parses as a complete object, the decoded payload is returned as a result
// event and the buffer is reset.
func (a *Accumulator) Feed(chunk string) (ev *Event, consumed bool) {
	if !a.Consuming() && !strings.HasPrefix(strings.TrimSpace(chunk), "{") {
		return nil, false
	}

	a.buf.WriteString(chunk)

	trimmed := strings.TrimSpace(a.buf.String())
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") && json.Valid([]byte(trimmed)) {
		a.buf.Reset()
		return &Event{Type: EventResult, Result: json.RawMessage(trimmed)}, true
	}

	// still incomplete; guard against runaway growth
	if a.buf.Len() > maxAccumulatorSize {
		zap.S().Named("accumulator").Warnw("discarding oversized result buffer",
			"size", a.buf.Len())
		a.buf.Reset()
	}

	return nil, true
}
