package orchestrator

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
)

// NDJSONWriter encodes events as newline-delimited JSON frames. When the
// underlying writer supports flushing (an http.ResponseWriter does), each
// frame is flushed immediately so the caller sees progress in real time.
type NDJSONWriter struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

var _ FrameWriter = (*NDJSONWriter)(nil)

func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	nw := &NDJSONWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		nw.flusher = f
	}
	return nw
}

func (nw *NDJSONWriter) WriteFrame(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	nw.mu.Lock()
	defer nw.mu.Unlock()

	if _, err := nw.w.Write(append(data, '\n')); err != nil {
		return err
	}
	if nw.flusher != nil {
		nw.flusher.Flush()
	}
	return nil
}
