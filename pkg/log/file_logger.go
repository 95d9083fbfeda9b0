package log

import (
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// StreamLogger writes CBOR-encoded events to an io.WriteCloser.
// It is safe for concurrent use.
type StreamLogger struct {
	mu      sync.Mutex
	w       io.WriteCloser
	encoder *cbor.Encoder
	written int
	closed  bool
}

// NewStreamLogger wraps w. Closing the logger closes w.
func NewStreamLogger(w io.WriteCloser) *StreamLogger {
	return &StreamLogger{w: w, encoder: NewEncoder(w)}
}

// NewFileLogger opens path for appending (creating it with 0644) and
// returns a logger writing to it.
func NewFileLogger(path string) (*StreamLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return NewStreamLogger(f), nil
}

// Log encodes the event. Encoding errors are dropped; capture must never
// disturb the session being captured.
func (l *StreamLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.encoder.Encode(event); err == nil {
		l.written++
	}
}

// Written returns the number of events encoded so far.
func (l *StreamLogger) Written() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Close closes the underlying writer. Later Log calls are ignored.
func (l *StreamLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.w.Close()
}

var _ Logger = (*StreamLogger)(nil)
