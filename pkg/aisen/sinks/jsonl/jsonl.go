// Package jsonl provides a sink that writes each event as one line of JSON,
// wrapped in the {"events":[...]} envelope accepted by error-report
// ingestion endpoints.
package jsonl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("jsonl sink is closed")

type envelope struct {
	Events []aisen.EventPayload `json:"events"`
}

// jsonlSink encodes events to w, one envelope per line.
type jsonlSink struct {
	mu     sync.Mutex
	w      io.Writer
	enc    *json.Encoder
	closed bool
}

// NewJSONLSink creates a sink writing to w. If w is an io.Closer, Close
// closes it.
func NewJSONLSink(w io.Writer) aisen.Sink {
	return &jsonlSink{w: w, enc: json.NewEncoder(w)}
}

// Write encodes one event followed by a newline.
func (s *jsonlSink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.enc.Encode(envelope{Events: []aisen.EventPayload{aisen.NewEventPayload(event)}}); err != nil {
		return fmt.Errorf("encode event %s: %w", event.EventID, err)
	}
	return nil
}

// Flush syncs the writer when it supports it.
func (s *jsonlSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.w.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}

// Close marks the sink closed and closes the writer if it is an io.Closer.
func (s *jsonlSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
