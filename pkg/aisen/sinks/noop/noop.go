// Package noop provides a sink that discards all events.
// Useful for testing and for disabling error reporting while still
// exercising exception building.
package noop

import (
	"context"
	"sync/atomic"

	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
)

// Sink discards events, counting them and their exception records.
type Sink struct {
	events     atomic.Int64
	exceptions atomic.Int64
}

// NewNoopSink creates a sink that discards all events.
func NewNoopSink() *Sink {
	return &Sink{}
}

// Write discards the event.
func (s *Sink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	s.events.Add(1)
	s.exceptions.Add(int64(event.Exceptions.Len()))
	return nil
}

// Flush does nothing.
func (s *Sink) Flush(ctx context.Context) error {
	return nil
}

// Close does nothing.
func (s *Sink) Close() error {
	return nil
}

// Discarded returns how many events and exception records were written.
func (s *Sink) Discarded() (events, exceptions int64) {
	return s.events.Load(), s.exceptions.Load()
}
