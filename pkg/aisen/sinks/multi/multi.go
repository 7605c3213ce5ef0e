// Package multi provides a sink that fans events out to several routes.
// Each route may restrict the severities and error types it receives;
// failures from individual routes are aggregated.
package multi

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
)

// Route pairs a sink with the events it accepts.
type Route struct {
	Sink aisen.Sink

	// MinSeverity drops events less severe than this. Empty accepts all.
	MinSeverity aisen.Severity

	// ErrorTypes restricts delivery to these error types. Empty accepts all.
	ErrorTypes []string
}

func (r Route) accepts(event aisen.ErrorEvent) bool {
	if r.MinSeverity != "" && !event.Severity.AtLeast(r.MinSeverity) {
		return false
	}
	if len(r.ErrorTypes) > 0 && !slices.Contains(r.ErrorTypes, event.ErrorType) {
		return false
	}
	return true
}

// multiSink fans out to multiple routes.
type multiSink struct {
	routes []Route
}

// NewMultiSink creates a sink that writes every event to every sink.
func NewMultiSink(sinks ...aisen.Sink) aisen.Sink {
	routes := make([]Route, 0, len(sinks))
	for _, s := range sinks {
		routes = append(routes, Route{Sink: s})
	}
	return NewRouter(routes...)
}

// NewRouter creates a sink that writes each event to the routes accepting it.
// Nil sinks are skipped.
func NewRouter(routes ...Route) aisen.Sink {
	kept := make([]Route, 0, len(routes))
	for _, r := range routes {
		if r.Sink != nil {
			kept = append(kept, r)
		}
	}
	return &multiSink{routes: kept}
}

// Write sends the event to every accepting route. All routes are called
// even if some fail; the failures are joined.
func (s *multiSink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	var errs []error
	for i, r := range s.routes {
		if !r.accepts(event) {
			continue
		}
		if err := r.Sink.Write(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("route %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Flush flushes every route.
func (s *multiSink) Flush(ctx context.Context) error {
	var errs []error
	for i, r := range s.routes {
		if err := r.Sink.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("route %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every route.
func (s *multiSink) Close() error {
	var errs []error
	for i, r := range s.routes {
		if err := r.Sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("route %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
