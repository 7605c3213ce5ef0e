// instrument.go provides the Instrument function for convenient runner setup.
// This is the recommended entry point for integrating aisen with ai-agents-sdk.

package agentssdk

import (
	"log/slog"
	"time"

	"github.com/strongdm/ai-agents-sdk/pkg/agents"

	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
)

// WrapOption configures a WrappedRunner.
type WrapOption func(*WrappedRunner)

// WithLogger sets the logger for the wrapper and its hooks.
// The logger is used for debug output and for failures to record errors.
func WithLogger(logger *slog.Logger) WrapOption {
	return func(w *WrappedRunner) {
		w.logger = logger
	}
}

// WithEnrichmentStore sets the enrichment store for the wrapper.
// The store is used to correlate hook data with errors captured at the runner boundary.
func WithEnrichmentStore(store EnrichmentStore) WrapOption {
	return func(w *WrappedRunner) {
		if store != nil {
			w.enrichments = store
		}
	}
}

// WithBuilder sets the Builder used to turn run errors into exception chains.
func WithBuilder(builder *aisen.Builder) WrapOption {
	return func(w *WrappedRunner) {
		if builder != nil {
			w.builder = builder
		}
	}
}

// Instrument wraps a Runner with error and panic capture.
//
// Example:
//
//	collector := aisen.NewCollector(aisen.WithSink(sink))
//	runner := agents.NewRunner(client)
//	wrapped := agentssdk.Instrument(runner, collector)
//	result, err := wrapped.Run(ctx, agent, input, session, nil)
func Instrument(baseRunner *agents.Runner, collector aisen.Collector, opts ...WrapOption) *WrappedRunner {
	wrapper := &WrappedRunner{
		inner:       baseRunner,
		collector:   collector,
		enrichments: NewEnrichmentStore(),
		builder:     aisen.DefaultBuilder(),
		startTime:   time.Now(),
	}

	for _, opt := range opts {
		opt(wrapper)
	}
	if wrapper.logger == nil {
		wrapper.logger = slog.Default()
	}

	return wrapper
}
