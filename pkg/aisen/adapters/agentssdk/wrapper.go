// wrapper.go implements WrappedRunner, which wraps agents.Runner and reports
// run errors and panics as exception chains. Hooks provide enrichment only.

package agentssdk

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/strongdm/ai-agents-sdk/pkg/agents"

	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
)

// WrappedRunner wraps an agents.Runner to capture errors and panics.
type WrappedRunner struct {
	inner       *agents.Runner
	collector   aisen.Collector
	enrichments EnrichmentStore
	builder     *aisen.Builder
	logger      *slog.Logger
	startTime   time.Time
}

// NewWrappedRunner is Instrument with an explicit enrichment store and logger.
// A nil logger uses slog.Default().
func NewWrappedRunner(inner *agents.Runner, collector aisen.Collector, store EnrichmentStore, logger *slog.Logger) *WrappedRunner {
	return Instrument(inner, collector, WithEnrichmentStore(store), WithLogger(logger))
}

// runScope ties one runner call to its enrichment entry and cxdb context.
type runScope struct {
	w         *WrappedRunner
	ctx       context.Context
	id        string
	contextID uint64
	cfg       *agents.RunConfig
}

// begin allocates a run ID and wraps the caller's hooks. A nil session
// leaves the context ID to context propagation.
func (w *WrappedRunner) begin(ctx context.Context, session agents.Session, cfg *agents.RunConfig) *runScope {
	id := uuid.New().String()
	ctx = aisen.WithRunID(ctx, id)
	return &runScope{
		w:         w,
		ctx:       ctx,
		id:        id,
		contextID: w.extractContextID(ctx, session),
		cfg:       w.wrapRunConfig(cfg),
	}
}

// finish records err, if any, as an exception chain.
func (r *runScope) finish(err error) {
	if err != nil {
		r.w.captureError(r.ctx, r.id, r.contextID, err)
	}
}

// end drops the enrichment collected for the run.
func (r *runScope) end() {
	r.w.enrichments.Delete(r.id)
}

// Run executes the agent with the given input and session, capturing any errors or panics.
func (w *WrappedRunner) Run(ctx context.Context, agent *agents.Agent, input string, session agents.Session, cfg *agents.RunConfig) (agents.RunResult, error) {
	run := w.begin(ctx, session, cfg)
	defer run.end()
	defer w.capturePanic(run.ctx, run.id, run.contextID)

	result, err := w.inner.Run(run.ctx, agent, input, session, run.cfg)
	run.finish(err)
	return result, err
}

// RunOnce executes a single turn of the agent, capturing any errors or panics.
// There is no session, so only a context ID carried by ctx is linked.
func (w *WrappedRunner) RunOnce(ctx context.Context, agent *agents.Agent, input string, cfg *agents.RunConfig) (agents.RunResult, error) {
	run := w.begin(ctx, nil, cfg)
	defer run.end()
	defer w.capturePanic(run.ctx, run.id, run.contextID)

	result, err := w.inner.RunOnce(run.ctx, agent, input, run.cfg)
	run.finish(err)
	return result, err
}

// RunStream starts a streaming run, capturing any errors at the start.
// Errors raised while the stream is consumed are not captured here.
func (w *WrappedRunner) RunStream(ctx context.Context, agent *agents.Agent, input string, session agents.Session, cfg *agents.RunConfig) (*agents.StreamingRun, error) {
	run := w.begin(ctx, session, cfg)
	defer w.capturePanic(run.ctx, run.id, run.contextID)

	stream, err := w.inner.RunStream(run.ctx, agent, input, session, run.cfg)
	if err != nil {
		// The stream outlives this call only on success.
		run.finish(err)
		run.end()
	}
	return stream, err
}

// extractContextID prefers the session's own context ID and falls back to
// one attached to ctx.
func (w *WrappedRunner) extractContextID(ctx context.Context, session any) uint64 {
	if provider, ok := session.(aisen.ContextIDProvider); ok {
		if id, err := provider.ContextID(ctx); err == nil {
			return id
		}
	}
	id, _ := aisen.ContextIDFromContext(ctx)
	return id
}

// wrapRunConfig clones cfg and wraps hooks with HookAdapter for enrichment capture.
func (w *WrappedRunner) wrapRunConfig(cfg *agents.RunConfig) *agents.RunConfig {
	var cloned agents.RunConfig
	if cfg != nil {
		cloned = *cfg
	}
	cloned.Hooks = NewHookAdapter(w.enrichments, cloned.Hooks, w.logger)
	return &cloned
}

// captureError records the error's exception chain with enrichment data.
func (w *WrappedRunner) captureError(ctx context.Context, runID string, contextID uint64, err error) {
	enrichment, _ := w.enrichments.Get(runID)
	event := buildErrorEvent(w.builder, err, contextID, enrichment)
	event.SystemState = aisen.CaptureSystemState(w.startTime)
	w.safeRecord(ctx, event)
}

// capturePanic recovers from a panic, records its chain, and re-panics.
func (w *WrappedRunner) capturePanic(ctx context.Context, runID string, contextID uint64) {
	if r := recover(); r != nil {
		enrichment, _ := w.enrichments.Get(runID)
		event := buildPanicEvent(r, debug.Stack(), contextID, enrichment)
		event.SystemState = aisen.CaptureSystemState(w.startTime)
		w.safeRecord(ctx, event)
		panic(r)
	}
}

// safeRecord logs record failures instead of returning them to the caller.
func (w *WrappedRunner) safeRecord(ctx context.Context, event aisen.ErrorEvent) {
	if err := w.collector.Record(ctx, event); err != nil {
		w.logger.WarnContext(ctx, "aisen: failed to record error",
			"error_type", event.ErrorType,
			"exceptions", event.Exceptions.Len(),
			"error", err,
		)
	}
}

// Inner returns the underlying Runner for advanced usage.
func (w *WrappedRunner) Inner() *agents.Runner {
	return w.inner
}
