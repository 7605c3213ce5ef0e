// hooks.go implements RunHooks for capturing operation context for enrichment.
// This adapter provides ENRICHMENT only; error detection is done by WrappedRunner.

package agentssdk

import (
	"context"
	"log/slog"
	"time"

	"github.com/strongdm/ai-agents-sdk/pkg/agents"
	llmsdk "github.com/strongdm/ai-llm-sdk/pkg/llm"

	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
)

// HookAdapter implements agents.RunHooks to capture operation context.
// It delegates to an inner RunHooks and records enrichment and breadcrumbs
// for correlation with errors.
type HookAdapter struct {
	store  EnrichmentStore
	inner  agents.RunHooks
	logger *slog.Logger
	now    func() time.Time
}

// NewHookAdapter wraps an existing RunHooks and captures operation context.
//
// The inner hooks (if non-nil) are called for all hook methods; only their
// errors are returned. A nil logger discards debug output.
func NewHookAdapter(store EnrichmentStore, inner agents.RunHooks, logger *slog.Logger) agents.RunHooks {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HookAdapter{
		store:  store,
		inner:  inner,
		logger: logger,
		now:    time.Now,
	}
}

// OnAgentStart captures the agent name for enrichment.
func (h *HookAdapter) OnAgentStart(ctx context.Context, runCtx *agents.AgentHookContext, agent *agents.Agent) error {
	if agent != nil {
		h.update(ctx, func(e *Enrichment) {
			e.AgentName = agent.Name()
		})
	}

	if h.inner != nil {
		return h.inner.OnAgentStart(ctx, runCtx, agent)
	}
	return nil
}

// OnAgentEnd delegates to inner hooks.
func (h *HookAdapter) OnAgentEnd(ctx context.Context, runCtx *agents.AgentHookContext, agent *agents.Agent, result agents.RunResult) error {
	if h.inner != nil {
		return h.inner.OnAgentEnd(ctx, runCtx, agent, result)
	}
	return nil
}

// OnHandoff records the handoff target.
func (h *HookAdapter) OnHandoff(ctx context.Context, runCtx *agents.RunContext, from *agents.Agent, to *agents.Agent) error {
	h.update(ctx, func(e *Enrichment) {
		crumb := Breadcrumb{Kind: "handoff", Timestamp: h.now()}
		if from != nil {
			crumb.AgentName = from.Name()
		}
		if to != nil {
			e.HandoffTo = to.Name()
			crumb.HandoffTo = to.Name()
		}
		e.Operation = "handoff"
		e.RecordBreadcrumb(crumb)
	})

	if h.inner != nil {
		return h.inner.OnHandoff(ctx, runCtx, from, to)
	}
	return nil
}

// OnToolStart captures tool context for enrichment.
func (h *HookAdapter) OnToolStart(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, tool agents.Tool, call llmsdk.ToolCall) error {
	h.update(ctx, func(e *Enrichment) {
		if agent != nil {
			e.AgentName = agent.Name()
		}
		e.Operation = "tool"
		e.ToolName = tool.Name
		e.ToolCallID = call.ID
		e.OperationID = call.ID
		e.RecordBreadcrumb(Breadcrumb{
			Kind:      "tool",
			Timestamp: h.now(),
			AgentName: e.AgentName,
			Tool: &ToolBreadcrumb{
				Name:      tool.Name,
				CallID:    call.ID,
				InputSize: len(call.Arguments),
			},
		})
	})

	if h.inner != nil {
		return h.inner.OnToolStart(ctx, runCtx, agent, tool, call)
	}
	return nil
}

// OnToolEnd completes the tool breadcrumb.
func (h *HookAdapter) OnToolEnd(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, tool agents.Tool, output string) error {
	h.update(ctx, func(e *Enrichment) {
		if crumb := e.lastBreadcrumb("tool"); crumb != nil && crumb.Tool != nil && crumb.Tool.Name == tool.Name {
			crumb.Tool.OutputSize = len(output)
			crumb.DurationMs = h.now().Sub(crumb.Timestamp).Milliseconds()
		}
	})

	if h.inner != nil {
		return h.inner.OnToolEnd(ctx, runCtx, agent, tool, output)
	}
	return nil
}

// OnLLMStart captures LLM context for enrichment.
func (h *HookAdapter) OnLLMStart(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, req llmsdk.Request) error {
	h.update(ctx, func(e *Enrichment) {
		if agent != nil {
			e.AgentName = agent.Name()
		}
		e.Operation = "llm"
		e.Model = req.Model
		e.RecordBreadcrumb(Breadcrumb{
			Kind:      "llm",
			Timestamp: h.now(),
			AgentName: e.AgentName,
			LLM:       newLLMBreadcrumb(req),
		})
	})

	if h.inner != nil {
		return h.inner.OnLLMStart(ctx, runCtx, agent, req)
	}
	return nil
}

// OnLLMEnd completes the LLM breadcrumb with response metadata.
func (h *HookAdapter) OnLLMEnd(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, resp llmsdk.Response) error {
	h.update(ctx, func(e *Enrichment) {
		if crumb := e.lastBreadcrumb("llm"); crumb != nil {
			crumb.LLM.applyResponse(resp)
			crumb.DurationMs = h.now().Sub(crumb.Timestamp).Milliseconds()
		}
	})

	if h.inner != nil {
		return h.inner.OnLLMEnd(ctx, runCtx, agent, resp)
	}
	return nil
}

// update applies fn to the enrichment of the run in ctx. Calls outside a
// wrapped run are ignored.
func (h *HookAdapter) update(ctx context.Context, fn func(e *Enrichment)) {
	runID, ok := aisen.RunIDFromContext(ctx)
	if !ok {
		h.logger.DebugContext(ctx, "aisen: hook called without run ID")
		return
	}
	h.store.Update(runID, fn)
}
