package agentssdk

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/strongdm/ai-agents-sdk/pkg/agents"
	llmsdk "github.com/strongdm/ai-llm-sdk/pkg/llm"

	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
)

// mockRunHooks implements agents.RunHooks for testing.
type mockRunHooks struct {
	agentStartCalled bool
	toolStartCalled  bool
	llmStartCalled   bool
	returnErr        error
}

func (m *mockRunHooks) OnAgentStart(ctx context.Context, runCtx *agents.AgentHookContext, agent *agents.Agent) error {
	m.agentStartCalled = true
	return m.returnErr
}

func (m *mockRunHooks) OnAgentEnd(ctx context.Context, runCtx *agents.AgentHookContext, agent *agents.Agent, result agents.RunResult) error {
	return m.returnErr
}

func (m *mockRunHooks) OnHandoff(ctx context.Context, runCtx *agents.RunContext, from *agents.Agent, to *agents.Agent) error {
	return m.returnErr
}

func (m *mockRunHooks) OnToolStart(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, tool agents.Tool, call llmsdk.ToolCall) error {
	m.toolStartCalled = true
	return m.returnErr
}

func (m *mockRunHooks) OnToolEnd(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, tool agents.Tool, output string) error {
	return m.returnErr
}

func (m *mockRunHooks) OnLLMStart(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, req llmsdk.Request) error {
	m.llmStartCalled = true
	return m.returnErr
}

func (m *mockRunHooks) OnLLMEnd(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, resp llmsdk.Response) error {
	return m.returnErr
}

func TestHookAdapter_ImplementsRunHooks(t *testing.T) {
	store := NewEnrichmentStore()
	logger := slog.New(slog.DiscardHandler)
	var _ agents.RunHooks = NewHookAdapter(store, nil, logger)
}

func TestHookAdapter_OnToolStart_CapturesEnrichment(t *testing.T) {
	store := NewEnrichmentStore()
	logger := slog.New(slog.DiscardHandler)
	adapter := NewHookAdapter(store, nil, logger)

	ctx := context.Background()
	ctx = aisen.WithRunID(ctx, "run-123")

	agent := agents.NewAgent(agents.AgentConfig{Name: "test-agent"})
	tool := agents.Tool{Name: "WebSearch"}
	call := llmsdk.ToolCall{ID: "call-456"}

	err := adapter.OnToolStart(ctx, nil, agent, tool, call)
	if err != nil {
		t.Fatalf("OnToolStart returned error: %v", err)
	}

	// Check enrichment was captured
	enrichment, ok := store.Get("run-123")
	if !ok {
		t.Fatal("Enrichment not found for run-123")
	}

	if enrichment.AgentName != "test-agent" {
		t.Errorf("AgentName = %q, want %q", enrichment.AgentName, "test-agent")
	}
	if enrichment.ToolName != "WebSearch" {
		t.Errorf("ToolName = %q, want %q", enrichment.ToolName, "WebSearch")
	}
	if enrichment.ToolCallID != "call-456" {
		t.Errorf("ToolCallID = %q, want %q", enrichment.ToolCallID, "call-456")
	}
	if enrichment.Operation != "tool" {
		t.Errorf("Operation = %q, want %q", enrichment.Operation, "tool")
	}
}

func TestHookAdapter_OnAgentStart_CapturesAgentName(t *testing.T) {
	store := NewEnrichmentStore()
	logger := slog.New(slog.DiscardHandler)
	adapter := NewHookAdapter(store, nil, logger)

	ctx := context.Background()
	ctx = aisen.WithRunID(ctx, "run-456")

	agent := agents.NewAgent(agents.AgentConfig{Name: "my-agent"})

	err := adapter.OnAgentStart(ctx, nil, agent)
	if err != nil {
		t.Fatalf("OnAgentStart returned error: %v", err)
	}

	enrichment, ok := store.Get("run-456")
	if !ok {
		t.Fatal("Enrichment not found")
	}

	if enrichment.AgentName != "my-agent" {
		t.Errorf("AgentName = %q, want %q", enrichment.AgentName, "my-agent")
	}
}

func TestHookAdapter_DelegatesToInner(t *testing.T) {
	store := NewEnrichmentStore()
	logger := slog.New(slog.DiscardHandler)
	inner := &mockRunHooks{}
	adapter := NewHookAdapter(store, inner, logger)

	ctx := context.Background()
	ctx = aisen.WithRunID(ctx, "run-test")

	agent := agents.NewAgent(agents.AgentConfig{Name: "agent"})
	tool := agents.Tool{Name: "Tool"}

	// Call OnToolStart
	adapter.OnToolStart(ctx, nil, agent, tool, llmsdk.ToolCall{})

	if !inner.toolStartCalled {
		t.Error("Inner hook OnToolStart was not called")
	}
}

func TestHookAdapter_ReturnsInnerError(t *testing.T) {
	store := NewEnrichmentStore()
	logger := slog.New(slog.DiscardHandler)
	expectedErr := errors.New("inner hook error")
	inner := &mockRunHooks{returnErr: expectedErr}
	adapter := NewHookAdapter(store, inner, logger)

	ctx := context.Background()
	ctx = aisen.WithRunID(ctx, "run-test")

	agent := agents.NewAgent(agents.AgentConfig{Name: "agent"})
	tool := agents.Tool{Name: "Tool"}

	err := adapter.OnToolStart(ctx, nil, agent, tool, llmsdk.ToolCall{})

	if !errors.Is(err, expectedErr) {
		t.Errorf("Expected inner error %v, got %v", expectedErr, err)
	}
}

func TestHookAdapter_HandlesNoRunID(t *testing.T) {
	store := NewEnrichmentStore()
	logger := slog.New(slog.DiscardHandler)
	adapter := NewHookAdapter(store, nil, logger)

	ctx := context.Background() // No run ID

	agent := agents.NewAgent(agents.AgentConfig{Name: "agent"})

	// Should not panic
	err := adapter.OnAgentStart(ctx, nil, agent)
	if err != nil {
		t.Errorf("OnAgentStart returned error: %v", err)
	}
}

func TestHookAdapter_OnLLMStart_CapturesModel(t *testing.T) {
	store := NewEnrichmentStore()
	logger := slog.New(slog.DiscardHandler)
	adapter := NewHookAdapter(store, nil, logger)

	ctx := context.Background()
	ctx = aisen.WithRunID(ctx, "run-llm")

	agent := agents.NewAgent(agents.AgentConfig{Name: "agent"})
	req := llmsdk.Request{Model: "gpt-4o"}

	err := adapter.OnLLMStart(ctx, nil, agent, req)
	if err != nil {
		t.Fatalf("OnLLMStart returned error: %v", err)
	}

	enrichment, ok := store.Get("run-llm")
	if !ok {
		t.Fatal("Enrichment not found")
	}

	if enrichment.Model != "gpt-4o" {
		t.Errorf("Model = %q, want %q", enrichment.Model, "gpt-4o")
	}
	if enrichment.Operation != "llm" {
		t.Errorf("Operation = %q, want %q", enrichment.Operation, "llm")
	}
}

func TestHookAdapter_RecordsBreadcrumbsWithDurations(t *testing.T) {
	store := NewEnrichmentStore()
	adapter := NewHookAdapter(store, nil, nil).(*HookAdapter)

	clock := time.Date(2025, 1, 26, 12, 0, 0, 0, time.UTC)
	adapter.now = func() time.Time { return clock }

	ctx := aisen.WithRunID(context.Background(), "run-trail")
	agent := agents.NewAgent(agents.AgentConfig{Name: "agent"})

	req := llmsdk.Request{Model: "gpt-4o"}
	if err := adapter.OnLLMStart(ctx, nil, agent, req); err != nil {
		t.Fatalf("OnLLMStart returned error: %v", err)
	}
	clock = clock.Add(250 * time.Millisecond)
	resp := llmsdk.Response{
		ToolCalls:    []llmsdk.ToolCall{{ID: "call-1", Name: "WebSearch"}},
		FinishReason: llmsdk.FinishReasonToolCalls,
	}
	if err := adapter.OnLLMEnd(ctx, nil, agent, resp); err != nil {
		t.Fatalf("OnLLMEnd returned error: %v", err)
	}

	tool := agents.Tool{Name: "WebSearch"}
	call := llmsdk.ToolCall{ID: "call-1", Name: "WebSearch", Arguments: []byte(`{"q":"go"}`)}
	if err := adapter.OnToolStart(ctx, nil, agent, tool, call); err != nil {
		t.Fatalf("OnToolStart returned error: %v", err)
	}
	clock = clock.Add(40 * time.Millisecond)
	if err := adapter.OnToolEnd(ctx, nil, agent, tool, "result"); err != nil {
		t.Fatalf("OnToolEnd returned error: %v", err)
	}

	enrichment, _ := store.Get("run-trail")
	trail := enrichment.Breadcrumbs()
	if len(trail) != 2 {
		t.Fatalf("len(trail) = %d, want 2", len(trail))
	}

	llm := trail[0]
	if llm.Kind != "llm" || llm.LLM == nil {
		t.Fatalf("first breadcrumb = %+v, want llm", llm)
	}
	if llm.DurationMs != 250 {
		t.Errorf("llm DurationMs = %d, want 250", llm.DurationMs)
	}
	if llm.LLM.Model != "gpt-4o" {
		t.Errorf("Model = %q, want %q", llm.LLM.Model, "gpt-4o")
	}
	if len(llm.LLM.ToolCallNames) != 1 || llm.LLM.ToolCallNames[0] != "WebSearch" {
		t.Errorf("ToolCallNames = %v, want [WebSearch]", llm.LLM.ToolCallNames)
	}

	tb := trail[1]
	if tb.Kind != "tool" || tb.Tool == nil {
		t.Fatalf("second breadcrumb = %+v, want tool", tb)
	}
	if tb.DurationMs != 40 {
		t.Errorf("tool DurationMs = %d, want 40", tb.DurationMs)
	}
	if tb.Tool.InputSize != len(`{"q":"go"}`) || tb.Tool.OutputSize != len("result") {
		t.Errorf("tool sizes = %d/%d", tb.Tool.InputSize, tb.Tool.OutputSize)
	}
}

func TestHookAdapter_OnHandoff_CapturesTarget(t *testing.T) {
	store := NewEnrichmentStore()
	inner := &mockRunHooks{}
	adapter := NewHookAdapter(store, inner, nil)

	ctx := aisen.WithRunID(context.Background(), "run-handoff")
	from := agents.NewAgent(agents.AgentConfig{Name: "triage"})
	to := agents.NewAgent(agents.AgentConfig{Name: "billing"})

	if err := adapter.OnHandoff(ctx, nil, from, to); err != nil {
		t.Fatalf("OnHandoff returned error: %v", err)
	}

	enrichment, ok := store.Get("run-handoff")
	if !ok {
		t.Fatal("Enrichment not found")
	}
	if enrichment.Operation != "handoff" {
		t.Errorf("Operation = %q, want %q", enrichment.Operation, "handoff")
	}
	if enrichment.HandoffTo != "billing" {
		t.Errorf("HandoffTo = %q, want %q", enrichment.HandoffTo, "billing")
	}
	trail := enrichment.Breadcrumbs()
	if len(trail) != 1 || trail[0].AgentName != "triage" || trail[0].HandoffTo != "billing" {
		t.Errorf("trail = %+v, want one triage->billing handoff", trail)
	}
}
