package stderr

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
)

func TestStderrSink_ImplementsSinkInterface(t *testing.T) {
	var _ aisen.Sink = NewStderrSink()
}

func chainEvent() aisen.ErrorEvent {
	frames := []aisen.StackFrame{
		{Method: "main.loadConfig", File: "/app/config.go", LineNumber: 42, InProject: true},
		{Method: "main.main", File: "/app/main.go", LineNumber: 10, InProject: true},
	}
	return aisen.ErrorEvent{
		EventID:     "evt-123",
		Timestamp:   time.Date(2025, 1, 26, 15, 4, 5, 0, time.UTC),
		Fingerprint: "abc123def456",
		Severity:    aisen.SeverityError,
		ErrorType:   "error",
		Exceptions: aisen.ExceptionsOf(
			aisen.NewException("wrapError", "load config", frames),
			aisen.NewException("PathError", "open /etc/app.yaml: no such file or directory", nil),
		),
		Operation: "tool",
		AgentName: "researcher",
		ToolName:  "WebSearch",
	}
}

func TestStderrSink_Write_FormatsOutput(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStderrSink(WithWriter(&buf))

	if err := sink.Write(context.Background(), chainEvent()); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"[AISEN] 2025-01-26T15:04:05Z ERROR error",
		"in tool",
		"WebSearch",
		"(agent: researcher)",
		"Exception: wrapError: load config",
		"Caused by: PathError: open /etc/app.yaml",
		"Fingerprint: abc123def456",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output should contain %q, got:\n%s", want, output)
		}
	}
}

func TestStderrSink_Write_PreservesExceptionOrder(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStderrSink(WithWriter(&buf))

	_ = sink.Write(context.Background(), chainEvent())
	output := buf.String()

	first := strings.Index(output, "wrapError")
	second := strings.Index(output, "PathError")
	if first < 0 || second < 0 || first > second {
		t.Errorf("raised exception should be printed before its cause, got:\n%s", output)
	}
}

func TestStderrSink_Write_IncludesContext(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStderrSink(WithWriter(&buf))

	contextID := uint64(12345)
	turnDepth := 7
	event := aisen.ErrorEvent{
		Severity:  aisen.SeverityWarning,
		ErrorType: "test",
		ContextID: &contextID,
		TurnDepth: &turnDepth,
	}

	_ = sink.Write(context.Background(), event)
	output := buf.String()

	if !strings.Contains(output, "Context: 12345 (turn 7)") {
		t.Errorf("Output should contain context ID and turn depth, got:\n%s", output)
	}
}

func TestStderrSink_WithVerbose_IncludesStackTrace(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStderrSink(WithVerbose(), WithWriter(&buf))

	_ = sink.Write(context.Background(), chainEvent())
	output := buf.String()

	if !strings.Contains(output, "at main.loadConfig (/app/config.go:42)") {
		t.Errorf("Verbose output should include frames, got:\n%s", output)
	}
}

func TestStderrSink_WithoutVerbose_OmitsStackTrace(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStderrSink(WithWriter(&buf))

	_ = sink.Write(context.Background(), chainEvent())

	if strings.Contains(buf.String(), "main.loadConfig") {
		t.Errorf("Non-verbose output should not include frames")
	}
}

func TestStderrSink_FlushAndClose_AreNoOps(t *testing.T) {
	sink := NewStderrSink()
	if err := sink.Flush(context.Background()); err != nil {
		t.Errorf("Flush returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
}
