// builders.go builds ErrorEvents from run errors and panics.

package agentssdk

import (
	"maps"
	"strings"

	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
)

var guardrailPatterns = []string{
	"guardrail",
	"content policy",
	"safety filter",
	"blocked by policy",
}

// buildErrorEvent creates an ErrorEvent from a run error with enrichment data.
// The error's cause tree becomes the event's exception chain. If the tree
// cannot be flattened, the event carries the root error alone.
func buildErrorEvent(builder *aisen.Builder, err error, contextID uint64, enrichment Enrichment) aisen.ErrorEvent {
	event := aisen.ErrorEvent{
		Severity:  aisen.SeverityError,
		ErrorType: classifyError(err),
	}

	exceptions, buildErr := builder.FromError(err, nil, "")
	if buildErr != nil {
		root, rootErr := builder.Build(err, []aisen.StackFrame{}, "")
		if rootErr == nil {
			exceptions = aisen.ExceptionsOf(root)
		}
		event.Metadata = map[string]string{"aisen.exceptions_error": buildErr.Error()}
	}
	event.Exceptions = exceptions

	enrich(&event, contextID, enrichment)
	return event
}

// buildPanicEvent creates a crash event from a recovered panic value and the
// goroutine dump taken while panicking.
func buildPanicEvent(recovered any, stack []byte, contextID uint64, enrichment Enrichment) aisen.ErrorEvent {
	event := aisen.PanicEvent(recovered, stack)
	enrich(&event, contextID, enrichment)
	return event
}

func enrich(event *aisen.ErrorEvent, contextID uint64, enrichment Enrichment) {
	event.Operation = enrichment.Operation
	event.OperationID = enrichment.OperationID
	event.AgentName = enrichment.AgentName
	event.ToolName = enrichment.ToolName

	if meta := enrichment.Metadata(); meta != nil {
		if event.Metadata == nil {
			event.Metadata = meta
		} else {
			maps.Copy(event.Metadata, meta)
		}
	}

	if contextID != 0 {
		event.ContextID = &contextID
	}
}

// classifyError determines the error type: timeout and canceled for context
// errors, guardrail for policy rejections, error otherwise.
func classifyError(err error) string {
	if err == nil {
		return "error"
	}
	if errorType := aisen.ClassifyErrorType(err); errorType != "error" {
		return errorType
	}
	if containsGuardrailPattern(err.Error()) {
		return "guardrail"
	}
	return "error"
}

// containsGuardrailPattern checks if an error message indicates a guardrail violation.
func containsGuardrailPattern(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range guardrailPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
