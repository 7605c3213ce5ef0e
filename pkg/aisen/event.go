// event.go defines the canonical error event data structure for aisen.

package aisen

import "time"

// Severity indicates the severity level of an error event.
type Severity string

const (
	// SeverityWarning indicates a non-fatal issue that may need attention.
	SeverityWarning Severity = "warning"

	// SeverityError indicates a recoverable error that caused an operation to fail.
	SeverityError Severity = "error"

	// SeverityCrash indicates an unrecoverable error such as a panic.
	SeverityCrash Severity = "crash"
)

// rank orders severities from least to most severe; unknown values rank lowest.
func (s Severity) rank() int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityError:
		return 2
	case SeverityCrash:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as min or more.
func (s Severity) AtLeast(min Severity) bool {
	return s.rank() >= min.rank()
}

// SystemState captures system metrics at the time of an error.
type SystemState struct {
	// MemoryBytes is the current memory allocation in bytes.
	MemoryBytes int64

	// GoroutineCount is the number of active goroutines.
	GoroutineCount int

	// UptimeMs is the process uptime in milliseconds.
	UptimeMs int64

	// HostName is the hostname of the machine where the error occurred.
	HostName string
}

// ErrorEvent is the canonical error representation.
// All fields are populated by the collector before passing to sinks.
type ErrorEvent struct {
	// Identity fields

	// EventID is a unique identifier for this error event (UUID).
	EventID string

	// Timestamp is when the error occurred.
	Timestamp time.Time

	// Fingerprint is a hash of the event's stable attributes.
	Fingerprint string

	// Error details

	// Severity indicates the error severity (warning, error, crash).
	Severity Severity

	// ErrorType categorizes the event (panic, error, log, timeout, canceled, guardrail).
	ErrorType string

	// Exceptions is the ordered exception chain, raised error first.
	Exceptions Exceptions

	// Operation context

	// Operation indicates what was happening (tool, llm, guardrail, handoff).
	Operation string

	// OperationID is an optional identifier (e.g., tool call ID).
	OperationID string

	// AgentName is the name of the agent that was running.
	AgentName string

	// ToolName is the name of the tool that failed (if applicable).
	ToolName string

	// ToolArgs is the scrubbed JSON representation of tool arguments.
	ToolArgs string

	// Conversation context

	// ContextID is the optional cxdb context ID for linking to conversation.
	// Uses pointer to distinguish "not set" from "zero value".
	ContextID *uint64

	// TurnDepth is the optional turn number in the conversation.
	TurnDepth *int

	// SystemState captures system metrics at error time.
	SystemState *SystemState

	// TokensWasted is the optional count of tokens consumed before failure.
	TokensWasted *int64

	// Metadata contains scrubbed key-value pairs for additional context.
	Metadata map[string]string
}

// Summary returns "class: message" of the raised exception, or the error
// type when the event has no exceptions.
func (e ErrorEvent) Summary() string {
	if first, ok := e.Exceptions.First(); ok {
		return first.String()
	}
	return e.ErrorType
}
