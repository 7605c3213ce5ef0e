// payload.go defines the JSON wire shape of an error event.

package aisen

import (
	"encoding/json"
	"time"
)

// SystemStatePayload is the JSON form of SystemState.
type SystemStatePayload struct {
	MemoryBytes    int64  `json:"memory_bytes"`
	GoroutineCount int    `json:"goroutine_count"`
	UptimeMs       int64  `json:"uptime_ms"`
	HostName       string `json:"host_name,omitempty"`
}

// EventPayload is the JSON document sinks emit for one ErrorEvent.
// Exceptions keep their raised-first order.
type EventPayload struct {
	EventID      string              `json:"event_id"`
	Timestamp    string              `json:"timestamp,omitempty"`
	Severity     string              `json:"severity"`
	ErrorType    string              `json:"error_type"`
	ErrorClass   string              `json:"error_class,omitempty"`
	Fingerprint  string              `json:"fingerprint,omitempty"`
	Exceptions   Exceptions          `json:"exceptions"`
	Operation    string              `json:"operation,omitempty"`
	OperationID  string              `json:"operation_id,omitempty"`
	AgentName    string              `json:"agent_name,omitempty"`
	ToolName     string              `json:"tool_name,omitempty"`
	ToolArgs     string              `json:"tool_args,omitempty"`
	ContextID    *uint64             `json:"context_id,omitempty"`
	TurnDepth    *int                `json:"turn_depth,omitempty"`
	SystemState  *SystemStatePayload `json:"system_state,omitempty"`
	TokensWasted *int64              `json:"tokens_wasted,omitempty"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
}

// NewEventPayload converts an event to its JSON form.
func NewEventPayload(event ErrorEvent) EventPayload {
	p := EventPayload{
		EventID:      event.EventID,
		Severity:     string(event.Severity),
		ErrorType:    event.ErrorType,
		Fingerprint:  event.Fingerprint,
		Exceptions:   event.Exceptions,
		Operation:    event.Operation,
		OperationID:  event.OperationID,
		AgentName:    event.AgentName,
		ToolName:     event.ToolName,
		ToolArgs:     event.ToolArgs,
		ContextID:    event.ContextID,
		TurnDepth:    event.TurnDepth,
		TokensWasted: event.TokensWasted,
		Metadata:     event.Metadata,
	}
	if !event.Timestamp.IsZero() {
		p.Timestamp = event.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	if first, ok := event.Exceptions.First(); ok {
		p.ErrorClass = first.ErrorClass()
	}
	if st := event.SystemState; st != nil {
		p.SystemState = &SystemStatePayload{
			MemoryBytes:    st.MemoryBytes,
			GoroutineCount: st.GoroutineCount,
			UptimeMs:       st.UptimeMs,
			HostName:       st.HostName,
		}
	}
	return p
}

// MarshalEvent encodes an event as its JSON payload.
func MarshalEvent(event ErrorEvent) ([]byte, error) {
	return json.Marshal(NewEventPayload(event))
}
