// breadcrumbs.go keeps a bounded trail of the LLM and tool operations that
// led up to an error.

package agentssdk

import (
	"encoding/json"
	"time"
)

// DefaultBreadcrumbLimit is the number of operations kept per run.
const DefaultBreadcrumbLimit = 20

// BreadcrumbsMetadataKey is the event metadata key holding the JSON trail.
const BreadcrumbsMetadataKey = "aisen.breadcrumbs_json"

// Breadcrumb records one operation of a run.
type Breadcrumb struct {
	Kind       string    `json:"kind"` // "llm", "tool" or "handoff"
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	AgentName  string    `json:"agent_name,omitempty"`

	LLM  *LLMBreadcrumb  `json:"llm,omitempty"`
	Tool *ToolBreadcrumb `json:"tool,omitempty"`

	// HandoffTo is the receiving agent of a handoff.
	HandoffTo string `json:"handoff_to,omitempty"`
}

// LLMBreadcrumb holds request and response metadata for one LLM call.
// Message text is never stored.
type LLMBreadcrumb struct {
	Model        string   `json:"model"`
	Provider     string   `json:"provider,omitempty"`
	MessageCount int      `json:"message_count"`
	ToolNames    []string `json:"tool_names,omitempty"`

	FinishReason  string   `json:"finish_reason,omitempty"`
	ToolCallNames []string `json:"tool_call_names,omitempty"`
	TotalTokens   int      `json:"usage_total,omitempty"`
}

// ToolBreadcrumb holds metadata for one tool call.
type ToolBreadcrumb struct {
	Name       string `json:"name"`
	CallID     string `json:"call_id,omitempty"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size,omitempty"`
}

// breadcrumbRing is a bounded ring buffer, oldest entry overwritten first.
type breadcrumbRing struct {
	items []Breadcrumb
	limit int
	next  int
}

func newBreadcrumbRing(limit int) *breadcrumbRing {
	if limit <= 0 {
		limit = DefaultBreadcrumbLimit
	}
	return &breadcrumbRing{limit: limit}
}

func (r *breadcrumbRing) add(b Breadcrumb) {
	if len(r.items) < r.limit {
		r.items = append(r.items, b)
		return
	}
	r.items[r.next] = b
	r.next = (r.next + 1) % r.limit
}

// ordered returns a copy of the trail, oldest first.
func (r *breadcrumbRing) ordered() []Breadcrumb {
	out := make([]Breadcrumb, 0, len(r.items))
	if len(r.items) < r.limit {
		return append(out, r.items...)
	}
	out = append(out, r.items[r.next:]...)
	return append(out, r.items[:r.next]...)
}

// last returns the most recent breadcrumb of kind, or nil.
func (r *breadcrumbRing) last(kind string) *Breadcrumb {
	for i := len(r.items) - 1; i >= 0; i-- {
		idx := i
		if len(r.items) == r.limit {
			idx = (r.next + i) % r.limit
		}
		if r.items[idx].Kind == kind {
			return &r.items[idx]
		}
	}
	return nil
}

func (r *breadcrumbRing) clone() *breadcrumbRing {
	if r == nil {
		return nil
	}
	c := *r
	c.items = append([]Breadcrumb(nil), r.items...)
	return &c
}

// marshalBreadcrumbs encodes a trail, returning "" for an empty trail.
func marshalBreadcrumbs(trail []Breadcrumb) string {
	if len(trail) == 0 {
		return ""
	}
	data, err := json.Marshal(trail)
	if err != nil {
		return ""
	}
	return string(data)
}
