// enrichment_store.go provides thread-safe storage for per-run enrichment data
// that correlates hooks with errors captured by WrappedRunner.

package agentssdk

import "sync"

// Enrichment contains per-run context captured from hooks.
// This data is merged into ErrorEvents when errors occur.
type Enrichment struct {
	// AgentName is the name of the agent that was running.
	AgentName string

	// Model is the LLM model being used.
	Model string

	// ToolName is the name of the tool being called.
	ToolName string

	// ToolCallID is the unique ID of the tool call.
	ToolCallID string

	// HandoffTo is the agent most recently handed off to.
	HandoffTo string

	// Operation indicates what type of operation was in progress (tool, llm, guardrail, handoff).
	Operation string

	// OperationID is an identifier for the specific operation.
	OperationID string

	trail *breadcrumbRing
}

// RecordBreadcrumb appends b to the run's trail, evicting the oldest entry
// once DefaultBreadcrumbLimit is reached.
func (e *Enrichment) RecordBreadcrumb(b Breadcrumb) {
	if e.trail == nil {
		e.trail = newBreadcrumbRing(DefaultBreadcrumbLimit)
	}
	e.trail.add(b)
}

// Breadcrumbs returns the trail, oldest first. Never nil.
func (e Enrichment) Breadcrumbs() []Breadcrumb {
	if e.trail == nil {
		return []Breadcrumb{}
	}
	return e.trail.ordered()
}

// lastBreadcrumb returns the most recent breadcrumb of kind for in-place update.
func (e *Enrichment) lastBreadcrumb(kind string) *Breadcrumb {
	if e.trail == nil {
		return nil
	}
	return e.trail.last(kind)
}

// Metadata returns the event metadata derived from the enrichment.
// Empty fields are omitted; nil when nothing applies.
func (e Enrichment) Metadata() map[string]string {
	meta := map[string]string{}
	if e.Model != "" {
		meta["aisen.model"] = e.Model
	}
	if e.HandoffTo != "" {
		meta["aisen.handoff_to"] = e.HandoffTo
	}
	if trail := marshalBreadcrumbs(e.Breadcrumbs()); trail != "" {
		meta[BreadcrumbsMetadataKey] = trail
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// EnrichmentStore provides thread-safe storage for per-run enrichment data.
// Implementations must be safe for concurrent use.
type EnrichmentStore interface {
	// Update applies fn to the enrichment for runID, creating it if needed.
	// fn is called while holding the lock; it must be fast and must not
	// call other EnrichmentStore methods.
	Update(runID string, fn func(e *Enrichment))

	// Get returns a copy of the enrichment for runID.
	// Returns zero value and false if not found.
	Get(runID string) (Enrichment, bool)

	// Delete removes the enrichment for runID.
	Delete(runID string)
}

// inMemoryEnrichmentStore is the default EnrichmentStore implementation.
type inMemoryEnrichmentStore struct {
	mu   sync.RWMutex
	data map[string]*Enrichment
}

// NewEnrichmentStore creates a new in-memory enrichment store.
func NewEnrichmentStore() EnrichmentStore {
	return &inMemoryEnrichmentStore{
		data: make(map[string]*Enrichment),
	}
}

// Update applies fn to the enrichment for runID, creating it if needed.
func (s *inMemoryEnrichmentStore) Update(runID string, fn func(e *Enrichment)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[runID]
	if !ok {
		e = &Enrichment{}
		s.data[runID] = e
	}
	fn(e)
}

// Get returns a deep copy of the enrichment for runID.
func (s *inMemoryEnrichmentStore) Get(runID string) (Enrichment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[runID]
	if !ok {
		return Enrichment{}, false
	}
	c := *e
	c.trail = e.trail.clone()
	return c, true
}

// Delete removes the enrichment for runID.
func (s *inMemoryEnrichmentStore) Delete(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
}
