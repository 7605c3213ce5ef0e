// Package cxdb provides a sink that persists exception events to cxdb as
// SystemMessage items. Events without a conversation context are filed in
// fresh orphan contexts. With WithOrphanGrouping, repeats of the same
// fingerprint accumulate as turns of a single context instead, for as long
// as the fingerprint stays in a bounded LRU.
package cxdb

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"
)

const (
	maxTitleLen   = 100
	maxSummaryLen = 80

	// DefaultOrphanLimit is the number of fingerprints WithOrphanGrouping
	// remembers when given a non-positive limit.
	DefaultOrphanLimit = 1024
)

// CXDBClient is the minimal interface for cxdb client operations.
// The real *cxdb.Client satisfies this interface.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// CXDBSinkOption configures the CXDB sink.
type CXDBSinkOption func(*cxdbSinkConfig)

type cxdbSinkConfig struct {
	orphanLabels []string
	clientTag    string
	orphanLimit  int
}

// WithOrphanLabels sets labels for orphan error contexts.
func WithOrphanLabels(labels []string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.orphanLabels = labels
	}
}

// WithClientTag sets the client tag for orphan contexts.
func WithClientTag(tag string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.clientTag = tag
	}
}

// WithOrphanGrouping files orphan events sharing a fingerprint in one
// context. At most limit fingerprints are remembered; the least recently
// used is forgotten first and its next event starts a new context.
func WithOrphanGrouping(limit int) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		if limit <= 0 {
			limit = DefaultOrphanLimit
		}
		c.orphanLimit = limit
	}
}

// WithoutOrphanGrouping creates a fresh orphan context for every event.
// This is the default.
func WithoutOrphanGrouping() CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.orphanLimit = 0
	}
}

type orphanHead struct {
	contextID uint64
	turnID    uint64
}

// cxdbSink writes exception events to cxdb.
type cxdbSink struct {
	client       CXDBClient
	orphanLabels []string
	clientTag    string

	// orphans is nil unless grouping is enabled.
	mu      sync.Mutex
	orphans *lru.Cache[string, orphanHead]
}

// NewCXDBSink creates a sink that writes to cxdb.
func NewCXDBSink(client CXDBClient, opts ...CXDBSinkOption) aisen.Sink {
	cfg := &cxdbSinkConfig{
		orphanLabels: []string{"error", "unlinked"},
		clientTag:    "aisen",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	sink := &cxdbSink{
		client:       client,
		orphanLabels: cfg.orphanLabels,
		clientTag:    cfg.clientTag,
	}
	if cfg.orphanLimit > 0 {
		// New only fails for a non-positive size.
		sink.orphans, _ = lru.New[string, orphanHead](cfg.orphanLimit)
	}
	return sink
}

// Write persists an error event to cxdb.
func (s *cxdbSink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	if event.ContextID != nil {
		_, err := s.appendItem(ctx, *event.ContextID, 0, event, false)
		return err
	}

	// Serialize orphan writes so a fingerprint maps to exactly one context.
	s.mu.Lock()
	defer s.mu.Unlock()

	key := event.Fingerprint
	group := s.orphans != nil && key != ""
	var head orphanHead
	var known bool
	if group {
		head, known = s.orphans.Get(key)
	}
	if !known {
		created, err := s.client.CreateContext(ctx, 0)
		if err != nil {
			return fmt.Errorf("create orphan context: %w", err)
		}
		head = orphanHead{contextID: created.ContextID}
		known = false
	}

	result, err := s.appendItem(ctx, head.contextID, head.turnID, event, !known)
	if err != nil {
		return err
	}
	if group {
		s.orphans.Add(key, orphanHead{contextID: head.contextID, turnID: result.TurnID})
	}
	return nil
}

func (s *cxdbSink) appendItem(ctx context.Context, contextID, parentTurnID uint64, event aisen.ErrorEvent, firstTurn bool) (*cxdbclient.AppendResult, error) {
	item, err := s.buildConversationItem(event, firstTurn)
	if err != nil {
		return nil, err
	}

	payload, err := cxdbclient.EncodeMsgpack(item)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req := &cxdbclient.AppendRequest{
		ContextID:      contextID,
		ParentTurnID:   parentTurnID,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        payload,
		IdempotencyKey: event.EventID,
	}

	result, err := s.client.AppendTurn(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}
	return result, nil
}

// buildConversationItem creates a canonical ConversationItem from an ErrorEvent.
// The first turn of an orphan context carries the context metadata.
func (s *cxdbSink) buildConversationItem(event aisen.ErrorEvent, firstTurn bool) (*cxdtypes.ConversationItem, error) {
	content, err := aisen.MarshalEvent(event)
	if err != nil {
		return nil, fmt.Errorf("encode details: %w", err)
	}

	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: event.Timestamp.UnixMilli(),
		ID:        event.EventID,
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   buildTitle(event),
			Content: string(content),
		},
	}

	if firstTurn {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    s.orphanLabels,
			ClientTag: s.clientTag,
		}
	}

	return item, nil
}

// buildTitle renders "error_type: Class: message", truncated.
func buildTitle(event aisen.ErrorEvent) string {
	title := event.ErrorType
	if _, ok := event.Exceptions.First(); ok {
		summary := truncate(event.Summary(), maxSummaryLen)
		if title == "" {
			title = summary
		} else {
			title += ": " + summary
		}
	}
	return truncate(title, maxTitleLen)
}

// truncate limits s to n bytes, cutting on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Flush is a no-op; writes are synchronous.
func (s *cxdbSink) Flush(ctx context.Context) error {
	return nil
}

// Close forgets the orphan contexts.
func (s *cxdbSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orphans != nil {
		s.orphans.Purge()
	}
	return nil
}
