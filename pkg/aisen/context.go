// context.go carries run IDs and cxdb context IDs on context.Context so that
// exception chains recorded deep in a call stack can be linked to the run
// and conversation they happened in.

package aisen

import "context"

type ctxKey uint8

const (
	runIDKey ctxKey = iota
	contextIDKey
)

// WithRunID attaches the run ID used to correlate hook enrichment with
// errors surfacing at the runner boundary.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext reports the run ID attached to ctx. An empty ID counts as
// unset.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, _ := ctx.Value(runIDKey).(string)
	return id, id != ""
}

// WithContextID attaches a cxdb context ID. Notify, NotifyLog and Recover
// copy it onto the events they build.
func WithContextID(ctx context.Context, contextID uint64) context.Context {
	return context.WithValue(ctx, contextIDKey, contextID)
}

// ContextIDFromContext reports the cxdb context ID attached to ctx. Zero is a
// valid ID; ok distinguishes it from an unset one.
func ContextIDFromContext(ctx context.Context) (id uint64, ok bool) {
	id, ok = ctx.Value(contextIDKey).(uint64)
	return id, ok
}

// ContextIDProvider is implemented by sessions that know their cxdb context,
// such as the ai-agents-sdk CXDBSession.
type ContextIDProvider interface {
	ContextID(ctx context.Context) (uint64, error)
}
