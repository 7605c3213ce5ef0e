// exceptions.go defines the ordered exception sequence carried by an event.

package aisen

import (
	"encoding/json"
	"iter"
)

// Exceptions is the ordered list of records for one error event. The order
// is causal (raised error first) and is preserved through to the payload.
type Exceptions struct {
	items []Exception
}

// NewExceptions flattens err with the default Builder.
func NewExceptions(err error, traceOverride []StackFrame, boundaryMethod string) (Exceptions, error) {
	return DefaultBuilder().FromError(err, traceOverride, boundaryMethod)
}

// NewLogExceptions builds the single-record sequence for msg with the
// default Builder.
func NewLogExceptions(msg LogMessage) (Exceptions, error) {
	return DefaultBuilder().FromLog(msg)
}

// ExceptionsOf wraps already-built records in construction order.
func ExceptionsOf(items ...Exception) Exceptions {
	if len(items) == 0 {
		return Exceptions{}
	}
	out := make([]Exception, len(items))
	copy(out, items)
	return Exceptions{items: out}
}

// Len returns the number of records.
func (e Exceptions) Len() int { return len(e.items) }

// At returns the i-th record. It panics if i is out of range.
func (e Exceptions) At(i int) Exception { return e.items[i] }

// First returns the raised (outermost) record.
func (e Exceptions) First() (Exception, bool) {
	if len(e.items) == 0 {
		return Exception{}, false
	}
	return e.items[0], true
}

// All iterates the records in order.
func (e Exceptions) All() iter.Seq[Exception] {
	return func(yield func(Exception) bool) {
		for _, item := range e.items {
			if !yield(item) {
				return
			}
		}
	}
}

// Slice returns a copy of the records.
func (e Exceptions) Slice() []Exception {
	out := make([]Exception, len(e.items))
	copy(out, e.items)
	return out
}

// Map returns a new sequence with fn applied to every record.
func (e Exceptions) Map(fn func(Exception) Exception) Exceptions {
	if len(e.items) == 0 {
		return e
	}
	out := make([]Exception, len(e.items))
	for i, item := range e.items {
		out[i] = fn(item)
	}
	return Exceptions{items: out}
}

// MarshalJSON emits the records as a JSON array, never null.
func (e Exceptions) MarshalJSON() ([]byte, error) {
	if e.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e.items)
}
