// flatten.go walks an error tree into a single ordered sequence.

package aisen

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
)

// ErrCauseCycle is matched (via errors.Is) by the error reported when an
// error tree links back to one of its own ancestors.
var ErrCauseCycle = errors.New("aisen: cause chain contains a cycle")

// CycleError reports the node at which a cause chain revisited an ancestor.
type CycleError struct {
	// Type is the display name of the revisited error's type.
	Type string

	// Depth is the number of links between the root and the revisit.
	Depth int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("aisen: cause chain revisits %s at depth %d", e.Type, e.Depth)
}

// Unwrap returns ErrCauseCycle.
func (e *CycleError) Unwrap() error {
	return ErrCauseCycle
}

// Flattener produces the nodes of an error tree in reporting order: the
// raised error first, then its cause chain. Aggregate children follow their
// parent in original order, each with its own sub-chain resolved before the
// next child. Nil causes, including typed nil pointers, are absent.
//
// Iteration is lazy and may be stopped early; calling All again restarts the
// walk from the root.
//
// Cycles are detected for errors of pointer, slice and map kind. A struct
// value error that links back to itself only through value copies cannot be
// told apart from a fresh error and is not detected.
type Flattener struct {
	root error
	err  error
}

// Flatten returns a Flattener rooted at err. A nil root yields no nodes.
func Flatten(root error) *Flattener {
	return &Flattener{root: root}
}

// causeNode is a pending work item.
type causeNode struct {
	err   error
	depth int
}

// All returns the flattened sequence.
func (f *Flattener) All() iter.Seq[error] {
	return func(yield func(error) bool) {
		f.err = nil
		if isNilError(f.root) {
			return
		}

		var path ancestorPath
		stack := []causeNode{{err: f.root}}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if isNilError(n.err) {
				continue
			}

			// Pre-order: the open nodes shallower than n are its ancestors.
			path.truncate(n.depth)
			if !path.push(n.err) {
				f.err = &CycleError{
					Type:  DisplayTypeNames{}.DisplayName(reflect.TypeOf(n.err)),
					Depth: n.depth,
				}
				return
			}
			if !yield(n.err) {
				return
			}

			cause := ClassifyCause(n.err)
			switch cause.Kind {
			case CauseAggregate:
				// Pushed in reverse so the first child is popped first.
				for i := len(cause.Children) - 1; i >= 0; i-- {
					stack = append(stack, causeNode{err: cause.Children[i], depth: n.depth + 1})
				}
			default:
				if cause.Parent != nil {
					stack = append(stack, causeNode{err: cause.Parent, depth: n.depth + 1})
				}
			}
		}
	}
}

// Collect materializes the flattened sequence.
func (f *Flattener) Collect() ([]error, error) {
	var out []error
	for e := range f.All() {
		out = append(out, e)
	}
	return out, f.Err()
}

// Err reports the cycle that stopped the most recent walk, if any.
func (f *Flattener) Err() error {
	return f.err
}

// nodeIdentity identifies reference-shaped errors.
type nodeIdentity struct {
	typ reflect.Type
	ptr uintptr
	len int
}

func identityOf(err error) (nodeIdentity, bool) {
	v := reflect.ValueOf(err)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map:
		if v.IsNil() {
			return nodeIdentity{}, false
		}
		return nodeIdentity{typ: v.Type(), ptr: v.Pointer()}, true
	case reflect.Slice:
		if v.IsNil() {
			return nodeIdentity{}, false
		}
		return nodeIdentity{typ: v.Type(), ptr: v.Pointer(), len: v.Len()}, true
	default:
		return nodeIdentity{}, false
	}
}

// isNilError reports a nil interface or a nil pointer behind it.
func isNilError(err error) bool {
	if err == nil {
		return true
	}
	v := reflect.ValueOf(err)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// ancestorPath is the chain of open nodes from the root to the current one,
// indexed by identity. Siblings never see each other, so a subtree shared by
// two siblings is not a cycle.
type ancestorPath struct {
	ids  []nodeIdentity
	ok   []bool
	open map[nodeIdentity]struct{}
}

// truncate closes every node at depth or deeper.
func (p *ancestorPath) truncate(depth int) {
	for len(p.ids) > depth {
		last := len(p.ids) - 1
		if p.ok[last] {
			delete(p.open, p.ids[last])
		}
		p.ids, p.ok = p.ids[:last], p.ok[:last]
	}
}

// push opens err below the current path. It reports false when err is
// already one of its own ancestors.
func (p *ancestorPath) push(err error) bool {
	id, ok := identityOf(err)
	if ok {
		if _, dup := p.open[id]; dup {
			return false
		}
		if p.open == nil {
			p.open = make(map[nodeIdentity]struct{})
		}
		p.open[id] = struct{}{}
	}
	p.ids = append(p.ids, id)
	p.ok = append(p.ok, ok)
	return true
}
