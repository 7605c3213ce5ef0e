// cause.go classifies errors by the shape of their cause links.

package aisen

// CauseKind tags how an error links to the errors that caused it.
type CauseKind uint8

const (
	// CauseSimple errors have at most one parent cause (Unwrap() error).
	CauseSimple CauseKind = iota

	// CauseAggregate errors report several independent causes
	// (Unwrap() []error), such as those built by errors.Join.
	CauseAggregate
)

// String returns "simple" or "aggregate".
func (k CauseKind) String() string {
	if k == CauseAggregate {
		return "aggregate"
	}
	return "simple"
}

// Cause is one node of an error tree together with its outgoing links.
// Exactly one of Parent and Children is meaningful, selected by Kind.
type Cause struct {
	Kind CauseKind

	// Err is the node itself.
	Err error

	// Parent is the single cause of a CauseSimple node, or nil.
	Parent error

	// Children are the causes of a CauseAggregate node in original order.
	// Nil entries are kept; the flattener skips them.
	Children []error
}

// ClassifyCause inspects the unwrap methods of err. An error implementing
// Unwrap() []error is an aggregate even when it reports no children. A typed
// nil pointer is a leaf, and a typed nil parent is reported as nil.
func ClassifyCause(err error) Cause {
	if isNilError(err) {
		return Cause{Kind: CauseSimple, Err: err}
	}
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		return Cause{Kind: CauseAggregate, Err: err, Children: e.Unwrap()}
	case interface{ Unwrap() error }:
		parent := e.Unwrap()
		if isNilError(parent) {
			parent = nil
		}
		return Cause{Kind: CauseSimple, Err: err, Parent: parent}
	default:
		return Cause{Kind: CauseSimple, Err: err}
	}
}
