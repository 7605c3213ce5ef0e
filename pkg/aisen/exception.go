// exception.go defines the structured exception record and the builder that
// derives records from errors and log messages.

package aisen

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Exception is one structured exception record of an error event.
// Values are immutable: accessors and With* methods return copies.
type Exception struct {
	errorClass string
	message    string
	stacktrace []StackFrame
}

// NewException creates a record. A nil stacktrace is stored as empty.
func NewException(errorClass, message string, stacktrace []StackFrame) Exception {
	return Exception{
		errorClass: errorClass,
		message:    message,
		stacktrace: cloneFrames(stacktrace),
	}
}

// ErrorClass returns the error class, e.g. "PathError" or "NullReferenceException".
func (e Exception) ErrorClass() string { return e.errorClass }

// Message returns the record's own message, possibly empty.
func (e Exception) Message() string { return e.message }

// Stacktrace returns a copy of the frames, innermost first. Never nil.
func (e Exception) Stacktrace() []StackFrame { return cloneFrames(e.stacktrace) }

// WithMessage returns a copy of e with its message replaced.
func (e Exception) WithMessage(message string) Exception {
	return NewException(e.errorClass, message, e.stacktrace)
}

// WithStacktrace returns a copy of e with its frames replaced.
func (e Exception) WithStacktrace(frames []StackFrame) Exception {
	return NewException(e.errorClass, e.message, frames)
}

// String formats the record as "class: message".
func (e Exception) String() string {
	if e.message == "" {
		return e.errorClass
	}
	return e.errorClass + ": " + e.message
}

type exceptionJSON struct {
	ErrorClass string       `json:"errorClass"`
	Message    string       `json:"message"`
	Stacktrace []StackFrame `json:"stacktrace"`
}

// MarshalJSON emits the errorClass, message and stacktrace fields.
func (e Exception) MarshalJSON() ([]byte, error) {
	return json.Marshal(exceptionJSON{
		ErrorClass: e.errorClass,
		Message:    e.message,
		Stacktrace: cloneFrames(e.stacktrace),
	})
}

func cloneFrames(frames []StackFrame) []StackFrame {
	out := make([]StackFrame, len(frames))
	copy(out, frames)
	return out
}

// DefaultLogClassPrefix is prepended to the log type to name log events
// whose condition has no "Class: message" prefix.
const DefaultLogClassPrefix = "UnityLog"

// BuilderOption configures a Builder.
type BuilderOption func(*builderConfig)

type builderConfig struct {
	capture        StackCapture
	names          TypeNameResolver
	logClassPrefix string
}

// WithStackCapture sets the collaborator that produces stack frames.
func WithStackCapture(capture StackCapture) BuilderOption {
	return func(c *builderConfig) {
		if capture != nil {
			c.capture = capture
		}
	}
}

// WithTypeNameResolver sets the collaborator that names error types.
func WithTypeNameResolver(names TypeNameResolver) BuilderOption {
	return func(c *builderConfig) {
		if names != nil {
			c.names = names
		}
	}
}

// WithLogClassPrefix sets the prefix used for unparseable log conditions.
func WithLogClassPrefix(prefix string) BuilderOption {
	return func(c *builderConfig) {
		c.logClassPrefix = prefix
	}
}

// Builder converts errors and log messages into exception records.
// A Builder holds no mutable state and is safe for concurrent use.
type Builder struct {
	capture        StackCapture
	names          TypeNameResolver
	logClassPrefix string
}

// NewBuilder creates a Builder. Without options it uses RuntimeStackCapture,
// DisplayTypeNames and DefaultLogClassPrefix.
func NewBuilder(opts ...BuilderOption) *Builder {
	cfg := &builderConfig{
		capture:        RuntimeStackCapture{},
		names:          DisplayTypeNames{},
		logClassPrefix: DefaultLogClassPrefix,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Builder{
		capture:        cfg.capture,
		names:          cfg.names,
		logClassPrefix: cfg.logClassPrefix,
	}
}

var defaultBuilder = NewBuilder()

// DefaultBuilder returns the shared Builder with default collaborators.
func DefaultBuilder() *Builder {
	return defaultBuilder
}

// Build creates the record for a single error node.
//
// A non-nil traceOverride is used verbatim. Otherwise the error's own
// captured trace is used, cut at the first frame whose method equals
// boundaryMethod; that frame and all frames after it are dropped.
func (b *Builder) Build(err error, traceOverride []StackFrame, boundaryMethod string) (Exception, error) {
	if err == nil {
		return Exception{}, fmt.Errorf("aisen: build exception: nil error")
	}

	frames := traceOverride
	if frames == nil {
		captured, capErr := b.capture.Capture(err)
		if capErr != nil {
			return Exception{}, fmt.Errorf("capture stack trace: %w", capErr)
		}
		frames = truncateAtBoundary(captured, boundaryMethod)
	}

	return NewException(b.names.DisplayName(reflect.TypeOf(err)), ownMessage(err), frames), nil
}

// BuildLog creates the record for a log message. The trace comes from the
// message's own trace text and is never boundary-trimmed.
func (b *Builder) BuildLog(msg LogMessage) (Exception, error) {
	errorClass, message := ParseLogCondition(msg.Condition, msg.Type, b.logClassPrefix)
	frames, err := b.capture.CaptureFromText(msg.StackTrace)
	if err != nil {
		return Exception{}, fmt.Errorf("capture log stack trace: %w", err)
	}
	return NewException(errorClass, message, frames), nil
}

// FromError flattens err and builds one record per node, applying the same
// trace override and boundary method to every node. A nil err yields an
// empty sequence.
func (b *Builder) FromError(err error, traceOverride []StackFrame, boundaryMethod string) (Exceptions, error) {
	flat := Flatten(err)
	var items []Exception
	for cause := range flat.All() {
		exc, buildErr := b.Build(cause, traceOverride, boundaryMethod)
		if buildErr != nil {
			return Exceptions{}, buildErr
		}
		items = append(items, exc)
	}
	if cycleErr := flat.Err(); cycleErr != nil {
		return Exceptions{}, cycleErr
	}
	return Exceptions{items: items}, nil
}

// FromLog builds the single-record sequence for a log message.
func (b *Builder) FromLog(msg LogMessage) (Exceptions, error) {
	exc, err := b.BuildLog(msg)
	if err != nil {
		return Exceptions{}, err
	}
	return Exceptions{items: []Exception{exc}}, nil
}

// ownMessage returns the text err adds on top of its causes. Wrapping errors
// in the fmt.Errorf("context: %w", cause) shape report only "context";
// aggregates whose text is just their children's joined text report "".
func ownMessage(err error) string {
	msg := safeErrorText(err)
	cause := ClassifyCause(err)
	switch cause.Kind {
	case CauseSimple:
		if cause.Parent == nil {
			return msg
		}
		if trimmed, ok := strings.CutSuffix(msg, ": "+safeErrorText(cause.Parent)); ok {
			return trimmed
		}
	case CauseAggregate:
		parts := make([]string, 0, len(cause.Children))
		for _, child := range cause.Children {
			if child != nil {
				parts = append(parts, safeErrorText(child))
			}
		}
		if len(parts) > 0 && msg == strings.Join(parts, "\n") {
			return ""
		}
	}
	return msg
}

// safeErrorText returns err.Error(), or "" when err is nil or its Error
// method panics on a nil receiver.
func safeErrorText(err error) (text string) {
	if err == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	return err.Error()
}
