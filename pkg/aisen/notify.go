// notify.go builds error events from Go errors and engine log messages and
// records them through a Collector.

package aisen

import (
	"context"
	"errors"
	"fmt"
)

// NotifyOption configures Notify and NotifyLog.
type NotifyOption func(*notifyConfig)

type notifyConfig struct {
	severity    Severity
	errorType   string
	boundary    string
	trace       []StackFrame
	callerTrace bool
	builder     *Builder
	metadata    map[string]string
}

// WithSeverity overrides the event severity.
func WithSeverity(s Severity) NotifyOption {
	return func(c *notifyConfig) {
		c.severity = s
	}
}

// WithErrorType overrides the event's error type.
func WithErrorType(errorType string) NotifyOption {
	return func(c *notifyConfig) {
		c.errorType = errorType
	}
}

// WithBoundaryMethod cuts captured traces at the named function; the frame
// and everything after it are dropped from every record.
func WithBoundaryMethod(method string) NotifyOption {
	return func(c *notifyConfig) {
		c.boundary = method
	}
}

// WithTraceOverride uses frames verbatim as the trace of every record.
func WithTraceOverride(frames []StackFrame) NotifyOption {
	return func(c *notifyConfig) {
		c.trace = frames
	}
}

// WithCallerTrace uses the stack of the Notify call site as the trace of
// every record. Useful for plain errors that capture no trace of their own.
func WithCallerTrace() NotifyOption {
	return func(c *notifyConfig) {
		c.callerTrace = true
	}
}

// WithBuilder sets the Builder used to create records.
func WithBuilder(b *Builder) NotifyOption {
	return func(c *notifyConfig) {
		if b != nil {
			c.builder = b
		}
	}
}

// WithMetadata attaches key-value pairs to the event.
func WithMetadata(meta map[string]string) NotifyOption {
	return func(c *notifyConfig) {
		c.metadata = meta
	}
}

func newNotifyConfig(opts []NotifyOption) *notifyConfig {
	cfg := &notifyConfig{builder: DefaultBuilder()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Notify records err and its cause chain as one event. A nil err is ignored.
func Notify(ctx context.Context, collector Collector, err error, opts ...NotifyOption) error {
	if err == nil {
		return nil
	}
	cfg := newNotifyConfig(opts)

	trace := cfg.trace
	if trace == nil && cfg.callerTrace {
		trace = RuntimeStackCapture{}.callerFrames(1)
	}

	exceptions, buildErr := cfg.builder.FromError(err, trace, cfg.boundary)
	if buildErr != nil {
		return fmt.Errorf("build exceptions: %w", buildErr)
	}

	event := ErrorEvent{
		Severity:   SeverityError,
		ErrorType:  ClassifyErrorType(err),
		Exceptions: exceptions,
		Metadata:   cfg.metadata,
	}
	cfg.apply(ctx, &event)
	return collector.Record(ctx, event)
}

// NotifyLog records a single-record event for an engine log message.
// Severity follows the log type unless overridden.
func NotifyLog(ctx context.Context, collector Collector, msg LogMessage, opts ...NotifyOption) error {
	cfg := newNotifyConfig(opts)

	exceptions, err := cfg.builder.FromLog(msg)
	if err != nil {
		return fmt.Errorf("build log exception: %w", err)
	}

	event := ErrorEvent{
		Severity:   msg.Type.Severity(),
		ErrorType:  "log",
		Exceptions: exceptions,
		Metadata:   cfg.metadata,
	}
	cfg.apply(ctx, &event)
	return collector.Record(ctx, event)
}

func (c *notifyConfig) apply(ctx context.Context, event *ErrorEvent) {
	if c.severity != "" {
		event.Severity = c.severity
	}
	if c.errorType != "" {
		event.ErrorType = c.errorType
	}
	if contextID, ok := ContextIDFromContext(ctx); ok {
		event.ContextID = &contextID
	}
}

// ClassifyErrorType returns "timeout" or "canceled" for context errors and
// "error" otherwise.
func ClassifyErrorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
