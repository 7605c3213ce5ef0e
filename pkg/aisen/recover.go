// recover.go provides the Recover helper for standalone panic recovery.
// Use this in HTTP handlers, goroutines, or other code outside of Runner.

package aisen

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
)

// PanicError carries a recovered panic value that is not itself an error.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	if e.Value == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v", e.Value)
}

// Recover captures a panic, records it to the collector, and returns the recovered value.
// Unlike RunWrapper, Recover does NOT re-panic after recording.
//
// Use in defer:
//
//	func handler(ctx context.Context) {
//	    defer aisen.Recover(ctx, collector)
//	    // code that might panic
//	}
func Recover(ctx context.Context, collector Collector) any {
	r := recover()
	if r == nil {
		return nil
	}

	event := PanicEvent(r, debug.Stack())
	if contextID, ok := ContextIDFromContext(ctx); ok {
		event.ContextID = &contextID
	}

	// Never affect the caller.
	if err := collector.Record(ctx, event); err != nil {
		slog.Default().WarnContext(ctx, "aisen: failed to record panic", "error", err)
	}

	return r
}

// PanicEvent builds a crash event from a recovered value and the goroutine
// dump taken while panicking. Error values are flattened into their cause
// chain; every record shares the dump's frames below the panic call.
func PanicEvent(recovered any, stack []byte) ErrorEvent {
	event := ErrorEvent{
		Severity:  SeverityCrash,
		ErrorType: "panic",
	}

	exceptions, err := NewPanicExceptions(recovered, stack)
	if err != nil {
		// The panic itself must still be reported.
		frames, _ := RuntimeStackCapture{}.CaptureFromText(string(stack))
		exceptions = ExceptionsOf(NewException("PanicError", formatRecovered(recovered), panicFrames(frames)))
		event.Metadata = map[string]string{"aisen.exceptions_error": err.Error()}
	}
	event.Exceptions = exceptions
	return event
}

// NewPanicExceptions builds the exception sequence for a recovered value.
func NewPanicExceptions(recovered any, stack []byte) (Exceptions, error) {
	frames, err := RuntimeStackCapture{}.CaptureFromText(string(stack))
	if err != nil {
		return Exceptions{}, err
	}
	frames = panicFrames(frames)

	panicErr, ok := recovered.(error)
	if !ok {
		panicErr = &PanicError{Value: recovered}
	}
	return NewExceptions(panicErr, frames, "")
}

// panicFrames drops the frames of the recovery machinery: everything up to
// the panic call, then runtime helpers such as runtime.goPanicIndex.
func panicFrames(frames []StackFrame) []StackFrame {
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Method == "panic" || frames[i].Method == "runtime.gopanic" {
			frames = frames[i+1:]
			break
		}
	}
	for len(frames) > 0 && strings.HasPrefix(frames[0].Method, "runtime.") {
		frames = frames[1:]
	}
	if frames == nil {
		return []StackFrame{}
	}
	return frames
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}
