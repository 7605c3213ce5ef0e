// Package aisen normalizes runtime error signals into ordered, structured
// exception records for error-reporting payloads.
//
// Two kinds of input are supported: Go errors, whose cause trees are
// flattened into a single raised-first sequence, and engine log messages,
// whose "ErrorClass: message" text is parsed into a one-record sequence.
// The resulting events are scrubbed, fingerprinted and handed to sinks.
//
// # Core Components
//
//   - Flattener: walks an error tree (Unwrap() error and Unwrap() []error) depth-first, raised error first
//   - Builder: turns one error or log message into an Exception record
//   - Exceptions: the ordered, immutable record sequence carried by an ErrorEvent
//   - Collector: applies scrubbing and fingerprinting before delegating to a Sink
//   - Sink: destination for error events (cxdb, stderr, jsonl, async, multi, metrics, noop)
//
// # Quick Start
//
//	collector := aisen.NewCollector(
//	    aisen.WithSink(stderr.NewStderrSink()),
//	    aisen.WithDefaultScrubbing(),
//	)
//	if err := run(); err != nil {
//	    _ = aisen.Notify(ctx, collector, err, aisen.WithCallerTrace())
//	}
//
// Engine log lines:
//
//	_ = aisen.NotifyLog(ctx, collector, aisen.LogMessage{
//	    Condition:  "NullReferenceException: Object reference not set",
//	    StackTrace: trace,
//	    Type:       aisen.LogTypeException,
//	})
//
// Panics:
//
//	defer aisen.Recover(ctx, collector)
//
// # Ordering
//
// For an error built as
//
//	outer := fmt.Errorf("load config: %w", errors.Join(errA, errB))
//
// the sequence is outer, the join, errA (and errA's chain), errB (and errB's
// chain). A chain that links back to one of its own ancestors stops the walk
// with a *CycleError.
package aisen
