// Package stderr provides a sink that logs errors to stderr in human-readable format.
// Useful for development and debugging.
package stderr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
)

// StderrSinkOption configures the stderr sink.
type StderrSinkOption func(*stderrSinkConfig)

type stderrSinkConfig struct {
	verbose bool
	out     io.Writer
}

// WithVerbose enables full error details including stack traces.
func WithVerbose() StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.verbose = true
	}
}

// WithWriter redirects output away from os.Stderr.
func WithWriter(w io.Writer) StderrSinkOption {
	return func(c *stderrSinkConfig) {
		if w != nil {
			c.out = w
		}
	}
}

// stderrSink writes errors to stderr in human-readable format.
type stderrSink struct {
	mu      sync.Mutex
	verbose bool
	out     io.Writer
}

// NewStderrSink creates a sink that writes to stderr.
func NewStderrSink(opts ...StderrSinkOption) aisen.Sink {
	cfg := &stderrSinkConfig{out: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrSink{
		verbose: cfg.verbose,
		out:     cfg.out,
	}
}

// Write formats and outputs the error event.
//
// Format:
//
//	[AISEN] <timestamp> <SEVERITY> <error_type> in <operation> <tool_name> (agent: <agent_name>)
//	        Exception: <class>: <message>
//	        Caused by: <class>: <message>
func (s *stderrSink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	var b strings.Builder

	severity := strings.ToUpper(string(event.Severity))
	timestamp := event.Timestamp.Format("2006-01-02T15:04:05Z07:00")

	parts := []string{fmt.Sprintf("[AISEN] %s %s %s", timestamp, severity, event.ErrorType)}
	if event.Operation != "" {
		parts = append(parts, fmt.Sprintf("in %s", event.Operation))
	}
	if event.ToolName != "" {
		parts = append(parts, event.ToolName)
	}
	if event.AgentName != "" {
		parts = append(parts, fmt.Sprintf("(agent: %s)", event.AgentName))
	}
	b.WriteString(strings.Join(parts, " "))
	b.WriteByte('\n')

	i := 0
	for exc := range event.Exceptions.All() {
		label := "Exception"
		if i > 0 {
			label = "Caused by"
		}
		fmt.Fprintf(&b, "        %s: %s\n", label, exc)
		if s.verbose {
			for _, f := range exc.Stacktrace() {
				if f.File != "" {
					fmt.Fprintf(&b, "          at %s (%s:%d)\n", f.Method, f.File, f.LineNumber)
				} else {
					fmt.Fprintf(&b, "          at %s\n", f.Method)
				}
			}
		}
		i++
	}

	if event.Fingerprint != "" {
		fmt.Fprintf(&b, "        Fingerprint: %s\n", event.Fingerprint)
	}

	if event.ContextID != nil {
		if event.TurnDepth != nil {
			fmt.Fprintf(&b, "        Context: %d (turn %d)\n", *event.ContextID, *event.TurnDepth)
		} else {
			fmt.Fprintf(&b, "        Context: %d\n", *event.ContextID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, b.String())
	return err
}

// Flush is a no-op for stderr sink.
func (s *stderrSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for stderr sink.
func (s *stderrSink) Close() error {
	return nil
}
