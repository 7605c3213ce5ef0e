package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
)

type closingBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closingBuffer) Close() error {
	b.closed = true
	return nil
}

func TestJSONLSink_ImplementsSinkInterface(t *testing.T) {
	var _ aisen.Sink = NewJSONLSink(&bytes.Buffer{})
}

func TestJSONLSink_Write_OneEnvelopePerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLSink(&buf)

	first := aisen.ErrorEvent{
		EventID:   "evt-1",
		Timestamp: time.Date(2025, 1, 26, 12, 0, 0, 0, time.UTC),
		Severity:  aisen.SeverityError,
		ErrorType: "log",
		Exceptions: aisen.ExceptionsOf(aisen.NewException("NullReferenceException", "Object reference not set", []aisen.StackFrame{
			{Method: "Player.Update", File: "Assets/Player.cs", LineNumber: 20, InProject: true},
		})),
	}
	second := aisen.ErrorEvent{EventID: "evt-2", Severity: aisen.SeverityWarning, ErrorType: "log"}

	require.NoError(t, sink.Write(context.Background(), first))
	require.NoError(t, sink.Write(context.Background(), second))

	scanner := bufio.NewScanner(&buf)
	var lines []map[string]any
	for scanner.Scan() {
		var doc map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &doc))
		lines = append(lines, doc)
	}
	require.Len(t, lines, 2)

	events := lines[0]["events"].([]any)
	require.Len(t, events, 1)
	ev := events[0].(map[string]any)
	assert.Equal(t, "evt-1", ev["event_id"])
	assert.Equal(t, "2025-01-26T12:00:00Z", ev["timestamp"])
	assert.Equal(t, "NullReferenceException", ev["error_class"])

	excs := ev["exceptions"].([]any)
	require.Len(t, excs, 1)
	exc := excs[0].(map[string]any)
	assert.Equal(t, "Object reference not set", exc["message"])
	frame := exc["stacktrace"].([]any)[0].(map[string]any)
	assert.Equal(t, "Player.Update", frame["method"])
	assert.Equal(t, float64(20), frame["lineNumber"])
	assert.Equal(t, true, frame["inProject"])

	// an event without records still serializes an empty array
	ev2 := lines[1]["events"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{}, ev2["exceptions"])
}

func TestJSONLSink_Close_ClosesWriter(t *testing.T) {
	w := &closingBuffer{}
	sink := NewJSONLSink(w)

	require.NoError(t, sink.Flush(context.Background()))
	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
	assert.NoError(t, sink.Close(), "second close is a no-op")

	assert.ErrorIs(t, sink.Write(context.Background(), aisen.ErrorEvent{}), ErrClosed)
}
