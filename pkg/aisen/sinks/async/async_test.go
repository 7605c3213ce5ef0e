package async

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
)

// slowSink can be slow and tracks events.
type slowSink struct {
	mu       sync.Mutex
	events   []aisen.ErrorEvent
	delay    time.Duration
	writeErr error
	closed   bool
}

func (s *slowSink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.events = append(s.events, event)
	return nil
}

func (s *slowSink) Flush(ctx context.Context) error {
	return nil
}

func (s *slowSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *slowSink) getEvents() []aisen.ErrorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]aisen.ErrorEvent, len(s.events))
	copy(result, s.events)
	return result
}

func TestAsyncSink_ImplementsSinkInterface(t *testing.T) {
	var _ aisen.Sink = NewAsyncSink(&slowSink{})
}

func TestAsyncSink_Write_ReturnsImmediately(t *testing.T) {
	inner := &slowSink{delay: 100 * time.Millisecond}
	sink := NewAsyncSink(inner, WithQueueSize(100))
	defer sink.Close()

	start := time.Now()
	err := sink.Write(context.Background(), aisen.ErrorEvent{EventID: "evt-1"})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, 10*time.Millisecond)
}

func TestAsyncSink_Flush_PreservesOrder(t *testing.T) {
	inner := &slowSink{}
	sink := NewAsyncSink(inner, WithQueueSize(100))
	defer sink.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, sink.Write(context.Background(), aisen.ErrorEvent{EventID: fmt.Sprintf("evt-%d", i)}))
	}
	require.NoError(t, sink.Flush(context.Background()))

	events := inner.getEvents()
	require.Len(t, events, 10)
	for i, e := range events {
		assert.Equal(t, fmt.Sprintf("evt-%d", i), e.EventID)
	}
}

func TestAsyncSink_DropsOldest_WhenQueueFull(t *testing.T) {
	inner := &slowSink{delay: 50 * time.Millisecond}
	var droppedCount atomic.Int32
	sink := NewAsyncSink(inner,
		WithQueueSize(1),
		WithOnDropped(func(count int) {
			droppedCount.Add(int32(count))
		}),
	)

	for i := 0; i < 10; i++ {
		_ = sink.Write(context.Background(), aisen.ErrorEvent{EventID: fmt.Sprintf("evt-%d", i)})
	}
	require.NoError(t, sink.Close())

	dropped := droppedCount.Load()
	assert.Positive(t, dropped)
	assert.Equal(t, int64(dropped), sink.(*asyncSink).Dropped())
	assert.Equal(t, 10, len(inner.getEvents())+int(dropped))

	// the newest event always survives overflow
	events := inner.getEvents()
	require.NotEmpty(t, events)
	assert.Equal(t, "evt-9", events[len(events)-1].EventID)
}

func TestAsyncSink_Flush_RespectsContext(t *testing.T) {
	inner := &slowSink{delay: 200 * time.Millisecond}
	sink := NewAsyncSink(inner)
	defer sink.Close()

	_ = sink.Write(context.Background(), aisen.ErrorEvent{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sink.Flush(ctx), context.DeadlineExceeded)
}

func TestAsyncSink_InnerWriteFailure_IsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	inner := &slowSink{writeErr: errors.New("disk full")}
	sink := NewAsyncSink(inner, WithLogger(logger))

	event := aisen.ErrorEvent{
		EventID:    "evt-fail",
		Exceptions: aisen.ExceptionsOf(aisen.NewException("PathError", "open x", nil)),
	}
	require.NoError(t, sink.Write(context.Background(), event))
	require.NoError(t, sink.Close())

	out := buf.String()
	assert.Contains(t, out, "inner write failed")
	assert.Contains(t, out, "evt-fail")
	assert.Contains(t, out, "disk full")
}

func TestAsyncSink_Close_DrainsAndClosesInner(t *testing.T) {
	inner := &slowSink{}
	sink := NewAsyncSink(inner, WithQueueSize(100))

	for i := 0; i < 5; i++ {
		_ = sink.Write(context.Background(), aisen.ErrorEvent{EventID: "evt"})
	}

	require.NoError(t, sink.Close())
	assert.Len(t, inner.getEvents(), 5)
	assert.True(t, inner.closed)
}

func TestAsyncSink_WriteAfterClose_ReturnsError(t *testing.T) {
	sink := NewAsyncSink(&slowSink{})
	require.NoError(t, sink.Close())

	assert.ErrorIs(t, sink.Write(context.Background(), aisen.ErrorEvent{}), ErrClosed)
}
