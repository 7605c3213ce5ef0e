// Package async provides a sink wrapper with a bounded queue so that
// recording an exception chain never blocks the failing code path.
// When the queue is full the oldest event is dropped.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async sink is closed")

// AsyncSinkOption configures the async sink.
type AsyncSinkOption func(*asyncSinkConfig)

type asyncSinkConfig struct {
	queueSize    int
	pollInterval time.Duration
	onDropped    func(count int)
	logger       *slog.Logger
}

// WithQueueSize sets the maximum number of queued events (default: 1000).
func WithQueueSize(size int) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithFlushInterval sets how often Flush checks for a drained queue (default: 10ms).
func WithFlushInterval(d time.Duration) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithOnDropped sets a callback invoked when events are dropped due to queue overflow.
func WithOnDropped(fn func(count int)) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		c.onDropped = fn
	}
}

// WithLogger sets the logger used for inner sink write failures.
func WithLogger(logger *slog.Logger) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// asyncSink wraps a sink with a bounded queue.
type asyncSink struct {
	inner        aisen.Sink
	queue        chan aisen.ErrorEvent
	done         chan struct{}
	pending      atomic.Int64
	dropped      atomic.Int64
	closeOnce    sync.Once
	closeMu      sync.RWMutex
	closed       bool
	wg           sync.WaitGroup
	pollInterval time.Duration
	onDropped    func(count int)
	logger       *slog.Logger
}

// NewAsyncSink wraps a sink with a bounded queue for async writes.
// Write returns immediately; events are written to inner by one background
// goroutine, in the order they were queued.
func NewAsyncSink(inner aisen.Sink, opts ...AsyncSinkOption) aisen.Sink {
	cfg := &asyncSinkConfig{
		queueSize:    1000,
		pollInterval: 10 * time.Millisecond,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &asyncSink{
		inner:        inner,
		queue:        make(chan aisen.ErrorEvent, cfg.queueSize),
		done:         make(chan struct{}),
		pollInterval: cfg.pollInterval,
		onDropped:    cfg.onDropped,
		logger:       cfg.logger,
	}

	s.wg.Add(1)
	go s.processLoop()

	return s
}

func (s *asyncSink) processLoop() {
	defer s.wg.Done()
	for {
		select {
		case event := <-s.queue:
			s.deliver(event)
		case <-s.done:
			for {
				select {
				case event := <-s.queue:
					s.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (s *asyncSink) deliver(event aisen.ErrorEvent) {
	defer s.pending.Add(-1)
	if err := s.inner.Write(context.Background(), event); err != nil {
		s.logger.Warn("async sink: inner write failed",
			"event_id", event.EventID,
			"error_class", event.Summary(),
			"error", err)
	}
}

// Write enqueues an event. If the queue is full, the oldest queued event
// is dropped to make room.
func (s *asyncSink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	s.pending.Add(1)
	select {
	case s.queue <- event:
		return nil
	default:
	}

	select {
	case <-s.queue:
		s.drop()
	default:
	}

	select {
	case s.queue <- event:
	default:
		s.drop()
	}
	return nil
}

func (s *asyncSink) drop() {
	s.pending.Add(-1)
	s.dropped.Add(1)
	if s.onDropped != nil {
		s.onDropped(1)
	}
}

// Dropped returns the number of events discarded because of overflow.
func (s *asyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Flush blocks until every queued event has been written to the inner sink,
// then flushes the inner sink.
func (s *asyncSink) Flush(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for s.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return s.inner.Flush(ctx)
}

// Close drains the queue, stops the background writer and closes the inner sink.
func (s *asyncSink) Close() error {
	s.closeOnce.Do(func() {
		s.closeMu.Lock()
		s.closed = true
		s.closeMu.Unlock()

		close(s.done)
		s.wg.Wait()
	})

	return s.inner.Close()
}
