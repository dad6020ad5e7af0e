// Package async provides a sink wrapper with a bounded queue, so producers
// never wait on store round trips. One goroutine drains the queue, so the
// wrapped sink sees a single caller. When the queue is full the oldest event
// is dropped.
package async

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strongdm/event-sink/pkg/evsink"
)

// AsyncSinkOption configures the async sink.
type AsyncSinkOption func(*asyncSinkConfig)

type asyncSinkConfig struct {
	queueSize    int
	pollInterval time.Duration
	onDropped    func(count int)
}

// WithQueueSize sets the maximum number of queued events (default: 1000).
func WithQueueSize(size int) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithPollInterval sets how often Flush checks for an empty queue (default: 10ms).
func WithPollInterval(d time.Duration) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithOnDropped sets a callback invoked when events are dropped because the
// queue overflowed or the sink was closed.
func WithOnDropped(fn func(count int)) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		c.onDropped = fn
	}
}

type queued struct {
	ctx   context.Context
	event evsink.Event
}

// asyncSink wraps a sink with a bounded queue.
type asyncSink struct {
	inner        evsink.Sink
	queue        chan queued
	pollInterval time.Duration
	onDropped    func(count int)

	// mu guards closed and the queue close; senders hold it for reading.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup

	// pending counts events enqueued but not yet handled.
	pending atomic.Int64
}

// NewAsyncSink wraps a sink with a bounded queue.
// Handle returns immediately; events are handled in the background.
func NewAsyncSink(inner evsink.Sink, opts ...AsyncSinkOption) evsink.Sink {
	cfg := &asyncSinkConfig{
		queueSize:    1000,
		pollInterval: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &asyncSink{
		inner:        inner,
		queue:        make(chan queued, cfg.queueSize),
		pollInterval: cfg.pollInterval,
		onDropped:    cfg.onDropped,
	}

	s.wg.Add(1)
	go s.processLoop()

	return s
}

// processLoop hands queued events to the inner sink until the queue is closed.
func (s *asyncSink) processLoop() {
	defer s.wg.Done()
	for item := range s.queue {
		s.inner.Handle(item.ctx, item.event)
		s.pending.Add(-1)
	}
}

// Handle enqueues the event. The caller's cancellation does not reach the
// background write; its values do.
func (s *asyncSink) Handle(ctx context.Context, event evsink.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped(1)
		return
	}

	item := queued{ctx: context.WithoutCancel(ctx), event: event}
	s.pending.Add(1)
	select {
	case s.queue <- item:
		return
	default:
	}

	// Queue is full: drop the oldest event and retry once.
	select {
	case <-s.queue:
		s.pending.Add(-1)
		s.dropped(1)
	default:
	}
	select {
	case s.queue <- item:
	default:
		s.pending.Add(-1)
		s.dropped(1)
	}
}

func (s *asyncSink) dropped(n int) {
	if s.onDropped != nil {
		s.onDropped(n)
	}
}

// Flush blocks until every queued event has been handled, then flushes the
// inner sink.
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

// Close stops accepting events, drains the queue and closes the inner sink.
func (s *asyncSink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()

		s.wg.Wait()
	})

	return s.inner.Close()
}
