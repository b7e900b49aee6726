package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes and stops a handler that buffers records. The synchronous
// logger hands out a no-op implementation so callers can always defer Close.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// asyncCore is the state shared by every handler derived through WithAttrs
// or WithGroup: one record queue, one worker pool, one drop counter.
type asyncCore struct {
	queue   chan slog.Record
	workers sync.WaitGroup
	dropped atomic.Int64
}

// AsyncHandler decouples log calls from serialization. Handle enqueues the
// record and returns immediately; drain workers feed queued records to the
// wrapped handler. A full queue drops the record and counts it instead of
// blocking the caller.
type AsyncHandler struct {
	inner slog.Handler
	core  *asyncCore
}

// NewAsyncHandler wraps inner with a queue of the given capacity drained by
// the given number of workers.
func NewAsyncHandler(inner slog.Handler, capacity, workers int) *AsyncHandler {
	h := &AsyncHandler{
		inner: inner,
		core:  &asyncCore{queue: make(chan slog.Record, capacity)},
	}
	for range workers {
		h.core.workers.Add(1)
		go h.drain()
	}
	return h
}

func (h *AsyncHandler) drain() {
	defer h.core.workers.Done()
	for rec := range h.core.queue {
		_ = h.inner.Handle(context.Background(), rec)
	}
}

// Enabled delegates to the wrapped handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record without blocking.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error {
	select {
	case h.core.queue <- rec:
	default:
		h.core.dropped.Add(1)
	}
	return nil
}

// WithAttrs derives a handler with extra attributes on the same queue.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), core: h.core}
}

// WithGroup derives a grouped handler on the same queue.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), core: h.core}
}

// Dropped reports how many records were discarded because the queue was
// full.
func (h *AsyncHandler) Dropped() int64 {
	return h.core.dropped.Load()
}

// Close stops the queue and blocks until the workers have flushed every
// enqueued record.
func (h *AsyncHandler) Close() {
	close(h.core.queue)
	h.core.workers.Wait()
}
