package trace

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Exporter delivers finished spans to a tracing backend. Implementations must
// be safe for concurrent use; ExportSpans may be called from multiple
// goroutines when parallel branches finish at the same time.
type Exporter interface {
	// ExportSpans delivers a batch of finished spans.
	ExportSpans(ctx context.Context, spans []Span) error
	// Shutdown flushes any buffered spans and releases resources.
	Shutdown(ctx context.Context) error
}

// NoOpExporter discards all spans.
type NoOpExporter struct{}

func (NoOpExporter) ExportSpans(ctx context.Context, spans []Span) error { return nil }
func (NoOpExporter) Shutdown(ctx context.Context) error                  { return nil }

// SlogExporter writes each span as a structured log record. Useful during
// development and as the default backend when no collector is configured.
type SlogExporter struct {
	logger *slog.Logger
}

// NewSlogExporter creates a SlogExporter emitting to the given logger.
// If logger is nil, slog.Default() is used.
func NewSlogExporter(logger *slog.Logger) *SlogExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogExporter{logger: logger}
}

func (e *SlogExporter) ExportSpans(ctx context.Context, spans []Span) error {
	for _, span := range spans {
		attrs := []slog.Attr{
			slog.String("trace_id", span.TraceID),
			slog.String("span_id", span.SpanID),
			slog.String("parent_span_id", span.ParentSpanID),
			slog.String("status", string(span.Status)),
			slog.Duration("duration", span.Duration()),
		}
		if span.Error != "" {
			attrs = append(attrs, slog.String("error", span.Error))
		}
		for k, v := range span.Attributes {
			attrs = append(attrs, slog.Any(k, v))
		}
		level := slog.LevelDebug
		if span.Status == StatusError {
			level = slog.LevelWarn
		}
		e.logger.LogAttrs(ctx, level, span.Name, attrs...)
	}
	return nil
}

func (e *SlogExporter) Shutdown(ctx context.Context) error { return nil }

// MultiExporter fans spans out to several exporters concurrently. The first
// error from any backend is returned, but every backend always receives the
// batch.
type MultiExporter struct {
	exporters []Exporter
}

// NewMultiExporter creates a MultiExporter over all non-nil exporters.
func NewMultiExporter(exporters ...Exporter) *MultiExporter {
	filtered := make([]Exporter, 0, len(exporters))
	for _, e := range exporters {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	return &MultiExporter{exporters: filtered}
}

func (m *MultiExporter) ExportSpans(ctx context.Context, spans []Span) error {
	var g errgroup.Group
	for _, e := range m.exporters {
		e := e
		g.Go(func() error {
			return e.ExportSpans(ctx, spans)
		})
	}
	return g.Wait()
}

func (m *MultiExporter) Shutdown(ctx context.Context) error {
	var g errgroup.Group
	for _, e := range m.exporters {
		e := e
		g.Go(func() error {
			return e.Shutdown(ctx)
		})
	}
	return g.Wait()
}

// BatchExporter buffers spans and forwards them to a delegate in batches,
// keeping span export off the execution hot path. Spans are flushed when the
// buffer reaches maxBatch or when the flush interval elapses, whichever comes
// first. A full buffer drops the oldest spans rather than blocking execution.
type BatchExporter struct {
	delegate Exporter
	maxBatch int
	interval time.Duration

	mu      sync.Mutex
	pending []Span
	done    chan struct{}
	once    sync.Once
}

// NewBatchExporter wraps delegate with batching. maxBatch <= 0 defaults to
// 512 and interval <= 0 defaults to 5 seconds.
func NewBatchExporter(delegate Exporter, maxBatch int, interval time.Duration) *BatchExporter {
	if maxBatch <= 0 {
		maxBatch = 512
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	b := &BatchExporter{
		delegate: delegate,
		maxBatch: maxBatch,
		interval: interval,
		done:     make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *BatchExporter) loop() {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.flush(context.Background())
		case <-b.done:
			return
		}
	}
}

func (b *BatchExporter) ExportSpans(ctx context.Context, spans []Span) error {
	b.mu.Lock()
	b.pending = append(b.pending, spans...)
	if over := len(b.pending) - 4*b.maxBatch; over > 0 {
		b.pending = b.pending[over:]
	}
	full := len(b.pending) >= b.maxBatch
	b.mu.Unlock()

	if full {
		b.flush(ctx)
	}
	return nil
}

func (b *BatchExporter) flush(ctx context.Context) {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	// Export failures are dropped here; the delegate is responsible for its
	// own retry or logging.
	_ = b.delegate.ExportSpans(ctx, batch)
}

func (b *BatchExporter) Shutdown(ctx context.Context) error {
	b.once.Do(func() { close(b.done) })
	b.flush(ctx)
	return b.delegate.Shutdown(ctx)
}
