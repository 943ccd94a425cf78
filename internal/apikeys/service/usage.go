package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/metrics"
	"golang.org/x/sync/errgroup"
)

// UsageRecorder persists a key use. KeyService implements it.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, keyID, ip string) error
}

type usageEvent struct {
	keyID string
	ip    string
}

// UsageTracker records key usage off the request path. Track never blocks:
// when the queue is full the event is dropped and counted. Failures are
// logged, never returned.
type UsageTracker struct {
	Recorder UsageRecorder
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Workers  int
	// Timeout bounds a single store write.
	Timeout time.Duration

	events  chan usageEvent
	group   errgroup.Group
	mu      sync.RWMutex
	started bool
	stopped bool
}

// NewUsageTracker returns a tracker with a queue of buffer events drained by
// workers goroutines. Call Start before use.
func NewUsageTracker(rec UsageRecorder, logger *slog.Logger, m *metrics.Metrics, buffer, workers int) *UsageTracker {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 1024
	}
	if workers <= 0 {
		workers = 2
	}
	return &UsageTracker{
		Recorder: rec,
		Logger:   logger,
		Metrics:  m,
		Workers:  workers,
		Timeout:  5 * time.Second,
		events:   make(chan usageEvent, buffer),
	}
}

// Start launches the drainers. It is a no-op after the first call.
func (t *UsageTracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.stopped {
		return
	}
	t.started = true

	for range t.Workers {
		t.group.Go(t.drain)
	}
	t.Logger.Info("usage tracker started", "workers", t.Workers, "buffer", cap(t.events))
}

// Track queues a usage event and reports whether it was accepted.
func (t *UsageTracker) Track(keyID, ip string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.stopped {
		t.Metrics.RecordUsage("dropped")
		return false
	}
	select {
	case t.events <- usageEvent{keyID: keyID, ip: ip}:
		return true
	default:
		t.Metrics.RecordUsage("dropped")
		t.Logger.Warn("usage queue full, dropping event", "key_id", keyID)
		return false
	}
}

// Stop stops accepting events and waits until the queue is drained.
func (t *UsageTracker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	close(t.events)
	started := t.started
	t.mu.Unlock()

	if !started {
		// Nobody is draining, flush inline.
		_ = t.drain()
	}
	_ = t.group.Wait()
	t.Logger.Info("usage tracker stopped")
}

func (t *UsageTracker) drain() error {
	for ev := range t.events {
		t.record(ev)
	}
	return nil
}

func (t *UsageTracker) record(ev usageEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), t.Timeout)
	defer cancel()

	if err := t.Recorder.RecordUsage(ctx, ev.keyID, ev.ip); err != nil {
		t.Metrics.RecordUsage("failed")
		t.Logger.Warn("failed to record api key usage", "error", err, "key_id", ev.keyID)
		return
	}
	t.Metrics.RecordUsage("recorded")
}
