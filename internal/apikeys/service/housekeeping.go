package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/apikeys/internal/apikeys/cache"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/metrics"
	"github.com/aussiebroadwan/apikeys/internal/apikeys/store"
	"github.com/robfig/cron/v3"
)

const DefaultSweepSchedule = "@every 15m"

// HousekeepingService periodically drops cached state of keys that expired
// since the previous sweep. Validation catches expired keys on its own, the
// sweep just keeps them from lingering in the cache until their TTL.
type HousekeepingService struct {
	Store   store.Store
	Cache   *cache.KeyCache
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time

	Schedule string
	// Lookback is how far back the first sweep looks.
	Lookback time.Duration

	cron      *cron.Cron
	mu        sync.Mutex
	running   bool
	lastSweep time.Time
}

// NewHousekeepingService creates the service. An empty schedule falls back to
// DefaultSweepSchedule.
func NewHousekeepingService(st store.Store, kc *cache.KeyCache, logger *slog.Logger, m *metrics.Metrics, schedule string) *HousekeepingService {
	if logger == nil {
		logger = slog.Default()
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &HousekeepingService{
		Store:    st,
		Cache:    kc,
		Logger:   logger.With("component", "housekeeping"),
		Metrics:  m,
		Schedule: schedule,
		Lookback: 24 * time.Hour,
		cron:     cron.New(),
	}
}

// Start schedules the sweep. It returns an error for a bad schedule.
func (h *HousekeepingService) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return nil
	}
	if _, err := cron.ParseStandard(h.Schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", h.Schedule, err)
	}
	if _, err := h.cron.AddFunc(h.Schedule, h.runSweep); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	h.cron.Start()
	h.running = true
	h.Logger.Info("housekeeping service started", "schedule", h.Schedule)
	return nil
}

// Stop halts the scheduler and waits for a running sweep.
func (h *HousekeepingService) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	// A running sweep takes h.mu, so wait without holding it.
	<-h.cron.Stop().Done()
	h.Logger.Info("housekeeping service stopped")
}

func (h *HousekeepingService) runSweep() {
	n, err := h.Sweep(context.Background())
	if err != nil {
		h.Logger.Error("expiry sweep failed", "error", err)
		return
	}
	if n > 0 {
		h.Logger.Info("expiry sweep completed", "invalidated", n)
	} else {
		h.Logger.Debug("expiry sweep completed, nothing expired")
	}
}

// Sweep invalidates cache entries of keys whose expiry falls between the
// previous sweep and now, and returns how many keys it touched.
func (h *HousekeepingService) Sweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now().UTC()
	}

	h.mu.Lock()
	from := h.lastSweep
	if from.IsZero() {
		from = now.Add(-h.Lookback)
	}
	h.mu.Unlock()

	keys, err := h.Store.APIKeys().ListExpiredBetween(ctx, from, now)
	if err != nil {
		return 0, fmt.Errorf("list expired keys: %w", err)
	}

	kc := h.Cache
	if kc == nil {
		kc = noopKeyCache
	}
	for _, k := range keys {
		kc.InvalidateKey(ctx, k.ID, k.OwnerID)
	}

	h.mu.Lock()
	h.lastSweep = now
	h.mu.Unlock()

	h.Metrics.RecordSweep(len(keys))
	return len(keys), nil
}
