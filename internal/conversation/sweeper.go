package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/kalnadai-care/internal/shared"
)

const (
	defaultSweepInterval   = 5 * time.Minute
	defaultDeviceRetention = 30 * 24 * time.Hour
)

// DeviceCleaner removes persisted device rows that have not been seen for a
// while.
type DeviceCleaner interface {
	DeleteStaleDevices(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SweeperConfig controls the idle sweeper.
type SweeperConfig struct {
	Interval        time.Duration
	IdleTTL         time.Duration
	DeviceRetention time.Duration
}

// EvictCallback is called for every evicted device.
type EvictCallback func(deviceID string)

// StartSweeper runs a background goroutine that evicts idle conversations
// from the registry and prunes stale device rows until ctx is done.
func StartSweeper(ctx context.Context, reg *Registry, cleaner DeviceCleaner, cfg SweeperConfig, onEvict EvictCallback) {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultSweepInterval
	}
	if cfg.DeviceRetention <= 0 {
		cfg.DeviceRetention = defaultDeviceRetention
	}

	ticker := time.NewTicker(cfg.Interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Conversation sweeper started", "interval", cfg.Interval, "idle_ttl", cfg.IdleTTL)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, reg, cleaner, cfg, onEvict, time.Now())
			case <-ctx.Done():
				slog.Info("Conversation sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(ctx context.Context, reg *Registry, cleaner DeviceCleaner, cfg SweeperConfig, onEvict EvictCallback, now time.Time) {
	if cfg.IdleTTL > 0 {
		evicted := reg.Evict(cfg.IdleTTL, now)
		for _, id := range evicted {
			if onEvict != nil {
				onEvict(id)
			}
		}
		if len(evicted) > 0 {
			slog.Info("Conversation sweeper evicted idle sessions", "count", len(evicted), "remaining", reg.Len())
		}
	}

	if cleaner == nil {
		return
	}

	var deleted int64
	err := shared.RetryOnConflict(ctx, "delete stale devices", 3, 100*time.Millisecond, func(ctx context.Context) error {
		n, err := cleaner.DeleteStaleDevices(ctx, cfg.DeviceRetention)
		deleted = n
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Conversation sweeper interrupted during device cleanup", "error", err)
			return
		}
		slog.Error("Conversation sweeper failed to delete stale devices", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Conversation sweeper deleted stale devices", "count", deleted)
	}
}
