package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/marketd/internal/domain"
)

// Archiver periodically copies the last-good snapshot to cold storage and,
// when a history store is configured, exports and prunes aged price history.
// Deletion from the primary store happens only after the archive upload has
// succeeded.
type Archiver struct {
	writer   domain.BlobWriter
	cache    domain.SnapshotCache
	history  domain.HistoryStore // nil when history is disabled
	interval time.Duration
	retain   time.Duration
	logger   *slog.Logger
}

// ArchiverConfig tunes the archive cycle.
type ArchiverConfig struct {
	// Interval between archive cycles. Zero selects 24h.
	Interval time.Duration

	// Retain is how much recent history stays in the primary store. Zero
	// selects 7 days.
	Retain time.Duration
}

// NewArchiver creates an Archiver. history may be nil.
func NewArchiver(writer domain.BlobWriter, cache domain.SnapshotCache, history domain.HistoryStore, cfg ArchiverConfig, logger *slog.Logger) *Archiver {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Retain <= 0 {
		cfg.Retain = 7 * 24 * time.Hour
	}
	return &Archiver{
		writer:   writer,
		cache:    cache,
		history:  history,
		interval: cfg.Interval,
		retain:   cfg.Retain,
		logger:   logger.With(slog.String("component", "archiver")),
	}
}

// RunLoop executes one archive cycle per interval until the context is
// cancelled. Cycle failures are logged and retried on the next tick.
func (a *Archiver) RunLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.RunOnce(ctx); err != nil {
				a.logger.ErrorContext(ctx, "archive cycle failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce archives the current snapshot and then the aged history.
func (a *Archiver) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()

	if err := a.archiveSnapshot(ctx, now); err != nil {
		return err
	}
	if a.history != nil {
		if err := a.archiveHistory(ctx, now.Add(-a.retain)); err != nil {
			return err
		}
	}
	return nil
}

// archiveSnapshot uploads the last-good coin snapshot as dated JSON. An
// absent or corrupt cache is not an archiver error: there is simply nothing
// to archive yet.
func (a *Archiver) archiveSnapshot(ctx context.Context, now time.Time) error {
	coins, err := a.cache.LoadCoins(ctx)
	if err != nil {
		a.logger.InfoContext(ctx, "no snapshot to archive",
			slog.String("reason", err.Error()),
		)
		return nil
	}

	data, err := json.Marshal(coins)
	if err != nil {
		return fmt.Errorf("s3blob: marshal snapshot: %w", err)
	}

	path := fmt.Sprintf("snapshots/%s/coins-%s.json",
		now.Format("2006/01/02"), now.Format("150405"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "snapshot archived",
		slog.String("path", path),
		slog.Int("coins", len(coins)),
	)
	return nil
}

// archiveHistory exports all history points older than cutoff as JSONL via a
// multipart upload, then deletes them from the primary store.
func (a *Archiver) archiveHistory(ctx context.Context, cutoff time.Time) error {
	points, err := a.history.ListBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("s3blob: list history for archive: %w", err)
	}
	if len(points) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, p := range points {
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("s3blob: encode history point: %w", err)
		}
	}

	path := fmt.Sprintf("history/price-history-before-%s.jsonl", cutoff.Format("20060102T150405"))
	if err := a.writer.PutMultipart(ctx, path, &buf, minPartSize); err != nil {
		return err
	}

	deleted, err := a.history.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("s3blob: prune archived history: %w", err)
	}

	a.logger.InfoContext(ctx, "history archived",
		slog.String("path", path),
		slog.Int("points", len(points)),
		slog.Int64("pruned", deleted),
	)
	return nil
}
