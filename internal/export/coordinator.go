package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/academica/forecast/internal/types"
)

// RawInputSource defines the store operations needed by the export
// coordinator. Implemented by SQLiteStore.
type RawInputSource interface {
	ListRawInputsSince(ctx context.Context, since time.Time, limit int) ([]types.RawInput, error)
	ExportCursor(ctx context.Context) (time.Time, error)
	SetExportCursor(ctx context.Context, t time.Time) error
}

// Coordinator periodically exports raw scoring inputs as NDJSON batches.
// Each cycle reads rows newer than the persisted cursor, uploads them,
// and advances the cursor only after a successful upload. A failed
// upload leaves the cursor untouched so the next cycle retries the
// same rows.
type Coordinator struct {
	source    RawInputSource
	uploader  Uploader
	interval  time.Duration
	batchSize int

	// now is swappable for tests.
	now func() time.Time
}

// NewCoordinator creates a coordinator with the given source, uploader,
// interval, and per-cycle batch size.
func NewCoordinator(source RawInputSource, uploader Uploader, interval time.Duration, batchSize int) *Coordinator {
	return &Coordinator{
		source:    source,
		uploader:  uploader,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run starts the coordinator loop. It blocks until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	if !c.uploader.Configured() {
		slog.Info("export disabled, no storage configured",
			"component", "worker",
			"worker", "export-coordinator",
		)
		return
	}

	slog.Info("worker started",
		"component", "worker",
		"worker", "export-coordinator",
		"interval", c.interval.String(),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "export-coordinator",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			if err := c.ExportOnce(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				slog.Warn("export cycle failed",
					"component", "worker",
					"worker", "export-coordinator",
					"error", err,
				)
			}
		}
	}
}

// ExportOnce runs a single export cycle: read, write NDJSON, upload,
// advance cursor. A cycle with no new rows is a successful no-op.
func (c *Coordinator) ExportOnce(ctx context.Context) error {
	cursor, err := c.source.ExportCursor(ctx)
	if err != nil {
		return fmt.Errorf("read export cursor: %w", err)
	}

	rows, err := c.source.ListRawInputsSince(ctx, cursor, c.batchSize)
	if err != nil {
		return fmt.Errorf("list raw inputs: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	path, err := c.writeBatchFile(rows)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	key := c.objectKey()
	if err := c.uploadWithRetry(ctx, key, path); err != nil {
		return fmt.Errorf("upload batch %s: %w", key, err)
	}

	// Advance to the newest exported row. The list query is strictly
	// greater-than, so a row inserted later within the same second can
	// be skipped. Acceptable for analytics batches.
	newest := rows[len(rows)-1].CreatedAt
	if err := c.source.SetExportCursor(ctx, newest); err != nil {
		return fmt.Errorf("advance export cursor: %w", err)
	}

	slog.Info("raw-input batch exported",
		"component", "worker",
		"worker", "export-coordinator",
		"object_key", key,
		"rows", len(rows),
	)
	return nil
}

// writeBatchFile writes rows as NDJSON to a temp file and returns its path.
func (c *Coordinator) writeBatchFile(rows []types.RawInput) (string, error) {
	f, err := os.CreateTemp("", "forecast-export-*.ndjson")
	if err != nil {
		return "", fmt.Errorf("create batch file: %w", err)
	}

	enc := json.NewEncoder(f)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("encode raw input %s: %w", row.ID, err)
		}
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close batch file: %w", err)
	}
	return f.Name(), nil
}

// uploadWithRetry uploads with exponential backoff. Transient S3
// failures are common enough that a single attempt per hour would
// stall the cursor for too long.
func (c *Coordinator) uploadWithRetry(ctx context.Context, key, path string) error {
	backoff := retry.WithMaxRetries(4, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.uploader.Upload(ctx, key, path); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// objectKey returns the S3 object key for a batch.
// Convention: raw-inputs/{UTC timestamp}.ndjson
func (c *Coordinator) objectKey() string {
	return filepath.ToSlash(filepath.Join("raw-inputs", c.now().UTC().Format("20060102T150405Z")+".ndjson"))
}
