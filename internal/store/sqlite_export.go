package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/academica/forecast/internal/types"
)

const exportCursorKey = "raw_inputs_cursor"

// ListRawInputsSince returns up to limit raw inputs created strictly
// after the cursor, oldest first. Used by the analytics export worker.
func (s *SQLiteStore) ListRawInputsSince(ctx context.Context, since time.Time, limit int) ([]types.RawInput, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identity_id, repeated_course, attendance, part_time_job, motivation_level, first_generation, friends_performance, created_at
		FROM raw_inputs
		WHERE created_at > ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`, since.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("list raw inputs: %w", err)
	}
	defer rows.Close()

	var inputs []types.RawInput
	for rows.Next() {
		var rec types.RawInput
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.IdentityID, &rec.RepeatedCourse, &rec.Attendance, &rec.PartTimeJob, &rec.MotivationLevel, &rec.FirstGeneration, &rec.FriendsPerformance, &createdAt); err != nil {
			return nil, fmt.Errorf("scan raw input: %w", err)
		}
		rec.CreatedAt = parseTime(createdAt)
		inputs = append(inputs, rec)
	}

	return inputs, rows.Err()
}

// ExportCursor returns the creation time of the last exported raw input.
// A zero time means nothing has been exported yet.
func (s *SQLiteStore) ExportCursor(ctx context.Context) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM export_state WHERE key = ?`, exportCursorKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("export cursor: %w", err)
	}
	return parseTime(value), nil
}

// SetExportCursor records the creation time of the last exported raw input.
func (s *SQLiteStore) SetExportCursor(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO export_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, exportCursorKey, t.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set export cursor: %w", err)
	}
	return nil
}
