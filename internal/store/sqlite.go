package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/academica/forecast/internal/types"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the SQLite-backed authoritative store.
type SQLiteStore struct {
	db    *sql.DB
	limit int
}

// NewSQLiteStore creates a new SQLiteStore instance with the given
// prediction cap per identity. It initializes the database with WAL
// mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string, predictionLimit int) (*SQLiteStore, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, limit: predictionLimit}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PredictionLimit returns the configured prediction cap per identity.
func (s *SQLiteStore) PredictionLimit() int {
	return s.limit
}

// UpsertDraft inserts or replaces the identity's draft. Repeated saves
// target the same row, so an identity never holds more than one pending
// draft. The original created_at survives updates.
func (s *SQLiteStore) UpsertDraft(ctx context.Context, identityID string, answers types.AnswerSet, step int) (*types.DraftRecord, error) {
	payload, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (identity_id, answers, step, status, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', ?, ?)
		ON CONFLICT(identity_id) DO UPDATE SET
			answers = excluded.answers,
			step = excluded.step,
			status = 'pending',
			updated_at = excluded.updated_at
	`, identityID, string(payload), step, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("upsert draft: %w", err)
	}

	return s.GetDraft(ctx, identityID)
}

// GetDraft returns the identity's draft row, or ErrNotFound.
func (s *SQLiteStore) GetDraft(ctx context.Context, identityID string) (*types.DraftRecord, error) {
	var (
		payload              string
		status               string
		createdAt, updatedAt string
	)
	rec := &types.DraftRecord{IdentityID: identityID}

	err := s.db.QueryRowContext(ctx, `
		SELECT answers, step, status, created_at, updated_at
		FROM drafts WHERE identity_id = ?
	`, identityID).Scan(&payload, &rec.Step, &status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &rec.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	rec.Status = types.DraftStatus(status)
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)

	return rec, nil
}

// DeleteDraft removes the identity's draft. Deleting an absent draft is
// not an error.
func (s *SQLiteStore) DeleteDraft(ctx context.Context, identityID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE identity_id = ?`, identityID)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// InsertRawInput appends an audit row of the answers in scoring schema.
func (s *SQLiteStore) InsertRawInput(ctx context.Context, identityID string, req types.InsertRawInputRequest) (*types.RawInput, error) {
	now := time.Now().UTC()
	rec := &types.RawInput{
		ID:                 ulid.Make().String(),
		IdentityID:         identityID,
		RepeatedCourse:     req.RepeatedCourse,
		Attendance:         req.Attendance,
		PartTimeJob:        req.PartTimeJob,
		MotivationLevel:    req.MotivationLevel,
		FirstGeneration:    req.FirstGeneration,
		FriendsPerformance: req.FriendsPerformance,
		CreatedAt:          now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_inputs (id, identity_id, repeated_course, attendance, part_time_job, motivation_level, first_generation, friends_performance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.IdentityID, rec.RepeatedCourse, rec.Attendance, rec.PartTimeJob, rec.MotivationLevel, rec.FirstGeneration, rec.FriendsPerformance, now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert raw input: %w", err)
	}

	return rec, nil
}

// InsertPrediction appends a prediction, enforcing the per-identity cap.
// The count check and insert run in one statement, so concurrent commits
// for the same identity cannot push the count past the cap.
func (s *SQLiteStore) InsertPrediction(ctx context.Context, identityID string, req types.InsertPredictionRequest) (*types.Prediction, error) {
	now := time.Now().UTC()
	rec := &types.Prediction{
		ID:             ulid.Make().String(),
		IdentityID:     identityID,
		Score:          req.Score,
		Recommendation: req.Recommendation,
		Probability:    req.Probability,
		Attendance:     req.Attendance,
		CreatedAt:      now,
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions (id, identity_id, score, recommendation, probability, attendance, created_at)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM predictions WHERE identity_id = ?) < ?
	`, rec.ID, rec.IdentityID, rec.Score, rec.Recommendation, rec.Probability, rec.Attendance, now.Format(time.RFC3339), identityID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("insert prediction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("insert prediction: %w", err)
	}
	if affected == 0 {
		return nil, ErrQuotaExceeded
	}

	return rec, nil
}

// CountPredictions returns the number of predictions for the identity.
func (s *SQLiteStore) CountPredictions(ctx context.Context, identityID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM predictions WHERE identity_id = ?`, identityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count predictions: %w", err)
	}
	return count, nil
}

// LatestPrediction returns the identity's most recent prediction, or
// ErrNotFound.
func (s *SQLiteStore) LatestPrediction(ctx context.Context, identityID string) (*types.Prediction, error) {
	rec := &types.Prediction{IdentityID: identityID}
	var createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, score, recommendation, probability, attendance, created_at
		FROM predictions WHERE identity_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, identityID).Scan(&rec.ID, &rec.Score, &rec.Recommendation, &rec.Probability, &rec.Attendance, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest prediction: %w", err)
	}

	rec.CreatedAt = parseTime(createdAt)
	return rec, nil
}

// GetStats returns aggregate store statistics for health reporting.
func (s *SQLiteStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	stats := &types.StoreStats{}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM drafts`).Scan(&stats.DraftCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&stats.PredictionCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_inputs`).Scan(&stats.RawInputCount); err != nil {
		return nil, err
	}

	return stats, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
