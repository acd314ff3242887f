package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// Orchestrator commits a completed draft through three dependent
// writes: the raw-input audit log, the scoring call, and the prediction
// record. The sequence is not a single atomic transaction; each step's
// failure is handled distinctly and every failure leaves the draft
// pending so a retry never loses answers.
type Orchestrator struct {
	buffer *BufferManager
	remote RemoteStore
	scorer Scorer
	quota  *QuotaEnforcer
	logger *slog.Logger
}

// NewOrchestrator wires the commit path. A nil logger disables logging.
func NewOrchestrator(buffer *BufferManager, remote RemoteStore, scorer Scorer, quota *QuotaEnforcer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		buffer: buffer,
		remote: remote,
		scorer: scorer,
		quota:  quota,
		logger: logger,
	}
}

// Commit turns the draft into a PredictionRecord.
//
// Failure modes:
//   - ValidationError: answers missing or out of bounds, no writes occur.
//   - QuotaExceededError: identity is at the cap, no writes occur.
//   - UpstreamError: a store write or the scoring call failed partway.
//     The raw-input row from a failed scoring attempt is deliberately
//     not rolled back; audit rows may outnumber predictions.
func (o *Orchestrator) Commit(ctx context.Context, id Identity, d Draft) (*PredictionRecord, error) {
	if err := ValidateAnswers(d.Answers); err != nil {
		return nil, err
	}

	// Re-check quota against the authoritative store immediately before
	// writing. The service still enforces atomically at insert, this
	// just avoids burning a scoring call on a doomed commit.
	decision, err := o.quota.CanCreate(ctx, id)
	if err != nil {
		return nil, &UpstreamError{Op: "quota check", Err: err}
	}
	if !decision.Allowed {
		return nil, &QuotaExceededError{Count: decision.Count, Limit: decision.Limit}
	}

	// The audit log is a prerequisite, not best-effort: downstream
	// steps must be traceable to validated raw input.
	if err := o.remote.InsertRawInput(ctx, id.Token, d.Answers); err != nil {
		return nil, &UpstreamError{Op: "raw input write", Err: err}
	}

	result, err := o.scorer.Score(ctx, d.Answers)
	if err != nil {
		return nil, &UpstreamError{Op: "scoring call", Err: err}
	}

	probability := DeriveProbability(result.Score)

	record, err := o.remote.InsertPrediction(ctx, id.Token,
		result.Score, result.Recommendation, probability, float64(d.Answers.Attendance))
	if err != nil {
		var quotaErr *QuotaExceededError
		if errors.As(err, &quotaErr) {
			return nil, quotaErr
		}
		// The scoring call is not repeated here; a caller retry redoes
		// the whole commit since the draft is still pending.
		return nil, &UpstreamError{Op: "prediction write", Err: err}
	}

	// Only now does the draft leave pending. A failed clear is logged
	// rather than failing the commit: the prediction exists, and the
	// stale buffer resolves on next load because completed wins.
	if err := o.buffer.Clear(ctx, id); err != nil {
		o.logger.Warn("buffer clear after commit failed", "error", err)
	}

	o.logger.Info("draft committed",
		"prediction_id", record.ID,
		"score", record.Score,
		"probability", record.Probability,
	)
	return record, nil
}
