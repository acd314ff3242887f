package store

import (
	"context"

	"github.com/academica/forecast/internal/types"
)

// Store defines the interface contract for the authoritative store
// operations exposed to the pipeline: one live draft per identity,
// append-only raw inputs and predictions, and the prediction count used
// by quota enforcement.
type Store interface {
	UpsertDraft(ctx context.Context, identityID string, answers types.AnswerSet, step int) (*types.DraftRecord, error)
	GetDraft(ctx context.Context, identityID string) (*types.DraftRecord, error)
	DeleteDraft(ctx context.Context, identityID string) error
	InsertRawInput(ctx context.Context, identityID string, req types.InsertRawInputRequest) (*types.RawInput, error)
	InsertPrediction(ctx context.Context, identityID string, req types.InsertPredictionRequest) (*types.Prediction, error)
	CountPredictions(ctx context.Context, identityID string) (int, error)
	LatestPrediction(ctx context.Context, identityID string) (*types.Prediction, error)
	PredictionLimit() int
	GetStats(ctx context.Context) (*types.StoreStats, error)
	Close() error
}
