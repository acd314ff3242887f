package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/academica/forecast/internal/store"
	"github.com/academica/forecast/internal/types"
	"github.com/academica/forecast/internal/validation"
)

// Handler implements the API handlers
type Handler struct {
	store     store.Store
	jwtSecret string
	version   string
}

// NewHandler creates a new Handler with store.Store interface
func NewHandler(s store.Store, jwtSecret, version string) *Handler {
	return &Handler{
		store:     s,
		jwtSecret: jwtSecret,
		version:   version,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	resp := types.HealthResponse{
		Status:          "healthy",
		Version:         h.version,
		DraftCount:      stats.DraftCount,
		PredictionCount: stats.PredictionCount,
		RawInputCount:   stats.RawInputCount,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// UpsertDraft handles PUT /api/v1/draft
func (h *Handler) UpsertDraft(w http.ResponseWriter, r *http.Request) {
	identityID := MustIdentityFromContext(r.Context())

	var req types.UpsertDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	// Partial drafts may carry unvisited categorical fields
	var c validation.Collector
	for _, e := range validation.ValidateAnswers(req.Answers, false) {
		e := e
		c.Add(&e)
	}
	c.Add(validation.ValidateStep("step", req.Step))
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Draft contains invalid fields", c.Errors())
		return
	}

	rec, err := h.store.UpsertDraft(r.Context(), identityID, req.Answers, req.Step)
	if err != nil {
		slog.Error("draft upsert failed", "error", err, "identity", identityID)
		MapStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(draftResponse(rec))
}

// GetDraft handles GET /api/v1/draft. A completed assessment always wins:
// when no draft row exists but the identity already holds a prediction, a
// completed marker is synthesized from the latest one so the client can
// short-circuit the wizard.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	identityID := MustIdentityFromContext(r.Context())
	ctx := r.Context()

	rec, err := h.store.GetDraft(ctx, identityID)
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(draftResponse(rec))
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		slog.Error("draft fetch failed", "error", err, "identity", identityID)
		MapStoreError(w, r, err)
		return
	}

	pred, err := h.store.LatestPrediction(ctx, identityID)
	if errors.Is(err, store.ErrNotFound) {
		WriteProblem(w, r, http.StatusNotFound, "No draft for this identity")
		return
	}
	if err != nil {
		slog.Error("latest prediction fetch failed", "error", err, "identity", identityID)
		MapStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(completedFromPrediction(pred))
}

// DeleteDraft handles DELETE /api/v1/draft
func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	identityID := MustIdentityFromContext(r.Context())

	if err := h.store.DeleteDraft(r.Context(), identityID); err != nil {
		slog.Error("draft delete failed", "error", err, "identity", identityID)
		MapStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// InsertRawInput handles POST /api/v1/raw-inputs
func (h *Handler) InsertRawInput(w http.ResponseWriter, r *http.Request) {
	identityID := MustIdentityFromContext(r.Context())

	var req types.InsertRawInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if errs := validation.ValidateRawInput(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Raw input contains invalid fields", errs)
		return
	}

	rec, err := h.store.InsertRawInput(r.Context(), identityID, req)
	if err != nil {
		slog.Error("raw input insert failed", "error", err, "identity", identityID)
		MapStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rec)
}

// InsertPrediction handles POST /api/v1/predictions. The store enforces
// the per-identity cap atomically; a rejection surfaces as 409 with the
// current count.
func (h *Handler) InsertPrediction(w http.ResponseWriter, r *http.Request) {
	identityID := MustIdentityFromContext(r.Context())
	ctx := r.Context()

	var req types.InsertPredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if errs := validation.ValidatePrediction(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Prediction contains invalid fields", errs)
		return
	}

	rec, err := h.store.InsertPrediction(ctx, identityID, req)
	if errors.Is(err, store.ErrQuotaExceeded) {
		count, countErr := h.store.CountPredictions(ctx, identityID)
		if countErr != nil {
			count = h.store.PredictionLimit()
		}
		WriteProblemQuota(w, r, count, h.store.PredictionLimit())
		return
	}
	if err != nil {
		slog.Error("prediction insert failed", "error", err, "identity", identityID)
		MapStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rec)
}

// CountPredictions handles GET /api/v1/predictions/count
func (h *Handler) CountPredictions(w http.ResponseWriter, r *http.Request) {
	identityID := MustIdentityFromContext(r.Context())

	count, err := h.store.CountPredictions(r.Context(), identityID)
	if err != nil {
		slog.Error("prediction count failed", "error", err, "identity", identityID)
		MapStoreError(w, r, err)
		return
	}

	resp := types.CountResponse{Count: count, Limit: h.store.PredictionLimit()}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func draftResponse(rec *types.DraftRecord) types.DraftResponse {
	return types.DraftResponse{
		Status:    rec.Status,
		Answers:   rec.Answers,
		Step:      rec.Step,
		CreatedAt: rec.CreatedAt,
	}
}

// completedFromPrediction reconstructs a completed-assessment marker from
// the identity's latest prediction. Only the attendance answer survives
// on the prediction row; the rest are neutral defaults.
func completedFromPrediction(pred *types.Prediction) types.DraftResponse {
	return types.DraftResponse{
		Status: types.DraftStatusCompleted,
		Answers: types.AnswerSet{
			RepeatedCourse: types.ChoiceNo,
			Attendance:     int(pred.Attendance),
			Job:            types.ChoiceNo,
			Motivation:     5,
			FirstGen:       types.ChoiceNo,
			FriendSupport:  5,
		},
		Step:      types.TotalSteps,
		CreatedAt: pred.CreatedAt,
	}
}
