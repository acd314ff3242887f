package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteStore is the authoritative identity-scoped store. Implementations
// must treat the token as the caller's proof of identity; every operation
// is scoped to the identity the token resolves to.
type RemoteStore interface {
	UpsertDraft(ctx context.Context, token string, d Draft) error
	// FetchDraft returns the identity's draft, completed taking priority
	// over pending. Returns ErrNoDraft when neither exists.
	FetchDraft(ctx context.Context, token string) (*Draft, error)
	DeleteDraft(ctx context.Context, token string) error
	InsertRawInput(ctx context.Context, token string, a Answers) error
	// InsertPrediction returns a QuotaExceededError when the identity is
	// at its prediction cap.
	InsertPrediction(ctx context.Context, token string, score float64, recommendation string, probability int, attendance float64) (*PredictionRecord, error)
	CountPredictions(ctx context.Context, token string) (count, limit int, err error)
}

// HTTPRemoteStore talks to the forecast service API.
type HTTPRemoteStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRemoteStore creates a remote store client for the given base URL.
func NewHTTPRemoteStore(baseURL string) *HTTPRemoteStore {
	return &HTTPRemoteStore{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// upsertDraftRequest mirrors the service's PUT /api/v1/draft body.
type upsertDraftRequest struct {
	Answers Answers `json:"answers"`
	Step    int     `json:"step"`
}

// draftResponse mirrors the service's GET /api/v1/draft body.
type draftResponse struct {
	Status    DraftStatus `json:"status"`
	Answers   Answers     `json:"answers"`
	Step      int         `json:"step"`
	CreatedAt time.Time   `json:"created_at"`
}

// rawInputRequest is the scoring-schema audit payload. Categorical
// Yes/No answers map to 1/0.
type rawInputRequest struct {
	RepeatedCourse     int     `json:"repeated_course"`
	Attendance         float64 `json:"attendance"`
	PartTimeJob        int     `json:"part_time_job"`
	MotivationLevel    float64 `json:"motivation_level"`
	FirstGeneration    int     `json:"first_generation"`
	FriendsPerformance float64 `json:"friends_performance"`
}

// insertPredictionRequest mirrors the service's POST /api/v1/predictions body.
type insertPredictionRequest struct {
	Score          float64 `json:"score"`
	Recommendation string  `json:"recommendation"`
	Probability    int     `json:"probability"`
	Attendance     float64 `json:"attendance"`
}

// quotaProblem is the 409 problem-details body carrying the live count.
type quotaProblem struct {
	Detail string `json:"detail"`
	Count  int    `json:"count"`
	Limit  int    `json:"limit"`
}

type countResponse struct {
	Count int `json:"count"`
	Limit int `json:"limit"`
}

// UpsertDraft writes the draft keyed by the token's identity. Repeated
// saves never create duplicate pending drafts.
func (r *HTTPRemoteStore) UpsertDraft(ctx context.Context, token string, d Draft) error {
	body := upsertDraftRequest{Answers: d.Answers, Step: d.Step}
	resp, err := r.send(ctx, token, http.MethodPut, "/api/v1/draft", body)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upsert draft: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// FetchDraft loads the identity's draft or completed marker.
func (r *HTTPRemoteStore) FetchDraft(ctx context.Context, token string) (*Draft, error) {
	resp, err := r.send(ctx, token, http.MethodGet, "/api/v1/draft", nil)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNoDraft
	default:
		return nil, fmt.Errorf("fetch draft: unexpected status %d", resp.StatusCode)
	}

	var dr draftResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &Draft{
		Answers:   dr.Answers,
		Step:      dr.Step,
		Status:    dr.Status,
		CreatedAt: dr.CreatedAt,
	}, nil
}

// DeleteDraft removes the identity's draft. Idempotent.
func (r *HTTPRemoteStore) DeleteDraft(ctx context.Context, token string) error {
	resp, err := r.send(ctx, token, http.MethodDelete, "/api/v1/draft", nil)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete draft: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// InsertRawInput appends the audit copy of the answers in the scoring
// schema.
func (r *HTTPRemoteStore) InsertRawInput(ctx context.Context, token string, a Answers) error {
	body := rawInputRequest{
		RepeatedCourse:     choiceToFlag(a.RepeatedCourse),
		Attendance:         float64(a.Attendance),
		PartTimeJob:        choiceToFlag(a.Job),
		MotivationLevel:    float64(a.Motivation),
		FirstGeneration:    choiceToFlag(a.FirstGen),
		FriendsPerformance: float64(a.FriendSupport),
	}
	resp, err := r.send(ctx, token, http.MethodPost, "/api/v1/raw-inputs", body)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("insert raw input: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// InsertPrediction writes the durable prediction record. A 409 response
// maps to QuotaExceededError with the service's live count.
func (r *HTTPRemoteStore) InsertPrediction(ctx context.Context, token string, score float64, recommendation string, probability int, attendance float64) (*PredictionRecord, error) {
	body := insertPredictionRequest{
		Score:          score,
		Recommendation: recommendation,
		Probability:    probability,
		Attendance:     attendance,
	}
	resp, err := r.send(ctx, token, http.MethodPost, "/api/v1/predictions", body)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusConflict:
		var qp quotaProblem
		if err := json.NewDecoder(resp.Body).Decode(&qp); err != nil {
			return nil, &QuotaExceededError{Count: -1, Limit: -1}
		}
		return nil, &QuotaExceededError{Count: qp.Count, Limit: qp.Limit}
	default:
		return nil, fmt.Errorf("insert prediction: unexpected status %d", resp.StatusCode)
	}

	var rec PredictionRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	return &rec, nil
}

// CountPredictions returns the identity's prediction count and the
// configured cap.
func (r *HTTPRemoteStore) CountPredictions(ctx context.Context, token string) (int, int, error) {
	resp, err := r.send(ctx, token, http.MethodGet, "/api/v1/predictions/count", nil)
	if err != nil {
		return 0, 0, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("count predictions: unexpected status %d", resp.StatusCode)
	}

	var cr countResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return 0, 0, fmt.Errorf("decode count: %w", err)
	}
	return cr.Count, cr.Limit, nil
}

// Ping checks connectivity to the service.
func (r *HTTPRemoteStore) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/v1/health", nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

// send sends an authenticated JSON request to the service.
func (r *HTTPRemoteStore) send(ctx context.Context, token, method, path string, body interface{}) (*http.Response, error) {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	return r.client.Do(req)
}

// drain consumes and closes the response body so connections are reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// choiceToFlag maps a Yes/No answer to the scoring schema's 1/0.
func choiceToFlag(choice string) int {
	if choice == ChoiceYes {
		return 1
	}
	return 0
}
