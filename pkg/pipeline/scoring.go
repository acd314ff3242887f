package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"
)

// Scorer is the external scoring collaborator: an opaque remote
// procedure that turns validated answers into a numeric score and a
// text recommendation.
type Scorer interface {
	Score(ctx context.Context, a Answers) (ScoreResult, error)
}

// HTTPScorer calls the scoring service over HTTP. Any non-2xx status or
// malformed body is reported as an error; the caller wraps it as an
// UpstreamError.
type HTTPScorer struct {
	url    string
	client *http.Client
}

// NewHTTPScorer creates a scorer posting to the given endpoint URL.
func NewHTTPScorer(url string) *HTTPScorer {
	return &HTTPScorer{
		url: url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Score maps the answers into the scoring schema and posts them.
func (s *HTTPScorer) Score(ctx context.Context, a Answers) (ScoreResult, error) {
	payload := rawInputRequest{
		RepeatedCourse:     choiceToFlag(a.RepeatedCourse),
		Attendance:         float64(a.Attendance),
		PartTimeJob:        choiceToFlag(a.Job),
		MotivationLevel:    float64(a.Motivation),
		FirstGeneration:    choiceToFlag(a.FirstGen),
		FriendsPerformance: float64(a.FriendSupport),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return ScoreResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return ScoreResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return ScoreResult{}, err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ScoreResult{}, fmt.Errorf("scoring call failed: status %d", resp.StatusCode)
	}

	var result ScoreResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ScoreResult{}, fmt.Errorf("malformed scoring response: %w", err)
	}
	if result.Recommendation == "" {
		return ScoreResult{}, fmt.Errorf("scoring response missing recommendation")
	}
	return result, nil
}

// maxScore is the scoring scale's upper bound (a 4.0 CGPA scale).
const maxScore = 4.0

// DeriveProbability converts a score into the probability-style
// percentage shown alongside it: score/4 as a percentage, rounded,
// clamped to 0..100.
func DeriveProbability(score float64) int {
	p := int(math.Round(score / maxScore * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
