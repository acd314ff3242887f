package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPScorer_MappedPayload(t *testing.T) {
	var gotBody map[string]float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(ScoreResult{Score: 3.2, Recommendation: "Keep it up."})
	}))
	defer srv.Close()

	s := NewHTTPScorer(srv.URL)
	result, err := s.Score(context.Background(), completeAnswers())
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	want := map[string]float64{
		"repeated_course":     0,
		"attendance":          85,
		"part_time_job":       0,
		"motivation_level":    7,
		"first_generation":    0,
		"friends_performance": 6,
	}
	for k, v := range want {
		if gotBody[k] != v {
			t.Errorf("payload field %s = %v, want %v", k, gotBody[k], v)
		}
	}
	if result.Score != 3.2 || result.Recommendation != "Keep it up." {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestHTTPScorer_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTPScorer(srv.URL)
	if _, err := s.Score(context.Background(), completeAnswers()); err == nil {
		t.Error("non-2xx status must be an error")
	}
}

func TestHTTPScorer_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	s := NewHTTPScorer(srv.URL)
	if _, err := s.Score(context.Background(), completeAnswers()); err == nil {
		t.Error("malformed body must be an error")
	}
}

func TestDeriveProbability(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{4.0, 100},
		{3.2, 80},
		{2.0, 50},
		{0.0, 0},
		{4.5, 100}, // clamped
		{-1.0, 0},  // clamped
		{3.33, 83},
	}

	for _, tt := range tests {
		if got := DeriveProbability(tt.score); got != tt.want {
			t.Errorf("DeriveProbability(%g) = %d, want %d", tt.score, got, tt.want)
		}
	}
}
