package types

import (
	"time"
)

// DraftStatus represents the lifecycle state of a buffered draft
type DraftStatus string

const (
	DraftStatusPending   DraftStatus = "pending"
	DraftStatusCompleted DraftStatus = "completed"
)

// Answer choice values for categorical questions
const (
	ChoiceYes = "Yes"
	ChoiceNo  = "No"
)

// Bounds for scale questions
const (
	AttendanceMin = 0
	AttendanceMax = 100
	ScaleMin      = 0
	ScaleMax      = 10
)

// TotalSteps is the number of wizard steps in the assessment
const TotalSteps = 3

// AnswerSet holds the six questionnaire answers. Categorical fields are
// Yes/No strings (empty until the step is visited); scale fields are
// bounded integers.
type AnswerSet struct {
	RepeatedCourse string `json:"repeatedCourse"`
	Attendance     int    `json:"attendance"`
	Job            string `json:"job"`
	Motivation     int    `json:"motivation"`
	FirstGen       string `json:"firstGen"`
	FriendSupport  int    `json:"friendSupport"`
}

// DraftRecord is the authoritative store's draft row. At most one exists
// per identity.
type DraftRecord struct {
	IdentityID string      `json:"-"`
	Answers    AnswerSet   `json:"answers"`
	Step       int         `json:"step"`
	Status     DraftStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// RawInput is the audit copy of a draft's answers at commit time, in the
// scoring schema (Yes/No mapped to 1/0). Append-only; never read back by
// the pipeline itself.
type RawInput struct {
	ID                 string    `json:"id"`
	IdentityID         string    `json:"-"`
	RepeatedCourse     int       `json:"repeated_course"`
	Attendance         float64   `json:"attendance"`
	PartTimeJob        int       `json:"part_time_job"`
	MotivationLevel    float64   `json:"motivation_level"`
	FirstGeneration    int       `json:"first_generation"`
	FriendsPerformance float64   `json:"friends_performance"`
	CreatedAt          time.Time `json:"created_at"`
}

// Prediction is the durable output of a successful commit. Created
// exactly once per commit, never mutated.
type Prediction struct {
	ID             string    `json:"id"`
	IdentityID     string    `json:"-"`
	Score          float64   `json:"score"`
	Recommendation string    `json:"recommendation"`
	Probability    int       `json:"probability"`
	Attendance     float64   `json:"attendance"`
	CreatedAt      time.Time `json:"created_at"`
}

// UpsertDraftRequest is the body of PUT /api/v1/draft
type UpsertDraftRequest struct {
	Answers AnswerSet `json:"answers"`
	Step    int       `json:"step"`
}

// DraftResponse is the body of GET /api/v1/draft
type DraftResponse struct {
	Status    DraftStatus `json:"status"`
	Answers   AnswerSet   `json:"answers"`
	Step      int         `json:"step"`
	CreatedAt time.Time   `json:"created_at"`
}

// InsertRawInputRequest is the body of POST /api/v1/raw-inputs
type InsertRawInputRequest struct {
	RepeatedCourse     int     `json:"repeated_course"`
	Attendance         float64 `json:"attendance"`
	PartTimeJob        int     `json:"part_time_job"`
	MotivationLevel    float64 `json:"motivation_level"`
	FirstGeneration    int     `json:"first_generation"`
	FriendsPerformance float64 `json:"friends_performance"`
}

// InsertPredictionRequest is the body of POST /api/v1/predictions
type InsertPredictionRequest struct {
	Score          float64 `json:"score"`
	Recommendation string  `json:"recommendation"`
	Probability    int     `json:"probability"`
	Attendance     float64 `json:"attendance"`
}

// CountResponse is the body of GET /api/v1/predictions/count
type CountResponse struct {
	Count int `json:"count"`
	Limit int `json:"limit"`
}

// HealthResponse is the body of GET /api/v1/health
type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	DraftCount      int64  `json:"draft_count"`
	PredictionCount int64  `json:"prediction_count"`
	RawInputCount   int64  `json:"raw_input_count"`
}

// StoreStats holds aggregate store counts for health reporting
type StoreStats struct {
	DraftCount      int64
	PredictionCount int64
	RawInputCount   int64
}
