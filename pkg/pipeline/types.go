// Package pipeline implements the deferred-submission pipeline for the
// graduation questionnaire: draft buffering across a browser-local store
// and the remote authoritative store, auth-interrupt resumption, and the
// quota-gated multi-write commit that turns a draft into a permanent
// prediction record. It is a library invoked by the wizard UI layer; the
// UI itself, the identity provider, and the scoring function are
// external collaborators.
package pipeline

import (
	"time"
)

// DraftStatus is the lifecycle state of a draft.
type DraftStatus string

const (
	StatusPending   DraftStatus = "pending"
	StatusCompleted DraftStatus = "completed"
)

// Choice values for categorical answers.
const (
	ChoiceYes = "Yes"
	ChoiceNo  = "No"
)

// Answer bounds and step count.
const (
	AttendanceMin = 0
	AttendanceMax = 100
	ScaleMin      = 0
	ScaleMax      = 10
	TotalSteps    = 3
)

// DefaultPredictionCap is the number of completed predictions allowed
// per identity unless the config overrides it.
const DefaultPredictionCap = 5

// Answers is the ordered set of questionnaire answers. Categorical
// fields are Yes/No strings; scale fields are bounded integers. A
// partial draft may leave categorical fields empty for unvisited steps.
type Answers struct {
	RepeatedCourse string `json:"repeatedCourse"`
	Attendance     int    `json:"attendance"`
	Job            string `json:"job"`
	Motivation     int    `json:"motivation"`
	FirstGen       string `json:"firstGen"`
	FriendSupport  int    `json:"friendSupport"`
}

// Draft is the unit of work: questionnaire state plus lifecycle status.
// At most one pending draft exists per identity (or per anonymous
// browser instance) at any time.
type Draft struct {
	Answers   Answers     `json:"answers"`
	Step      int         `json:"step"`
	Status    DraftStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// PredictionRecord is the durable output of a successful commit. Created
// exactly once per commit; never mutated thereafter.
type PredictionRecord struct {
	ID             string    `json:"id"`
	Score          float64   `json:"score"`
	Recommendation string    `json:"recommendation"`
	Probability    int       `json:"probability"`
	Attendance     float64   `json:"attendance"`
	CreatedAt      time.Time `json:"created_at"`
}

// Identity is the opaque identity-provider state. An anonymous user has
// an empty ID and no token.
type Identity struct {
	ID    string
	Token string
}

// Authenticated reports whether the identity has a stable identifier.
func (i Identity) Authenticated() bool {
	return i.ID != "" && i.Token != ""
}

// IdentityEventKind distinguishes identity-state transitions.
type IdentityEventKind string

const (
	EventSignedIn  IdentityEventKind = "SignedIn"
	EventSignedOut IdentityEventKind = "SignedOut"
)

// IdentityEvent is a discrete identity-state change delivered by the
// identity provider.
type IdentityEvent struct {
	Kind     IdentityEventKind
	Identity Identity
}

// SaveTier reports which tier actually holds the data after a save, so
// callers and tests can assert persistence instead of inferring it from
// the absence of an error.
type SaveTier int

const (
	// TierNone means the draft was not persisted anywhere.
	TierNone SaveTier = iota
	// TierLocal means only the browser-local store holds the draft.
	TierLocal
	// TierRemote means the authoritative store holds the draft.
	TierRemote
)

// String returns a human-readable tier name for logs.
func (t SaveTier) String() string {
	switch t {
	case TierLocal:
		return "local"
	case TierRemote:
		return "remote"
	default:
		return "none"
	}
}

// QuotaDecision is the result of a quota pre-check.
type QuotaDecision struct {
	Allowed bool
	Count   int
	Limit   int
}

// ScoreResult is the scoring collaborator's parsed response.
type ScoreResult struct {
	Score          float64 `json:"score"`
	Recommendation string  `json:"recommendation"`
}
