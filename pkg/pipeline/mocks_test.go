package pipeline

import (
	"context"
	"sync"
)

// mockKV implements KV in memory with injectable failures
type mockKV struct {
	mu      sync.Mutex
	data    map[string]string
	getErr  error
	setErr  error
	removes int
}

func newMockKV() *mockKV {
	return &mockKV{data: make(map[string]string)}
}

func (m *mockKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mockKV) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removes++
	delete(m.data, key)
	return nil
}

func (m *mockKV) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// mockRemote implements RemoteStore in memory with injectable failures
// and real quota behavior
type mockRemote struct {
	mu sync.Mutex

	draft    *Draft
	fetchErr error

	upsertErr   error
	upsertCalls int

	deleteCalls int

	rawInputs []Answers
	rawErr    error

	predictions   []PredictionRecord
	predictionErr error
	limit         int

	countErr error
}

func newMockRemote() *mockRemote {
	return &mockRemote{limit: DefaultPredictionCap}
}

func (m *mockRemote) UpsertDraft(ctx context.Context, token string, d Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	copied := d
	m.draft = &copied
	return nil
}

func (m *mockRemote) FetchDraft(ctx context.Context, token string) (*Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if m.draft == nil {
		return nil, ErrNoDraft
	}
	copied := *m.draft
	return &copied, nil
}

func (m *mockRemote) DeleteDraft(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	m.draft = nil
	return nil
}

func (m *mockRemote) InsertRawInput(ctx context.Context, token string, a Answers) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rawErr != nil {
		return m.rawErr
	}
	m.rawInputs = append(m.rawInputs, a)
	return nil
}

func (m *mockRemote) InsertPrediction(ctx context.Context, token string, score float64, recommendation string, probability int, attendance float64) (*PredictionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.predictionErr != nil {
		return nil, m.predictionErr
	}
	if len(m.predictions) >= m.limit {
		return nil, &QuotaExceededError{Count: len(m.predictions), Limit: m.limit}
	}
	rec := PredictionRecord{
		ID:             "01JPRED000000000000000000",
		Score:          score,
		Recommendation: recommendation,
		Probability:    probability,
		Attendance:     attendance,
	}
	m.predictions = append(m.predictions, rec)
	return &rec, nil
}

func (m *mockRemote) CountPredictions(ctx context.Context, token string) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, 0, m.countErr
	}
	return len(m.predictions), m.limit, nil
}

func (m *mockRemote) rawInputCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rawInputs)
}

func (m *mockRemote) predictionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.predictions)
}

// mockScorer implements Scorer with injectable failures
type mockScorer struct {
	mu     sync.Mutex
	result ScoreResult
	err    error
	calls  int
	last   Answers
}

func (m *mockScorer) Score(ctx context.Context, a Answers) (ScoreResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = a
	if m.err != nil {
		return ScoreResult{}, m.err
	}
	return m.result, nil
}

// mockPrompter records sign-in requests
type mockPrompter struct {
	mu       sync.Mutex
	requests []string
	err      error
}

func (m *mockPrompter) RequestSignIn(redirect string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.requests = append(m.requests, redirect)
	return nil
}

func (m *mockPrompter) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// mockIdentitySource is a manually driven identity event stream
type mockIdentitySource struct {
	ch chan IdentityEvent
}

func newMockIdentitySource() *mockIdentitySource {
	return &mockIdentitySource{ch: make(chan IdentityEvent, 8)}
}

func (m *mockIdentitySource) Subscribe() (<-chan IdentityEvent, func()) {
	return m.ch, func() { close(m.ch) }
}

func (m *mockIdentitySource) signIn(id Identity) {
	m.ch <- IdentityEvent{Kind: EventSignedIn, Identity: id}
}

func completeAnswers() Answers {
	return Answers{
		RepeatedCourse: ChoiceNo,
		Attendance:     85,
		Job:            ChoiceNo,
		Motivation:     7,
		FirstGen:       ChoiceNo,
		FriendSupport:  6,
	}
}

func completeDraft() Draft {
	return Draft{
		Answers: completeAnswers(),
		Step:    TotalSteps,
		Status:  StatusPending,
	}
}

var authedIdentity = Identity{ID: "user-1", Token: "token-1"}
