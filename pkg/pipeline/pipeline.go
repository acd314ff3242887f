package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Config holds the pipeline client configuration.
type Config struct {
	LocalPath        string         // local buffer database path
	RemoteURL        string         // forecast service base URL
	ScoringURL       string         // scoring collaborator endpoint
	RedirectTarget   string         // passed to the sign-in collaborator
	AutosaveInterval time.Duration  // default: DefaultAutosaveInterval
	PredictionCap    int            // default: DefaultPredictionCap
	Prompter         AuthPrompter   // sign-in UI collaborator
	Identity         IdentitySource // identity-change event source
	Logger           *slog.Logger   // optional
}

// saveTimeout bounds a background autosave write.
const saveTimeout = 10 * time.Second

// Client is the deferred-submission pipeline facade used by the wizard
// UI. It owns the in-memory draft, buffers it on every edit, and runs
// the quota-gated commit on submit.
type Client struct {
	config       Config
	local        *LocalStore
	buffer       *BufferManager
	autosaver    *Autosaver
	quota        *QuotaEnforcer
	orchestrator *Orchestrator
	resume       *ResumptionController
	logger       *slog.Logger

	mu     sync.RWMutex
	draft  Draft
	closed bool

	// resumed delivers the outcome of a commit parked behind sign-in.
	resumed chan CommitResult
}

// New creates a pipeline client.
func New(cfg Config) (*Client, error) {
	if cfg.LocalPath == "" {
		return nil, errors.New("LocalPath is required")
	}
	if cfg.RemoteURL == "" {
		return nil, errors.New("RemoteURL is required")
	}
	if cfg.ScoringURL == "" {
		return nil, errors.New("ScoringURL is required")
	}
	if cfg.Prompter == nil {
		return nil, errors.New("Prompter is required")
	}
	if cfg.Identity == nil {
		return nil, errors.New("Identity source is required")
	}
	if cfg.AutosaveInterval == 0 {
		cfg.AutosaveInterval = DefaultAutosaveInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	local, err := NewLocalStore(cfg.LocalPath)
	if err != nil {
		return nil, err
	}

	remote := NewHTTPRemoteStore(cfg.RemoteURL)
	scorer := NewHTTPScorer(cfg.ScoringURL)
	buffer := NewBufferManager(local, remote, cfg.Logger)
	quota := NewQuotaEnforcer(remote, cfg.PredictionCap)
	orchestrator := NewOrchestrator(buffer, remote, scorer, quota, cfg.Logger)

	c := &Client{
		config:       cfg,
		local:        local,
		buffer:       buffer,
		quota:        quota,
		orchestrator: orchestrator,
		logger:       cfg.Logger,
		resumed:      make(chan CommitResult, 1),
	}

	c.autosaver = NewAutosaver(cfg.AutosaveInterval, c.backgroundSave)
	c.resume = NewResumptionController(buffer, orchestrator, cfg.Prompter,
		cfg.Identity, c.onResumedCommit, cfg.Logger)

	return c, nil
}

// Close flushes pending edits, stops the identity subscription, and
// closes the local store.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.autosaver.Flush()
	c.resume.Close()
	return c.local.Close()
}

// Identity returns the current identity as observed from the event
// stream.
func (c *Client) Identity() Identity {
	return c.resume.Identity()
}

// Draft returns a copy of the current in-memory draft.
func (c *Client) Draft() Draft {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.draft
}

// RecordEdit updates the in-memory draft with the full answer state and
// step cursor and schedules a debounced buffered save. Cheap and
// non-blocking; buffering failures are logged, never surfaced here.
func (c *Client) RecordEdit(answers Answers, step int) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.resume.Awaiting() {
		// Draft is read-only while a commit is parked behind sign-in.
		c.mu.Unlock()
		return
	}
	if c.draft.CreatedAt.IsZero() {
		c.draft.CreatedAt = time.Now().UTC()
	}
	c.draft.Answers = answers
	c.draft.Step = step
	c.draft.Status = StatusPending
	d := c.draft
	c.mu.Unlock()

	c.autosaver.RecordEdit(d)
}

// Flush forces any pending debounced save to complete now.
func (c *Client) Flush() {
	c.autosaver.Flush()
}

// Load restores the buffered draft for the current identity: a remote
// completed record wins and short-circuits the wizard; otherwise the
// pending draft, remote before local. Returns ErrNoDraft for a fresh
// wizard. Store read failures degrade to ErrNoDraft rather than
// propagating.
func (c *Client) Load(ctx context.Context) (*Draft, error) {
	d, err := c.buffer.Load(ctx, c.Identity())
	if err != nil {
		return nil, err
	}

	if d.Status == StatusPending {
		c.mu.Lock()
		c.draft = *d
		c.mu.Unlock()
	}
	return d, nil
}

// StartNew discards any buffered draft in both stores and resets the
// in-memory state for a fresh assessment.
func (c *Client) StartNew(ctx context.Context) error {
	c.autosaver.Flush()

	c.mu.Lock()
	c.draft = Draft{}
	c.mu.Unlock()

	return c.buffer.Clear(ctx, c.Identity())
}

// CanCreate runs the advisory quota check for the current identity.
func (c *Client) CanCreate(ctx context.Context) (QuotaDecision, error) {
	return c.quota.CanCreate(ctx, c.Identity())
}

// Submit commits the current draft. An anonymous caller gets
// ErrAwaitingIdentity: the draft is parked locally, the sign-in
// collaborator is invoked, and the commit resumes automatically on the
// SignedIn event (result delivered via Resumed). An authenticated
// caller gets the committed record or a ValidationError,
// QuotaExceededError, or UpstreamError; all failures leave the draft
// pending for retry.
func (c *Client) Submit(ctx context.Context) (*PredictionRecord, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrClosed
	}
	d := c.draft
	c.mu.RUnlock()

	c.autosaver.Flush()

	id := c.Identity()
	if !id.Authenticated() {
		if err := c.resume.Begin(d, c.config.RedirectTarget); err != nil {
			return nil, err
		}
		return nil, ErrAwaitingIdentity
	}

	record, err := c.orchestrator.Commit(ctx, id, d)
	if err != nil {
		return nil, err
	}

	c.markCompleted()
	return record, nil
}

// Resumed exposes the outcome of a commit that was parked behind
// sign-in. The channel is buffered; only the most recent episode's
// result is retained.
func (c *Client) Resumed() <-chan CommitResult {
	return c.resumed
}

// CancelSignIn abandons a pending sign-in without clearing the draft.
func (c *Client) CancelSignIn() {
	c.resume.Cancel()
}

func (c *Client) markCompleted() {
	c.mu.Lock()
	c.draft.Status = StatusCompleted
	c.mu.Unlock()
}

// backgroundSave is the autosaver's sink: a tiered buffered save with
// failures logged, not surfaced.
func (c *Client) backgroundSave(d Draft) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	tier, err := c.buffer.Save(ctx, c.Identity(), d)
	if err != nil {
		c.logger.Warn("draft autosave failed", "error", err)
		return
	}
	c.logger.Debug("draft autosaved", "tier", tier.String(), "step", d.Step)
}

func (c *Client) onResumedCommit(res CommitResult) {
	if res.Err == nil {
		c.markCompleted()
	}

	select {
	case c.resumed <- res:
	default:
		// Drop the stale result; a newer episode superseded it.
		select {
		case <-c.resumed:
		default:
		}
		c.resumed <- res
	}
}
