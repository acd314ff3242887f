package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// AuthPrompter is the identity-acquisition collaborator: the external
// sign-in UI. It receives nothing from the pipeline beyond a redirect
// target.
type AuthPrompter interface {
	RequestSignIn(redirect string) error
}

// IdentitySource delivers identity-state changes as discrete events.
// Subscribe returns the event channel and an unsubscribe function; the
// channel is closed after unsubscribe.
type IdentitySource interface {
	Subscribe() (<-chan IdentityEvent, func())
}

// controllerState is the resumption state machine's state.
type controllerState int

const (
	stateIdle controllerState = iota
	stateAwaitingIdentity
)

// CommitResult is delivered to the onResult callback when a parked
// commit resumes after sign-in.
type CommitResult struct {
	Record *PredictionRecord
	Err    error
}

// ResumptionController observes identity-state transitions and, when an
// anonymous user signs in mid-flow, re-invokes the commit path with the
// previously parked draft, exactly once per awaiting episode. A
// duplicate SignedIn event for the same login never causes a second
// commit.
type ResumptionController struct {
	buffer       *BufferManager
	orchestrator *Orchestrator
	prompter     AuthPrompter
	onResult     func(CommitResult)
	logger       *slog.Logger

	mu        sync.Mutex
	state     controllerState
	submitted bool
	parked    *Draft
	identity  Identity

	unsubscribe func()
	done        chan struct{}
}

// NewResumptionController subscribes to the identity source and starts
// the event loop. Call Close to unsubscribe and stop the loop. onResult
// receives the outcome of any resumed commit; it may be nil.
func NewResumptionController(
	buffer *BufferManager,
	orchestrator *Orchestrator,
	prompter AuthPrompter,
	source IdentitySource,
	onResult func(CommitResult),
	logger *slog.Logger,
) *ResumptionController {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if onResult == nil {
		onResult = func(CommitResult) {}
	}

	c := &ResumptionController{
		buffer:       buffer,
		orchestrator: orchestrator,
		prompter:     prompter,
		onResult:     onResult,
		logger:       logger,
		done:         make(chan struct{}),
	}

	events, unsubscribe := source.Subscribe()
	c.unsubscribe = unsubscribe
	go c.loop(events)

	return c
}

// Identity returns the controller's view of the current identity,
// updated from the event stream.
func (c *ResumptionController) Identity() Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Awaiting reports whether a commit is parked pending sign-in. The
// draft is read-only from the wizard's perspective while this is true,
// except for an explicit Cancel.
func (c *ResumptionController) Awaiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateAwaitingIdentity
}

// Begin parks the draft and invokes the sign-in collaborator. The local
// save is sequenced before the prompt so the resumed commit always sees
// the parked state. Idempotent while already awaiting.
func (c *ResumptionController) Begin(draft Draft, redirect string) error {
	c.mu.Lock()
	if c.state == stateAwaitingIdentity {
		c.mu.Unlock()
		return nil
	}
	c.state = stateAwaitingIdentity
	c.submitted = false
	c.parked = &draft
	c.mu.Unlock()

	// Identity is anonymous here, so this is a forced local write.
	if _, err := c.buffer.SaveLocal(draft); err != nil {
		c.mu.Lock()
		c.state = stateIdle
		c.parked = nil
		c.mu.Unlock()
		return err
	}

	if err := c.prompter.RequestSignIn(redirect); err != nil {
		c.mu.Lock()
		c.state = stateIdle
		c.mu.Unlock()
		return err
	}
	return nil
}

// Cancel abandons the sign-in attempt without clearing the draft, so
// the answers survive for a future attempt.
func (c *ResumptionController) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = stateIdle
	c.parked = nil
}

// Close unsubscribes from identity events and stops the event loop.
func (c *ResumptionController) Close() {
	c.unsubscribe()
	<-c.done
}

func (c *ResumptionController) loop(events <-chan IdentityEvent) {
	defer close(c.done)

	for ev := range events {
		switch ev.Kind {
		case EventSignedIn:
			c.handleSignedIn(ev.Identity)
		case EventSignedOut:
			c.mu.Lock()
			c.identity = Identity{}
			c.mu.Unlock()
		}
	}
}

// handleSignedIn records the new identity and, when a commit is parked,
// resumes it exactly once. The submitted guard absorbs duplicate
// SignedIn events for the same login.
func (c *ResumptionController) handleSignedIn(id Identity) {
	c.mu.Lock()
	c.identity = id

	if c.state != stateAwaitingIdentity || c.submitted {
		c.mu.Unlock()
		return
	}
	c.submitted = true
	draft := c.parked
	c.mu.Unlock()

	if draft == nil {
		// Parked draft lost in memory; fall back to the local buffer.
		loaded, err := c.buffer.Load(context.Background(), Identity{})
		if err != nil {
			c.finish(CommitResult{Err: err})
			return
		}
		draft = loaded
	}

	c.logger.Info("resuming parked commit", "identity", id.ID)
	record, err := c.orchestrator.Commit(context.Background(), id, *draft)
	c.finish(CommitResult{Record: record, Err: err})
}

func (c *ResumptionController) finish(res CommitResult) {
	c.mu.Lock()
	c.state = stateIdle
	c.parked = nil
	c.mu.Unlock()

	c.onResult(res)
}
