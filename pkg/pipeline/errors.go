package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("pipeline client is closed")

// ErrNoDraft is returned when no buffered draft exists.
var ErrNoDraft = errors.New("no buffered draft")

// ErrAwaitingIdentity is returned by Submit when the caller is anonymous
// and the commit has been parked until sign-in completes. It is a
// deferral, not a failure: the draft stays buffered locally and the
// resumption controller commits it after the SignedIn event.
var ErrAwaitingIdentity = errors.New("submission deferred until sign-in")

// ValidationError reports missing or out-of-bounds answers. Caller
// correctable; no writes occur.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid answers: %s", strings.Join(e.Fields, ", "))
}

// QuotaExceededError is terminal for the identity: the prediction cap
// has been reached and no new draft may be committed.
type QuotaExceededError struct {
	Count int
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("prediction quota reached: %d of %d used", e.Count, e.Limit)
}

// UpstreamError wraps a failed store write or scoring call. Transient by
// assumption; the draft stays pending so the caller can retry the whole
// commit.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
