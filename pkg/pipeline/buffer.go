package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
)

// BufferManager decides which store backs the current draft and keeps
// it updated on every field edit. Authenticated identities buffer to
// the remote authoritative store with the local store as a best-effort
// fallback; anonymous identities buffer locally only.
type BufferManager struct {
	local  KV
	remote RemoteStore
	logger *slog.Logger
}

// NewBufferManager creates a buffer manager over the two stores. A nil
// logger disables buffer logging.
func NewBufferManager(local KV, remote RemoteStore, logger *slog.Logger) *BufferManager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BufferManager{local: local, remote: remote, logger: logger}
}

// Save persists the full draft state to the store appropriate for the
// identity and reports which tier holds it. A failed remote write
// degrades to the local store so no edit is lost; the degrade is
// logged, not surfaced. Only a failure of every tier returns an error.
func (b *BufferManager) Save(ctx context.Context, id Identity, d Draft) (SaveTier, error) {
	if id.Authenticated() {
		err := b.remote.UpsertDraft(ctx, id.Token, d)
		if err == nil {
			return TierRemote, nil
		}
		b.logger.Warn("remote draft save failed, falling back to local",
			"error", err,
		)
	}

	if err := b.saveLocal(d); err != nil {
		return TierNone, err
	}
	return TierLocal, nil
}

// SaveLocal writes the draft to the local store regardless of identity.
// Used when parking a draft before the sign-in interrupt.
func (b *BufferManager) SaveLocal(d Draft) (SaveTier, error) {
	if err := b.saveLocal(d); err != nil {
		return TierNone, err
	}
	return TierLocal, nil
}

func (b *BufferManager) saveLocal(d Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return b.local.Set(draftKey, string(data))
}

// Load returns the buffered draft, or ErrNoDraft. For authenticated
// identities the remote store is consulted first and a completed record
// always wins over a pending one (the service orders that priority); a
// failed remote lookup degrades to the local entry. A local entry that
// fails to parse is removed and treated as absent rather than surfaced.
func (b *BufferManager) Load(ctx context.Context, id Identity) (*Draft, error) {
	if id.Authenticated() {
		d, err := b.remote.FetchDraft(ctx, id.Token)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, ErrNoDraft) {
			b.logger.Warn("remote draft load failed, falling back to local",
				"error", err,
			)
		}
	}

	return b.loadLocal()
}

func (b *BufferManager) loadLocal() (*Draft, error) {
	raw, ok, err := b.local.Get(draftKey)
	if err != nil || !ok {
		return nil, ErrNoDraft
	}

	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		// Corrupt entry: self-heal by removing it, never surface.
		b.logger.Warn("removing corrupt local draft", "error", err)
		_ = b.local.Remove(draftKey)
		return nil, ErrNoDraft
	}
	return &d, nil
}

// Clear deletes the draft from both stores unconditionally and
// idempotently. Partial failures are joined so the caller still learns
// about them, but each tier is always attempted.
func (b *BufferManager) Clear(ctx context.Context, id Identity) error {
	var errs []error

	if id.Authenticated() {
		if err := b.remote.DeleteDraft(ctx, id.Token); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.local.Remove(draftKey); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
