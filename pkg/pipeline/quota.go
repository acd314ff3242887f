package pipeline

import (
	"context"
)

// QuotaEnforcer checks completed predictions per identity against the
// cap. The check here is advisory at the client boundary; the service
// re-enforces atomically at prediction-insert time, so two concurrent
// commits can never both exceed the cap even if both pass this check.
type QuotaEnforcer struct {
	remote RemoteStore
	limit  int
}

// NewQuotaEnforcer creates an enforcer with the given fallback cap. The
// service's configured limit, when reported, takes precedence.
func NewQuotaEnforcer(remote RemoteStore, cap int) *QuotaEnforcer {
	if cap <= 0 {
		cap = DefaultPredictionCap
	}
	return &QuotaEnforcer{remote: remote, limit: cap}
}

// CanCreate reports whether the identity may start or commit a draft,
// along with the current count and cap for display.
func (q *QuotaEnforcer) CanCreate(ctx context.Context, id Identity) (QuotaDecision, error) {
	if !id.Authenticated() {
		// Anonymous drafts are always allowed; the cap re-applies at
		// commit, which requires an identity.
		return QuotaDecision{Allowed: true, Limit: q.limit}, nil
	}

	count, limit, err := q.remote.CountPredictions(ctx, id.Token)
	if err != nil {
		return QuotaDecision{}, err
	}
	if limit <= 0 {
		limit = q.limit
	}

	return QuotaDecision{
		Allowed: count < limit,
		Count:   count,
		Limit:   limit,
	}, nil
}
