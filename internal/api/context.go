package api

import (
	"context"
	"errors"
)

// identityContextKey is the context key for the authenticated identity ID.
type identityContextKey struct{}

// ErrNoIdentityInContext indicates no identity was found in the context.
var ErrNoIdentityInContext = errors.New("no identity in context")

// WithIdentity returns a new context with the identity ID attached.
func WithIdentity(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity ID from the context.
// Returns ErrNoIdentityInContext if not present or empty.
func IdentityFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(identityContextKey{}).(string)
	if !ok || id == "" {
		return "", ErrNoIdentityInContext
	}
	return id, nil
}

// MustIdentityFromContext extracts the identity ID or panics.
// Use only when middleware guarantees identity presence.
func MustIdentityFromContext(ctx context.Context) string {
	id, err := IdentityFromContext(ctx)
	if err != nil {
		panic("identity not in context: middleware misconfiguration")
	}
	return id
}
