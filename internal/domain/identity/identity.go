package identity

import (
	"context"
	"errors"
)

// ErrInvalidToken the bearer token could not be verified.
var ErrInvalidToken = errors.New("invalid token")

// Identity is a verified caller.
type Identity struct {
	Subject     string `json:"sub"`
	DisplayName string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Verifier port for the identity provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type ctxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller stored by WithIdentity, or nil.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}

// Verified reports whether id is usable as an owner.
func (id *Identity) Verified() bool {
	return id != nil && id.Subject != ""
}
