// Package auth authenticates API callers. Every request is checked on its own;
// there are no sessions.
package auth

import (
	"context"
	"fmt"
)

// Identity represents an authenticated caller
type Identity struct {
	// Type of authentication (e.g., "k8s-sa")
	Type string

	// Username is the full identifier, e.g. system:serviceaccount:infra:provisioner
	Username string

	// ServiceAccount is the service account name (for k8s-sa type)
	ServiceAccount string

	// Namespace is the Kubernetes namespace (for k8s-sa type)
	Namespace string

	// Attributes holds additional metadata/claims
	Attributes map[string]string
}

// String returns a human-readable representation of the identity
func (i *Identity) String() string {
	return fmt.Sprintf("%s:%s", i.Type, i.Username)
}

type contextKey string

// IdentityContextKey is the key for storing Identity in context
const IdentityContextKey contextKey = "identity"

// GetIdentityFromContext extracts the Identity from the request context
func GetIdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(*Identity)
	return identity, ok
}

// WithIdentity returns a new context with the identity stored
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}
