// Package identity carries the verified caller of an operation.
//
// An Identity is issued and verified outside this service. It is opaque:
// equality is exact and no normalization is applied once it has been
// accepted at the host boundary. The only way to attach one to a request is
// WithCaller, which the HTTP host calls after reading its trusted channel;
// operations read it back with FromContext and never from their arguments.
package identity

import "context"

// Identity is an opaque, comparable caller token.
type Identity string

// String returns the raw token.
func (i Identity) String() string { return string(i) }

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool { return i == "" }

type callerKey struct{}

// WithCaller returns a context carrying id as the verified caller.
func WithCaller(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, callerKey{}, id)
}

// FromContext returns the verified caller, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(callerKey{}).(Identity)
	if !ok || id.IsZero() {
		return "", false
	}
	return id, true
}
