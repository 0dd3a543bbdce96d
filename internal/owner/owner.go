// Package owner defines the identity that partitions cart lines: an
// authenticated user or an anonymous guest session. Every cart and checkout
// call takes an Identity explicitly; nothing in the core reads ambient
// request state.
package owner

import "context"

// Identity is either a user or a guest, never both. The zero value is
// invalid.
type Identity struct {
	userID       string
	sessionToken string
}

// User builds the identity of an authenticated user.
func User(userID string) Identity {
	return Identity{userID: userID}
}

// Guest builds the identity of an anonymous session.
func Guest(sessionToken string) Identity {
	return Identity{sessionToken: sessionToken}
}

func (i Identity) IsUser() bool { return i.userID != "" }

func (i Identity) IsGuest() bool { return i.sessionToken != "" }

func (i Identity) Valid() bool { return i.IsUser() != i.IsGuest() }

// UserID returns the user id; empty for guests.
func (i Identity) UserID() string { return i.userID }

// SessionToken returns the guest session token; empty for users.
func (i Identity) SessionToken() string { return i.sessionToken }

type ctxKey int

const identityKey ctxKey = 1

// WithIdentity tags the context with a resolved owner identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity resolved by the middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
