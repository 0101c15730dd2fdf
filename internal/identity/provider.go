package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Actor is the authenticated identity attached to a request. Label is the
// actor's email, falling back to the id when no email is present, and is used
// to stamp lifecycle actions.
type Actor struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

// Label returns the string used to attribute actions to this actor.
func (a Actor) Label() string {
	if a.Email != "" {
		return a.Email
	}
	return a.ID.String()
}

// Session is an authenticated session held in the session store
type Session struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Pending   bool      `json:"pending"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore persists sessions keyed by token
type SessionStore interface {
	Put(ctx context.Context, session Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

// Provider authenticates users and resolves request sessions
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	Resolve(ctx context.Context, token string) (*Actor, error)
	SignOut(ctx context.Context, token string) error
}
