package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/woodtrack/services/production/internal/models"
	"example.com/woodtrack/services/production/internal/repositories"
)

// UserStore is the slice of the user repository the provider needs
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
}

// StoreProvider implements Provider against the local user store. Pending
// users authenticate with their OTP; the OTP hash is their credential until
// first access completes.
type StoreProvider struct {
	users      UserStore
	sessions   SessionStore
	sessionTTL time.Duration
}

// NewStoreProvider creates a provider over a user store and session store
func NewStoreProvider(users UserStore, sessions SessionStore, sessionTTL time.Duration) *StoreProvider {
	return &StoreProvider{
		users:      users,
		sessions:   sessions,
		sessionTTL: sessionTTL,
	}
}

func newSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "failed to generate session token")
	}
	return hex.EncodeToString(bytes), nil
}

// SignIn authenticates a user and opens a session. Failures are classified
// into the provider's sentinel errors so callers can show stable messages.
func (p *StoreProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "sign in failed")
	}

	if !user.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}

	pending := user.RegistrationStatus == models.RegistrationPending
	if pending && user.OTPExpiresAt != nil && time.Now().After(*user.OTPExpiresAt) {
		return nil, ErrOTPExpired
	}

	if !CheckPassword(user.CredentialHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		Pending:   pending,
		CreatedAt: now,
		ExpiresAt: now.Add(p.sessionTTL),
	}
	if err := p.sessions.Put(ctx, session); err != nil {
		return nil, err
	}

	log.Info().Str("email", user.Email).Bool("pending", pending).Msg("user signed in")
	return &session, nil
}

// Resolve maps a session token to an actor. Sessions of pending users whose
// OTP has lapsed are terminated on the spot.
func (p *StoreProvider) Resolve(ctx context.Context, token string) (*Actor, error) {
	session, err := p.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil || time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	if session.Pending {
		user, err := p.users.GetByID(ctx, session.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				_ = p.sessions.Delete(ctx, token)
				return nil, ErrSessionExpired
			}
			return nil, errors.Wrap(err, "failed to resolve session")
		}
		if user.RegistrationStatus == models.RegistrationPending &&
			user.OTPExpiresAt != nil && time.Now().After(*user.OTPExpiresAt) {
			_ = p.sessions.Delete(ctx, token)
			return nil, ErrOTPExpired
		}
	}

	return &Actor{
		ID:    session.UserID,
		Email: session.Email,
		Role:  session.Role,
	}, nil
}

// SignOut revokes a session
func (p *StoreProvider) SignOut(ctx context.Context, token string) error {
	return p.sessions.Delete(ctx, token)
}
