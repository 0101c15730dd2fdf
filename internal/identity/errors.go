package identity

import "github.com/pkg/errors"

// Sentinel errors of the identity provider. Handlers map these to stable
// user-facing messages instead of surfacing raw provider errors.
var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrOTPExpired         = errors.New("temporary password expired")
	ErrSessionExpired     = errors.New("session expired")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
)
