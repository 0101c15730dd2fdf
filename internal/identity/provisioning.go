package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/woodtrack/services/production/internal/models"
	"example.com/woodtrack/services/production/internal/repositories"
)

// AccountStore is the slice of the user repository provisioning needs
type AccountStore interface {
	UserStore
	Create(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProvisioningService manages the account lifecycle: OTP provisioning, first
// access, admin resets. Accounts start pending with the OTP as their only
// credential and become active when the user sets a real password.
type ProvisioningService struct {
	users      AccountStore
	otpTTL     time.Duration
	bcryptCost int
}

// NewProvisioningService creates a provisioning service
func NewProvisioningService(users AccountStore, otpTTL time.Duration, bcryptCost int) *ProvisioningService {
	return &ProvisioningService{
		users:      users,
		otpTTL:     otpTTL,
		bcryptCost: bcryptCost,
	}
}

// CreateUser registers a new pending account and returns it with its OTP. The
// OTP is mirrored on the account so an admin can read it back to the user.
func (s *ProvisioningService) CreateUser(ctx context.Context, email, name, role string) (*models.User, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, errors.Wrap(err, "failed to check for existing user")
	}

	otp, err := GenerateOTP()
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(otp, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.otpTTL)
	user := &models.User{
		ID:                 uuid.New(),
		Email:              email,
		Name:               name,
		Role:               role,
		RegistrationStatus: models.RegistrationPending,
		EmailConfirmed:     true,
		CredentialHash:     hash,
		OTP:                &otp,
		OTPExpiresAt:       &expiresAt,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Str("email", email).Str("role", role).Msg("user provisioned")
	return user, nil
}

// FirstAccess replaces the OTP credential with a user-chosen password and
// activates the account.
func (s *ProvisioningService) FirstAccess(ctx context.Context, userID uuid.UUID, password, confirm string) error {
	if err := ValidatePassword(password, confirm); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return errors.Wrap(err, "failed to load user")
	}
	if user.RegistrationStatus == models.RegistrationPending &&
		user.OTPExpiresAt != nil && time.Now().After(*user.OTPExpiresAt) {
		return ErrOTPExpired
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}

	err = s.users.Update(ctx, userID, map[string]interface{}{
		"credential_hash":     hash,
		"registration_status": models.RegistrationActive,
		"otp":                 nil,
		"otp_expires_at":      nil,
	})
	if err != nil {
		return err
	}

	log.Info().Str("user_id", userID.String()).Msg("first access completed")
	return nil
}

// ResetOTP issues a fresh OTP for an account and moves it back to pending.
// Used by admins when a user's OTP lapsed before first access.
func (s *ProvisioningService) ResetOTP(ctx context.Context, userID uuid.UUID) (string, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", errors.Wrap(err, "failed to load user")
	}

	otp, err := GenerateOTP()
	if err != nil {
		return "", err
	}
	hash, err := HashPassword(otp, s.bcryptCost)
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(s.otpTTL)
	err = s.users.Update(ctx, userID, map[string]interface{}{
		"credential_hash":     hash,
		"registration_status": models.RegistrationPending,
		"otp":                 otp,
		"otp_expires_at":      expiresAt,
	})
	if err != nil {
		return "", err
	}

	log.Info().Str("user_id", userID.String()).Msg("OTP reset")
	return otp, nil
}

// ResetPassword sets an account's password directly and forces it active.
// Admin-only escape hatch for users locked out after activation.
func (s *ProvisioningService) ResetPassword(ctx context.Context, userID uuid.UUID, password, confirm string) error {
	if err := ValidatePassword(password, confirm); err != nil {
		return err
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return errors.Wrap(err, "failed to load user")
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}

	err = s.users.Update(ctx, userID, map[string]interface{}{
		"credential_hash":     hash,
		"registration_status": models.RegistrationActive,
		"otp":                 nil,
		"otp_expires_at":      nil,
	})
	if err != nil {
		return err
	}

	log.Info().Str("user_id", userID.String()).Msg("password reset by admin")
	return nil
}

// ListUsers returns all accounts
func (s *ProvisioningService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// UpdateUser updates an account's name and role
func (s *ProvisioningService) UpdateUser(ctx context.Context, userID uuid.UUID, name, role string) error {
	fields := map[string]interface{}{}
	if name != "" {
		fields["name"] = name
	}
	if role != "" {
		fields["role"] = role
	}
	if len(fields) == 0 {
		return nil
	}

	err := s.users.Update(ctx, userID, fields)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// DeleteUser removes an account
func (s *ProvisioningService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return s.users.Delete(ctx, userID)
}
