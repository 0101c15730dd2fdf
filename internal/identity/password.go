package identity

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// ValidatePassword enforces the password policy: at least 6 characters, one
// uppercase letter and one digit, and a matching confirmation.
func ValidatePassword(password, confirm string) error {
	if len(password) < 6 {
		return errors.New("password must be at least 6 characters")
	}

	var hasUpper, hasDigit bool
	for _, r := range password {
		if unicode.IsUpper(r) {
			hasUpper = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
	}
	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasDigit {
		return errors.New("password must contain at least one digit")
	}

	if password != confirm {
		return errors.New("passwords do not match")
	}

	return nil
}

// GenerateOTP returns a 6 character uppercase hex one-time password. The OTP
// doubles as the user's temporary credential until first access completes.
func GenerateOTP() (string, error) {
	bytes := make([]byte, 3)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "failed to generate OTP")
	}
	return strings.ToUpper(hex.EncodeToString(bytes)), nil
}

// HashPassword hashes a credential with bcrypt at the given cost
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}

// CheckPassword reports whether the password matches the stored hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
