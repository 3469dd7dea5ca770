package services

import (
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/pilahub/queue-backend/internal/core/errors"
)

// AdminAuthService checks administrator credentials against the configured
// account. It replaces the client-side shared passphrase of earlier builds:
// admin actions require a session token issued after this check.
type AdminAuthService struct {
	username     string
	passwordHash []byte
}

// NewAdminAuthService creates a new admin auth service. passwordHash must be
// a bcrypt hash.
func NewAdminAuthService(username, passwordHash string) *AdminAuthService {
	return &AdminAuthService{
		username:     username,
		passwordHash: []byte(passwordHash),
	}
}

// Verify validates the supplied credentials.
func (s *AdminAuthService) Verify(username, password string) error {
	if username != s.username {
		// Burn a comparison anyway so both failure paths cost the same.
		_ = bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
		return apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return apperrors.ErrInvalidCredentials
	}
	return nil
}
