package service

import (
	"errors"
	"time"

	"github.com/spec-kit/order-service/internal/auth"
	"github.com/spec-kit/order-service/internal/config"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService verifies the configured administrative account and issues
// access tokens. There is no admin user table; the single account comes
// from configuration with a bcrypt password hash.
type AuthService struct {
	username     string
	passwordHash string
	tokenMgr     *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig) *AuthService {
	return &AuthService{
		username:     cfg.AdminUsername,
		passwordHash: cfg.AdminPasswordHash,
		tokenMgr:     auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
	}
}

// Login checks the credentials and returns a signed token on success.
func (s *AuthService) Login(username, password string) (string, time.Time, error) {
	if s.passwordHash == "" || username != s.username {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := auth.ComparePassword(s.passwordHash, password); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.tokenMgr.GenerateToken(username)
}

// TokenManager exposes the shared token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
