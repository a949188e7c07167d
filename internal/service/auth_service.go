package service

import (
	"context"
	"time"

	"github.com/covaposh/faqbot/internal/config"
	"github.com/covaposh/faqbot/internal/pkg/errors"
	"github.com/covaposh/faqbot/internal/pkg/jwt"
	"github.com/covaposh/faqbot/internal/pkg/password"
)

// AuthService authenticates the single configured admin account and issues
// tokens for the ingest/admin endpoints.
type AuthService struct {
	cfg config.AdminConfig
}

func NewAuthService(cfg config.AdminConfig) *AuthService {
	return &AuthService{cfg: cfg}
}

func (s *AuthService) Login(ctx context.Context, username, plain string) (string, error) {
	_ = ctx
	if username != s.cfg.Username {
		return "", errors.ErrUnauthorized
	}
	if !password.Verify(s.cfg.PasswordHash, plain) {
		return "", errors.ErrUnauthorized
	}
	ttl := time.Duration(s.cfg.JWTTTLHours) * time.Hour
	return jwt.GenerateToken(username, []byte(s.cfg.JWTSecret), ttl)
}
