// Package anonymous issues guest tokens so shoppers without an account still
// have a stable identity for carts and ZIP overrides.
package anonymous

import (
	"context"
	"errors"
	"time"

	tokenrepo "localcart/internal/repository/token"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

type Service struct {
	tokens    *tokenManager
	accessTTL time.Duration
}

func New(repo tokenrepo.Repository) *Service {
	return &Service{
		tokens:    newTokenManager(repo),
		accessTTL: 30 * 24 * time.Hour,
	}
}

// Issue mints a new anonymous id and a guest token bound to it.
func (s *Service) Issue(ctx context.Context) (accessToken, anonymousID string, err error) {
	anonID := uuid.NewString()
	accessToken, err = s.tokens.Issue(ctx, anonID, s.accessTTL)
	if err != nil {
		return "", "", err
	}
	return accessToken, anonID, nil
}

func (s *Service) LookupByToken(ctx context.Context, token string) (string, error) {
	meta, ok := s.tokens.Validate(ctx, token)
	if !ok {
		return "", ErrInvalidToken
	}
	return meta.AnonymousID, nil
}

func (s *Service) AccessTTLSeconds() int {
	return int(s.accessTTL.Seconds())
}
