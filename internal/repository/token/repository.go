package token

import (
	"context"
	"time"
)

// Token kinds. Access and refresh tokens belong to customers, guest tokens
// to an anonymous id.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
	KindGuest   = "guest"
)

type Token struct {
	Token       string
	CustomerID  *string
	AnonymousID *string
	Kind        string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

type Repository interface {
	Create(ctx context.Context, token Token) error
	Get(ctx context.Context, token string) (*Token, error)
	Delete(ctx context.Context, token string) error
}
