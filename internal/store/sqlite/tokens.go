package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"localcart/internal/domain"
	"localcart/internal/repository/token"

	"github.com/jmoiron/sqlx"
)

type tokenRow struct {
	Token       string  `db:"token"`
	CustomerID  *string `db:"customer_id"`
	AnonymousID *string `db:"anonymous_id"`
	Kind        string  `db:"kind"`
	ExpiresAt   string  `db:"expires_at"`
	CreatedAt   string  `db:"created_at"`
}

type tokenRepo struct{ db *sqlx.DB }

// NewTokenRepo returns a token.Repository backed by db.
func NewTokenRepo(db *sqlx.DB) token.Repository { return &tokenRepo{db: db} }

func (r *tokenRepo) Create(ctx context.Context, t token.Token) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO tokens (token, customer_id, anonymous_id, kind, expires_at, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, t.Token, t.CustomerID, t.AnonymousID, t.Kind, t.ExpiresAt.UTC().Format(timeLayout), now())
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *tokenRepo) Get(ctx context.Context, value string) (*token.Token, error) {
	var row tokenRow
	if err := r.db.GetContext(ctx, &row, `
SELECT token, customer_id, anonymous_id, kind, expires_at, created_at FROM tokens WHERE token = ? LIMIT 1
`, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &token.Token{
		Token:       row.Token,
		CustomerID:  row.CustomerID,
		AnonymousID: row.AnonymousID,
		Kind:        row.Kind,
		ExpiresAt:   parseTime(row.ExpiresAt),
		CreatedAt:   parseTime(row.CreatedAt),
	}, nil
}

func (r *tokenRepo) Delete(ctx context.Context, value string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE token = ?`, value)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
