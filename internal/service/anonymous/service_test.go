package anonymous

import (
	"context"
	"testing"
	"time"

	"localcart/internal/store/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndLookup(t *testing.T) {
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := New(sqlite.NewTokenRepo(db))
	ctx := context.Background()

	token, anonID, err := svc.Issue(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Len(t, anonID, 36)

	got, err := svc.LookupByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, anonID, got)

	_, err = svc.LookupByToken(ctx, "unknown")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLookupRejectsExpiredToken(t *testing.T) {
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := New(sqlite.NewTokenRepo(db))
	ctx := context.Background()

	token, _, err := svc.Issue(ctx)
	require.NoError(t, err)

	svc.tokens.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	_, err = svc.LookupByToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
