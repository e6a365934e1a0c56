package services

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gichigi/choir/internal/core"
	db "github.com/gichigi/choir/internal/core/database"
)

func TestSignupIssuesTokenForAccount(t *testing.T) {
	s := NewAccountService(db.NewMemoryClient(), "secret")

	acc, token, err := s.Signup(context.Background(), "Jo@Example.com", "correct horse", "Jo")
	require.NoError(t, err)
	assert.Equal(t, "jo@example.com", acc.Email)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return []byte("secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, acc.ID, claims.Subject)
}

func TestSignupValidation(t *testing.T) {
	s := NewAccountService(db.NewMemoryClient(), "secret")
	ctx := context.Background()

	_, _, err := s.Signup(ctx, "not-an-email", "correct horse", "")
	assert.ErrorIs(t, err, core.ErrValidation)
	_, _, err = s.Signup(ctx, "jo@example.com", "short", "")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, _, err = s.Signup(ctx, "jo@example.com", "correct horse", "")
	require.NoError(t, err)
	_, _, err = s.Signup(ctx, "JO@example.com", "correct horse", "")
	assert.ErrorIs(t, err, core.ErrValidation, "email is unique")
}

func TestLogin(t *testing.T) {
	s := NewAccountService(db.NewMemoryClient(), "secret")
	ctx := context.Background()
	acc, _, err := s.Signup(ctx, "jo@example.com", "correct horse", "")
	require.NoError(t, err)

	got, token, err := s.Login(ctx, "jo@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
	assert.NotEmpty(t, token)

	_, _, err = s.Login(ctx, "jo@example.com", "wrong password")
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	_, _, err = s.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
}
