package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sosecurity/api/internal/platform/auth"
)

type fakeCredentials struct {
	byEmail map[string]*Credentials
	err     error
}

func (f *fakeCredentials) GetByEmail(_ context.Context, email string) (*Credentials, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return c, nil
}

var testSecret = []byte("identity-test-signing-key")

func newTestService(t *testing.T) (*Service, *auth.TokenService) {
	t.Helper()
	hash, err := auth.HashPassword("secreto1")
	require.NoError(t, err)

	admin := int64(2)
	repo := &fakeCredentials{byEmail: map[string]*Credentials{
		"ana@example.com": {
			User:         User{ID: 3, Nombre: "Ana", Email: "ana@example.com", UserType: &admin},
			PasswordHash: hash,
		},
	}}
	tokens := auth.NewTokenService(testSecret, time.Hour)
	return NewService(repo, tokens), tokens
}

func TestService_Login(t *testing.T) {
	svc, tokens := newTestService(t)

	u, token, err := svc.Login(context.Background(), "ana@example.com", "secreto1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, "Ana", u.Nombre)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(3), uid)
	assert.Equal(t, "ana@example.com", claims.Email)
	require.NotNil(t, claims.UserType)
	assert.Equal(t, int64(2), *claims.UserType)
}

func TestService_Login_WrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	u, token, err := svc.Login(context.Background(), "ana@example.com", "otra-clave")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, u)
	assert.Empty(t, token)
}

func TestService_Login_UnknownEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, token, err := svc.Login(context.Background(), "nadie@example.com", "secreto1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, token)
}

func TestService_Login_RepoError(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewService(&fakeCredentials{err: boom}, auth.NewTokenService(testSecret, time.Hour))

	_, _, err := svc.Login(context.Background(), "ana@example.com", "secreto1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
