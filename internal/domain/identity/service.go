package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/sosecurity/api/internal/platform/auth"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

type Service struct {
	creds  CredentialsRepository
	tokens *auth.TokenService

	dummyOnce sync.Once
	dummyHash string
}

func NewService(creds CredentialsRepository, tokens *auth.TokenService) *Service {
	return &Service{creds: creds, tokens: tokens}
}

// Login checks email and password and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	c, err := s.creds.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		// Spend the same bcrypt work as a real check so unknown emails
		// cannot be told apart by latency.
		_, _ = auth.CheckPassword(s.dummy(), password)
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	ok, err := auth.CheckPassword(c.PasswordHash, password)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.Issue(c.User)
	if err != nil {
		return nil, "", err
	}
	u := c.User
	return &u, token, nil
}

// Issue signs a session token for u.
func (s *Service) Issue(u User) (string, error) {
	return s.tokens.Issue(auth.Identity{UserID: u.ID, Email: u.Email, UserType: u.UserType})
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = auth.HashPassword("not-a-real-password")
	})
	return s.dummyHash
}
