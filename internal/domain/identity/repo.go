package identity

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when no user has the requested email.
var ErrUserNotFound = errors.New("user not found")

type CredentialsRepository interface {
	GetByEmail(ctx context.Context, email string) (*Credentials, error)
}
