package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sosecurity/api/internal/platform/db"
)

type credentialsRepoPG struct{}

// NewCredentialsRepo reads credentials through the request-scoped
// connection attached by db.ConnMiddleware.
func NewCredentialsRepo() CredentialsRepository {
	return credentialsRepoPG{}
}

const credentialsQuery = `SELECT id_usuario, nombre, correo, contrasena, fk_tipo_usuario
	FROM usuarios WHERE lower(correo) = $1`

func (credentialsRepoPG) GetByEmail(ctx context.Context, email string) (*Credentials, error) {
	q, err := db.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var c Credentials
	err = q.QueryRow(ctx, credentialsQuery, NormalizeEmail(email)).Scan(
		&c.ID, &c.Nombre, &c.Email, &c.PasswordHash, &c.UserType,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	return &c, nil
}
