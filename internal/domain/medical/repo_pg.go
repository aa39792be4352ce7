package medical

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sosecurity/api/internal/platform/db"
)

type contactRepoPG struct{}

// NewContactRepo runs batches in a transaction on the request-scoped
// connection.
func NewContactRepo() ContactRepository {
	return contactRepoPG{}
}

const updateContactSQL = `UPDATE contactos_emergencia
	SET nombre = $1, apellidos = $2, parentezco = $3, telefono = $4
	WHERE id_contactos_emergencia = $5 AND fk_id_usuario = $6`

func (contactRepoPG) UpdateForOwner(ctx context.Context, ownerID int64, contacts []ContactUpdate) ([]ContactOutcome, error) {
	out := make([]ContactOutcome, 0, len(contacts))
	err := db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, c := range contacts {
			tag, err := tx.Exec(ctx, updateContactSQL, c.Nombre, c.Apellidos, c.Parentezco, c.Telefono, c.ID, ownerID)
			if err != nil {
				return fmt.Errorf("update contact %d: %w", c.ID, err)
			}
			status := StatusUpdated
			if tag.RowsAffected() == 0 {
				status = StatusNotFound
			}
			out = append(out, ContactOutcome{ID: c.ID, Status: status})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
