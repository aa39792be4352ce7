package medical

// ContactUpdate is one element of a bulk emergency contact update.
type ContactUpdate struct {
	ID         int64  `json:"id" validate:"required,gt=0"`
	Nombre     string `json:"nombre" validate:"required,max=45"`
	Apellidos  string `json:"apellidos" validate:"required,max=45"`
	Parentezco string `json:"parentezco" validate:"required,max=45"`
	Telefono   string `json:"telefono" validate:"required,max=20"`
}

type ContactBatch struct {
	Contactos []ContactUpdate `json:"contactos" validate:"required,min=1,dive"`
}

// Outcome statuses for one element of a batch.
const (
	StatusUpdated  = "updated"
	StatusNotFound = "not_found"
)

type ContactOutcome struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}
