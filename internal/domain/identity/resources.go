package identity

import (
	"fmt"
	"strings"

	"github.com/sosecurity/api/internal/platform/auth"
	"github.com/sosecurity/api/internal/platform/crud"
	"github.com/sosecurity/api/internal/platform/validation"
)

// Users describes the usuarios table. Registration is public; the password
// is hashed on every write and never selected back.
func Users() *crud.Descriptor {
	return &crud.Descriptor{
		Singular:     "user",
		Plural:       "users",
		Path:         "/usuarios",
		Table:        "usuarios",
		Key:          "id_usuario",
		PublicCreate: true,
		Fields: []crud.Field{
			{Name: "nombre", Kind: validation.String, Rules: "required,max=45"},
			{Name: "email", Column: "correo", Kind: validation.String, Rules: "required,email,max=100", Transform: normalizeEmail},
			{Name: "password", Column: "contrasena", Kind: validation.String, Rules: "required,min=6,max=72", Secret: true, Transform: hashPassword},
			{Name: "fk_tipo_usuario", Kind: validation.Integer, Rules: "omitempty,gt=0"},
		},
	}
}

func UserTypes() *crud.Descriptor {
	return &crud.Descriptor{
		Singular: "user type",
		Plural:   "user types",
		Path:     "/tiposUsuario",
		Table:    "tipo_usuario",
		Key:      "id_tipo_usuario",
		Fields: []crud.Field{
			{Name: "descripcion", Kind: validation.String, Rules: "required,max=45"},
		},
	}
}

func LoginHistory() *crud.Descriptor {
	return &crud.Descriptor{
		Singular:  "login history entry",
		Plural:    "login history",
		Path:      "/historial",
		Table:     "historial",
		Key:       "id_historial",
		Owner:     "fk_id_usuario",
		OwnerPath: "/usuarios",
		Fields: []crud.Field{
			{Name: "ingreso", Kind: validation.Bool},
			{Name: "recu_contrasena", Kind: validation.Bool},
			{Name: "recu_correo", Kind: validation.Bool},
			{Name: "fk_id_usuario", Kind: validation.Integer, Rules: "gt=0", Immutable: true},
			{Name: "fecha", ReadOnly: true},
		},
	}
}

// Resources lists every descriptor this package serves.
func Resources() []*crud.Descriptor {
	return []*crud.Descriptor{Users(), UserTypes(), LoginHistory()}
}

func hashPassword(v any) (any, error) {
	plain, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("password must be a string, got %T", v)
	}
	return auth.HashPassword(plain)
}

// NormalizeEmail is the form an address is stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeEmail(v any) (any, error) {
	email, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("email must be a string, got %T", v)
	}
	return NormalizeEmail(email), nil
}
