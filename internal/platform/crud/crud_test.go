package crud

import (
	"strings"

	"github.com/sosecurity/api/internal/platform/validation"
)

func upper(v any) (any, error) {
	return strings.ToUpper(v.(string)), nil
}

func alertDescriptor() *Descriptor {
	return &Descriptor{
		Singular:  "alert",
		Plural:    "alerts",
		Path:      "/alertas",
		Table:     "alertas",
		Key:       "id_alerta",
		Owner:     "fk_id_usuario",
		OwnerPath: "/usuarios",
		Fields: []Field{
			{Name: "latitud_solicitante", Kind: validation.Number, Rules: "latitude"},
			{Name: "longitud_solicitante", Kind: validation.Number, Rules: "longitude"},
			{Name: "latitud_respuesta", Kind: validation.Number, Rules: "omitempty,latitude"},
			{Name: "aceptada", Kind: validation.Bool},
			{Name: "fk_id_usuario", Kind: validation.Integer, Rules: "gt=0", Immutable: true},
			{Name: "creada_en", ReadOnly: true},
		},
	}
}

func userDescriptor() *Descriptor {
	return &Descriptor{
		Singular:     "user",
		Plural:       "users",
		Path:         "/usuarios",
		Table:        "usuarios",
		Key:          "id_usuario",
		PublicCreate: true,
		Fields: []Field{
			{Name: "nombre", Kind: validation.String, Rules: "required,max=45"},
			{Name: "email", Column: "correo", Kind: validation.String, Rules: "required,email"},
			{Name: "password", Column: "contrasena", Kind: validation.String, Rules: "required,min=6", Secret: true, Transform: upper},
		},
	}
}
