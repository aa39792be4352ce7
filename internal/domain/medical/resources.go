package medical

import (
	"github.com/sosecurity/api/internal/platform/crud"
	"github.com/sosecurity/api/internal/platform/validation"
)

const (
	ownerColumn = "fk_id_usuario"
	ownerPath   = "/usuarios"
)

func ownerField() crud.Field {
	return crud.Field{Name: ownerColumn, Kind: validation.Integer, Rules: "gt=0", Immutable: true}
}

func PersonalData() *crud.Descriptor {
	return &crud.Descriptor{
		Singular:  "personal data",
		Plural:    "personal data",
		Path:      "/datos_usuarios",
		Table:     "datos_usuarios",
		Key:       "id_datos_usuarios",
		Owner:     ownerColumn,
		OwnerPath: ownerPath,
		Fields: []crud.Field{
			{Name: "nombre", Kind: validation.String, Rules: "required,max=45"},
			{Name: "apellidos", Kind: validation.String, Rules: "required,max=45"},
			{Name: "tipo_identificacion", Kind: validation.String, Rules: "required,max=20"},
			{Name: "telefono", Kind: validation.String, Rules: "required,max=20"},
			{Name: "fecha_nacimiento", Kind: validation.Date, Rules: "required"},
			{Name: "sexo", Kind: validation.String, Rules: "required,max=20"},
			ownerField(),
		},
	}
}

// MedicalData can also be overwritten through its owner, which rewrites
// every row that user has.
func MedicalData() *crud.Descriptor {
	return &crud.Descriptor{
		Singular:    "medical data",
		Plural:      "medical data",
		Path:        "/datos_medicos",
		Table:       "datos_medicos",
		Key:         "id_datos_medicos",
		Owner:       ownerColumn,
		OwnerPath:   ownerPath,
		OwnerUpdate: true,
		Fields: []crud.Field{
			{Name: "grupo_sanguineo", Kind: validation.String, Rules: "required,min=1,max=3"},
			{Name: "alergias", Kind: validation.String, Rules: "required,max=45"},
			{Name: "otros", Kind: validation.String, Rules: "required,max=300"},
			ownerField(),
		},
	}
}

func EmergencyContacts() *crud.Descriptor {
	return &crud.Descriptor{
		Singular:  "emergency contact",
		Plural:    "emergency contacts",
		Path:      "/contactos_emergencia",
		Table:     "contactos_emergencia",
		Key:       "id_contactos_emergencia",
		Owner:     ownerColumn,
		OwnerPath: ownerPath,
		Fields: []crud.Field{
			{Name: "nombre", Kind: validation.String, Rules: "required,max=45"},
			{Name: "apellidos", Kind: validation.String, Rules: "required,max=45"},
			{Name: "parentezco", Kind: validation.String, Rules: "required,max=45"},
			{Name: "telefono", Kind: validation.String, Rules: "required,max=20"},
			ownerField(),
		},
	}
}

func Allergies() *crud.Descriptor {
	return &crud.Descriptor{
		Singular: "allergy",
		Plural:   "allergies",
		Path:     "/alergias",
		Table:    "alergias",
		Key:      "id_alergia",
		Fields: []crud.Field{
			{Name: "nombre", Kind: validation.String, Rules: "required,max=45"},
			{Name: "descripcion", Kind: validation.String, Rules: "omitempty,max=300"},
		},
	}
}

// Resources lists every descriptor this package serves.
func Resources() []*crud.Descriptor {
	return []*crud.Descriptor{PersonalData(), MedicalData(), EmergencyContacts(), Allergies()}
}
