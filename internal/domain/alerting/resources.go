package alerting

import (
	"github.com/sosecurity/api/internal/platform/crud"
	"github.com/sosecurity/api/internal/platform/validation"
)

// Alerts describes the alertas table. A responder's coordinates stay null
// until someone accepts the alert.
func Alerts() *crud.Descriptor {
	return &crud.Descriptor{
		Singular:  "alert",
		Plural:    "alerts",
		Path:      "/alertas",
		Table:     "alertas",
		Key:       "id_alerta",
		Owner:     "fk_id_usuario",
		OwnerPath: "/usuarios",
		Fields: []crud.Field{
			{Name: "latitud_solicitante", Kind: validation.Number, Rules: "latitude"},
			{Name: "longitud_solicitante", Kind: validation.Number, Rules: "longitude"},
			{Name: "latitud_respuesta", Kind: validation.Number, Rules: "omitempty,latitude"},
			{Name: "longitud_respuesta", Kind: validation.Number, Rules: "omitempty,longitude"},
			{Name: "aceptada", Kind: validation.Bool},
			{Name: "fk_id_usuario", Kind: validation.Integer, Rules: "gt=0", Immutable: true},
			{Name: "creada_en", ReadOnly: true},
		},
	}
}

// NotificationPreferences holds where and how far a user wants to hear
// about nearby alerts, plus the device push token.
func NotificationPreferences() *crud.Descriptor {
	return &crud.Descriptor{
		Singular:  "notification preference",
		Plural:    "notification preferences",
		Path:      "/notificaciones_preferencia",
		Table:     "notificaciones_preferencia",
		Key:       "id_notificaciones_preferencia",
		Owner:     "fk_id_usuario",
		OwnerPath: "/usuarios",
		Fields: []crud.Field{
			{Name: "token", Kind: validation.String, Rules: "required,max=255"},
			{Name: "latitud", Kind: validation.Number, Rules: "latitude"},
			{Name: "longitud", Kind: validation.Number, Rules: "longitude"},
			{Name: "radio", Kind: validation.Number, Rules: "gt=0"},
			{Name: "fk_id_usuario", Kind: validation.Integer, Rules: "gt=0", Immutable: true},
		},
	}
}

func Resources() []*crud.Descriptor {
	return []*crud.Descriptor{Alerts(), NotificationPreferences()}
}
