package alerting

import (
	"github.com/sosecurity/api/internal/platform/crud"
	"github.com/sosecurity/api/internal/platform/validation"
)

type Handler struct {
	resources []*crud.Handler
}

func NewHandler(v *validation.Validator, stores crud.StoreFactory) *Handler {
	h := &Handler{}
	for _, d := range Resources() {
		h.resources = append(h.resources, crud.NewHandler(d, stores(d), v))
	}
	return h
}

func (h *Handler) RegisterRoutes(r *crud.Router) {
	for _, rh := range h.resources {
		rh.RegisterRoutes(r)
	}
}
