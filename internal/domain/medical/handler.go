package medical

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sosecurity/api/internal/platform/crud"
	"github.com/sosecurity/api/internal/platform/response"
	"github.com/sosecurity/api/internal/platform/validation"
)

type Handler struct {
	contacts  ContactRepository
	v         *validation.Validator
	resources []*crud.Handler
}

func NewHandler(contacts ContactRepository, v *validation.Validator, stores crud.StoreFactory) *Handler {
	h := &Handler{contacts: contacts, v: v}
	for _, d := range Resources() {
		h.resources = append(h.resources, crud.NewHandler(d, stores(d), v))
	}
	return h
}

func (h *Handler) RegisterRoutes(r *crud.Router) {
	for _, rh := range h.resources {
		rh.RegisterRoutes(r)
	}
	r.Protected(http.MethodPut, ownerPath+"/:id"+EmergencyContacts().Path, h.UpdateContacts)
}

// UpdateContacts applies a batch of contact edits for one user. The whole
// batch is validated before any statement runs.
func (h *Handler) UpdateContacts(c echo.Context) error {
	ownerID, err := crud.PathID(c)
	if err != nil {
		return err
	}

	var batch ContactBatch
	if err := c.Bind(&batch); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON body").SetInternal(err)
	}
	if err := h.v.Validate(&batch); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid input data").SetInternal(verrs)
		}
		return err
	}

	outcomes, err := h.contacts.UpdateForOwner(c.Request().Context(), ownerID, batch.Contactos)
	if err != nil {
		return crud.StorageError("emergency contact", err)
	}

	updated := 0
	for _, o := range outcomes {
		if o.Status == StatusUpdated {
			updated++
		}
	}
	return response.OK(c, "emergency contacts updated", map[string]any{
		"user_id": ownerID,
		"updated": updated,
		"results": outcomes,
	})
}
