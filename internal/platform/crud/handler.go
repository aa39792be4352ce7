package crud

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sosecurity/api/internal/platform/response"
	"github.com/sosecurity/api/internal/platform/validation"
)

// CreatedFunc builds the data returned after a successful create.
type CreatedFunc func(c echo.Context, id int64, fields map[string]any) (any, error)

type Option func(*Handler)

// WithCreated replaces the default {"id": n} create payload.
func WithCreated(fn CreatedFunc) Option {
	return func(h *Handler) { h.created = fn }
}

// Handler serves the standard operations for one Descriptor.
type Handler struct {
	desc      *Descriptor
	store     Store
	validator *validation.Validator
	created   CreatedFunc
}

func NewHandler(desc *Descriptor, store Store, v *validation.Validator, opts ...Option) *Handler {
	h := &Handler{
		desc:      desc,
		store:     store,
		validator: v,
		created: func(_ echo.Context, id int64, _ map[string]any) (any, error) {
			return map[string]int64{"id": id}, nil
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) RegisterRoutes(r *Router) {
	d := h.desc
	item := d.Path + "/:id"

	r.Protected(http.MethodGet, d.Path, h.List)
	r.Protected(http.MethodGet, item, h.Get)
	r.Protected(http.MethodPut, item, h.Update, validation.Body(h.validator, d.UpdateRules()...))
	r.Protected(http.MethodDelete, item, h.Delete)

	create := validation.Body(h.validator, d.CreateRules()...)
	if d.PublicCreate {
		r.Public(http.MethodPost, d.Path, h.Create, create)
	} else {
		r.Protected(http.MethodPost, d.Path, h.Create, create)
	}

	if d.Owner != "" {
		owned := d.OwnerPath + "/:id" + d.Path
		r.Protected(http.MethodGet, owned, h.ListByOwner)
		if d.OwnerUpdate {
			r.Protected(http.MethodPut, owned, h.UpdateByOwner, validation.Body(h.validator, d.UpdateRules()...))
		}
	}
}

func (h *Handler) List(c echo.Context) error {
	recs, err := h.store.List(c.Request().Context())
	if err != nil {
		return StorageError(h.desc.Singular, err)
	}
	return response.OK(c, h.desc.Plural+" retrieved", recs)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := PathID(c)
	if err != nil {
		return err
	}
	rec, err := h.store.Get(c.Request().Context(), id)
	if err != nil {
		return StorageError(h.desc.Singular, err)
	}
	return response.OK(c, h.desc.Singular+" retrieved", rec)
}

func (h *Handler) ListByOwner(c echo.Context) error {
	ownerID, err := PathID(c)
	if err != nil {
		return err
	}
	recs, err := h.store.ListByOwner(c.Request().Context(), ownerID)
	if err != nil {
		return StorageError(h.desc.Singular, err)
	}
	return response.OK(c, h.desc.Plural+" retrieved", recs)
}

func (h *Handler) Create(c echo.Context) error {
	fields := validation.FieldsFrom(c)
	id, err := h.store.Create(c.Request().Context(), fields)
	if err != nil {
		return StorageError(h.desc.Singular, err)
	}
	data, err := h.created(c, id, fields)
	if err != nil {
		return err
	}
	return response.Created(c, h.desc.Singular+" created", data)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := PathID(c)
	if err != nil {
		return err
	}
	if err := h.store.Update(c.Request().Context(), id, validation.FieldsFrom(c)); err != nil {
		return StorageError(h.desc.Singular, err)
	}
	return response.OK(c, h.desc.Singular+" updated", map[string]int64{"id": id})
}

func (h *Handler) UpdateByOwner(c echo.Context) error {
	ownerID, err := PathID(c)
	if err != nil {
		return err
	}
	n, err := h.store.UpdateByOwner(c.Request().Context(), ownerID, validation.FieldsFrom(c))
	if err != nil {
		return StorageError(h.desc.Singular, err)
	}
	return response.OK(c, h.desc.Singular+" updated", map[string]int64{"user_id": ownerID, "updated": n})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := PathID(c)
	if err != nil {
		return err
	}
	if err := h.store.Delete(c.Request().Context(), id); err != nil {
		return StorageError(h.desc.Singular, err)
	}
	return response.OK(c, h.desc.Singular+" deleted", map[string]int64{"id": id})
}

// PathID parses the :id path parameter as a positive integer.
func PathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
