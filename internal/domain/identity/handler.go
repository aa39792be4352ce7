package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sosecurity/api/internal/platform/auth"
	"github.com/sosecurity/api/internal/platform/crud"
	"github.com/sosecurity/api/internal/platform/response"
	"github.com/sosecurity/api/internal/platform/validation"
)

var loginRules = []validation.Rule{
	{Field: "email", Kind: validation.String, Tag: "required,email"},
	{Field: "password", Kind: validation.String, Tag: "required,min=6"},
}

type Handler struct {
	svc       *Service
	v         *validation.Validator
	revoker   auth.Revoker
	limiter   echo.MiddlewareFunc
	resources []*crud.Handler
}

// NewHandler wires the user, user type and login history resources plus
// login and logout. limiter guards /login.
func NewHandler(svc *Service, v *validation.Validator, revoker auth.Revoker, limiter echo.MiddlewareFunc, stores crud.StoreFactory) *Handler {
	h := &Handler{svc: svc, v: v, revoker: revoker, limiter: limiter}

	users := Users()
	h.resources = []*crud.Handler{
		crud.NewHandler(users, stores(users), v, crud.WithCreated(h.registered)),
	}
	for _, d := range []*crud.Descriptor{UserTypes(), LoginHistory()} {
		h.resources = append(h.resources, crud.NewHandler(d, stores(d), v))
	}
	return h
}

func (h *Handler) RegisterRoutes(r *crud.Router) {
	for _, rh := range h.resources {
		rh.RegisterRoutes(r)
	}
	r.Limited(h.limiter, http.MethodPost, "/login", h.Login, validation.Body(h.v, loginRules...))
	r.Authenticated(http.MethodPost, "/logout", auth.LogoutHandler(h.revoker))
}

func (h *Handler) Login(c echo.Context) error {
	fields := validation.FieldsFrom(c)
	email, _ := fields["email"].(string)
	password, _ := fields["password"].(string)

	u, token, err := h.svc.Login(c.Request().Context(), email, password)
	if errors.Is(err, ErrInvalidCredentials) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if err != nil {
		return crud.StorageError("user", err)
	}
	return response.OK(c, "login successful", map[string]any{
		"token":   token,
		"usuario": u,
	})
}

// registered signs the new user in straight away.
func (h *Handler) registered(_ echo.Context, id int64, fields map[string]any) (any, error) {
	u := User{ID: id}
	u.Nombre, _ = fields["nombre"].(string)
	email, _ := fields["email"].(string)
	u.Email = NormalizeEmail(email)
	if t, ok := fields["fk_tipo_usuario"].(int64); ok {
		u.UserType = &t
	}

	token, err := h.svc.Issue(u)
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": id, "token": token}, nil
}
