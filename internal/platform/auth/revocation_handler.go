package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sosecurity/api/internal/platform/response"
)

// LogoutHandler revokes the bearer token the request was authenticated
// with. It must run behind Middleware.
func LogoutHandler(store Revoker) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := ClaimsFromContext(c.Request().Context())
		if claims == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}

		if err := store.Revoke(c.Request().Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "could not log out").SetInternal(err)
		}

		return response.OK(c, "logged out", nil)
	}
}
