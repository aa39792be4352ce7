package crud

import (
	"github.com/labstack/echo/v4"
)

// Router registers routes with the middleware chains the API uses:
// authentication before connection acquisition before body validation.
type Router struct {
	echo  *echo.Echo
	authn echo.MiddlewareFunc
	conn  echo.MiddlewareFunc
}

func NewRouter(e *echo.Echo, authn, conn echo.MiddlewareFunc) *Router {
	return &Router{echo: e, authn: authn, conn: conn}
}

// Public routes need no credentials but do touch the database.
func (r *Router) Public(method, path string, h echo.HandlerFunc, mw ...echo.MiddlewareFunc) *echo.Route {
	return r.echo.Add(method, path, h, chain(mw, r.conn)...)
}

// Limited is Public with limiter running before a connection is taken.
func (r *Router) Limited(limiter echo.MiddlewareFunc, method, path string, h echo.HandlerFunc, mw ...echo.MiddlewareFunc) *echo.Route {
	return r.echo.Add(method, path, h, chain(mw, limiter, r.conn)...)
}

// Protected routes require a valid token and touch the database.
func (r *Router) Protected(method, path string, h echo.HandlerFunc, mw ...echo.MiddlewareFunc) *echo.Route {
	return r.echo.Add(method, path, h, chain(mw, r.authn, r.conn)...)
}

// Authenticated routes require a valid token but no database connection.
func (r *Router) Authenticated(method, path string, h echo.HandlerFunc, mw ...echo.MiddlewareFunc) *echo.Route {
	return r.echo.Add(method, path, h, chain(mw, r.authn)...)
}

// chain puts head in front of mw; echo runs route middleware in order.
func chain(mw []echo.MiddlewareFunc, head ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(head)+len(mw))
	out = append(out, head...)
	return append(out, mw...)
}
