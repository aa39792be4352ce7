package db

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const DBConnKey contextKey = "db_conn"

// ErrNoConn is returned when a request reaches the persistence layer
// without a connection attached by ConnMiddleware.
var ErrNoConn = errors.New("no database connection attached to request")

// ConnMiddleware checks a connection out of the pool for the lifetime of the
// request and releases it once the handler chain returns or panics.
func ConnMiddleware(pool Pool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			conn, err := pool.Acquire(ctx)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable").SetInternal(err)
			}
			defer conn.Release()

			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("db", conn)

			return next(c)
		}
	}
}

// ConnFromContext retrieves the request-scoped connection from context.
func ConnFromContext(ctx context.Context) Conn {
	conn, _ := ctx.Value(DBConnKey).(Conn)
	return conn
}

// QuerierFromContext is ConnFromContext for callers that only run statements.
func QuerierFromContext(ctx context.Context) (Querier, error) {
	conn := ConnFromContext(ctx)
	if conn == nil {
		return nil, ErrNoConn
	}
	return conn, nil
}

// WithTx runs fn inside a transaction on the request-scoped connection.
// The transaction commits when fn returns nil and rolls back otherwise.
func WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	conn := ConnFromContext(ctx)
	if conn == nil {
		return ErrNoConn
	}
	return pgx.BeginFunc(ctx, conn, fn)
}
