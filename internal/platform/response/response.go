// Package response holds the JSON envelope every endpoint answers with and
// the echo error handler that renders failures into it.
package response

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Success is the envelope for every 2xx response.
type Success struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Failure is the envelope for every 4xx and 5xx response.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// Detailer is implemented by errors that carry structured detail for the
// client, such as per-field validation failures.
type Detailer interface {
	Details() any
}

func OK(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusOK, Success{Success: true, Message: message, Data: data})
}

func Created(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusCreated, Success{Success: true, Message: message, Data: data})
}

// ErrorHandler renders handler errors as Failure envelopes. Errors that are
// not *echo.HTTPError are treated as internal failures and never leak their
// text to the client.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, message := classify(err)

		body := Failure{Error: message}
		var d Detailer
		if errors.As(err, &d) {
			body.Details = d.Details()
		}

		if status >= http.StatusInternalServerError {
			logger.Error().
				Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Int("status", status).
				Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("failed to write error response")
		}
	}
}

// Status is the HTTP status ErrorHandler answers err with.
func Status(err error) int {
	status, _ := classify(err)
	return status
}

func classify(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil && errors.Is(he.Internal, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, "request timed out"
		}
		if m, ok := he.Message.(string); ok {
			return he.Code, m
		}
		if he.Message == nil {
			return he.Code, http.StatusText(he.Code)
		}
		return he.Code, fmt.Sprint(he.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "request timed out"
	}
	return http.StatusInternalServerError, "internal server error"
}
