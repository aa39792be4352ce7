package crud

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
)

// SQLSTATE codes mapped to client errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
	pgInvalidText         = "22P02"
	pgInvalidDatetime     = "22007"
	pgDatetimeOverflow    = "22008"
	pgStringTooLong       = "22001"
	pgNumericOutOfRange   = "22003"
)

// StorageError converts a store error into the HTTP error the client sees.
// Deadline errors pass through untouched so the error handler answers 504.
func StorageError(singular string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, singular+" not found")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return echo.NewHTTPError(http.StatusConflict, singular+" already exists").SetInternal(err)
		case pgForeignKeyViolation:
			return echo.NewHTTPError(http.StatusBadRequest, "referenced record does not exist").SetInternal(err)
		case pgNotNullViolation:
			return echo.NewHTTPError(http.StatusBadRequest, "a required value is missing").SetInternal(err)
		case pgCheckViolation, pgInvalidText, pgInvalidDatetime, pgDatetimeOverflow, pgStringTooLong, pgNumericOutOfRange:
			return echo.NewHTTPError(http.StatusBadRequest, "invalid input data").SetInternal(err)
		}
	}

	return echo.NewHTTPError(http.StatusInternalServerError, "could not process "+singular).SetInternal(err)
}
