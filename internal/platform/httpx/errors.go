// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var fields *FieldErrors
	switch {
	case errors.As(err, &fields):
		writeProblem(w, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
			Errors: fields.Fields,
		})
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// Fail logs unexpected errors before responding. Domain errors are not logged.
func Fail(logger *slog.Logger, w http.ResponseWriter, msg string, err error, attrs ...any) {
	if logger != nil && IsInternal(err) {
		logger.Error(msg, append(attrs, slog.Any("error", err))...)
	}
	RespondError(w, err)
}

// IsInternal reports whether err maps to a 500 response.
func IsInternal(err error) bool {
	var fields *FieldErrors
	if errors.As(err, &fields) {
		return false
	}
	for _, target := range []error{ErrNotFound, ErrDuplicate, ErrValidation, ErrForbidden, ErrUnauthorized, ErrConflict} {
		if errors.Is(err, target) {
			return false
		}
	}
	return true
}

// MapPgError translates driver errors into the sentinel set.
func MapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return errors.Join(ErrDuplicate, errors.New(pgErr.ConstraintName))
		case "23503":
			return errors.Join(ErrConflict, errors.New("record is referenced by other data"))
		case "23514":
			return errors.Join(ErrValidation, errors.New(pgErr.Message))
		}
	}
	return err
}
