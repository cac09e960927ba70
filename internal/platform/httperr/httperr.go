// Package httperr maps the domain error taxonomy onto HTTP responses.
package httperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carelab/carelab/internal/domain/errs"
)

// Write converts a domain error into the matching echo HTTP error. Access
// denials and not-found responses stay detail-free on purpose.
func Write(c echo.Context, err error) error {
	switch {
	case errs.IsValidation(err), errs.IsTransition(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrAccessDenied):
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, errs.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "conflict")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
