// Package handlers wires the HTTP surface to the services. Each handler
// binds the request, calls exactly one service operation and maps its error
// to a status code.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fcfmotors/marketplace/internal/logging"
	"github.com/fcfmotors/marketplace/internal/service"
)

// httpError translates the service sentinels into HTTP errors. Unknown
// errors are logged and hidden behind a generic 500.
func httpError(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotAuthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		logging.FromContext(c.Request().Context()).Error(op+"_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func pathID(c echo.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}
