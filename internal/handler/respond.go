// Package handler contains the HTTP handlers of the API.
package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mkravets/famhub/internal/service"
)

// serviceError maps a service error kind to an HTTP response. Internal
// details never leak: an integrity violation reads as a generic 500.
func serviceError(c echo.Context, err error) error {
	msg := err.Error()
	if se, ok := err.(*service.Error); ok {
		msg = se.Message
	}
	switch service.KindOf(err) {
	case service.KindInvalidInput:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	case service.KindNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": msg})
	case service.KindConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": msg})
	case service.KindPermissionDenied:
		return c.JSON(http.StatusForbidden, echo.Map{"error": msg})
	case service.KindExpired:
		return c.JSON(http.StatusGone, echo.Map{"error": msg})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// pathID parses a numeric path parameter, returning 0 when absent or
// malformed.
func pathID(c echo.Context, name string) uint64 {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
