package handler // declare the package name; contains the HTTP handlers of the stub service

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a simple health‑check endpoint used by load balancers and
// local scripts to verify that the stub is running.  It returns a plain
// text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
