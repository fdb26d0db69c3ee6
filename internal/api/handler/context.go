package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxClaims extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call: both email and role
// must be present (presence proves the middleware ran).
func ctxClaims(c echo.Context) (email, role string, err error) {
	email, _ = c.Get("email").(string)
	role, _ = c.Get("role").(string)
	if email == "" || role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return email, role, nil
}
