package auth

import (
	"github.com/labstack/echo/v4"
)

// sessionlessPaths are served the same to everyone and never start a session.
var sessionlessPaths = map[string]bool{
	"/health":               true,
	"/health/store":         true,
	"/static/dashboard.css": true,
	"/static/dashboard.js":  true,
}

// SessionSkipper reports whether the request should bypass SessionMiddleware.
func SessionSkipper(c echo.Context) bool {
	return IsSessionless(c.Request().URL.Path)
}

func IsSessionless(path string) bool {
	return sessionlessPaths[path]
}
