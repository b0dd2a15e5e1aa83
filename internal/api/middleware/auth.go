package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/holidarr/holidarr/internal/auth"
)

const ClaimsKey = "claims"

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	Enabled() bool
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// Auth requires a valid bearer token when the validator is enabled. Browsers
// cannot set headers on a WebSocket upgrade, so the token may also arrive in
// the "token" query parameter.
func Auth(validator TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if validator == nil || !validator.Enabled() {
				return next(c)
			}

			token := extractBearerToken(c)
			if token == "" {
				token = c.QueryParam("token")
			}
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization token")
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			c.Set(ClaimsKey, claims)
			return next(c)
		}
	}
}

func extractBearerToken(c echo.Context) string {
	parts := strings.SplitN(c.Request().Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
