package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ostrikov/auth-service/internal/tokens"
)

type BearerAuth struct {
	Issuer *tokens.Issuer
}

func NewBearerAuth(issuer *tokens.Issuer) *BearerAuth {
	return &BearerAuth{Issuer: issuer}
}

func (m *BearerAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		const prefix = "Bearer "

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, prefix) {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := m.Issuer.ParseAccessToken(strings.TrimPrefix(header, prefix))
		if err != nil || claims == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set("user_id", claims.Subject)
		c.Set("fullname", claims.FullName)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)

		return next(c)
	}
}
