package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/ostrikov/auth-service/internal/middleware"
	"github.com/ostrikov/auth-service/internal/tokens"
	loggingmw "github.com/ostrikov/auth-service/pkg/middleware/logging"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Issuer      *tokens.Issuer
	Logger      *slog.Logger
}

func Register(e *echo.Echo, d *Deps) {
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(loggingmw.RequestLogger(d.Logger))

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/refresh-token", d.AuthHandler.RefreshToken)

	authMw := middleware.NewBearerAuth(d.Issuer)

	private := e.Group("")
	private.Use(authMw.RequireAuth)

	private.GET("/me", d.AuthHandler.Me)
}
