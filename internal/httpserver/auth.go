package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ostrikov/auth-service/internal/service"
	"github.com/ostrikov/auth-service/pkg/logging"
)

type AuthHTTP struct {
	Svc *service.AccountService
}

var errEmptyBody = errors.New("empty body")

// An absent or unparseable body is the only 400 on these routes; every
// business failure comes back as 200 with success=false.
func bindBody(c echo.Context, v any) error {
	if c.Request().ContentLength == 0 {
		return errEmptyBody
	}
	return c.Bind(v)
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	req := new(service.RegisterRequest)
	if err := bindBody(c, req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Register(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
		return err
	}

	return c.JSON(http.StatusOK, res)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	req := new(service.SignInRequest)
	if err := bindBody(c, req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.SignIn(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
		return err
	}

	return c.JSON(http.StatusOK, res)
}

func (h *AuthHTTP) RefreshToken(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	req := new(service.RefreshRequest)
	if err := bindBody(c, req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Refresh(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
		return err
	}

	return c.JSON(http.StatusOK, res)
}

// Me returns the claims the auth middleware extracted from the bearer token.
func (h *AuthHTTP) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"id":       c.Get("user_id"),
		"fullname": c.Get("fullname"),
		"email":    c.Get("email"),
		"role":     c.Get("role"),
	})
}
