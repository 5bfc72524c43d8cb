package account

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/labdata/labdata/internal/platform/auth"
	"github.com/labdata/labdata/internal/platform/reqparam"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	requireAuth := auth.RequireAuthenticated()

	api.POST("/auth/users", h.Register)
	api.GET("/auth/users/me", h.Me, requireAuth)
	api.POST("/auth/token/login", h.Login)
	api.POST("/auth/token/logout", h.Logout, requireAuth)
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	u, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	u, err := h.svc.Me(ctx, auth.PrincipalFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	resp, err := h.svc.Login(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.svc.Logout(ctx, auth.PrincipalFromContext(ctx)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
