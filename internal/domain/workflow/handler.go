package workflow

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lims/lims/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	submit := api.Group("", auth.RequireRole("admin", "manager", "analyst"))
	submit.POST("/results", h.SubmitResult)

	manage := api.Group("", auth.RequireRole("admin", "manager"))
	manage.POST("/samples/promote", h.PromoteReadySamples)
}

func (h *Handler) SubmitResult(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	recordedBy := auth.UserIDFromContext(c.Request().Context())
	out, err := h.svc.SubmitResult(c.Request().Context(), &req, recordedBy)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) PromoteReadySamples(c echo.Context) error {
	n, err := h.svc.PromoteReadySamples(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"promoted": n})
}
