package diary

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carelab/carelab/internal/platform/auth"
	"github.com/carelab/carelab/internal/platform/httperr"
	"github.com/carelab/carelab/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/diary", h.submit, auth.RequireRole(auth.RolePatient))
	g.GET("/diary", h.listOwn, auth.RequireRole(auth.RolePatient))
	g.GET("/patients/:patient/diary", h.listForPatient,
		auth.RequireRole(auth.RoleHCP, auth.RoleOD, auth.RoleOPH))
}

func principal(c echo.Context) auth.Principal {
	return auth.PrincipalFromContext(c.Request().Context())
}

func (h *Handler) submit(c echo.Context) error {
	var in SubmitInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e, err := h.svc.Submit(c.Request().Context(), principal(c), in)
	if err != nil {
		return httperr.Write(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) listOwn(c echo.Context) error {
	page := pagination.FromContext(c)
	entries, total, err := h.svc.ListOwn(c.Request().Context(), principal(c), page.Limit, page.Offset)
	if err != nil {
		return httperr.Write(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, page.Limit, page.Offset))
}

func (h *Handler) listForPatient(c echo.Context) error {
	page := pagination.FromContext(c)
	entries, total, err := h.svc.ListForPatient(c.Request().Context(), principal(c), c.Param("patient"), page.Limit, page.Offset)
	if err != nil {
		return httperr.Write(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, page.Limit, page.Offset))
}
