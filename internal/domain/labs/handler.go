package labs

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/carelab/carelab/internal/domain/errs"
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

// RegisterRoutes mounts the lab-order endpoints. Role gating happens at the
// route level; finer ownership checks live in the service.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	creators := auth.RequireRole(auth.RoleHCP, auth.RoleOD, auth.RoleOPH, auth.RoleLabTech)
	viewers := auth.RequireRole(auth.RolePatient, auth.RoleHCP, auth.RoleOD, auth.RoleOPH, auth.RoleLabTech)

	g.POST("/lab-orders", h.create, creators)
	g.GET("/lab-orders", h.list, viewers)
	g.GET("/lab-orders/:id", h.get, viewers)
	g.PUT("/lab-orders/:id/result", h.recordResult, auth.RequireRole(auth.RoleLabTech))
	g.PUT("/lab-orders/:id/status", h.advanceStatus, auth.RequireRole(auth.RoleLabTech))
	g.PUT("/lab-orders/:id/confirm", h.confirm, auth.RequireRole(auth.RoleHCP))
	g.DELETE("/lab-orders/:id", h.remove, auth.RequireRole(auth.RoleHCP, auth.RoleOD, auth.RoleOPH))
}

func principal(c echo.Context) auth.Principal {
	return auth.PrincipalFromContext(c.Request().Context())
}

func orderID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validation("id", "must be a positive integer")
	}
	return id, nil
}

func (h *Handler) create(c echo.Context) error {
	var in CreateOrderInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	o, err := h.svc.CreateOrder(c.Request().Context(), principal(c), in)
	if err != nil {
		return httperr.Write(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) list(c echo.Context) error {
	var f OrderFilter
	f.Technician = c.QueryParam("technician")
	if v := c.QueryParam("visit_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return httperr.Write(c, errs.Validation("visit_id", "must be an integer"))
		}
		f.VisitID = id
	}
	page := pagination.FromContext(c)
	items, total, err := h.svc.QueryOrders(c.Request().Context(), principal(c), f, page.Limit, page.Offset)
	if err != nil {
		return httperr.Write(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, page.Limit, page.Offset))
}

func (h *Handler) get(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return httperr.Write(c, err)
	}
	o, err := h.svc.GetOrder(c.Request().Context(), principal(c), id)
	if err != nil {
		return httperr.Write(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

type recordResultRequest struct {
	Result    int     `json:"result"`
	AdvanceTo *string `json:"advance_to,omitempty"`
}

func (h *Handler) recordResult(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return httperr.Write(c, err)
	}
	var req recordResultRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	var next *Status
	if req.AdvanceTo != nil {
		st, err := ParseStatus(*req.AdvanceTo)
		if err != nil {
			return httperr.Write(c, err)
		}
		next = &st
	}
	o, err := h.svc.RecordResult(c.Request().Context(), principal(c), id, req.Result, next)
	if err != nil {
		return httperr.Write(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

type advanceStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) advanceStatus(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return httperr.Write(c, err)
	}
	var req advanceStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	next, err := ParseStatus(req.Status)
	if err != nil {
		return httperr.Write(c, err)
	}
	o, err := h.svc.AdvanceStatus(c.Request().Context(), principal(c), id, next)
	if err != nil {
		return httperr.Write(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) confirm(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return httperr.Write(c, err)
	}
	o, err := h.svc.ConfirmOrder(c.Request().Context(), principal(c), id)
	if err != nil {
		return httperr.Write(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) remove(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return httperr.Write(c, err)
	}
	if err := h.svc.DeleteOrder(c.Request().Context(), principal(c), id); err != nil {
		return httperr.Write(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
