package inventory

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleStaff))
	staff.POST("/blood-units", h.AddUnits)
	staff.GET("/blood-units", h.ListUnits)
	staff.GET("/blood-units/compatible", h.ListCompatible)
	staff.GET("/blood-units/:id", h.GetUnit)
	staff.PUT("/blood-units/:id", h.UpdateUnit)
	staff.DELETE("/blood-units/:id", h.DeleteUnit)
}

func (h *Handler) AddUnits(c echo.Context) error {
	var in AddUnitsInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	units, err := h.svc.AddUnits(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"units": units, "count": len(units)})
}

func (h *Handler) ListUnits(c echo.Context) error {
	pg := pagination.FromContext(c)
	if bt := c.QueryParam("blood_type"); bt != "" {
		items, total, err := h.svc.ListByType(c.Request().Context(), bt, pg.Limit, pg.Offset)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListCompatible(c echo.Context) error {
	units, err := h.svc.ListCompatible(c.Request().Context(),
		c.QueryParam("component"), c.QueryParam("blood_type"))
	if err != nil {
		return apperr.HTTP(err)
	}
	if units == nil {
		units = []*BloodUnit{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"units": units, "total": len(units)})
}

func (h *Handler) GetUnit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateUnit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in UpdateUnitInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) DeleteUnit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
