package member

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/members/me", h.GetMe)
	api.PUT("/members/me", h.UpdateMe)

	staff := api.Group("", auth.RequireRole(auth.RoleStaff))
	staff.GET("/members/:id", h.GetMember)
	staff.PATCH("/members/:id/blood-group", h.CorrectBloodGroup)
	staff.GET("/members/nearby-donors", h.NearbyDonors)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	uid := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(uid)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid subject")
	}
	return id, nil
}

func (h *Handler) GetMe(c echo.Context) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.GetOrCreate(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) UpdateMe(c echo.Context) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var in UpdateProfileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.UpdateProfile(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) GetMember(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

type correctBloodGroupRequest struct {
	BloodType string `json:"blood_type"`
}

func (h *Handler) CorrectBloodGroup(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req correctBloodGroupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CorrectBloodGroup(c.Request().Context(), id, req.BloodType); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) NearbyDonors(c echo.Context) error {
	in := NearbyDonorsInput{
		BloodType: c.QueryParam("blood_type"),
		CallerIP:  c.RealIP(),
	}
	if v := c.QueryParam("latitude"); v != "" {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid latitude")
		}
		in.Latitude = &lat
	}
	if v := c.QueryParam("longitude"); v != "" {
		lon, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid longitude")
		}
		in.Longitude = &lon
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		in.Limit = n
	}
	donors, err := h.svc.NearbyDonors(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	if donors == nil {
		donors = []*DonorDistance{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"donors": donors, "total": len(donors)})
}
