package request

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/internal/platform/blobstore"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type Handler struct {
	svc   *Service
	blobs blobstore.BlobStore
}

func NewHandler(svc *Service, blobs blobstore.BlobStore) *Handler {
	return &Handler{svc: svc, blobs: blobs}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/requests", h.Create)
	api.GET("/requests/mine", h.ListMine)
	api.GET("/requests/:id", h.Get)
	api.PUT("/requests/:id", h.Update)
	api.DELETE("/requests/:id", h.Delete)
	api.POST("/requests/:id/confirm", h.Confirm)
	api.GET("/requests/:id/attachment", h.GetAttachment)

	staff := api.Group("", auth.RequireRole(auth.RoleStaff))
	staff.GET("/requests", h.ListAll)
	staff.POST("/requests/:id/assign", h.Assign)
	staff.POST("/requests/:id/fulfill", h.Fulfill)
	staff.POST("/requests/:id/reject", h.Reject)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	uid := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(uid)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid subject")
	}
	return id, nil
}

func isStaff(c echo.Context) bool {
	return auth.HasRole(c.Request().Context(), auth.RoleStaff)
}

func (h *Handler) Create(c echo.Context) error {
	requesterID, err := callerID(c)
	if err != nil {
		return err
	}
	var in CreateInput
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		in, err = h.bindMultipart(c, requesterID)
		if err != nil {
			return err
		}
	} else if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := h.svc.Create(c.Request().Context(), requesterID, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, req)
}

// bindMultipart reads the form fields and stores the optional requisition
// attachment, returning its reference on the input.
func (h *Handler) bindMultipart(c echo.Context, requesterID uuid.UUID) (CreateInput, error) {
	var in CreateInput
	in.BloodType = c.FormValue("blood_type")
	in.Component = c.FormValue("component")
	in.Reason = c.FormValue("reason")
	if v := c.FormValue("units_required"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, echo.NewHTTPError(http.StatusBadRequest, "units_required must be a number")
		}
		in.UnitsRequired = n
	}

	file, err := c.FormFile("attachment")
	if err != nil {
		// Attachment is optional.
		return in, nil
	}
	src, err := file.Open()
	if err != nil {
		return in, echo.NewHTTPError(http.StatusBadRequest, "cannot read attachment")
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	meta, err := h.blobs.Upload(c.Request().Context(), blobstore.BlobMetadata{
		FileName:    file.Filename,
		ContentType: contentType,
		MemberID:    requesterID.String(),
		Category:    "requisition",
		CreatedBy:   requesterID.String(),
	}, src)
	if err != nil {
		return in, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in.AttachmentID = &meta.ID
	return in, nil
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	caller, cerr := callerID(c)
	if cerr != nil {
		return cerr
	}
	if !isStaff(c) && req.RequesterID != caller {
		return echo.NewHTTPError(http.StatusForbidden, "not your request")
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) ListMine(c echo.Context) error {
	requesterID, err := callerID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMine(c.Request().Context(), requesterID, c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListAll(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAll(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	caller, cerr := callerID(c)
	if cerr != nil {
		return cerr
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := h.svc.Update(c.Request().Context(), id, caller, isStaff(c), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) Assign(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in AssignInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	req, err := h.svc.Assign(c.Request().Context(), id, actor, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) Fulfill(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.svc.Fulfill(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, req)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Reject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body rejectRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := h.svc.Reject(c.Request().Context(), id, body.Reason)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) Confirm(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	caller, cerr := callerID(c)
	if cerr != nil {
		return cerr
	}
	req, err := h.svc.Confirm(c.Request().Context(), id, caller)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	caller, cerr := callerID(c)
	if cerr != nil {
		return cerr
	}
	if err := h.svc.Delete(c.Request().Context(), id, caller, isStaff(c)); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetAttachment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	caller, cerr := callerID(c)
	if cerr != nil {
		return cerr
	}
	if !isStaff(c) && req.RequesterID != caller {
		return echo.NewHTTPError(http.StatusForbidden, "not your request")
	}
	if req.AttachmentID == nil {
		return echo.NewHTTPError(http.StatusNotFound, "request has no attachment")
	}
	content, meta, err := h.blobs.Download(c.Request().Context(), *req.AttachmentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "attachment not found")
	}
	defer content.Close()
	c.Response().Header().Set("Content-Disposition", `attachment; filename="`+meta.FileName+`"`)
	c.Response().Header().Set(echo.HeaderContentType, meta.ContentType)
	c.Response().WriteHeader(http.StatusOK)
	_, err = io.Copy(c.Response(), content)
	return err
}
