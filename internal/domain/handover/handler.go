package handover

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/handover/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/handovers", h.Create)
	api.GET("/handovers", h.List)
	api.GET("/handovers/:id", h.Get)
	api.PUT("/handovers/:id", h.Update)
	api.POST("/handovers/:id/finalize", h.Finalize)
	api.POST("/handovers/:id/detect-critical", h.RefreshCriticalRoster)
	api.GET("/handovers/:id/aggregate", h.Aggregate)
	api.GET("/handovers/:id/summary", h.Summary)

	api.POST("/critical-patients/detect", h.DetectCritical)
}

// httpError maps the domain error taxonomy onto HTTP status codes.
func httpError(err error) *echo.HTTPError {
	var (
		validationErr   *ValidationError
		notFoundErr     *NotFoundError
		invalidStateErr *InvalidStateError
		conflictErr     *ConflictError
		dataSourceErr   *DataSourceError
	)
	switch {
	case errors.As(err, &validationErr):
		return echo.NewHTTPError(http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &notFoundErr):
		return echo.NewHTTPError(http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &invalidStateErr):
		return echo.NewHTTPError(http.StatusConflict, invalidStateErr.Error())
	case errors.As(err, &conflictErr):
		return echo.NewHTTPError(http.StatusConflict, conflictErr.Error())
	case errors.As(err, &dataSourceErr):
		return echo.NewHTTPError(http.StatusBadGateway, dataSourceErr.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ho, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, ho)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ho, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ho)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := ListFilter{
		Hospital: c.QueryParam("hospital"),
		Service:  c.QueryParam("service"),
		Status:   c.QueryParam("status"),
	}
	if sd := c.QueryParam("shift_date"); sd != "" {
		d, err := time.Parse("2006-01-02", sd)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid shift_date, expected YYYY-MM-DD")
		}
		filter.ShiftDate = &d
	}
	items, total, err := h.svc.List(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch UpdatePatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ho, err := h.svc.Update(c.Request().Context(), id, patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ho)
}

func (h *Handler) Finalize(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ho, err := h.svc.Finalize(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ho)
}

func (h *Handler) RefreshCriticalRoster(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ho, err := h.svc.RefreshCriticalRoster(c.Request().Context(), id, time.Now().UTC())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ho)
}

func (h *Handler) Aggregate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	view, err := h.svc.Aggregate(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

// Summary regenerates the summary text for the handover's current state. For
// a finalized handover the stored summary is returned instead, so the text a
// reader sees never drifts from what was signed off.
func (h *Handler) Summary(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()

	ho, err := h.svc.Get(ctx, id)
	if err != nil {
		return httpError(err)
	}
	if ho.IsFinalized() && ho.GeneratedSummary != nil {
		return c.JSON(http.StatusOK, map[string]string{"summary": *ho.GeneratedSummary})
	}

	view, err := h.svc.Aggregate(ctx, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"summary": GenerateSummary(view)})
}

type detectRequest struct {
	PatientIDs []uuid.UUID `json:"patient_ids"`
}

func (h *Handler) DetectCritical(c echo.Context) error {
	var req detectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	roster, err := h.svc.DetectCritical(c.Request().Context(), req.PatientIDs, time.Now().UTC())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"critical_patients": roster,
		"count":             len(roster),
	})
}
