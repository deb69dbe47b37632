package session

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinicaldash/internal/domain/extraction"
	"github.com/ehr/clinicaldash/internal/platform/auth"
)

// Handler serves the session JSON API.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/session", h.GetSession)
	api.POST("/queries", h.SubmitQuery)
	api.DELETE("/results", h.ClearResults)
	api.POST("/export", h.Export)
	api.GET("/samples/:type", h.ListSamples)
}

type submitRequest struct {
	QueryType string `json:"query_type" form:"query_type"`
	QueryText string `json:"query_text" form:"query_text"`
}

func sessionID(c echo.Context) (string, error) {
	id := auth.SessionIDFromContext(c.Request().Context())
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	return id, nil
}

// GetSession returns the caller's session state.
func (h *Handler) GetSession(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	state, err := h.svc.State(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, state)
}

// SubmitQuery runs a query and responds once the run has finished.
func (h *Handler) SubmitQuery(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	qt, ok := extraction.ParseQueryType(req.QueryType)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "query_type must be individual or population")
	}

	state, err := h.svc.Submit(c.Request().Context(), id, qt, req.QueryText)
	if err != nil {
		return submitError(err)
	}
	return c.JSON(http.StatusOK, state)
}

// ClearResults drops the last result and its step trace.
func (h *Handler) ClearResults(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	state, err := h.svc.Clear(c.Request().Context(), id)
	if err != nil {
		return submitError(err)
	}
	return c.JSON(http.StatusOK, state)
}

// Export pushes the ready population list to CareHealth.
func (h *Handler) Export(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	receipt, err := h.svc.Export(c.Request().Context(), id)
	if err != nil {
		return submitError(err)
	}
	return c.JSON(http.StatusOK, receipt)
}

// ListSamples returns the sample queries for a query type.
func (h *Handler) ListSamples(c echo.Context) error {
	qt, ok := extraction.ParseQueryType(c.Param("type"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown query type")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"query_type":  qt,
		"placeholder": extraction.PlaceholderOption,
		"samples":     extraction.Samples(qt),
	})
}

// submitError maps service errors to HTTP errors.
func submitError(err error) error {
	switch {
	case errors.Is(err, ErrEmptyQuery):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, EmptyQueryWarning)
	case errors.Is(err, ErrProcessing):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidQueryType):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNothingToExport):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

