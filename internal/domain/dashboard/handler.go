package dashboard

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicaldash/internal/domain/extraction"
	"github.com/ehr/clinicaldash/internal/domain/session"
	"github.com/ehr/clinicaldash/internal/platform/auth"
)

const mimeSVG = "image/svg+xml"

// Handler serves the HTML dashboard. Form posts redirect back to the page
// (303) so a reload never resubmits a query.
type Handler struct {
	svc    *session.Service
	logger zerolog.Logger
}

func NewHandler(svc *session.Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.With().Str("component", "dashboard").Logger()}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/", h.Index)
	g.POST("/ui/queries", h.SubmitForm)
	g.POST("/ui/clear", h.ClearForm)
	g.POST("/ui/export", h.ExportForm)
	g.GET("/charts/:name", h.Chart)
	g.GET("/static/dashboard.css", h.Stylesheet)
	g.GET("/static/dashboard.js", h.Script)
}

func sessionID(c echo.Context) (string, error) {
	id := auth.SessionIDFromContext(c.Request().Context())
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	return id, nil
}

func redirect(c echo.Context, tab string, params url.Values) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("tab", tab)
	return c.Redirect(http.StatusSeeOther, "/?"+params.Encode())
}

func (h *Handler) Index(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	state, err := h.svc.State(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	page := BuildPage(state, c.QueryParam("tab"), c.QueryParam("warning"), c.QueryParam("notice"), h.svc.StepDelay())
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Render(http.StatusOK, "page", page)
}

type queryForm struct {
	QueryType string `form:"query_type"`
	Tab       string `form:"tab"`
	Sample    string `form:"sample"`
	QueryText string `form:"query_text"`
}

// queryText is the textarea text, or the chosen sample when the textarea was
// left empty.
func (f queryForm) queryText() string {
	if !session.IsEmptyQuery(f.QueryText) {
		return f.QueryText
	}
	if f.Sample != extraction.PlaceholderOption {
		return f.Sample
	}
	return ""
}

func (h *Handler) SubmitForm(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	var f queryForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	qt, ok := extraction.ParseQueryType(f.QueryType)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown query type")
	}
	tab := TabFor(qt)

	_, err = h.svc.Submit(c.Request().Context(), id, qt, f.queryText())
	switch {
	case errors.Is(err, session.ErrEmptyQuery):
		return redirect(c, tab, url.Values{"warning": {WarningEmpty}})
	case errors.Is(err, session.ErrProcessing):
		return redirect(c, tab, url.Values{"warning": {WarningBusy}})
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return redirect(c, tab, nil)
}

func (h *Handler) ClearForm(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	tab := NormalizeTab(c.FormValue("tab"), "")
	_, err = h.svc.Clear(c.Request().Context(), id)
	switch {
	case errors.Is(err, session.ErrProcessing):
		return redirect(c, tab, url.Values{"warning": {WarningBusy}})
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return redirect(c, tab, url.Values{"notice": {NoticeCleared}})
}

func (h *Handler) ExportForm(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	_, err = h.svc.Export(c.Request().Context(), id)
	switch {
	case errors.Is(err, session.ErrNothingToExport):
		return redirect(c, TabPopulation, url.Values{"warning": {WarningNoExport}})
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return redirect(c, TabPopulation, url.Values{"notice": {NoticeExported}})
}

// Chart renders one of the population charts as SVG.
func (h *Handler) Chart(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	state, err := h.svc.State(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if state.Result == nil || state.Result.Population == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no population result")
	}
	pop := state.Result.Population

	var buf bytes.Buffer
	name := c.Param("name")
	switch name {
	case "risk.svg":
		err = RenderBarChart(&buf, "Patient Risk Distribution", RiskBars(pop.Metrics.Risk))
	case "regions-pie.svg":
		err = RenderPieChart(&buf, "Patient Distribution by Region", RegionBars(pop.Regions))
	case "regions-bar.svg":
		err = RenderBarChart(&buf, "Patient Count by Region", RegionBars(pop.Regions))
	default:
		return echo.NewHTTPError(http.StatusNotFound, "unknown chart")
	}
	if errors.Is(err, ErrNoChartData) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		h.logger.Error().Err(err).Str("chart", name).Msg("chart render failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "chart render failed")
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, mimeSVG, buf.Bytes())
}

func (h *Handler) Stylesheet(c echo.Context) error {
	return c.Blob(http.StatusOK, "text/css; charset=utf-8", []byte(dashboardCSS))
}

func (h *Handler) Script(c echo.Context) error {
	return c.Blob(http.StatusOK, "application/javascript; charset=utf-8", []byte(dashboardJS))
}
