// Package dashboard turns extraction results and session state into view
// models and serves them as HTML pages and SVG charts. Renderers are pure:
// they never touch the state they are given.
package dashboard

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ehr/clinicaldash/internal/domain/extraction"
	"github.com/ehr/clinicaldash/internal/domain/session"
)

const timestampLayout = "2006-01-02 15:04:05"

// Chart colors for the risk buckets.
const (
	ColorHighRisk     = "#ef4444"
	ColorModerateRisk = "#f59e0b"
	ColorLowRisk      = "#10b981"
)

// HbA1c highlight tiers. Both thresholds are inclusive.
const (
	HbA1cCriticalThreshold = 9.0
	HbA1cElevatedThreshold = 8.5
)

type HbA1cTier string

const (
	HbA1cNormal   HbA1cTier = ""
	HbA1cElevated HbA1cTier = "elevated"
	HbA1cCritical HbA1cTier = "critical"
)

var hbA1cColors = map[HbA1cTier]string{
	HbA1cCritical: "#fecaca",
	HbA1cElevated: "#fed7aa",
}

// ClassifyHbA1c returns the highlight tier for an HbA1c value.
func ClassifyHbA1c(v float64) HbA1cTier {
	switch {
	case v >= HbA1cCriticalThreshold:
		return HbA1cCritical
	case v >= HbA1cElevatedThreshold:
		return HbA1cElevated
	default:
		return HbA1cNormal
	}
}

// Color is the background used for the tier, or "" when unstyled.
func (t HbA1cTier) Color() string {
	return hbA1cColors[t]
}

type severityStyle struct {
	icon  string
	class string
	color string
}

var severityStyles = map[extraction.Severity]severityStyle{
	extraction.SeverityCritical: {icon: "🔴", class: "alert-critical", color: "#ef4444"},
	extraction.SeverityWarning:  {icon: "🟡", class: "alert-warning", color: "#f59e0b"},
	extraction.SeverityInfo:     {icon: "🔵", class: "alert-info", color: "#3b82f6"},
}

func styleFor(s extraction.Severity) severityStyle {
	if st, ok := severityStyles[s]; ok {
		return st
	}
	return severityStyles[extraction.SeverityInfo]
}

// -- View models --

// Tile is a labelled metric with an optional delta.
type Tile struct {
	Label string
	Value string
	Delta string
}

// Alert is a styled flag or care opportunity.
type Alert struct {
	Severity extraction.Severity
	Icon     string
	Class    string
	Color    string
	Title    string
	Body     string
	Detail   string
}

type Tab struct {
	Name   string
	Fields []extraction.Field
}

// IndividualView is the rendered individual patient panel.
type IndividualView struct {
	Title       string
	Subtitle    string
	LastUpdated string
	Alerts      []Alert
	Tabs        []Tab
	Quality     []Tile
}

type PatientRow struct {
	extraction.PatientSummary
	HbA1cTier  HbA1cTier
	HbA1cColor string
}

// ChartBar is one bar or pie slice.
type ChartBar struct {
	Label string
	Value float64
	Color string
}

// ExportPanel is shown once the cohort list is ready to export.
type ExportPanel struct {
	ListName     string
	PatientCount int
	SyncTime     string
	Format       string
}

// PopulationView is the rendered population health panel.
type PopulationView struct {
	Title         string
	Summary       string
	Executed      string
	Metrics       []Tile
	Risk          []ChartBar
	Opportunities []Alert
	Patients      []PatientRow
	Regions       []ChartBar
	Export        *ExportPanel
}

// StepPanel is one completed step on the process flow tab.
type StepPanel struct {
	Number      int
	Heading     string
	Expanded    bool
	Description string
	DataPoints  []string
	Command     string
	Language    string
}

// ProcessFlowView is the process flow tab. Completed is false when no run
// has produced steps yet and the overview is shown instead.
type ProcessFlowView struct {
	Completed bool
	Steps     []StepPanel
	Summary   []Tile
}

// -- Renderers --

// RenderIndividual builds the individual patient panel.
func RenderIndividual(r *extraction.IndividualResult) IndividualView {
	p := r.Patient
	v := IndividualView{
		Title:       p.Name,
		Subtitle:    fmt.Sprintf("Patient ID: %s | Age: %d | Gender: %s", p.ID, p.Age, p.Gender),
		LastUpdated: p.LastUpdate.Format(timestampLayout),
	}

	for _, f := range r.Flags {
		st := styleFor(f.Severity)
		v.Alerts = append(v.Alerts, Alert{
			Severity: f.Severity,
			Icon:     st.icon,
			Class:    st.class,
			Color:    st.color,
			Title:    f.Message,
			Detail:   fmt.Sprintf("Confidence: %d%%", f.Confidence),
		})
	}

	for _, c := range r.Categories {
		v.Tabs = append(v.Tabs, Tab{Name: c.Name, Fields: append([]extraction.Field(nil), c.Fields...)})
	}

	q := r.Quality
	v.Quality = []Tile{
		{Label: "Completeness", Value: percent(q.Completeness)},
		{Label: "Accuracy", Value: percent(q.Accuracy)},
		{Label: "Timeliness", Value: percent(q.Timeliness)},
		{Label: "Consistency", Value: percent(q.Consistency)},
	}
	return v
}

// RenderPopulation builds the population health panel.
func RenderPopulation(r *extraction.PopulationResult) PopulationView {
	m := r.Metrics
	v := PopulationView{
		Title:    r.Cohort.Name,
		Summary:  fmt.Sprintf("%d patients | %s", r.Cohort.TotalPatients, r.Cohort.Criteria),
		Executed: r.Cohort.QueryExecuted.Format(timestampLayout),
		Metrics: []Tile{
			{Label: "Average Age", Value: formatFloat(m.AverageAge)},
			{Label: "Average HbA1c", Value: formatFloat(m.AverageHbA1c) + "%", Delta: "Above Target"},
			{Label: "High Risk Patients", Value: strconv.Itoa(m.Risk.High)},
			{Label: "Total Patients", Value: strconv.Itoa(r.Cohort.TotalPatients)},
		},
		Risk: RiskBars(m.Risk),
	}

	for _, o := range r.Opportunities {
		st := styleFor(o.Severity)
		v.Opportunities = append(v.Opportunities, Alert{
			Severity: o.Severity,
			Icon:     st.icon,
			Class:    st.class,
			Color:    st.color,
			Title:    o.Title,
			Body:     o.Description,
			Detail:   fmt.Sprintf("👥 %d patients • 💰 Potential savings: %s", o.PatientCount, o.CostSavings),
		})
	}

	for _, p := range r.Patients {
		tier := ClassifyHbA1c(p.HbA1c)
		v.Patients = append(v.Patients, PatientRow{PatientSummary: p, HbA1cTier: tier, HbA1cColor: tier.Color()})
	}

	v.Regions = RegionBars(r.Regions)

	if r.Export.Ready {
		v.Export = &ExportPanel{
			ListName:     r.Export.ListName,
			PatientCount: r.Export.PatientCount,
			SyncTime:     r.Export.EstimatedSyncTime,
			Format:       r.Export.Format,
		}
	}
	return v
}

// RiskBars lists the risk buckets in display order with their fixed colors.
func RiskBars(r extraction.RiskDistribution) []ChartBar {
	return []ChartBar{
		{Label: "high", Value: float64(r.High), Color: ColorHighRisk},
		{Label: "moderate", Value: float64(r.Moderate), Color: ColorModerateRisk},
		{Label: "low", Value: float64(r.Low), Color: ColorLowRisk},
	}
}

// regionPalette colors region slices in order.
var regionPalette = []string{"#0f766e", "#0ea5e9", "#6366f1", "#f97316"}

// RegionBars lists regions in fixture order.
func RegionBars(regions []extraction.RegionShare) []ChartBar {
	out := make([]ChartBar, 0, len(regions))
	for i, r := range regions {
		out = append(out, ChartBar{
			Label: r.Region,
			Value: float64(r.Count),
			Color: regionPalette[i%len(regionPalette)],
		})
	}
	return out
}

// RenderProcessFlow builds the process flow tab. stepDelay is the per-step
// pause used to report processing time.
func RenderProcessFlow(state *session.State, stepDelay time.Duration) ProcessFlowView {
	if state == nil || len(state.Steps) == 0 {
		return ProcessFlowView{}
	}

	v := ProcessFlowView{Completed: true}
	for i, step := range state.Steps {
		n := i + 1
		panel := StepPanel{
			Number:      n,
			Heading:     fmt.Sprintf("Step %d: ✅ %s", n, step.Name),
			Expanded:    n <= 2,
			Description: step.Description,
			DataPoints:  append([]string(nil), step.DataPoints...),
			Command:     step.Command,
		}
		if strings.Contains(step.Command, "SELECT") {
			panel.Language = "sql"
		}
		v.Steps = append(v.Steps, panel)
	}

	elapsed := time.Duration(len(state.Steps)) * stepDelay
	v.Summary = []Tile{
		{Label: "Steps Completed", Value: strconv.Itoa(len(state.Steps))},
		{Label: "Query Type", Value: state.QueryType.Label()},
		{Label: "Processing Time", Value: fmt.Sprintf("%.1fs", elapsed.Seconds())},
	}
	return v
}

func percent(n int) string {
	return strconv.Itoa(n) + "%"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
