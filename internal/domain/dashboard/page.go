package dashboard

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ehr/clinicaldash/internal/domain/extraction"
	"github.com/ehr/clinicaldash/internal/domain/session"
)

// Tabs of the dashboard page.
const (
	TabIndividual = "individual"
	TabPopulation = "population"
	TabFlow       = "flow"
)

// Flash codes carried on the redirect after a form post. Only codes travel in
// the URL; the text is looked up here.
const (
	WarningEmpty    = "empty"
	WarningBusy     = "busy"
	WarningNoExport = "no-export"
	NoticeExported  = "exported"
	NoticeCleared   = "cleared"
)

var warningText = map[string]string{
	WarningEmpty:    session.EmptyQueryWarning,
	WarningBusy:     "A query is already processing. Please wait for it to finish.",
	WarningNoExport: "Run a population query before exporting to CareHealth.",
}

// NormalizeTab maps a tab parameter to a known tab. An empty or unknown value
// selects the tab of the last query type, or the individual tab.
func NormalizeTab(tab string, last extraction.QueryType) string {
	switch tab {
	case TabIndividual, TabPopulation, TabFlow:
		return tab
	}
	if last == extraction.QueryPopulation {
		return TabPopulation
	}
	return TabIndividual
}

// TabFor returns the input tab of a query type.
func TabFor(qt extraction.QueryType) string {
	if qt == extraction.QueryPopulation {
		return TabPopulation
	}
	return TabIndividual
}

type FormView struct {
	QueryType       extraction.QueryType
	Tab             string
	SampleLabel     string
	TextLabel       string
	TextPlaceholder string
	SubmitLabel     string
	Placeholder     string
	Samples         []string
	Text            string
	Disabled        bool
}

// PageData is everything the page template needs.
type PageData struct {
	ActiveTab      string
	Warning        string
	Notice         string
	Processing     bool
	IndividualForm FormView
	PopulationForm FormView
	Individual     *IndividualView
	Population     *PopulationView
	Flow           ProcessFlowView
	ChartVersion   string
}

// BuildPage assembles the page for state. warning and notice are flash codes.
func BuildPage(state *session.State, tab, warning, notice string, stepDelay time.Duration) PageData {
	p := PageData{
		ActiveTab:  NormalizeTab(tab, state.QueryType),
		Warning:    warningText[warning],
		Processing: state.Processing,
		IndividualForm: FormView{
			QueryType:       extraction.QueryIndividual,
			Tab:             TabIndividual,
			SampleLabel:     "Sample Queries:",
			TextLabel:       "Patient Data Query:",
			TextPlaceholder: "Specify patient data to extract (demographics, labs, medications, history...).",
			SubmitLabel:     "🔍 Extract Patient Data",
			Placeholder:     extraction.PlaceholderOption,
			Samples:         extraction.Samples(extraction.QueryIndividual),
			Disabled:        state.Processing,
		},
		PopulationForm: FormView{
			QueryType:       extraction.QueryPopulation,
			Tab:             TabPopulation,
			SampleLabel:     "Sample Population Queries:",
			TextLabel:       "Population Analytics Query:",
			TextPlaceholder: "Describe patient population criteria using natural language (e.g., 'diabetic patients with high HbA1c')...",
			SubmitLabel:     "📊 Analyze Population",
			Placeholder:     extraction.PlaceholderOption,
			Samples:         extraction.Samples(extraction.QueryPopulation),
			Disabled:        state.Processing,
		},
		Flow:         RenderProcessFlow(state, stepDelay),
		ChartVersion: strconv.FormatInt(state.UpdatedAt.Unix(), 10),
	}

	if r := state.Result; r != nil && !state.Processing {
		switch {
		case r.Type == extraction.QueryIndividual && r.Individual != nil:
			v := RenderIndividual(r.Individual)
			p.Individual = &v
		case r.Type == extraction.QueryPopulation && r.Population != nil:
			v := RenderPopulation(r.Population)
			p.Population = &v
		}
	}

	switch notice {
	case NoticeExported:
		if p.Population != nil && p.Population.Export != nil {
			p.Notice = fmt.Sprintf("🚀 Successfully exported %d patients to %s!", p.Population.Export.PatientCount, session.ExportDestination)
		}
	case NoticeCleared:
		p.Notice = "Results cleared."
	}
	return p
}
