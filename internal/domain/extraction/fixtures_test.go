package extraction

import (
	"math"
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 8, 12, 9, 30, 0, 0, time.UTC)

func TestGenerate_Individual(t *testing.T) {
	r := Generate(QueryIndividual, fixedNow)
	if r.Type != QueryIndividual {
		t.Fatalf("expected individual type, got %s", r.Type)
	}
	if r.Individual == nil {
		t.Fatal("expected individual payload")
	}
	if r.Population != nil {
		t.Error("expected population payload to be absent")
	}
	if r.Individual.Patient.ID != "PT-789456" {
		t.Errorf("expected PT-789456, got %s", r.Individual.Patient.ID)
	}
	if !r.Individual.Patient.LastUpdate.Equal(fixedNow) {
		t.Errorf("expected timestamp %v, got %v", fixedNow, r.Individual.Patient.LastUpdate)
	}
}

func TestGenerate_Population(t *testing.T) {
	r := Generate(QueryPopulation, fixedNow)
	if r.Type != QueryPopulation {
		t.Fatalf("expected population type, got %s", r.Type)
	}
	if r.Population == nil {
		t.Fatal("expected population payload")
	}
	if r.Individual != nil {
		t.Error("expected individual payload to be absent")
	}
	if !r.Population.Cohort.QueryExecuted.Equal(fixedNow) {
		t.Errorf("expected query executed %v, got %v", fixedNow, r.Population.Cohort.QueryExecuted)
	}
}

func TestGenerate_UnknownFallsBackToPopulation(t *testing.T) {
	r := Generate(QueryType("bogus"), fixedNow)
	if r.Type != QueryPopulation || r.Population == nil {
		t.Errorf("expected population fallback, got %+v", r)
	}
}

func TestPopulation_RiskDistributionMatchesTotal(t *testing.T) {
	p := Population(fixedNow)
	if p.Metrics.Risk.Total() != p.Cohort.TotalPatients {
		t.Errorf("risk distribution %d does not match total %d", p.Metrics.Risk.Total(), p.Cohort.TotalPatients)
	}
	if p.Metrics.Risk.Total() != 342 {
		t.Errorf("expected 342, got %d", p.Metrics.Risk.Total())
	}
}

func TestPopulation_RegionsSumToTotal(t *testing.T) {
	p := Population(fixedNow)
	count := 0
	pct := 0.0
	for _, r := range p.Regions {
		count += r.Count
		pct += r.Percentage
	}
	if count != p.Cohort.TotalPatients {
		t.Errorf("expected region counts to sum to %d, got %d", p.Cohort.TotalPatients, count)
	}
	if math.Abs(pct-100) > 0.5 {
		t.Errorf("expected percentages to sum to ~100, got %.1f", pct)
	}
}

func TestPopulation_PatientList(t *testing.T) {
	p := Population(fixedNow)
	if len(p.Patients) != 10 {
		t.Fatalf("expected 10 patients, got %d", len(p.Patients))
	}
	seen := map[string]bool{}
	for _, pt := range p.Patients {
		if seen[pt.ID] {
			t.Errorf("duplicate patient id %s", pt.ID)
		}
		seen[pt.ID] = true
	}
}

func TestPopulation_ExportReady(t *testing.T) {
	p := Population(fixedNow)
	if !p.Export.Ready {
		t.Error("expected export to be ready")
	}
	if p.Export.PatientCount != 342 {
		t.Errorf("expected export count 342, got %d", p.Export.PatientCount)
	}
}

func TestIndividual_FlagsAndQuality(t *testing.T) {
	r := Individual(fixedNow)
	wantSeverities := []Severity{SeverityCritical, SeverityWarning, SeverityInfo}
	if len(r.Flags) != len(wantSeverities) {
		t.Fatalf("expected %d flags, got %d", len(wantSeverities), len(r.Flags))
	}
	for i, s := range wantSeverities {
		if r.Flags[i].Severity != s {
			t.Errorf("flag %d: expected %s, got %s", i, s, r.Flags[i].Severity)
		}
		if r.Flags[i].Confidence < 0 || r.Flags[i].Confidence > 100 {
			t.Errorf("flag %d: confidence out of range: %d", i, r.Flags[i].Confidence)
		}
	}

	q := r.Quality
	for _, v := range []int{q.Completeness, q.Accuracy, q.Timeliness, q.Consistency} {
		if v < 0 || v > 100 {
			t.Errorf("quality percentage out of range: %d", v)
		}
	}
}

func TestIndividual_CategoryOrder(t *testing.T) {
	r := Individual(fixedNow)
	expected := []string{
		"Demographics & Insurance",
		"Medical History",
		"Laboratory Results",
		"Current Medications",
		"Vital Signs Trends",
	}
	if len(r.Categories) != len(expected) {
		t.Fatalf("expected %d categories, got %d", len(expected), len(r.Categories))
	}
	for i, name := range expected {
		if r.Categories[i].Name != name {
			t.Errorf("category %d: expected %q, got %q", i, name, r.Categories[i].Name)
		}
		if len(r.Categories[i].Fields) == 0 {
			t.Errorf("category %q has no fields", name)
		}
	}
}

func TestParseQueryType(t *testing.T) {
	tests := []struct {
		in   string
		want QueryType
		ok   bool
	}{
		{"individual", QueryIndividual, true},
		{"Individual Patient", QueryIndividual, true},
		{"  POPULATION ", QueryPopulation, true},
		{"population health", QueryPopulation, true},
		{"", "", false},
		{"cohort", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseQueryType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseQueryType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestQueryType_Label(t *testing.T) {
	if QueryIndividual.Label() != "Individual Patient" {
		t.Errorf("unexpected label %q", QueryIndividual.Label())
	}
	if QueryPopulation.Label() != "Population Health" {
		t.Errorf("unexpected label %q", QueryPopulation.Label())
	}
	if QueryType("").Label() != "N/A" {
		t.Errorf("expected N/A for zero value, got %q", QueryType("").Label())
	}
}
