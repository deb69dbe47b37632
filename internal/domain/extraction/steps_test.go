package extraction

import (
	"strings"
	"testing"
)

func TestSteps_Individual(t *testing.T) {
	steps := Steps(QueryIndividual)
	if len(steps) != 6 {
		t.Fatalf("expected 6 individual steps, got %d", len(steps))
	}

	expected := []string{
		"Query Analysis",
		"Schema Mapping",
		"Patient Demographics Query",
		"Medical History Extraction",
		"Lab Results Mining",
		"Data Synthesis & Analysis",
	}
	for i, name := range expected {
		if steps[i].Name != name {
			t.Errorf("expected step[%d] = %q, got %q", i, name, steps[i].Name)
		}
	}
}

func TestMaxSteps(t *testing.T) {
	if got := MaxSteps(); got != 6 {
		t.Errorf("expected 6, got %d", got)
	}
}

func TestSteps_Population(t *testing.T) {
	steps := Steps(QueryPopulation)
	if len(steps) != 5 {
		t.Fatalf("expected 5 population steps, got %d", len(steps))
	}

	expected := []string{
		"NLP Query Processing",
		"Population SQL Generation",
		"Patient Cohort Retrieval",
		"Statistical Analysis",
		"CareHealth Integration",
	}
	for i, name := range expected {
		if steps[i].Name != name {
			t.Errorf("expected step[%d] = %q, got %q", i, name, steps[i].Name)
		}
	}
}

func TestSteps_UnknownFallsBackToPopulation(t *testing.T) {
	steps := Steps(QueryType("cohort"))
	if len(steps) != 5 {
		t.Fatalf("expected population script for unknown type, got %d steps", len(steps))
	}
	if steps[0].Name != "NLP Query Processing" {
		t.Errorf("expected NLP Query Processing first, got %q", steps[0].Name)
	}

	if len(Steps("")) != 5 {
		t.Error("expected population script for empty type")
	}
}

func TestSteps_Deterministic(t *testing.T) {
	for _, qt := range []QueryType{QueryIndividual, QueryPopulation} {
		a := Steps(qt)
		b := Steps(qt)
		if len(a) != len(b) {
			t.Fatalf("%s: length changed between calls", qt)
		}
		for i := range a {
			if a[i].Name != b[i].Name || a[i].Command != b[i].Command {
				t.Errorf("%s: step %d differs between calls", qt, i)
			}
		}
	}
}

func TestSteps_ReturnsCopy(t *testing.T) {
	steps := Steps(QueryIndividual)
	steps[0].Name = "mutated"
	steps[0].DataPoints[0] = "mutated"

	fresh := Steps(QueryIndividual)
	if fresh[0].Name != "Query Analysis" {
		t.Errorf("expected script to be unaffected by caller mutation, got %q", fresh[0].Name)
	}
	if fresh[0].DataPoints[0] != "Patient demographics" {
		t.Errorf("expected data points unaffected, got %q", fresh[0].DataPoints[0])
	}
}

func TestSteps_AllPopulated(t *testing.T) {
	for _, qt := range []QueryType{QueryIndividual, QueryPopulation} {
		for i, s := range Steps(qt) {
			if s.Description == "" {
				t.Errorf("%s step %d has empty description", qt, i)
			}
			if len(s.DataPoints) == 0 {
				t.Errorf("%s step %d has no data points", qt, i)
			}
			if s.Command == "" {
				t.Errorf("%s step %d has empty command", qt, i)
			}
		}
	}
}

func TestSteps_PopulationSQLMentionsDiagnosisCodes(t *testing.T) {
	sql := Steps(QueryPopulation)[1].Command
	for _, code := range []string{"E11.9", "E11.40", "E11.51"} {
		if !strings.Contains(sql, code) {
			t.Errorf("expected cohort SQL to contain %s", code)
		}
	}
}

func TestSamples(t *testing.T) {
	if got := len(Samples(QueryIndividual)); got != 4 {
		t.Errorf("expected 4 individual samples, got %d", got)
	}
	if got := len(Samples(QueryPopulation)); got != 6 {
		t.Errorf("expected 6 population samples, got %d", got)
	}
	for _, s := range Samples(QueryPopulation) {
		if s == PlaceholderOption {
			t.Error("placeholder must not be a sample")
		}
	}
}
