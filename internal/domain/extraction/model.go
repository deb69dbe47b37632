package extraction

import (
	"strings"
	"time"
)

// QueryType selects which simulated pipeline and fixture a submission uses.
type QueryType string

const (
	QueryIndividual QueryType = "individual"
	QueryPopulation QueryType = "population"
)

var queryTypeLabels = map[QueryType]string{
	QueryIndividual: "Individual Patient",
	QueryPopulation: "Population Health",
}

// Label returns the display name shown in the dashboard, or "N/A" for the
// zero value.
func (q QueryType) Label() string {
	if l, ok := queryTypeLabels[q]; ok {
		return l
	}
	return "N/A"
}

// Valid reports whether q is one of the two known query types.
func (q QueryType) Valid() bool {
	_, ok := queryTypeLabels[q]
	return ok
}

// ParseQueryType accepts either the tag ("individual") or the display label
// ("Individual Patient"), case-insensitively.
func ParseQueryType(s string) (QueryType, bool) {
	s = strings.TrimSpace(s)
	for qt, label := range queryTypeLabels {
		if strings.EqualFold(s, string(qt)) || strings.EqualFold(s, label) {
			return qt, true
		}
	}
	return "", false
}

// Severity tags clinical flags and care opportunities.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// ProcessStep is one named stage of the simulated multi-agent pipeline.
type ProcessStep struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	DataPoints  []string `json:"data_points"`
	Command     string   `json:"sql"`
}

// Result is the tagged output of a completed run. Exactly one of Individual
// or Population is set and it matches Type.
type Result struct {
	Type       QueryType         `json:"type"`
	Individual *IndividualResult `json:"individual,omitempty"`
	Population *PopulationResult `json:"population,omitempty"`
}

// -- Individual patient --

// PatientInfo identifies the extracted patient.
type PatientInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Age        int       `json:"age"`
	Gender     string    `json:"gender"`
	LastUpdate time.Time `json:"last_update"`
}

// ClinicalFlag is an alert raised during extraction. Confidence is 0..100.
type ClinicalFlag struct {
	Severity   Severity `json:"type"`
	Message    string   `json:"message"`
	Confidence int      `json:"confidence"`
}

// Field is a single label/value pair inside a data category.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DataCategory groups extracted fields. Category and field order is the
// display order.
type DataCategory struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// DataQuality holds the four quality scores, in percent.
type DataQuality struct {
	Completeness int `json:"completeness"`
	Accuracy     int `json:"accuracy"`
	Timeliness   int `json:"timeliness"`
	Consistency  int `json:"consistency"`
}

// IndividualResult is the fixture for an individual patient run.
type IndividualResult struct {
	Patient    PatientInfo    `json:"patient_info"`
	Flags      []ClinicalFlag `json:"clinical_flags"`
	Categories []DataCategory `json:"data_categories"`
	Quality    DataQuality    `json:"data_quality"`
}

// -- Population health --

// CohortInfo describes the matched population and the query that found it.
type CohortInfo struct {
	Name          string    `json:"name"`
	TotalPatients int       `json:"total_patients"`
	QueryExecuted time.Time `json:"query_executed"`
	Criteria      string    `json:"criteria"`
}

type GenderDistribution struct {
	Male   float64 `json:"male"`
	Female float64 `json:"female"`
}

// RiskDistribution counts cohort patients per risk bucket.
type RiskDistribution struct {
	High     int `json:"high"`
	Moderate int `json:"moderate"`
	Low      int `json:"low"`
}

// Total is the sum of all risk buckets.
func (r RiskDistribution) Total() int {
	return r.High + r.Moderate + r.Low
}

// PopulationMetrics are the cohort-level aggregates shown as tiles.
type PopulationMetrics struct {
	AverageAge   float64            `json:"average_age"`
	Gender       GenderDistribution `json:"gender_distribution"`
	AverageHbA1c float64            `json:"average_hba1c"`
	Risk         RiskDistribution   `json:"risk_distribution"`
}

// PatientSummary is one row of the cohort patient table.
type PatientSummary struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Age       int     `json:"age"`
	HbA1c     float64 `json:"hba1c"`
	LastVisit string  `json:"last_visit"`
	Priority  string  `json:"priority"`
	Provider  string  `json:"provider"`
}

// CareOpportunity is an intervention suggested for part of the cohort.
type CareOpportunity struct {
	Severity     Severity `json:"type"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	PatientCount int      `json:"patient_count"`
	CostSavings  string   `json:"cost_savings"`
}

// RegionShare is a region's slice of the cohort.
type RegionShare struct {
	Region     string  `json:"region"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ExportReadiness describes the list prepared for CareHealth.
type ExportReadiness struct {
	Ready             bool   `json:"ready"`
	ListName          string `json:"list_name"`
	PatientCount      int    `json:"patient_count"`
	Format            string `json:"export_format"`
	EstimatedSyncTime string `json:"estimated_sync_time"`
}

// PopulationResult is the fixture for a population health run.
type PopulationResult struct {
	Cohort        CohortInfo        `json:"cohort_info"`
	Metrics       PopulationMetrics `json:"population_metrics"`
	Patients      []PatientSummary  `json:"patient_list"`
	Opportunities []CareOpportunity `json:"care_opportunities"`
	Regions       []RegionShare     `json:"geographic_distribution"`
	Export        ExportReadiness   `json:"carehealth_export"`
}
