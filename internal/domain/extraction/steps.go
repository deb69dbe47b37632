package extraction

const individualPatientID = "PT-789456"

var individualSteps = []ProcessStep{
	{
		Name:        "Query Analysis",
		Description: "LLM parsing clinical data requirements",
		DataPoints:  []string{"Patient demographics", "Medical history", "Current symptoms", "Lab values", "Medications"},
		Command:     "SELECT * FROM patients p JOIN medical_history mh ON p.id = mh.patient_id WHERE p.patient_id = '" + individualPatientID + "'",
	},
	{
		Name:        "Schema Mapping",
		Description: "Mapping clinical concepts to database tables",
		DataPoints:  []string{"EHR_PATIENTS table", "LAB_RESULTS table", "MEDICATIONS table", "ENCOUNTERS table"},
		Command:     "JOIN lab_results lr ON p.id = lr.patient_id AND lr.test_date >= DATE_SUB(NOW(), INTERVAL 90 DAY)",
	},
	{
		Name:        "Patient Demographics Query",
		Description: "extract_patient_demographics(patient_id)",
		DataPoints:  []string{"Name, Age, Gender", "Insurance Info", "Emergency Contacts", "Primary Care Physician"},
		Command:     "SELECT name, age, gender, insurance_id FROM patients WHERE patient_id = '" + individualPatientID + "'",
	},
	{
		Name:        "Medical History Extraction",
		Description: "extract_medical_history(patient_id, years=5)",
		DataPoints:  []string{"Chronic Conditions", "Previous Surgeries", "Allergies", "Family History"},
		Command:     "SELECT diagnosis_code, diagnosis_date, severity FROM medical_history WHERE patient_id = '" + individualPatientID + "'",
	},
	{
		Name:        "Lab Results Mining",
		Description: "extract_lab_results(patient_id, recent=true)",
		DataPoints:  []string{"CBC", "Comprehensive Metabolic Panel", "HbA1c", "Lipid Panel"},
		Command:     "SELECT test_name, result_value, reference_range, test_date FROM lab_results WHERE patient_id = '" + individualPatientID + "' ORDER BY test_date DESC",
	},
	{
		Name:        "Data Synthesis & Analysis",
		Description: "LLM processing extracted data for clinical insights",
		DataPoints:  []string{"Trend Analysis", "Risk Stratification", "Care Gaps", "Clinical Correlations"},
		Command:     "Complex aggregation queries across multiple tables for trend analysis",
	},
}

const populationCohortSQL = `SELECT DISTINCT p.patient_id, p.name, p.age, p.gender,
       lr.result_value as hba1c, lr.test_date
FROM patients p
JOIN medical_history mh ON p.id = mh.patient_id
JOIN lab_results lr ON p.id = lr.patient_id
WHERE mh.diagnosis_code IN ('E11.9', 'E11.40', 'E11.51') -- Type 2 Diabetes codes
  AND lr.test_name = 'HbA1c'
  AND lr.result_value > 8.0
  AND lr.test_date >= DATE_SUB(NOW(), INTERVAL 6 MONTH)
  AND p.active_status = 1`

var populationSteps = []ProcessStep{
	{
		Name:        "NLP Query Processing",
		Description: "LLM interpreting population health criteria",
		DataPoints:  []string{"Medical conditions", "Lab value ranges", "Time constraints", "Demographics", "Risk factors"},
		Command:     `Parsed criteria: "diabetic patients", "HbA1c > 8%", "last 6 months"`,
	},
	{
		Name:        "Population SQL Generation",
		Description: "generate_population_query(criteria)",
		DataPoints:  []string{"Patient cohort identification", "Clinical criteria mapping", "Date range filtering", "Exclusion criteria"},
		Command:     populationCohortSQL,
	},
	{
		Name:        "Patient Cohort Retrieval",
		Description: "execute_population_query(sql)",
		DataPoints:  []string{"Cohort size: 342 patients", "Geographic distribution", "Age demographics", "Severity stratification"},
		Command:     "Query executed across 125,000+ patient records in 2.1 seconds",
	},
	{
		Name:        "Statistical Analysis",
		Description: "calculate_population_metrics(cohort)",
		DataPoints:  []string{"Mean HbA1c", "Standard deviation", "Risk stratification", "Comorbidity analysis"},
		Command:     "SELECT AVG(result_value), STDDEV(result_value), COUNT(*) FROM cohort_results GROUP BY risk_level",
	},
	{
		Name:        "CareHealth Integration",
		Description: "format_for_carehealth_export(patient_list)",
		DataPoints:  []string{"Patient identifiers", "Clinical priorities", "Contact information", "Care team assignments"},
		Command:     "SELECT patient_id, name, phone, primary_care_provider, priority_score FROM cohort_final",
	},
}

// Steps returns the scripted pipeline for a query type. Anything other than
// QueryIndividual gets the population-health script. The returned slice is a
// fresh copy; callers may append to or reorder it freely.
func Steps(qt QueryType) []ProcessStep {
	src := populationSteps
	if qt == QueryIndividual {
		src = individualSteps
	}
	out := make([]ProcessStep, len(src))
	for i, s := range src {
		s.DataPoints = append([]string(nil), s.DataPoints...)
		out[i] = s
	}
	return out
}

// MaxSteps is the length of the longest step script.
func MaxSteps() int {
	return max(len(individualSteps), len(populationSteps))
}
