package extraction

import "time"

// Generate returns the fixture for qt with now embedded as its timestamp.
// Unknown query types get the population fixture.
func Generate(qt QueryType, now time.Time) Result {
	if qt == QueryIndividual {
		return Result{Type: QueryIndividual, Individual: Individual(now)}
	}
	return Result{Type: QueryPopulation, Population: Population(now)}
}

// Individual builds the sample patient profile.
func Individual(now time.Time) *IndividualResult {
	return &IndividualResult{
		Patient: PatientInfo{
			ID:         individualPatientID,
			Name:       "Maria Rodriguez",
			Age:        45,
			Gender:     "Female",
			LastUpdate: now,
		},
		Flags: []ClinicalFlag{
			{Severity: SeverityCritical, Message: "HbA1c above target - diabetes management needs optimization", Confidence: 95},
			{Severity: SeverityWarning, Message: "Blood pressure trending upward - medication adjustment may be needed", Confidence: 82},
			{Severity: SeverityInfo, Message: "Patient due for annual eye exam and foot screening", Confidence: 100},
		},
		Categories: []DataCategory{
			{Name: "Demographics & Insurance", Fields: []Field{
				{"Primary Insurance", "Blue Cross Blue Shield"},
				{"Emergency Contact", "Carlos Rodriguez (Spouse)"},
				{"Primary Care Provider", "Dr. Jennifer Smith, MD"},
				{"Preferred Language", "English"},
				{"Phone Number", "(555) 123-4567"},
				{"Address", "123 Main St, Springfield, IL 62701"},
			}},
			{Name: "Medical History", Fields: []Field{
				{"Active Diagnoses", "Type 2 Diabetes Mellitus, Hypertension"},
				{"Chronic Conditions", "Diabetes (8 years), HTN (5 years)"},
				{"Known Allergies", "Penicillin (rash), Shellfish (anaphylaxis)"},
				{"Surgical History", "Cholecystectomy (2019)"},
				{"Family History", "Diabetes (mother), CAD (father)"},
			}},
			{Name: "Laboratory Results", Fields: []Field{
				{"HbA1c", "8.2% (Target: <7.0%)"},
				{"Fasting Glucose", "165 mg/dL (High)"},
				{"Blood Pressure", "145/92 mmHg (Elevated)"},
				{"LDL Cholesterol", "145 mg/dL (Borderline High)"},
				{"Creatinine", "0.9 mg/dL (Normal)"},
				{"eGFR", ">60 mL/min/1.73m² (Normal)"},
			}},
			{Name: "Current Medications", Fields: []Field{
				{"Metformin", "500mg BID (Started 2017)"},
				{"Lisinopril", "10mg Daily (Started 2020)"},
				{"Atorvastatin", "20mg Daily (Started 2021)"},
				{"Aspirin", "81mg Daily (Cardioprotective)"},
				{"Multivitamin", "1 tablet daily"},
			}},
			{Name: "Vital Signs Trends", Fields: []Field{
				{"Weight", "178 lbs (↑5 lbs from 6 months ago)"},
				{"BMI", "29.2 (Overweight)"},
				{"Temperature", "98.6°F (Normal)"},
				{"Heart Rate", "78 bpm (Normal)"},
				{"Respiratory Rate", "16/min (Normal)"},
			}},
		},
		Quality: DataQuality{Completeness: 87, Accuracy: 94, Timeliness: 76, Consistency: 91},
	}
}

// Population builds the sample diabetic cohort. The risk distribution and the
// ten-row patient preview are authored separately; nothing ties one to the
// other.
func Population(now time.Time) *PopulationResult {
	return &PopulationResult{
		Cohort: CohortInfo{
			Name:          "Diabetic Patients with Elevated HbA1c",
			TotalPatients: 342,
			QueryExecuted: now,
			Criteria:      "Type 2 Diabetes + HbA1c > 8% in last 6 months",
		},
		Metrics: PopulationMetrics{
			AverageAge:   58.3,
			Gender:       GenderDistribution{Male: 45.3, Female: 54.7},
			AverageHbA1c: 9.1,
			Risk:         RiskDistribution{High: 89, Moderate: 164, Low: 89},
		},
		Patients: []PatientSummary{
			{ID: "PT-123456", Name: "Sarah Johnson", Age: 62, HbA1c: 9.8, LastVisit: "2025-07-15", Priority: "High", Provider: "Dr. Smith"},
			{ID: "PT-789012", Name: "Michael Chen", Age: 55, HbA1c: 8.9, LastVisit: "2025-08-01", Priority: "High", Provider: "Dr. Johnson"},
			{ID: "PT-345678", Name: "Linda Garcia", Age: 48, HbA1c: 8.4, LastVisit: "2025-07-28", Priority: "Moderate", Provider: "Dr. Williams"},
			{ID: "PT-901234", Name: "Robert Davis", Age: 67, HbA1c: 9.2, LastVisit: "2025-06-30", Priority: "High", Provider: "Dr. Brown"},
			{ID: "PT-567890", Name: "Jennifer Wilson", Age: 52, HbA1c: 8.7, LastVisit: "2025-08-05", Priority: "Moderate", Provider: "Dr. Taylor"},
			{ID: "PT-234567", Name: "David Kim", Age: 59, HbA1c: 9.5, LastVisit: "2025-07-20", Priority: "High", Provider: "Dr. Anderson"},
			{ID: "PT-876543", Name: "Maria Santos", Age: 44, HbA1c: 8.3, LastVisit: "2025-08-08", Priority: "Moderate", Provider: "Dr. Martinez"},
			{ID: "PT-135792", Name: "James Miller", Age: 63, HbA1c: 9.1, LastVisit: "2025-07-10", Priority: "High", Provider: "Dr. Thompson"},
			{ID: "PT-246810", Name: "Susan Lee", Age: 56, HbA1c: 8.6, LastVisit: "2025-07-25", Priority: "Moderate", Provider: "Dr. Garcia"},
			{ID: "PT-369258", Name: "John Anderson", Age: 49, HbA1c: 9.3, LastVisit: "2025-08-02", Priority: "High", Provider: "Dr. Wilson"},
		},
		Opportunities: []CareOpportunity{
			{
				Severity:     SeverityCritical,
				Title:        "89 High-Risk Patients Need Immediate Intervention",
				Description:  "HbA1c ≥ 9.0% requiring urgent medication adjustment or specialist referral",
				PatientCount: 89,
				CostSavings:  "$267,000/year",
			},
			{
				Severity:     SeverityWarning,
				Title:        "164 Patients Approaching High Risk",
				Description:  "HbA1c 8.0-8.9% - preventive intervention recommended",
				PatientCount: 164,
				CostSavings:  "$328,000/year",
			},
			{
				Severity:     SeverityInfo,
				Title:        "Population Health Program Opportunity",
				Description:  "Coordinated diabetes management could improve outcomes for entire cohort",
				PatientCount: 342,
				CostSavings:  "$1.2M/year",
			},
		},
		Regions: []RegionShare{
			{Region: "Downtown", Count: 89, Percentage: 26.0},
			{Region: "Suburbs", Count: 142, Percentage: 41.5},
			{Region: "East Side", Count: 67, Percentage: 19.6},
			{Region: "West Side", Count: 44, Percentage: 12.9},
		},
		Export: ExportReadiness{
			Ready:             true,
			ListName:          "Diabetes_HbA1c_High_Aug2025",
			PatientCount:      342,
			Format:            "CareHealth Patient List",
			EstimatedSyncTime: "3 minutes",
		},
	}
}
