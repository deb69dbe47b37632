package extraction

// PlaceholderOption is the first entry of every sample selector. Submitting
// it verbatim counts as an empty query.
const PlaceholderOption = "Select a sample query..."

var individualSamples = []string{
	"Extract complete clinical profile for diabetic patient Maria Rodriguez",
	"Pull all lab results and medication history for patient PT-789456",
	"Get comprehensive cardiac risk assessment data for 45-year-old female",
	"Retrieve 5-year medical history with focus on chronic disease management",
}

var populationSamples = []string{
	"Find all diabetic patients with HbA1c > 8% in the last 6 months",
	"Identify hypertensive patients not on ACE inhibitors or ARBs",
	"List pediatric patients due for immunizations in next 30 days",
	"Find all patients with cardiovascular risk factors over age 50",
	"Locate patients with chronic kidney disease and diabetes",
	"Identify women over 40 who haven't had mammograms in 2 years",
}

// Samples returns the preset queries offered for qt.
func Samples(qt QueryType) []string {
	if qt == QueryIndividual {
		return append([]string(nil), individualSamples...)
	}
	return append([]string(nil), populationSamples...)
}
