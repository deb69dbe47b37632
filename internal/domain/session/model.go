package session

import (
	"time"

	"github.com/ehr/clinicaldash/internal/domain/extraction"
)

// State is the per-session dashboard state. It lives only as long as the
// session does.
type State struct {
	ID         string                   `json:"id"`
	Processing bool                     `json:"processing"`
	Result     *extraction.Result       `json:"result,omitempty"`
	Steps      []extraction.ProcessStep `json:"process_steps"`
	QueryType  extraction.QueryType     `json:"query_type,omitempty"`
	UpdatedAt  time.Time                `json:"updated_at"`
}

// New returns the initial state: idle, no result, no steps, no query type.
func New(id string) *State {
	return &State{ID: id, Steps: []extraction.ProcessStep{}}
}

// Reset drops the result and the step trace. The query type and the
// processing flag are left alone.
func (s *State) Reset() {
	s.Result = nil
	s.Steps = []extraction.ProcessStep{}
}

// HasResult reports whether a completed run is available.
func (s *State) HasResult() bool {
	return s.Result != nil
}

// ExportReceipt is returned after a population list has been pushed to the
// care-management destination.
type ExportReceipt struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	ListName     string    `json:"list_name"`
	PatientCount int       `json:"patient_count"`
	Destination  string    `json:"destination"`
	ExportedAt   time.Time `json:"exported_at"`
}
