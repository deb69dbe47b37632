package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicaldash/internal/domain/extraction"
	"github.com/ehr/clinicaldash/internal/platform/analytics"
	"github.com/ehr/clinicaldash/internal/platform/pipeline"
	"github.com/ehr/clinicaldash/internal/platform/websocket"
)

var (
	ErrEmptyQuery       = errors.New("empty query")
	ErrProcessing       = errors.New("a query is already processing for this session")
	ErrInvalidQueryType = errors.New("invalid query type")
	ErrNothingToExport  = errors.New("no population result ready for export")
)

// EmptyQueryWarning is shown when a submission carries no query text.
const EmptyQueryWarning = "Please enter a query or select a sample query"

// ExportDestination is the care-management system lists are pushed to.
const ExportDestination = "CareHealth"

const (
	// runLockGrace is added to the scripted run time when locking a session,
	// so the lock outlives a slow store but still lapses after a crash.
	runLockGrace = time.Minute
	// shortLockTTL covers a clear or a stale-run check.
	shortLockTTL = 10 * time.Second
)

// RunRecorder receives one metric per completed run.
type RunRecorder interface {
	RecordRun(m analytics.RunMetric)
}

type Service struct {
	store       Store
	seq         *pipeline.Sequencer
	events      websocket.EventPublisher
	runs        RunRecorder
	logger      zerolog.Logger
	exportDelay time.Duration
	now         func() time.Time
	newToken    func() string
}

// NewService wires the submission flow. events and runs may be nil.
func NewService(store Store, seq *pipeline.Sequencer, events websocket.EventPublisher, runs RunRecorder, logger zerolog.Logger, exportDelay time.Duration) *Service {
	if exportDelay < 0 {
		exportDelay = 0
	}
	return &Service{
		store:       store,
		seq:         seq,
		events:      events,
		runs:        runs,
		logger:      logger,
		exportDelay: exportDelay,
		now:         time.Now,
		newToken:    uuid.NewString,
	}
}

// StepDelay is the pause applied before each step of a run.
func (s *Service) StepDelay() time.Duration {
	return s.seq.Delay()
}

// IsEmptyQuery reports whether text counts as no query at all: blank after
// trimming, or the unselected sample placeholder.
func IsEmptyQuery(text string) bool {
	t := strings.TrimSpace(text)
	return t == "" || t == extraction.PlaceholderOption
}

// State loads the session state, initialising it on first access. A state
// left processing by a run whose lock has lapsed is returned idle.
func (s *Service) State(ctx context.Context, sessionID string) (*State, error) {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Processing {
		s.recoverStale(ctx, state)
	}
	return state, nil
}

func (s *Service) load(ctx context.Context, sessionID string) (*State, error) {
	state, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		state = New(sessionID)
		state.UpdatedAt = s.now()
		if err := s.store.Save(ctx, state); err != nil {
			return nil, fmt.Errorf("init session: %w", err)
		}
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return state, nil
}

// Submit runs the scripted pipeline for qt and stores the fixture result. It
// blocks for one step delay per step. The run is detached from ctx
// cancellation: once started it always completes.
func (s *Service) Submit(ctx context.Context, sessionID string, qt extraction.QueryType, text string) (*State, error) {
	if !qt.Valid() {
		return nil, ErrInvalidQueryType
	}
	if IsEmptyQuery(text) {
		return nil, ErrEmptyQuery
	}
	ctx = context.WithoutCancel(ctx)
	log := s.logger.With().Str("session_id", sessionID).Str("query_type", string(qt)).Logger()

	steps := extraction.Steps(qt)
	unlock, err := s.lock(ctx, sessionID, s.seq.Elapsed(len(steps))+runLockGrace)
	if err != nil {
		return nil, err
	}
	defer unlock()

	state, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	started := s.now()
	state.Processing = true
	state.Reset()
	state.QueryType = qt
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	log.Info().Int("query_len", len(strings.TrimSpace(text))).Msg("run started")

	err = pipeline.Run(ctx, s.seq, steps,
		func(step extraction.ProcessStep) string { return step.Name },
		func(p pipeline.Progress) { s.publish(ctx, websocket.EventStepProgress, sessionID, p) },
		func(_ int, step extraction.ProcessStep) error {
			state.Steps = append(state.Steps, step)
			return s.save(ctx, state)
		},
	)
	if err != nil {
		state.Processing = false
		if saveErr := s.save(ctx, state); saveErr != nil {
			log.Error().Err(saveErr).Msg("could not clear processing flag")
		}
		log.Error().Err(err).Msg("run failed")
		return nil, fmt.Errorf("run %s query: %w", qt, err)
	}

	result := extraction.Generate(qt, s.now())
	state.Result = &result
	state.Processing = false
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}

	elapsed := s.now().Sub(started)
	if s.runs != nil {
		s.runs.RecordRun(analytics.RunMetric{
			Timestamp: started,
			SessionID: sessionID,
			QueryType: string(qt),
			Steps:     len(state.Steps),
			Duration:  elapsed,
		})
	}
	s.publish(ctx, websocket.EventRunCompleted, sessionID, map[string]interface{}{
		"query_type": qt,
		"steps":      len(state.Steps),
	})
	log.Info().Int("steps", len(state.Steps)).Dur("elapsed", elapsed).Msg("run completed")

	return state, nil
}

// Clear drops the result and step trace, whatever the last query type was.
// It fails with ErrProcessing while a run holds the session.
func (s *Service) Clear(ctx context.Context, sessionID string) (*State, error) {
	unlock, err := s.lock(ctx, sessionID, shortLockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	state, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state.Reset()
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	s.publish(ctx, websocket.EventRunCleared, sessionID, nil)
	return state, nil
}

// Export pushes the ready population list to CareHealth. The push is
// simulated: it waits out the export delay and always succeeds.
func (s *Service) Export(ctx context.Context, sessionID string) (*ExportReceipt, error) {
	state, err := s.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Result == nil || state.Result.Population == nil || !state.Result.Population.Export.Ready {
		return nil, ErrNothingToExport
	}
	export := state.Result.Population.Export

	if err := s.seq.Pause(context.WithoutCancel(ctx), s.exportDelay); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Str("list_name", export.ListName).
		Int("patient_count", export.PatientCount).
		Msg("population list exported")

	return &ExportReceipt{
		Success:      true,
		Message:      fmt.Sprintf("Successfully exported %d patients to %s!", export.PatientCount, ExportDestination),
		ListName:     export.ListName,
		PatientCount: export.PatientCount,
		Destination:  ExportDestination,
		ExportedAt:   s.now(),
	}, nil
}

func (s *Service) save(ctx context.Context, state *State) error {
	state.UpdatedAt = s.now()
	if err := s.store.Save(ctx, state); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, eventType, sessionID string, data interface{}) {
	if s.events == nil {
		return
	}
	evt, err := websocket.NewSessionEvent(eventType, sessionID, data)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("could not build event")
		return
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("could not publish event")
	}
}

// lock takes the session's run lock in the store. The returned func releases
// it; a held lock yields ErrProcessing.
func (s *Service) lock(ctx context.Context, sessionID string, ttl time.Duration) (func(), error) {
	token := s.newToken()
	ok, err := s.store.Acquire(ctx, sessionID, token, ttl)
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	if !ok {
		return nil, ErrProcessing
	}
	return func() {
		if err := s.store.Release(context.WithoutCancel(ctx), sessionID, token); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("could not release session lock")
		}
	}, nil
}

// recoverStale clears the processing flag when no run holds the lock, which
// means the instance running it died mid-run. The state is reloaded under the
// lock since a run may have finished since it was read.
func (s *Service) recoverStale(ctx context.Context, state *State) {
	unlock, err := s.lock(ctx, state.ID, shortLockTTL)
	if errors.Is(err, ErrProcessing) {
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", state.ID).Msg("stale run check failed")
		return
	}
	defer unlock()

	current, err := s.load(ctx, state.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", state.ID).Msg("stale run check failed")
		return
	}
	if current.Processing {
		current.Processing = false
		if err := s.save(ctx, current); err != nil {
			s.logger.Warn().Err(err).Str("session_id", state.ID).Msg("could not clear stale processing flag")
			return
		}
		s.logger.Warn().Str("session_id", state.ID).Msg("cleared processing flag of an abandoned run")
	}
	*state = *current
}
