// Package pipeline runs an ordered list of items one at a time, publishing a
// progress update and pausing for a fixed delay before each item is handed to
// the caller. The delay and the way it is waited out are both pluggable so
// tests can run a full sequence without touching the wall clock.
package pipeline

import (
	"context"
	"fmt"
	"time"
)

// Progress describes the item about to complete.
type Progress struct {
	Index    int     `json:"index"`
	Total    int     `json:"total"`
	Name     string  `json:"name"`
	Fraction float64 `json:"fraction"`
}

// ProgressFunc receives one update per item, before the pause.
type ProgressFunc func(Progress)

// Sleeper waits out a delay. Implementations should return ctx.Err() if the
// context ends first.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// WallClock sleeps on a real timer.
var WallClock Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
})

// Sequencer holds the per-item delay and the sleeper used to wait it out.
type Sequencer struct {
	delay   time.Duration
	sleeper Sleeper
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s Sleeper) Option {
	return func(seq *Sequencer) {
		if s != nil {
			seq.sleeper = s
		}
	}
}

// New creates a Sequencer that pauses delay before each item.
func New(delay time.Duration, opts ...Option) *Sequencer {
	if delay < 0 {
		delay = 0
	}
	s := &Sequencer{delay: delay, sleeper: WallClock}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Delay returns the configured per-item pause.
func (s *Sequencer) Delay() time.Duration {
	return s.delay
}

// Elapsed is the total blocking time for a run of n items.
func (s *Sequencer) Elapsed(n int) time.Duration {
	return time.Duration(n) * s.delay
}

// Pause waits out d with the configured sleeper. It is used for one-off
// simulated waits outside of a sequence.
func (s *Sequencer) Pause(ctx context.Context, d time.Duration) error {
	return s.sleeper.Sleep(ctx, d)
}

// Run walks items in order. For each item it publishes progress (when
// progress is non-nil), pauses for the sequencer delay and then calls each.
// No item is skipped or reordered; the first failure stops the run.
func Run[T any](ctx context.Context, s *Sequencer, items []T, name func(T) string, progress ProgressFunc, each func(int, T) error) error {
	total := len(items)
	for i, item := range items {
		if progress != nil {
			p := Progress{
				Index:    i,
				Total:    total,
				Fraction: float64(i+1) / float64(total),
			}
			if name != nil {
				p.Name = name(item)
			}
			progress(p)
		}

		if err := s.sleeper.Sleep(ctx, s.delay); err != nil {
			return fmt.Errorf("pipeline: pause before item %d: %w", i, err)
		}

		if each != nil {
			if err := each(i, item); err != nil {
				return fmt.Errorf("pipeline: item %d: %w", i, err)
			}
		}
	}
	return nil
}
