// Package sagas runs multi-write operations whose completed steps are undone
// when a later step fails.
package sagas

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step is one write in a saga. Compensate may be nil for steps with nothing to undo.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
	MaxRetries int
	RetryDelay time.Duration
}

// State of a saga run
type State string

const (
	StatePending      State = "PENDING"
	StateRunning      State = "RUNNING"
	StateCompleted    State = "COMPLETED"
	StateCompensating State = "COMPENSATING"
	StateCompensated  State = "COMPENSATED"
	StateFailed       State = "FAILED"
)

// Saga executes its steps in order and compensates the completed ones in
// reverse order on failure. A Saga is single use.
type Saga struct {
	name   string
	steps  []Step
	state  State
	logger *zap.Logger
}

// New creates an empty saga
func New(name string, logger *zap.Logger) *Saga {
	return &Saga{name: name, state: StatePending, logger: logger}
}

// Step appends a step without compensation
func (s *Saga) Step(name string, execute func(context.Context) error) *Saga {
	return s.Add(Step{Name: name, Execute: execute})
}

// Compensable appends a step that is undone if a later step fails
func (s *Saga) Compensable(name string, execute, compensate func(context.Context) error) *Saga {
	return s.Add(Step{Name: name, Execute: execute, Compensate: compensate})
}

// Add appends a fully specified step
func (s *Saga) Add(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// State reports where the saga stands
func (s *Saga) State() State {
	return s.state
}

// Execute runs the saga. The returned error wraps the failing step's error;
// compensation failures are logged and leave the saga in StateFailed.
func (s *Saga) Execute(ctx context.Context) error {
	s.state = StateRunning

	for i, step := range s.steps {
		if err := s.run(ctx, step); err != nil {
			s.logger.Warn("Saga step failed",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err))

			if s.compensate(ctx, i) {
				s.state = StateCompensated
			} else {
				s.state = StateFailed
			}
			return fmt.Errorf("%s: step %s: %w", s.name, step.Name, err)
		}
	}

	s.state = StateCompleted
	s.logger.Debug("Saga completed",
		zap.String("saga", s.name),
		zap.Int("steps", len(s.steps)))
	return nil
}

func (s *Saga) run(ctx context.Context, step Step) error {
	attempts := step.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	delay := step.RetryDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err = step.Execute(ctx); err == nil {
			return nil
		}
	}
	if attempts > 1 {
		return fmt.Errorf("after %d attempts: %w", attempts, err)
	}
	return err
}

// compensate undoes steps [0, failed) in reverse order and reports whether
// every compensation succeeded.
func (s *Saga) compensate(ctx context.Context, failed int) bool {
	s.state = StateCompensating
	clean := true

	for i := failed - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			clean = false
			s.logger.Error("Saga compensation failed",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err))
		}
	}
	return clean
}
