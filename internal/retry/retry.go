// Package retry provides bounded exponential backoff for connection attempts.
//
// A [Policy] describes the schedule; a [State] tracks the attempts made under
// it; [Do] drives an operation through the schedule. Retries stop when the
// policy is exhausted, the caller's context ends, or the operation returns an
// error that declares itself non-retryable.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Iron-Ham/agentboard/internal/errors"
)

// Policy is a bounded exponential backoff schedule.
type Policy struct {
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
	MaxAttempts  int           `json:"max_attempts"`
}

// DefaultPolicy returns the schedule used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
		MaxAttempts:  5,
	}
}

// Validate reports whether the policy is usable.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.NewValidationError("max attempts must be at least 1").
			WithField("max_attempts").WithValue(p.MaxAttempts)
	}
	if p.InitialDelay < 0 {
		return errors.NewValidationError("initial delay must not be negative").
			WithField("initial_delay").WithValue(p.InitialDelay)
	}
	if p.MaxDelay < p.InitialDelay {
		return errors.NewValidationError("max delay must be at least the initial delay").
			WithField("max_delay").WithValue(p.MaxDelay)
	}
	if p.Multiplier < 1 {
		return errors.NewValidationError("multiplier must be at least 1").
			WithField("multiplier").WithValue(p.Multiplier)
	}
	return nil
}

// Delay returns how long to wait after the given failed attempt (1-based)
// before making the next one.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if d > float64(p.MaxDelay) || math.IsInf(d, 0) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// State tracks attempts made under a policy.
type State struct {
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
	LastError   string `json:"last_error,omitempty"`
	Succeeded   bool   `json:"succeeded,omitempty"`
}

// NewState returns a fresh State for p.
func (p Policy) NewState() *State {
	return &State{MaxAttempts: p.MaxAttempts}
}

// ShouldRetry reports whether another attempt is allowed.
func (s *State) ShouldRetry() bool {
	return !s.Succeeded && s.Attempts < s.MaxAttempts
}

// RecordAttempt records the outcome of one attempt. A nil err marks success.
func (s *State) RecordAttempt(err error) {
	s.Attempts++
	if err == nil {
		s.Succeeded = true
		s.LastError = ""
		return
	}
	s.LastError = err.Error()
}

// Exhausted reports whether every allowed attempt failed.
func (s *State) Exhausted() bool {
	return !s.Succeeded && s.Attempts >= s.MaxAttempts
}

// Do calls op until it succeeds or the policy gives up. attempt is 1-based.
// It returns the State describing what happened together with the last error.
// When the schedule runs out the error wraps errors.ErrRetriesExhausted.
func Do(ctx context.Context, p Policy, op func(ctx context.Context, attempt int) error) (*State, error) {
	state := p.NewState()
	for state.ShouldRetry() {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		err := op(ctx, state.Attempts+1)
		state.RecordAttempt(err)
		if err == nil {
			return state, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return state, fmt.Errorf("%w: %w", ctxErr, err)
		}
		if permanent(err) {
			return state, err
		}
		if !state.ShouldRetry() {
			return state, fmt.Errorf("%w: %w", errors.ErrRetriesExhausted, err)
		}

		timer := time.NewTimer(p.Delay(state.Attempts))
		select {
		case <-ctx.Done():
			timer.Stop()
			return state, ctx.Err()
		case <-timer.C:
		}
	}
	return state, errors.ErrRetriesExhausted
}

// permanent reports whether err explicitly opts out of retrying. Timeouts
// inside an attempt, such as a dial deadline, are not permanent; only the
// caller's context ends the schedule early.
func permanent(err error) bool {
	var abErr errors.AgentboardError
	if errors.As(err, &abErr) {
		return !abErr.IsRetryable()
	}
	return false
}
