package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Iron-Ham/agentboard/internal/errors"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
		MaxAttempts:  attempts,
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2, MaxAttempts: 10}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{60, time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"default", DefaultPolicy(), false},
		{"zero attempts", Policy{MaxAttempts: 0, Multiplier: 1}, true},
		{"negative initial", Policy{MaxAttempts: 1, InitialDelay: -1, Multiplier: 1}, true},
		{"max below initial", Policy{MaxAttempts: 1, InitialDelay: time.Second, MaxDelay: time.Millisecond, Multiplier: 1}, true},
		{"shrinking multiplier", Policy{MaxAttempts: 1, Multiplier: 0.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			var validationErr *errors.ValidationError
			if err != nil && !errors.As(err, &validationErr) {
				t.Errorf("expected ValidationError, got %T: %v", err, err)
			}
		})
	}
}

func TestState(t *testing.T) {
	s := fastPolicy(2).NewState()
	if !s.ShouldRetry() {
		t.Fatal("fresh state should allow an attempt")
	}

	s.RecordAttempt(errors.New("refused"))
	if s.LastError != "refused" || !s.ShouldRetry() {
		t.Errorf("after one failure: %+v", s)
	}

	s.RecordAttempt(errors.New("refused again"))
	if s.ShouldRetry() || !s.Exhausted() {
		t.Errorf("after two failures: %+v", s)
	}

	ok := fastPolicy(3).NewState()
	ok.RecordAttempt(nil)
	if ok.ShouldRetry() || ok.Exhausted() || !ok.Succeeded {
		t.Errorf("after success: %+v", ok)
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	var seen []int
	state, err := Do(context.Background(), fastPolicy(5), func(ctx context.Context, attempt int) error {
		seen = append(seen, attempt)
		if attempt < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if state.Attempts != 3 || !state.Succeeded {
		t.Errorf("state = %+v", state)
	}
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Errorf("attempts seen = %v", seen)
	}
}

func TestDo_Exhausted(t *testing.T) {
	cause := errors.New("connection refused")
	state, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context, attempt int) error {
		return cause
	})
	if !errors.Is(err, errors.ErrRetriesExhausted) {
		t.Errorf("expected ErrRetriesExhausted, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be wrapped, got %v", err)
	}
	if state.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", state.Attempts)
	}
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	perm := errors.NewConnectionError("handshake rejected", errors.ErrHandshakeFailed).WithRetryable(false)
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), func(ctx context.Context, attempt int) error {
		calls++
		return perm
	})
	if calls != 1 {
		t.Errorf("expected one call, got %d", calls)
	}
	if errors.Is(err, errors.ErrRetriesExhausted) {
		t.Error("permanent failure should not report exhaustion")
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1, MaxAttempts: 3}

	calls := 0
	_, err := Do(ctx, p, func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected one call, got %d", calls)
	}
}

func TestDo_RetriesAttemptTimeouts(t *testing.T) {
	calls := 0
	state, err := Do(context.Background(), fastPolicy(4), func(ctx context.Context, attempt int) error {
		calls++
		return fmt.Errorf("dial tcp 127.0.0.1:1: %w", context.DeadlineExceeded)
	})
	if calls != 4 || state.Attempts != 4 {
		t.Errorf("calls = %d, Attempts = %d, want 4", calls, state.Attempts)
	}
	if !errors.Is(err, errors.ErrRetriesExhausted) {
		t.Errorf("expected ErrRetriesExhausted, got %v", err)
	}
}

func TestDo_CallerDeadlineStopsRetries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	calls := 0
	_, err := Do(ctx, fastPolicy(5), func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return errors.New("refused")
	})
	if calls != 1 {
		t.Errorf("expected one call, got %d", calls)
	}
	if !errors.Is(err, context.Canceled) || errors.Is(err, errors.ErrRetriesExhausted) {
		t.Errorf("err = %v, want the caller's cancellation", err)
	}
}
