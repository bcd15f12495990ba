package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	exec := NewExecutor(Policy{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errFlaky := errors.New("connection reset")
	err := exec.Execute(context.Background(), "publish", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errFlaky
		}
		return nil
	}, func(err error) Outcome {
		return Outcome{Retryable: errors.Is(err, errFlaky), RecordFailure: true}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestExecuteSingleAttemptForNonRetryable(t *testing.T) {
	exec := NewExecutor(Policy{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		BreakerEnabled:      false,
	})

	attempts := 0
	errBadRequest := errors.New("400 bad request")
	err := exec.Execute(context.Background(), "submit", func(context.Context) error {
		attempts++
		return errBadRequest
	}, func(error) Outcome {
		return Outcome{Retryable: false, RecordFailure: false}
	})
	if !errors.Is(err, errBadRequest) {
		t.Fatalf("err = %v, want bad request", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestExecuteOpensBreakerAfterFailureRatio(t *testing.T) {
	exec := NewExecutor(Policy{
		RetryMaxAttempts:        1,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errRemote := errors.New("503 service unavailable")
	classify := func(error) Outcome {
		return Outcome{Retryable: false, RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "status", func(context.Context) error {
			return errRemote
		}, classify)
		if !errors.Is(err, errRemote) {
			t.Fatalf("iteration %d: err = %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "status", func(context.Context) error {
		t.Fatal("open circuit must not call the operation")
		return nil
	}, classify)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want open state", err)
	}
	if !IsCircuitOpen(err) {
		t.Error("IsCircuitOpen = false for open breaker")
	}
}

func TestExecuteSeparateBreakersPerOperation(t *testing.T) {
	exec := NewExecutor(Policy{
		RetryMaxAttempts:        1,
		BreakerEnabled:          true,
		BreakerMinRequests:      1,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	})

	classify := func(error) Outcome { return Outcome{RecordFailure: true} }
	errRemote := errors.New("boom")
	_ = exec.Execute(context.Background(), "submit", func(context.Context) error { return errRemote }, classify)

	err := exec.Execute(context.Background(), "status", func(context.Context) error { return nil }, classify)
	if err != nil {
		t.Fatalf("status breaker tripped by submit failures: %v", err)
	}
}
