package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	errFlaky := errors.New("flaky")

	tests := []struct {
		name      string
		failures  int
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{"succeeds first time", 0, 2, 1, false},
		{"succeeds on retry", 1, 2, 2, false},
		{"exhausts attempts", 5, 2, 2, true},
		{"zero attempts means one", 5, 0, 1, true},
	}

	for _, tt := range tests {
		calls, retries := 0, 0
		p := RetryPolicy{
			Attempts: tt.attempts,
			Delay:    time.Millisecond,
			OnRetry:  func(int, error) { retries++ },
		}
		err := Retry(context.Background(), p, func() error {
			calls++
			if calls <= tt.failures {
				return errFlaky
			}
			return nil
		})

		if calls != tt.wantCalls {
			t.Errorf("%s: calls = %d, want %d", tt.name, calls, tt.wantCalls)
		}
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if retries != tt.wantCalls-1 {
			t.Errorf("%s: retries = %d, want %d", tt.name, retries, tt.wantCalls-1)
		}
	}
}

func TestRetry_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, RetryPolicy{Attempts: 3, Delay: time.Hour}, func() error {
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRowGuard(t *testing.T) {
	g := NewRowGuard()

	var panicRow int
	g.OnPanic = func(row int, v any) { panicRow = row }

	if err := g.Do(1, func() error { return nil }); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := g.Do(2, func() error { return errors.New("bad") }); err == nil {
		t.Error("Expected error to be returned")
	}
	err := g.Do(3, func() error {
		var row []string
		_ = row[5]
		return nil
	})
	if !errors.Is(err, ErrPanic) {
		t.Errorf("Expected ErrPanic, got %v", err)
	}
	if panicRow != 3 {
		t.Errorf("Expected panic callback for row 3, got %d", panicRow)
	}

	stats := g.Stats()
	if stats.Processed != 1 || stats.Failed != 2 || stats.Panics != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}
