package util

import (
	"context"
	"fmt"
	"testing"
)

func TestRetryWithContext(t *testing.T) {
	t.Run("SucceedsOnSecondAttempt", func(t *testing.T) {
		calls := 0
		result, err := RetryWithContext(context.Background(), 3, func(_ context.Context) (int, error) {
			calls++
			if calls < 2 {
				return 0, fmt.Errorf("attempt %d failed", calls)
			}
			return 42, nil
		})
		if err != nil {
			t.Fatalf("RetryWithContext: %v", err)
		}
		if result != 42 || calls != 2 {
			t.Fatalf("result = %d after %d calls", result, calls)
		}
	})

	t.Run("ReturnsLastError", func(t *testing.T) {
		calls := 0
		_, err := RetryWithContext(context.Background(), 3, func(_ context.Context) (int, error) {
			calls++
			return 0, fmt.Errorf("attempt %d failed", calls)
		})
		if err == nil || err.Error() != "attempt 3 failed" {
			t.Fatalf("err = %v, want the last attempt's error", err)
		}
	})

	t.Run("CancellationStopsRetrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := RetryWithContext(ctx, 5, func(_ context.Context) (int, error) {
			calls++
			cancel()
			return 0, context.Canceled
		})
		if err != context.Canceled {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
		if calls != 1 {
			t.Fatalf("calls = %d, cancellation must not be retried", calls)
		}
	})
}
