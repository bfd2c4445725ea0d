package testutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ContextWithTimeout returns a context that expires after d and is
// cancelled when the test ends.
func ContextWithTimeout(t testing.TB, d time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)

	return ctx
}

// CancelledContext returns a context that is already cancelled.
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// RunInBackground starts run in a goroutine. When the test ends the
// context is cancelled and the goroutine awaited; a non-nil error other
// than a cancellation fails the test.
func RunInBackground(t testing.TB, run func(ctx context.Context) error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("background run: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("background run did not stop")
		}
	})
}
