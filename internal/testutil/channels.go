// Package testutil holds helpers shared by tests of concurrent code.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// DefaultTestTimeout bounds waits for goroutines that should finish promptly.
const DefaultTestTimeout = 5 * time.Second

// WaitForChannel waits for ch to receive or close, failing the test after timeout.
func WaitForChannel[T any](t *testing.T, ch <-chan T, timeout time.Duration, msg string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		require.FailNow(t, msg)
	}
	var zero T
	return zero
}
