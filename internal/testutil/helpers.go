// Package testutil provides test helper functions.
package testutil

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/upload/uploadtypes"
)

// GenerateRandomData generates random bytes of the specified size.
// This is useful for creating test data for uploads.
func GenerateRandomData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rand.Intn(256))
	}
	return data
}

// WaitClosed fails the test if ch is not closed within timeout.
func WaitClosed(t *testing.T, ch <-chan struct{}, timeout time.Duration) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("channel not closed within %s", timeout)
	}
}

// RequireStatus waits until status() reports want.
func RequireStatus(t *testing.T, status func() uploadtypes.Status, want uploadtypes.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return status() == want
	}, 2*time.Second, time.Millisecond, "status never became %s", want)
}
