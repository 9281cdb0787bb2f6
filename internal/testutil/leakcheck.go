// Package testutil provides testing utilities for tunecore.
package testutil

import (
	"testing"

	"go.uber.org/goleak"
)

// VerifyNoLeaks should be deferred at the start of tests that spawn goroutines.
// It verifies that no goroutines were leaked during the test.
func VerifyNoLeaks(t *testing.T, opts ...goleak.Option) {
	t.Helper()
	goleak.VerifyNone(t, append(IgnoreDatabaseGoroutines(), opts...)...)
}

// IgnoreDatabaseGoroutines returns goleak options for goroutines owned by database/sql
// connection pools that outlive a closed *sql.DB for a short moment.
func IgnoreDatabaseGoroutines() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	}
}
