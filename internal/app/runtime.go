package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// ARTHALEDGER_TEST_MODE=1 makes the binaries exit before touching
// Postgres or Redis, so smoke tests can exercise config loading alone.
const testModeEnv = "ARTHALEDGER_TEST_MODE"

var (
	testMode     atomic.Bool
	loadTestMode = sync.OnceFunc(func() {
		testMode.Store(os.Getenv(testModeEnv) == "1")
	})
)

// InTestMode reports whether runtime side effects should be skipped.
func InTestMode() bool {
	loadTestMode()
	return testMode.Load()
}

// RefreshTestMode re-reads the environment flag.
func RefreshTestMode() {
	testMode.Store(os.Getenv(testModeEnv) == "1")
}
