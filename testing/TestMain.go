// Package testing switches entrypoints into test mode when blank-imported
// by a test binary.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("LEDGER_TEST_MODE", "1")
		if os.Getenv("LEDGER_COMPANY_ID") == "" {
			_ = os.Setenv("LEDGER_COMPANY_ID", "test-company")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be delegated to from a package TestMain.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
