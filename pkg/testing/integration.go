// Package testing starts throwaway PostgreSQL and Elasticsearch servers for
// the trace sink integration tests.
package testing

import (
	"os"
	"testing"
)

// IntegrationVar must be set for container backed tests to run.
const IntegrationVar = "QSTONE_INTEGRATION"

// RequireIntegration skips tb unless QSTONE_INTEGRATION is set, since the
// containers need a Docker daemon.
func RequireIntegration(tb testing.TB) {
	tb.Helper()
	if os.Getenv(IntegrationVar) == "" {
		tb.Skipf("set %s=1 to run container backed tests", IntegrationVar)
	}
}
