// Package dbtest provides an in-memory database client for tests.
package dbtest

import (
	"testing"

	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/setup/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// NewClient returns a migrated in-memory SQLite client that is closed when the test ends.
func NewClient(t *testing.T) database.Client {
	t.Helper()

	client, err := database.NewConnection(t.Context(), &config.Database{
		Driver: database.DriverSQLite,
		Path:   ":memory:",
	}, zap.NewNop(), true)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}
