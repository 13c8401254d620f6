package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coneflip/overlay-server-go/internal/database"
)

// setupTestDB connects to TEST_DATABASE_URL, applies the schema and clears
// every table. Tests are skipped when no database is configured.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, url)
	require.NoError(t, err)
	require.NoError(t, db.EnsureSchema(ctx))

	_, err = db.ExecContext(ctx, `TRUNCATE access_credential, player_stats, inventory_items`)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}
