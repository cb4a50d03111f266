package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chavhanmoin/CrackBatu/internal/migrate"
	"github.com/Chavhanmoin/CrackBatu/internal/testutil"
)

func TestVersions(t *testing.T) {
	t.Parallel()
	versions, err := migrate.Versions()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_profiles", "0002_credentials"}, versions)
}

func TestRun_Idempotent(t *testing.T) {
	testutil.SkipIfNoTestDB(t)
	db := testutil.SetupEphemeralSchemaDB(t)
	ctx := context.Background()

	// SetupEphemeralSchemaDB already migrated once.
	require.NoError(t, migrate.Run(ctx, db))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 2, n)

	var exists bool
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'password_reset_requests')`,
	).Scan(&exists))
	assert.True(t, exists)
}
