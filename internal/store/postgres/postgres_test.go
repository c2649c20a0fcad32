package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/robalobadob/rankedle/internal/store/storetest"
)

// Requires Docker; opt in with RANKEDLE_DOCKER_TESTS=1.
func TestPostgresRepository(t *testing.T) {
	if os.Getenv("RANKEDLE_DOCKER_TESTS") != "1" {
		t.Skip("set RANKEDLE_DOCKER_TESTS=1 to run container tests")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("rankedle_test"),
		tcpostgres.WithUsername("test_user"),
		tcpostgres.WithPassword("test_password"),
		tcpostgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{
			"test":      "rankedle-repository",
			"timestamp": time.Now().Format("20060102-150405"),
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := Connect(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, Migrate(ctx, db, zerolog.Nop()))

	s := New(db, zerolog.Nop())
	suite.Run(t, &storetest.RepositorySuite{
		NewBackend: func() storetest.Backend {
			_, err := db.Exec(ctx, `TRUNCATE game_records, player_stats, users`)
			require.NoError(t, err)
			return s
		},
	})
}
