package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/robalobadob/rankedle/internal/config"
	"github.com/robalobadob/rankedle/internal/rank"
	"github.com/robalobadob/rankedle/internal/rating"
	"github.com/robalobadob/rankedle/internal/store"
	"github.com/robalobadob/rankedle/internal/store/sqlite"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.FromEnv()
	cfg.StorageType = StorageMemory
	cfg.SessionStore = StorageMemory
	cfg.NATSURL = ""
	cfg.MetricsExporter = "none"
	cfg.RatingFormula = "table"
	cfg.RankScheme = "rating"
	return cfg
}

func TestGraphIsComplete(t *testing.T) {
	cfg := testConfig(t)
	err := fx.ValidateApp(
		fx.Supply(cfg, zerolog.Nop()),
		Module,
		fx.Invoke(RunServer),
	)
	require.NoError(t, err)
}

func TestOpenStores_Memory(t *testing.T) {
	s, err := OpenStores(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	_, isMem := s.Stats.(*store.Memory)
	assert.True(t, isMem)
	assert.Same(t, s.Stats, s.Sessions, "memory stats also hold sessions")
}

func TestOpenStores_SQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageType = StorageSQLite
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "rankedle.db")

	s, err := OpenStores(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	_, isSQLite := s.Stats.(*sqlite.Store)
	assert.True(t, isSQLite)
	_, memSessions := s.Sessions.(*store.Memory)
	assert.True(t, memSessions)
	require.NoError(t, s.Close())

	require.NoError(t, Migrate(context.Background(), cfg, zerolog.Nop()))
}

func TestOpenStores_Unknown(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageType = "mongo"
	_, err := OpenStores(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestProvideEngineAndScheme(t *testing.T) {
	cfg := testConfig(t)
	cfg.RatingFormula = "logistic"
	cfg.RankScheme = "score"

	e, err := ProvideEngine(cfg)
	require.NoError(t, err)
	assert.Equal(t, rating.LogisticFormula{}.Name(), e.Formula().Name())

	sc, err := ProvideScheme(cfg)
	require.NoError(t, err)
	assert.Equal(t, rank.BasisScore, sc.Basis)
}
