package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/robalobadob/rankedle/internal/config"
	"github.com/robalobadob/rankedle/internal/store"
	"github.com/robalobadob/rankedle/internal/store/postgres"
	redisstore "github.com/robalobadob/rankedle/internal/store/redis"
	"github.com/robalobadob/rankedle/internal/store/sqlite"
)

// Storage type constants
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	SessionsRedis   = "redis"
)

// Stores bundles the repositories selected by config.
type Stores struct {
	Stats    store.PlayerStatsRepository
	Users    store.UserStore
	Sessions store.SessionStore

	closers []func() error
}

// Close releases every backend connection.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// OpenStores connects the stats/user backend named by STORAGE_TYPE and the
// session backend named by SESSION_STORE. SQL backends are migrated on open.
func OpenStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Stores, error) {
	s := &Stores{}
	mem := store.NewMemoryStore()

	switch cfg.StorageType {
	case StorageMemory, "":
		s.Stats, s.Users = mem, mem
	case StorageSQLite:
		db, err := sqlite.Open(cfg.DBPath, logger)
		if err != nil {
			return nil, err
		}
		s.Stats, s.Users = db, db
		s.closers = append(s.closers, db.Close)
	case StoragePostgres:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db, logger); err != nil {
			db.Close()
			return nil, err
		}
		pg := postgres.New(db, logger)
		s.Stats, s.Users = pg, pg
		s.closers = append(s.closers, func() error { pg.Close(); return nil })
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}

	switch cfg.SessionStore {
	case StorageMemory, "":
		s.Sessions = mem
	case SessionsRedis:
		rcfg := redisstore.DefaultConfig()
		rcfg.URL = cfg.RedisURL
		rs, err := redisstore.New(rcfg)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Sessions = rs
		s.closers = append(s.closers, rs.Close)
	default:
		_ = s.Close()
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}

	logger.Info().
		Str("storage", cfg.StorageType).
		Str("sessions", cfg.SessionStore).
		Msg("stores ready")
	return s, nil
}

// Migrate applies the SQL schema for the configured backend without
// starting anything else.
func Migrate(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	switch cfg.StorageType {
	case StorageSQLite:
		db, err := sqlite.Open(cfg.DBPath, logger)
		if err != nil {
			return err
		}
		return db.Close()
	case StoragePostgres:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		return postgres.Migrate(ctx, db, logger)
	default:
		logger.Info().Str("storage", cfg.StorageType).Msg("nothing to migrate")
		return nil
	}
}
