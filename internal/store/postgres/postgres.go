// Package postgres is the PostgreSQL backend for player stats, game
// records and accounts. It shares its schema with the sqlite backend,
// using native boolean, timestamptz and text[] columns.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/robalobadob/rankedle/internal/rating"
	"github.com/robalobadob/rankedle/internal/store"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const uniqueViolation = "23505"

// DB represents a database connection pool.
type DB struct {
	*pgxpool.Pool
}

// Connect creates a pool with every session pinned to UTC and pings it.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Migrate applies the embedded migrations through a database/sql view of the pool.
func Migrate(ctx context.Context, db *DB, logger zerolog.Logger) error {
	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(store.GooseLogger(logger))
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info().Msg("postgres migrations applied")
	return nil
}

// Queryable is satisfied by both the pool and a transaction.
type Queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements store.PlayerStatsRepository and store.UserStore.
type Store struct {
	db     *DB
	logger zerolog.Logger
}

var (
	_ store.PlayerStatsRepository = (*Store)(nil)
	_ store.UserStore             = (*Store)(nil)
)

func New(db *DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger.With().Str("component", "postgres").Logger()}
}

func (s *Store) Close() { s.db.Close() }

const stateColumns = `rating, score, games_played, games_won, current_streak, max_streak,
	placement_matches, in_placement, distribution, last_played`

func (s *Store) LoadRatingState(ctx context.Context, playerID string) (rating.State, error) {
	var (
		st         rating.State
		dist       string
		lastPlayed *time.Time
	)
	err := s.db.QueryRow(ctx, `SELECT `+stateColumns+` FROM player_stats WHERE player_id = $1`, playerID).
		Scan(&st.Rating, &st.Score, &st.GamesPlayed, &st.GamesWon, &st.CurrentStreak, &st.MaxStreak,
			&st.PlacementMatches, &st.InPlacement, &dist, &lastPlayed)
	if errors.Is(err, pgx.ErrNoRows) {
		return rating.State{}, store.ErrNotFound
	}
	if err != nil {
		return rating.State{}, fmt.Errorf("failed to load rating state: %w", err)
	}
	if st.Distribution, err = rating.ParseDistribution(dist); err != nil {
		return rating.State{}, err
	}
	if lastPlayed != nil {
		st.LastPlayed = lastPlayed.UTC()
	}
	return st, nil
}

func saveState(ctx context.Context, q Queryable, playerID string, st rating.State) error {
	var lastPlayed *time.Time
	if !st.LastPlayed.IsZero() {
		lp := st.LastPlayed.UTC()
		lastPlayed = &lp
	}
	_, err := q.Exec(ctx, `
		INSERT INTO player_stats
			(player_id, rating, score, games_played, games_won, current_streak, max_streak,
			 placement_matches, in_placement, distribution, last_played, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (player_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			score = EXCLUDED.score,
			games_played = EXCLUDED.games_played,
			games_won = EXCLUDED.games_won,
			current_streak = EXCLUDED.current_streak,
			max_streak = EXCLUDED.max_streak,
			placement_matches = EXCLUDED.placement_matches,
			in_placement = EXCLUDED.in_placement,
			distribution = EXCLUDED.distribution,
			last_played = EXCLUDED.last_played,
			updated_at = now()`,
		playerID, st.Rating, st.Score, st.GamesPlayed, st.GamesWon, st.CurrentStreak, st.MaxStreak,
		st.PlacementMatches, st.InPlacement, rating.FormatDistribution(st.Distribution), lastPlayed)
	if err != nil {
		return fmt.Errorf("failed to save rating state: %w", err)
	}
	return nil
}

func (s *Store) SaveRatingState(ctx context.Context, playerID string, st rating.State) error {
	return saveState(ctx, s.db, playerID, st)
}

func (s *Store) HasPlayedToday(ctx context.Context, playerID, day string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM game_records WHERE player_id = $1 AND day = $2)`,
		playerID, day).Scan(&exists)
	return exists, err
}

func (s *Store) CompleteGame(ctx context.Context, rec store.GameRecord, st rating.State) error {
	return pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		guesses := rec.Guesses
		if guesses == nil {
			guesses = []string{}
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO game_records
				(id, player_id, day, won, attempts, guesses, rating_change, points_earned, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (player_id, day) DO NOTHING`,
			rec.ID, rec.PlayerID, rec.Day, rec.Won, rec.Attempts, guesses,
			rec.RatingChange, rec.PointsEarned, rec.CompletedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert game record: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return store.ErrAlreadyRecorded
		}
		return saveState(ctx, tx, rec.PlayerID, st)
	})
}

const recordColumns = `id, player_id, day, won, attempts, guesses, rating_change, points_earned, completed_at`

func scanRecord(row pgx.Row) (store.GameRecord, error) {
	var r store.GameRecord
	if err := row.Scan(&r.ID, &r.PlayerID, &r.Day, &r.Won, &r.Attempts, &r.Guesses,
		&r.RatingChange, &r.PointsEarned, &r.CompletedAt); err != nil {
		return store.GameRecord{}, err
	}
	if len(r.Guesses) == 0 {
		r.Guesses = nil
	}
	r.CompletedAt = r.CompletedAt.UTC()
	return r, nil
}

func (s *Store) GameForDay(ctx context.Context, playerID, day string) (*store.GameRecord, error) {
	r, err := scanRecord(s.db.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM game_records WHERE player_id = $1 AND day = $2`, playerID, day))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game record: %w", err)
	}
	return &r, nil
}

func (s *Store) RecentGames(ctx context.Context, playerID string, limit int) ([]store.GameRecord, error) {
	if limit <= 0 {
		limit = store.DefaultRecentLimit
	}
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM game_records
		WHERE player_id = $1
		ORDER BY day DESC
		LIMIT $2`, playerID, limit)
}

func (s *Store) DailyLeaderboard(ctx context.Context, day string, limit int) ([]store.GameRecord, error) {
	if limit <= 0 {
		limit = store.DefaultDailyLimit
	}
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM game_records
		WHERE day = $1 AND won
		ORDER BY attempts ASC, completed_at ASC, player_id ASC
		LIMIT $2`, day, limit)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]store.GameRecord, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query game records: %w", err)
	}
	defer rows.Close()

	var out []store.GameRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]store.LeaderboardEntry, error) {
	q := `
		SELECT ps.player_id, COALESCE(u.username, ''), ps.rating, ps.score,
		       ps.games_played, ps.games_won, ps.in_placement
		FROM player_stats ps
		LEFT JOIN users u ON u.id = ps.player_id
		ORDER BY ps.rating DESC, ps.player_id ASC`
	var args []any
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []store.LeaderboardEntry
	for rows.Next() {
		var e store.LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Username, &e.Rating, &e.Score,
			&e.GamesPlayed, &e.GamesWon, &e.InPlacement); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	store.AssignPositions(out)
	return out, nil
}

func (s *Store) Position(ctx context.Context, playerID string) (int, error) {
	var pos int
	err := s.db.QueryRow(ctx, `
		SELECT 1 + (SELECT COUNT(*) FROM player_stats o WHERE o.rating > ps.rating)
		FROM player_stats ps WHERE ps.player_id = $1`, playerID).Scan(&pos)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	return pos, err
}

func (s *Store) CreateUser(ctx context.Context, u store.User) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrUsernameTaken
	}
	return err
}

func (s *Store) UserByID(ctx context.Context, id string) (*store.User, error) {
	return s.queryUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.queryUser(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE lower(username) = lower(trim($1))`, username)
}

func (s *Store) queryUser(ctx context.Context, q, arg string) (*store.User, error) {
	var u store.User
	err := s.db.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
