// internal/store/sqlite/sqlite.go
//
// SQLite backend for player stats, game records and accounts.
// Responsibilities:
//   - Opening the database file with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying the embedded goose migrations.
//   - Implementing store.PlayerStatsRepository and store.UserStore.
//
// Timestamps are stored as fixed-width RFC3339 text (UTC); guesses as a comma-separated list.

package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/robalobadob/rankedle/internal/rating"
	"github.com/robalobadob/rankedle/internal/store"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// timeLayout is fixed width so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements the persistent store interfaces over *sql.DB.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

var (
	_ store.PlayerStatsRepository = (*Store)(nil)
	_ store.UserStore             = (*Store)(nil)
)

// Open opens (creating if missing) the database at path and migrates it.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := openDB(path, logger)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return New(db, logger), nil
}

// New wraps an already migrated database.
func New(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger.With().Str("component", "sqlite").Logger()}
}

func (s *Store) DB() *sql.DB  { return s.db }
func (s *Store) Close() error { return s.db.Close() }

func openDB(path string, logger zerolog.Logger) (*sql.DB, error) {
	logger.Info().Str("path", path).Msg("opening sqlite database")

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := optimize(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func optimize(db *sql.DB, logger zerolog.Logger) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"cache_size", "-16000"},
		{"temp_store", "MEMORY"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("set PRAGMA %s: %w", p.name, err)
		}
		logger.Debug().Str("pragma", p.name).Str("value", p.value).Msg("sqlite pragma set")
	}
	return nil
}

// Migrate applies the embedded migrations.
func Migrate(db *sql.DB, logger zerolog.Logger) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(store.GooseLogger(logger))
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info().Msg("sqlite migrations applied")
	return nil
}

// ---------------------------------------------------------------------------
// rating state

const stateColumns = `rating, score, games_played, games_won, current_streak, max_streak,
	placement_matches, in_placement, distribution, last_played`

func (s *Store) LoadRatingState(ctx context.Context, playerID string) (rating.State, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stateColumns+` FROM player_stats WHERE player_id = ?`, playerID)
	st, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rating.State{}, store.ErrNotFound
	}
	return st, err
}

func scanState(row interface{ Scan(...any) error }) (rating.State, error) {
	var (
		st         rating.State
		inPlace    int
		dist       string
		lastPlayed sql.NullString
	)
	if err := row.Scan(&st.Rating, &st.Score, &st.GamesPlayed, &st.GamesWon,
		&st.CurrentStreak, &st.MaxStreak, &st.PlacementMatches, &inPlace, &dist, &lastPlayed); err != nil {
		return rating.State{}, err
	}
	st.InPlacement = inPlace != 0
	d, err := rating.ParseDistribution(dist)
	if err != nil {
		return rating.State{}, err
	}
	st.Distribution = d
	if lastPlayed.Valid && lastPlayed.String != "" {
		t, err := time.Parse(time.RFC3339Nano, lastPlayed.String)
		if err != nil {
			return rating.State{}, fmt.Errorf("parse last_played: %w", err)
		}
		st.LastPlayed = t
	}
	return st, nil
}

const upsertState = `
	INSERT INTO player_stats
		(player_id, rating, score, games_played, games_won, current_streak, max_streak,
		 placement_matches, in_placement, distribution, last_played, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (player_id) DO UPDATE SET
		rating = excluded.rating,
		score = excluded.score,
		games_played = excluded.games_played,
		games_won = excluded.games_won,
		current_streak = excluded.current_streak,
		max_streak = excluded.max_streak,
		placement_matches = excluded.placement_matches,
		in_placement = excluded.in_placement,
		distribution = excluded.distribution,
		last_played = excluded.last_played,
		updated_at = excluded.updated_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveState(ctx context.Context, ex execer, playerID string, st rating.State) error {
	var lastPlayed any
	if !st.LastPlayed.IsZero() {
		lastPlayed = st.LastPlayed.UTC().Format(timeLayout)
	}
	inPlace := 0
	if st.InPlacement {
		inPlace = 1
	}
	_, err := ex.ExecContext(ctx, upsertState,
		playerID, st.Rating, st.Score, st.GamesPlayed, st.GamesWon, st.CurrentStreak, st.MaxStreak,
		st.PlacementMatches, inPlace, rating.FormatDistribution(st.Distribution), lastPlayed,
		time.Now().UTC().Format(timeLayout))
	return err
}

func (s *Store) SaveRatingState(ctx context.Context, playerID string, st rating.State) error {
	if err := saveState(ctx, s.db, playerID, st); err != nil {
		return fmt.Errorf("save rating state: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// game records

func (s *Store) HasPlayedToday(ctx context.Context, playerID, day string) (bool, error) {
	var cnt int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM game_records WHERE player_id = ? AND day = ?`,
		playerID, day,
	).Scan(&cnt); err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (s *Store) CompleteGame(ctx context.Context, rec store.GameRecord, st rating.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO game_records
			(id, player_id, day, won, attempts, guesses, rating_change, points_earned, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (player_id, day) DO NOTHING`,
		rec.ID, rec.PlayerID, rec.Day, boolInt(rec.Won), rec.Attempts,
		strings.Join(rec.Guesses, ","), rec.RatingChange, rec.PointsEarned,
		rec.CompletedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert game record: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrAlreadyRecorded
	}

	if err := saveState(ctx, tx, rec.PlayerID, st); err != nil {
		return fmt.Errorf("save rating state: %w", err)
	}
	return tx.Commit()
}

const recordColumns = `id, player_id, day, won, attempts, guesses, rating_change, points_earned, completed_at`

func scanRecord(row interface{ Scan(...any) error }) (store.GameRecord, error) {
	var (
		r         store.GameRecord
		won       int
		guesses   string
		completed string
	)
	if err := row.Scan(&r.ID, &r.PlayerID, &r.Day, &won, &r.Attempts, &guesses,
		&r.RatingChange, &r.PointsEarned, &completed); err != nil {
		return store.GameRecord{}, err
	}
	r.Won = won != 0
	if guesses != "" {
		r.Guesses = strings.Split(guesses, ",")
	}
	t, err := time.Parse(time.RFC3339Nano, completed)
	if err != nil {
		return store.GameRecord{}, fmt.Errorf("parse completed_at: %w", err)
	}
	r.CompletedAt = t
	return r, nil
}

func (s *Store) GameForDay(ctx context.Context, playerID, day string) (*store.GameRecord, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM game_records WHERE player_id = ? AND day = ?`, playerID, day))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) RecentGames(ctx context.Context, playerID string, limit int) ([]store.GameRecord, error) {
	if limit <= 0 {
		limit = store.DefaultRecentLimit
	}
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM game_records
		WHERE player_id = ?
		ORDER BY day DESC
		LIMIT ?`, playerID, limit)
}

func (s *Store) DailyLeaderboard(ctx context.Context, day string, limit int) ([]store.GameRecord, error) {
	if limit <= 0 {
		limit = store.DefaultDailyLimit
	}
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM game_records
		WHERE day = ? AND won = 1
		ORDER BY attempts ASC, completed_at ASC, player_id ASC
		LIMIT ?`, day, limit)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]store.GameRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
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

// ---------------------------------------------------------------------------
// leaderboard

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]store.LeaderboardEntry, error) {
	q := `
		SELECT ps.player_id, COALESCE(u.username, ''), ps.rating, ps.score,
		       ps.games_played, ps.games_won, ps.in_placement
		FROM player_stats ps
		LEFT JOIN users u ON u.id = ps.player_id
		ORDER BY ps.rating DESC, ps.player_id ASC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.LeaderboardEntry
	for rows.Next() {
		var (
			e       store.LeaderboardEntry
			inPlace int
		)
		if err := rows.Scan(&e.PlayerID, &e.Username, &e.Rating, &e.Score,
			&e.GamesPlayed, &e.GamesWon, &inPlace); err != nil {
			return nil, err
		}
		e.InPlacement = inPlace != 0
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
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 + (SELECT COUNT(1) FROM player_stats o WHERE o.rating > ps.rating)
		FROM player_stats ps WHERE ps.player_id = ?`, playerID).Scan(&pos)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	return pos, err
}

// ---------------------------------------------------------------------------
// users

func (s *Store) CreateUser(ctx context.Context, u store.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.UTC().Format(timeLayout))
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return store.ErrUsernameTaken
	}
	return err
}

func (s *Store) UserByID(ctx context.Context, id string) (*store.User, error) {
	return s.queryUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.queryUser(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE lower(username) = lower(?)`,
		strings.TrimSpace(username))
}

func (s *Store) queryUser(ctx context.Context, q string, arg string) (*store.User, error) {
	var (
		u       store.User
		created string
	)
	err := s.db.QueryRowContext(ctx, q, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &u, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
