// internal/store/memory.go
//
// In-memory implementation of every store interface.
// Used for development, the `play` command and tests.
//
// Characteristics:
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - Sessions are copied in and out; callers never share a live value.

package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/robalobadob/rankedle/internal/game"
	"github.com/robalobadob/rankedle/internal/rating"
)

// Memory is a map-based store.
type Memory struct {
	mu       sync.RWMutex
	states   map[string]rating.State
	records  map[string][]GameRecord // keyed by player, oldest first
	sessions map[string]*game.Session
	byDay    map[string]string // player|day -> session ID
	users    map[string]User
	names    map[string]string // lower(username) -> user ID
}

// NewMemoryStore constructs an empty Memory store.
func NewMemoryStore() *Memory {
	return &Memory{
		states:   make(map[string]rating.State),
		records:  make(map[string][]GameRecord),
		sessions: make(map[string]*game.Session),
		byDay:    make(map[string]string),
		users:    make(map[string]User),
		names:    make(map[string]string),
	}
}

var (
	_ PlayerStatsRepository = (*Memory)(nil)
	_ SessionStore          = (*Memory)(nil)
	_ UserStore             = (*Memory)(nil)
)

// ---------------------------------------------------------------------------
// stats

func (m *Memory) LoadRatingState(ctx context.Context, playerID string) (rating.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[playerID]
	if !ok {
		return rating.State{}, ErrNotFound
	}
	return st, nil
}

func (m *Memory) SaveRatingState(ctx context.Context, playerID string, st rating.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[playerID] = st
	return nil
}

func (m *Memory) HasPlayedToday(ctx context.Context, playerID, day string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findRecord(playerID, day) != nil, nil
}

func (m *Memory) CompleteGame(ctx context.Context, rec GameRecord, st rating.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findRecord(rec.PlayerID, rec.Day) != nil {
		return ErrAlreadyRecorded
	}
	rec.Guesses = append([]string(nil), rec.Guesses...)
	m.records[rec.PlayerID] = append(m.records[rec.PlayerID], rec)
	m.states[rec.PlayerID] = st
	return nil
}

func (m *Memory) GameForDay(ctx context.Context, playerID, day string) (*GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r := m.findRecord(playerID, day); r != nil {
		cp := *r
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) RecentGames(ctx context.Context, playerID string, limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.records[playerID]
	out := make([]GameRecord, 0, min(limit, len(recs)))
	for i := len(recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

func (m *Memory) DailyLeaderboard(ctx context.Context, day string, limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []GameRecord
	for _, recs := range m.records {
		for _, r := range recs {
			if r.Day == day && r.Won {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Attempts != out[j].Attempts {
			return out[i].Attempts < out[j].Attempts
		}
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.Before(out[j].CompletedAt)
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) findRecord(playerID, day string) *GameRecord {
	for i := range m.records[playerID] {
		if m.records[playerID][i].Day == day {
			return &m.records[playerID][i]
		}
	}
	return nil
}

func (m *Memory) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]LeaderboardEntry, 0, len(m.states))
	for id, st := range m.states {
		out = append(out, LeaderboardEntry{
			PlayerID:    id,
			Username:    m.users[id].Username,
			Rating:      st.Rating,
			Score:       st.Score,
			GamesPlayed: st.GamesPlayed,
			GamesWon:    st.GamesWon,
			InPlacement: st.InPlacement,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	AssignPositions(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Position(ctx context.Context, playerID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[playerID]
	if !ok {
		return 0, ErrNotFound
	}
	higher := 0
	for id, other := range m.states {
		if id != playerID && other.Rating > st.Rating {
			higher++
		}
	}
	return higher + 1, nil
}

// AssignPositions fills Position on rating-sorted entries; equal ratings share a position.
func AssignPositions(entries []LeaderboardEntry) {
	for i := range entries {
		if i > 0 && entries[i].Rating == entries[i-1].Rating {
			entries[i].Position = entries[i-1].Position
			continue
		}
		entries[i].Position = i + 1
	}
}

// ---------------------------------------------------------------------------
// sessions

func (m *Memory) SaveSession(ctx context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	m.byDay[s.PlayerID+"|"+s.Day] = s.ID
	return nil
}

func (m *Memory) GetSession(ctx context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s.Clone(), nil
	}
	return nil, ErrNotFound
}

func (m *Memory) FindSession(ctx context.Context, playerID, day string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.byDay[playerID+"|"+day]; ok {
		if s, ok := m.sessions[id]; ok {
			return s.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// ---------------------------------------------------------------------------
// users

func (m *Memory) CreateUser(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(u.Username)
	if _, taken := m.names[key]; taken {
		return ErrUsernameTaken
	}
	m.users[u.ID] = u
	m.names[key] = u.ID
	return nil
}

func (m *Memory) UserByID(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) UserByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.names[strings.ToLower(strings.TrimSpace(username))]; ok {
		u := m.users[id]
		return &u, nil
	}
	return nil, ErrNotFound
}
