package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/rankedle/internal/rank"
	"github.com/robalobadob/rankedle/internal/ranked"
	"github.com/robalobadob/rankedle/internal/store"
)

// mountStats registers profile, leaderboard and rank table routes.
func (s *Server) mountStats() {
	s.r.With(s.withOptionalAuth()).Get("/stats/me", s.handleMyStats)
	s.r.Get("/stats/{playerId}", s.handlePlayerStats)
	s.r.With(s.requireAuth()).Get("/games/mine", s.handleMyGames)
	s.r.Get("/leaderboard", s.handleLeaderboard)
	s.r.Get("/ranks", s.handleRanks)
}

// profile is /stats/me: standing plus today's result and the account name.
type profile struct {
	*ranked.Standing
	Username    string            `json:"username,omitempty"`
	Guest       bool              `json:"guest"`
	PlayedToday bool              `json:"playedToday"`
	Today       *store.GameRecord `json:"today,omitempty"`
}

func (s *Server) handleMyStats(w http.ResponseWriter, r *http.Request) {
	uid := s.knownPlayerID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	me := currentUser(r)

	var (
		st    *ranked.Standing
		today *store.GameRecord
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		st, err = s.svc.Standing(ctx, uid)
		return err
	})
	g.Go(func() error {
		var err error
		today, err = s.svc.PlayedToday(ctx, uid)
		return err
	})
	if err := g.Wait(); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	p := profile{Standing: st, Guest: me == nil, PlayedToday: today != nil, Today: today}
	if me != nil {
		p.Username = me.Username
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Standing(r.Context(), chi.URLParam(r, "playerId"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleMyGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.svc.RecentGames(r.Context(), currentUser(r).ID, queryInt(r, "limit", store.DefaultRecentLimit))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if games == nil {
		games = []store.GameRecord{}
	}
	writeJSON(w, http.StatusOK, games)
}

type leaderboardRes struct {
	Basis   rank.Basis         `json:"basis"`
	Players []ranked.LeaderRow `json:"players"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.Leaderboard(r.Context(), queryInt(r, "limit", ranked.DefaultLeaderboardLimit))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if rows == nil {
		rows = []ranked.LeaderRow{}
	}
	writeJSON(w, http.StatusOK, leaderboardRes{Basis: s.svc.Scheme().Basis, Players: rows})
}

type ranksRes struct {
	Basis rank.Basis       `json:"basis"`
	Tiers []rank.Threshold `json:"tiers"`
}

// handleRanks lists the configured scheme's tiers, lowest first.
func (s *Server) handleRanks(w http.ResponseWriter, r *http.Request) {
	sc := s.svc.Scheme()
	writeJSON(w, http.StatusOK, ranksRes{Basis: sc.Basis, Tiers: sc.Thresholds})
}
