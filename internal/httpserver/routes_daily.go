// internal/httpserver/routes_daily.go
//
// HTTP routes for the ranked daily game.
//   - POST /daily/new         → start (or resume) today's session
//   - POST /daily/guess       → submit a guess; the finishing guess carries the rating update
//   - GET  /daily/played      → whether the caller already has a result for today
//   - GET  /daily/leaderboard → fastest wins for today (or ?date=YYYY-MM-DD)
//
// Each player gets one scored game per day. Guests are identified by the
// anonymous cookie.

package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/rankedle/internal/ranked"
	"github.com/robalobadob/rankedle/internal/store"
)

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", s.handleDailyNew)
		r.Post("/guess", s.handleDailyGuess)
		r.Get("/played", s.handleDailyPlayed)
		r.Get("/leaderboard", s.handleDailyLeaderboard)
	})
	r.Get("/validate-word/{word}", s.handleValidateWord)
}

// newRes is returned by /daily/new.
type newRes struct {
	GameID   string    `json:"gameId"`
	Date     string    `json:"date"`
	Played   bool      `json:"played"`
	Guesses  []string  `json:"guesses"`
	Attempts int       `json:"attempts"`
	ResetsAt time.Time `json:"resetsAt"`
}

// handleDailyNew creates or reuses the caller's session for today.
// A player with a recorded result gets Played=true and no game ID.
func (s *Server) handleDailyNew(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.playerID(w, r)
	if !ok {
		return
	}
	date := s.svc.Today()

	sess, err := s.svc.StartDaily(r.Context(), uid)
	if errors.Is(err, ranked.ErrAlreadyPlayed) {
		writeJSON(w, http.StatusOK, newRes{Date: date, Played: true, Guesses: []string{}, ResetsAt: s.svc.NextReset()})
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRes{
		GameID:   sess.ID,
		Date:     sess.Day,
		Guesses:  sess.Guesses,
		Attempts: sess.Attempts(),
		ResetsAt: s.svc.NextReset(),
	})
}

// dailyGuessReq is the request payload for /daily/guess. "guess" is
// accepted as an alias of "word".
type dailyGuessReq struct {
	GameID string `json:"gameId"`
	Word   string `json:"word"`
	Guess  string `json:"guess"`
}

func (s *Server) handleDailyGuess(w http.ResponseWriter, r *http.Request) {
	var p dailyGuessReq
	if !decode(w, r, &p) {
		return
	}
	if p.Word == "" {
		p.Word = p.Guess
	}
	if p.GameID == "" {
		writeError(w, http.StatusBadRequest, "gameId required")
		return
	}

	uid, ok := s.playerID(w, r)
	if !ok {
		return
	}
	report, err := s.svc.SubmitGuess(r.Context(), uid, p.GameID, p.Word)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type playedRes struct {
	PlayedToday bool              `json:"playedToday"`
	Date        string            `json:"date"`
	Record      *store.GameRecord `json:"record,omitempty"`
}

func (s *Server) handleDailyPlayed(w http.ResponseWriter, r *http.Request) {
	res := playedRes{Date: s.svc.Today()}
	if uid := s.knownPlayerID(r); uid != "" {
		rec, err := s.svc.PlayedToday(r.Context(), uid)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		res.PlayedToday = rec != nil
		res.Record = rec
	}
	writeJSON(w, http.StatusOK, res)
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string             `json:"date"`
	Top  []store.GameRecord `json:"top"`
}

// handleDailyLeaderboard returns the leaderboard for the given date (default today).
func (s *Server) handleDailyLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.svc.Today()
	}
	rows, err := s.svc.DailyLeaderboard(r.Context(), date, queryInt(r, "limit", store.DefaultDailyLimit))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if rows == nil {
		rows = []store.GameRecord{}
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}

type validateRes struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// handleValidateWord reports whether a word would be accepted as a guess.
// Rejections are still 200; the message is the one a guess would get.
func (s *Server) handleValidateWord(w http.ResponseWriter, r *http.Request) {
	err := s.svc.ValidateWord(chi.URLParam(r, "word"))
	if err == nil {
		writeJSON(w, http.StatusOK, validateRes{Valid: true})
		return
	}
	if reason, ok := inputReason(err); ok {
		writeJSON(w, http.StatusOK, validateRes{Message: reason})
		return
	}
	s.writeDomainError(w, r, err)
}

// queryInt parses a positive integer query parameter.
func queryInt(r *http.Request, key string, fallback int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && n > 0 {
		return n
	}
	return fallback
}
