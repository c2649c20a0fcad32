// internal/httpserver/server.go
//
// HTTP server wiring for the ranked daily Wordle backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, metrics).
//   - Public endpoints: "/", "/health", "/ranks", "/leaderboard", "/validate-word/{word}".
//   - Daily endpoints (optional auth): mounted under /daily.
//   - Auth + profile endpoints: /auth/*, /stats/*, /games/mine.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth decorates requests with user context when a valid token is present;
//     guests play under an anonymous cookie identity.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/robalobadob/rankedle/internal/auth"
	"github.com/robalobadob/rankedle/internal/game"
	"github.com/robalobadob/rankedle/internal/observability"
	"github.com/robalobadob/rankedle/internal/ranked"
	"github.com/robalobadob/rankedle/internal/store"
)

// Settings are the transport-level knobs taken from config.
type Settings struct {
	ClientOrigins []string
	CookieName    string
	AnonCookie    string
	// Secure marks cookies Secure + SameSite=None (production).
	Secure         bool
	RequestTimeout time.Duration
}

// WordStats reports loaded word list sizes.
type WordStats interface {
	Stats() (answers int, allowed int)
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Service  *ranked.Service
	Accounts *auth.Accounts
	Issuer   *auth.Issuer
	Words    WordStats
	Metrics  *observability.Metrics
	Logger   zerolog.Logger
	Settings Settings
}

// Server bundles the router and the ranked service.
type Server struct {
	r        *chi.Mux
	svc      *ranked.Service
	accounts *auth.Accounts
	issuer   *auth.Issuer
	words    WordStats
	metrics  *observability.Metrics
	logger   zerolog.Logger
	cfg      Settings
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		svc:      d.Service,
		accounts: d.Accounts,
		issuer:   d.Issuer,
		words:    d.Words,
		metrics:  d.Metrics,
		logger:   d.Logger,
		cfg:      d.Settings,
	}
	if s.metrics == nil {
		s.metrics = observability.Noop()
	}
	if s.cfg.CookieName == "" {
		s.cfg.CookieName = "wordle_token"
	}
	if s.cfg.AnonCookie == "" {
		s.cfg.AnonCookie = "wordle_anon"
	}
	if s.cfg.RequestTimeout <= 0 {
		s.cfg.RequestTimeout = 10 * time.Second
	}
	origins := s.cfg.ClientOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	// --- middleware ---
	s.r.Use(requestID(s.logger, s.metrics)) // X-Request-ID + request logger
	s.r.Use(chimw.RealIP)                   // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                // recover from panics
	s.r.Use(chimw.Timeout(s.cfg.RequestTimeout))
	s.r.Use(jsonContentType)
	s.r.Use(cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "rankedle",
			"endpoints": []string{
				"/health", "POST /daily/new", "POST /daily/guess", "/daily/played", "/daily/leaderboard",
				"/validate-word/{word}", "/stats/me", "/stats/{playerId}", "/leaderboard", "/ranks", "/auth/*",
			},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		if s.words == nil {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		a, g := s.words.Stats()
		writeJSON(w, http.StatusOK, map[string]int{"answers": a, "allowed": g})
	})

	// Daily game: OPTIONAL AUTH (guests can play)
	s.mountDaily(s.r.With(s.withOptionalAuth()))

	// Public ranking + profile reads
	s.mountStats()

	// Auth
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Router exposes the router (the fx app mounts it; tests drive it directly).
func (s *Server) Router() chi.Router { return s.r }

// Handler is the root http.Handler.
func (s *Server) Handler() http.Handler { return s.r }

// ------------------------------ responses ----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps service and game errors onto status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if reason, ok := inputReason(err); ok {
		writeError(w, http.StatusBadRequest, reason)
		return
	}
	switch {
	case errors.Is(err, game.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, "Game already completed")
	case errors.Is(err, ranked.ErrAlreadyPlayed):
		writeError(w, http.StatusConflict, "Already played today")
	case errors.Is(err, ranked.ErrNoSession):
		writeError(w, http.StatusNotFound, "no session")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

// inputReason extracts the user-facing message of a rejected word.
func inputReason(err error) (string, bool) {
	var ie *game.InputError
	if errors.As(err, &ie) {
		return ie.Reason, true
	}
	return "", false
}

// decode reads a JSON body; on failure it writes 400 and returns false.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	return true
}

func trimmed(s string) string { return strings.TrimSpace(s) }
