package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/rankedle/internal/auth"
	"github.com/robalobadob/rankedle/internal/store"
)

// ctxUserKey is the context key for the authenticated user.
type ctxUserKey struct{}

// authUser is placed into request context by auth middleware.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

const anonCookieTTL = 180 * 24 * time.Hour

// mountAuthRoutes registers /auth/*.
func (s *Server) mountAuthRoutes() {
	s.r.Post("/auth/signup", s.handleSignup)
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)

	s.r.With(s.requireAuth()).Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, currentUser(r))
	})
}

// handleSignup creates the account and its default rating state, then signs in.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !decode(w, r, &body) {
		return
	}
	u, err := s.accounts.Register(r.Context(), body.Username, body.Password)
	switch {
	case errors.Is(err, store.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "Username taken")
		return
	case errors.Is(err, auth.ErrInvalidSignup):
		writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), auth.ErrInvalidSignup.Error()+": "))
		return
	case err != nil:
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.svc.EnsurePlayer(r.Context(), u.ID); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("user", u.ID).Msg("create default stats")
	}
	if !s.signIn(w, u) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username, "createdAt": u.CreatedAt})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !decode(w, r, &body) {
		return
	}
	u, err := s.accounts.Authenticate(r.Context(), trimmed(body.Username), body.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !s.signIn(w, u) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username})
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) signIn(w http.ResponseWriter, u *store.User) bool {
	tok, exp, err := s.issuer.Sign(u.ID, u.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return false
	}
	s.setAuthCookie(w, tok, exp)
	return true
}

// --------------------------- optional auth ---------------------------------

// authenticate resolves the request's token (header or cookie) to a user.
func (s *Server) authenticate(r *http.Request) *authUser {
	tok := s.bearerOrCookie(r)
	if tok == "" {
		return nil
	}
	claims, err := s.issuer.Parse(tok)
	if err != nil {
		return nil
	}
	u, err := s.accounts.Lookup(r.Context(), claims.ID)
	if err != nil {
		return nil
	}
	return &authUser{ID: u.ID, Username: u.Username}
}

// withOptionalAuth decorates requests with user context if a valid JWT is present.
// It never 401s; used for routes where guests are allowed.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if me := s.authenticate(r); me != nil {
				r = r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, me))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth rejects requests without a valid token.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			me := s.authenticate(r)
			if me == nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, me)))
		})
	}
}

func currentUser(r *http.Request) *authUser {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	return me
}

// playerID is the signed-in user, or the guest identity from the anonymous
// cookie (issued on first use). It writes a 500 and returns false if a
// guest token cannot be signed.
func (s *Server) playerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if me := currentUser(r); me != nil {
		return me.ID, true
	}
	if id := s.guestID(r); id != "" {
		return id, true
	}
	id, tok, exp, err := s.issuer.SignGuest(anonCookieTTL)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("sign guest token")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return "", false
	}
	http.SetCookie(w, s.cookie(s.cfg.AnonCookie, tok, exp))
	return id, true
}

// knownPlayerID is like playerID but never issues a new anonymous cookie.
func (s *Server) knownPlayerID(r *http.Request) string {
	if me := currentUser(r); me != nil {
		return me.ID
	}
	return s.guestID(r)
}

// guestID verifies the anonymous cookie. Unsigned, expired or forged values
// yield "".
func (s *Server) guestID(r *http.Request) string {
	c, err := r.Cookie(s.cfg.AnonCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	id, err := s.issuer.ParseGuest(c.Value)
	if err != nil {
		return ""
	}
	return id
}

// ------------------------------ cookies ------------------------------------

func (s *Server) cookie(name, value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	}
	if s.cfg.Secure {
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, s.cookie(s.cfg.CookieName, token, exp))
}

func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	c := s.cookie(s.cfg.CookieName, "", time.Unix(0, 0))
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// bearerOrCookie extracts a token from the Authorization header or the auth cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}
