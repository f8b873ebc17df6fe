// internal/httpserver/routes_auth.go
//
// Account routes and the auth middleware.
//   - POST /auth/signup  → create account, returns a token
//   - POST /auth/login   → returns a token
//   - POST /auth/logout  → clears the auth cookie
//   - GET  /auth/me      → current player (requires auth)
//   - GET  /results/mine → recent finished episodes (requires auth)
//   - GET  /stats/mine   → aggregate metrics for the player (requires auth)
//
// Signup and login also set an httpOnly auth cookie and move any daily
// results recorded under the anonymous cookie to the account. Tokens are
// accepted from "Authorization: Bearer <jwt>" or the auth cookie.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/connections/internal/auth"
	"github.com/robalobadob/connections/internal/puzzle"
)

const authCookieName = "connections_token"

type ctxPlayerKey struct{}

// playerFrom returns the authenticated player, or nil for guests.
func playerFrom(ctx context.Context) *auth.Player {
	p, _ := ctx.Value(ctxPlayerKey{}).(*auth.Player)
	return p
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(authCookieName); err == nil {
		return c.Value
	}
	return ""
}

// withOptionalAuth attaches the player to the context when a valid token is
// present. Invalid tokens are ignored; the request proceeds as a guest.
func (s *Server) withOptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Auth == nil {
			next.ServeHTTP(w, r)
			return
		}
		if tok := bearerToken(r); tok != "" {
			if p, err := s.deps.Auth.Verify(tok); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), ctxPlayerKey{}, p))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth rejects guests with 401.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if playerFrom(r.Context()) == nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// mountAuth registers /auth and /results routes.
func (s *Server) mountAuth(r chi.Router) {
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		setAuthCookie(w, "", time.Time{})
		w.WriteHeader(http.StatusNoContent)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(playerFrom(r.Context()))
		})
		r.Get("/results/mine", s.handleMyResults)
		r.Get("/stats/mine", s.handleMyStats)
	})
}

type credsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenRes struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	ID        string    `json:"id"`
	Username  string    `json:"username"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	p, err := s.deps.Auth.Signup(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		http.Error(w, `{"error":"username_taken"}`, http.StatusConflict)
		return
	case err != nil:
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Info().Str("player", p.ID).Str("username", p.Username).Msg("signup")
	s.claimAnonDaily(r, p.ID)
	s.writeToken(w, http.StatusCreated, p)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	p, err := s.deps.Auth.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		http.Error(w, `{"error":"invalid_credentials"}`, http.StatusUnauthorized)
		return
	case err != nil:
		log.Error().Err(err).Msg("login")
		http.Error(w, `{"error":"login_failed"}`, http.StatusInternalServerError)
		return
	}
	s.claimAnonDaily(r, p.ID)
	s.writeToken(w, http.StatusOK, p)
}

func (s *Server) writeToken(w http.ResponseWriter, status int, p *auth.Player) {
	tok, exp, err := s.deps.Auth.Sign(p)
	if err != nil {
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	setAuthCookie(w, tok, exp)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(tokenRes{Token: tok, ExpiresAt: exp, ID: p.ID, Username: p.Username})
}

func (s *Server) handleMyResults(w http.ResponseWriter, r *http.Request) {
	rs, err := s.deps.Results.Recent(r.Context(), playerFrom(r.Context()).ID, 50)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"results": rs})
}

// setAuthCookie writes the auth cookie; an empty token deletes it.
func setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c := &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	}
	if token == "" {
		c.Expires = time.Time{}
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

// claimAnonDaily moves daily results and live daily episodes from the
// anonymous cookie, if any, to the account. Failures are logged only.
func (s *Server) claimAnonDaily(r *http.Request, playerID string) {
	c, err := r.Cookie(anonCookieName)
	if err != nil || c.Value == "" {
		return
	}
	s.mu.Lock()
	for key, id := range s.daily {
		anon, date, _ := strings.Cut(key, "|")
		if anon != c.Value {
			continue
		}
		to := dailyKey(playerID, date)
		if _, taken := s.daily[to]; !taken {
			s.daily[to] = id
			if m := s.meta[id]; m != nil {
				m.PlayerID, m.DailyPlayer = playerID, playerID
			}
		}
		delete(s.daily, key)
	}
	s.mu.Unlock()
	if err := s.deps.Daily.Claim(r.Context(), c.Value, playerID); err != nil {
		log.Warn().Err(err).Str("player", playerID).Msg("claim anonymous daily results")
	}
}

func (s *Server) handleMyStats(w http.ResponseWriter, r *http.Request) {
	var split puzzle.Split
	if v := r.URL.Query().Get("split"); v != "" {
		sp, err := puzzle.ParseSplit(v)
		if err != nil {
			http.Error(w, `{"error":"bad_split"}`, http.StatusBadRequest)
			return
		}
		split = sp
	}
	sum, err := s.deps.Results.Summary(r.Context(), split, playerFrom(r.Context()).ID)
	if err != nil {
		log.Error().Err(err).Msg("my stats")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(sum)
}

// writeErr writes {"error": msg} with the given status.
func writeErr(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
