// internal/httpserver/routes_daily.go
//
// HTTP routes for the daily puzzle.
//   - GET /daily             → today's date and puzzle id
//   - GET /daily/leaderboard → top 20 results for today (or ?date=)
//
// Daily episodes are started through POST /episodes {"daily":true}; each
// player (account or anonymous cookie) gets one play per UTC day.

package httpserver

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/connections/internal/daily"
	"github.com/robalobadob/connections/internal/puzzle"
)

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Get("/", s.handleDaily)
		r.Get("/leaderboard", s.handleLeaderboard)
	})
}

// todaysPuzzle returns today's date key and the puzzle chosen for it.
func (s *Server) todaysPuzzle() (string, *puzzle.Puzzle) {
	now := time.Now().UTC()
	all := s.deps.Catalog.All()
	return daily.DateKey(now), all[daily.PuzzleIndex(now, s.cfg.DailySalt, len(all))]
}

type dailyRes struct {
	Date     string `json:"date"`
	PuzzleID string `json:"puzzleId"`
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	date, p := s.todaysPuzzle()
	_ = json.NewEncoder(w).Encode(dailyRes{Date: date, PuzzleID: p.ID})
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date, _ = s.todaysPuzzle()
	}
	rows, err := s.deps.Daily.Leaderboard(r.Context(), date, 20)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}

const anonCookieName = "connections_anon"

// ensureAnonID returns an existing anon cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := "anon_" + genID()
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  time.Now().Add(180 * 24 * time.Hour),
	})
	return id
}

// genID creates a URL‑safe, crypto‑random identifier.
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// randIndex returns a uniform index in [0, n).
func randIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
