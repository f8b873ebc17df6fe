// internal/httpserver/server.go
//
// HTTP server wiring for the Connections backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/puzzles", "/stats".
//   - Episode endpoints (optional auth): POST /episodes, GET /episodes/{id},
//     POST /episodes/{id}/turns, GET /episodes/{id}/ws.
//   - Daily puzzle endpoints: mounted under /daily.
//   - Auth endpoints: /auth/*, /results/mine.
//   - Persisting finished episodes (results store, daily store).
//
// Notes:
//   - Turns on one episode are serialized by the session store.
//   - A finished episode is persisted exactly once, then its bookkeeping
//     is dropped; idle episodes are swept from the store.
//   - A daily start for a player|date that already has a live episode
//     returns that episode instead of a fresh budget.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/connections/internal/auth"
	"github.com/robalobadob/connections/internal/catalog"
	"github.com/robalobadob/connections/internal/daily"
	"github.com/robalobadob/connections/internal/game"
	"github.com/robalobadob/connections/internal/puzzle"
	"github.com/robalobadob/connections/internal/results"
	"github.com/robalobadob/connections/internal/store"
)

// Config holds server tunables.
type Config struct {
	MaxTurns       int           // per-episode turn guard
	DailySalt      string        // HMAC salt for the daily puzzle
	ClientOrigin   string        // CORS origin
	RequestTimeout time.Duration // handler deadline (not applied to websockets)
	SessionTTL     time.Duration // idle time before a live episode is swept
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Store   store.Store
	Catalog *catalog.Catalog
	Results *results.Store
	Daily   *daily.Store
	Auth    *auth.Service
}

// Server bundles router, session store, catalog and persistence.
type Server struct {
	r    *chi.Mux
	cfg  Config
	deps Deps

	mu    sync.Mutex
	meta  map[string]*episodeMeta // keyed by episode ID
	daily map[string]string       // player|date -> live episode ID
}

// episodeMeta is server-side bookkeeping that is not game state.
type episodeMeta struct {
	PlayerID    string // account id, empty for guests
	DailyPlayer string // account or anonymous id, daily episodes only
	DailyDate   string
	Start       time.Time
}

func dailyKey(player, date string) string { return player + "|" + date }

// New constructs a Server, installs middleware, and registers routes.
func New(cfg Config, deps Deps) *Server {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = game.DefaultMaxTurns
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.ClientOrigin == "" {
		cfg.ClientOrigin = "http://localhost:5173"
	}
	s := &Server{r: chi.NewRouter(), cfg: cfg, deps: deps, meta: make(map[string]*episodeMeta), daily: make(map[string]string)}

	// --- middleware ---
	s.r.Use(chimw.RequestID)    // add X-Request-ID
	s.r.Use(chimw.RealIP)       // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)    // recover from panics
	s.r.Use(s.cors)             // credentials-friendly CORS
	s.r.Use(s.withOptionalAuth) // attach player when a valid token is present

	// websocket upgrades must not get the JSON header or a handler deadline
	s.r.Get("/episodes/{id}/ws", s.handleEpisodeWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(cfg.RequestTimeout)) // bound handler time
		r.Use(jsonContentType)                   // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"connections-go","endpoints":["/health","/puzzles","POST /episodes","POST /episodes/{id}/turns","/daily","/stats","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		r.Get("/puzzles", s.handlePuzzles)
		r.Get("/stats", s.handleStats)

		r.Post("/episodes", s.handleNewEpisode)
		r.Get("/episodes/{id}", s.handleGetEpisode)
		r.Post("/episodes/{id}/turns", s.handleTurn)

		s.mountDaily(r)
		s.mountAuth(r)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
		})
	})

	return s
}

// Start begins serving HTTP on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdown)
	}()
	go s.sweepLoop(ctx)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// sweepLoop periodically drops idle episodes and their bookkeeping.
func (s *Server) sweepLoop(ctx context.Context) {
	t := time.NewTicker(s.cfg.SessionTTL / 4)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweep(ctx)
		}
	}
}

func (s *Server) sweep(ctx context.Context) {
	gone := s.deps.Store.Sweep(ctx, s.cfg.SessionTTL)
	if len(gone) == 0 {
		return
	}
	s.mu.Lock()
	for _, id := range gone {
		if m := s.meta[id]; m != nil && m.DailyDate != "" {
			delete(s.daily, dailyKey(m.DailyPlayer, m.DailyDate))
		}
		delete(s.meta, id)
	}
	s.mu.Unlock()
	log.Debug().Int("episodes", len(gone)).Msg("swept idle episodes")
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.ClientOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ PUZZLES ------------------------------------

type puzzleRow struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

// handlePuzzles lists a split: GET /puzzles?split=eval&limit=10 (default train).
func (s *Server) handlePuzzles(w http.ResponseWriter, r *http.Request) {
	split := puzzle.SplitTrain
	if v := r.URL.Query().Get("split"); v != "" {
		sp, err := puzzle.ParseSplit(v)
		if err != nil {
			http.Error(w, `{"error":"bad_split"}`, http.StatusBadRequest)
			return
		}
		split = sp
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	out := []puzzleRow{}
	for _, p := range s.deps.Catalog.List(split, limit) {
		out = append(out, puzzleRow{ID: p.ID, Date: p.Date})
	}
	_ = json.NewEncoder(w).Encode(out)
}

// handleStats aggregates persisted results: GET /stats?split=eval.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var split puzzle.Split
	if v := r.URL.Query().Get("split"); v != "" {
		sp, err := puzzle.ParseSplit(v)
		if err != nil {
			http.Error(w, `{"error":"bad_split"}`, http.StatusBadRequest)
			return
		}
		split = sp
	}
	sum, err := s.deps.Results.Summary(r.Context(), split, "")
	if err != nil {
		log.Error().Err(err).Msg("stats")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(sum)
}

// ------------------------------ EPISODES -----------------------------------

// newEpisodeReq/Res payloads for POST /episodes.
type newEpisodeReq struct {
	PuzzleID string `json:"puzzleId"` // optional; random puzzle otherwise
	Daily    bool   `json:"daily"`    // play today's puzzle
}
type newEpisodeRes struct {
	EpisodeID string     `json:"episodeId"`
	PuzzleID  string     `json:"puzzleId"`
	System    string     `json:"system"`
	Question  string     `json:"question"`
	State     game.State `json:"state"`
}

// handleNewEpisode creates an episode for the requested, daily, or a random puzzle.
func (s *Server) handleNewEpisode(w http.ResponseWriter, r *http.Request) {
	var req newEpisodeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	meta := &episodeMeta{Start: time.Now()}
	if me := playerFrom(r.Context()); me != nil {
		meta.PlayerID = me.ID
	}

	var (
		p   *puzzle.Puzzle
		err error
	)
	switch {
	case req.Daily:
		var date string
		date, p = s.todaysPuzzle()
		pid := meta.PlayerID
		if pid == "" {
			pid = s.ensureAnonID(w, r)
		}
		played, err := s.deps.Daily.AlreadyPlayed(r.Context(), pid, date)
		if err != nil {
			log.Error().Err(err).Str("player", pid).Msg("daily lookup")
			http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
			return
		}
		if played {
			http.Error(w, `{"error":"already_played","date":"`+date+`"}`, http.StatusConflict)
			return
		}
		if s.resumeDaily(w, r, dailyKey(pid, date)) {
			return
		}
		meta.DailyPlayer, meta.DailyDate = pid, date
	case req.PuzzleID != "":
		p, err = s.deps.Catalog.Get(req.PuzzleID)
		if err != nil {
			http.Error(w, `{"error":"unknown_puzzle"}`, http.StatusNotFound)
			return
		}
	default:
		all := s.deps.Catalog.All()
		p = all[randIndex(len(all))]
	}

	e := game.New(p, s.cfg.MaxTurns)
	if err := s.deps.Store.Save(r.Context(), e); err != nil {
		log.Error().Err(err).Msg("save episode")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	s.mu.Lock()
	if meta.DailyDate != "" {
		key := dailyKey(meta.DailyPlayer, meta.DailyDate)
		if _, raced := s.daily[key]; raced {
			s.mu.Unlock()
			if !s.resumeDaily(w, r, key) {
				http.Error(w, `{"error":"already_played"}`, http.StatusConflict)
			}
			return
		}
		s.daily[key] = e.ID
	}
	s.meta[e.ID] = meta
	s.mu.Unlock()

	log.Info().Str("episode", e.ID).Str("puzzle", p.ID).Bool("daily", meta.DailyDate != "").Msg("episode started")
	_ = json.NewEncoder(w).Encode(newEpisodeRes{
		EpisodeID: e.ID,
		PuzzleID:  p.ID,
		System:    game.SystemPrompt,
		Question:  e.Question(),
		State:     e.State,
	})
}

// resumeDaily answers with the live daily episode for key, if there is one.
// A daily episode that is no longer in the store counts as played.
func (s *Server) resumeDaily(w http.ResponseWriter, r *http.Request, key string) bool {
	s.mu.Lock()
	id, ok := s.daily[key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	e, err := s.deps.Store.Get(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"already_played"}`, http.StatusConflict)
		return true
	}
	log.Info().Str("episode", e.ID).Msg("daily episode resumed")
	_ = json.NewEncoder(w).Encode(newEpisodeRes{
		EpisodeID: e.ID,
		PuzzleID:  e.Puzzle.ID,
		System:    game.SystemPrompt,
		Question:  e.Question(),
		State:     e.State,
	})
	return true
}

type episodeRes struct {
	EpisodeID string       `json:"episodeId"`
	State     game.State   `json:"state"`
	Metrics   game.Metrics `json:"metrics"`
	Done      bool         `json:"done"`
}

// handleGetEpisode returns the current state of an episode.
func (s *Server) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	e, err := s.deps.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(episodeRes{EpisodeID: e.ID, State: e.State, Metrics: game.Score(e.State), Done: e.Done()})
}

// turnReq/Res payloads for POST /episodes/{id}/turns.
type turnReq struct {
	Content string `json:"content"` // the player's raw turn text
}
type turnRes struct {
	game.Turn
	Done    bool         `json:"done"`
	State   game.State   `json:"state"`
	Metrics game.Metrics `json:"metrics"`
}

// handleTurn judges one turn and persists the episode once it is done.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	res, err := s.playTurn(r.Context(), chi.URLParam(r, "id"), req.Content)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	case errors.Is(err, game.ErrEpisodeOver):
		http.Error(w, `{"error":"episode_over"}`, http.StatusConflict)
		return
	case err != nil:
		log.Error().Err(err).Msg("turn")
		http.Error(w, `{"error":"turn_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

// playTurn applies content to the episode under its lock. Shared by the
// HTTP and websocket surfaces.
func (s *Server) playTurn(ctx context.Context, id, content string) (*turnRes, error) {
	var (
		res      turnRes
		finished *game.Episode
	)
	err := s.deps.Store.Update(ctx, id, func(e *game.Episode) error {
		turn, err := e.ApplyGuess(content)
		if err != nil {
			return err
		}
		res = turnRes{Turn: turn, Done: e.Done(), State: e.State, Metrics: game.Score(e.State)}
		res.State.RemainingWords = append([]string(nil), e.State.RemainingWords...)
		res.State.FoundGroups = append([]game.FoundGroup{}, e.State.FoundGroups...)
		if res.Done {
			cp := *e
			cp.State = res.State
			finished = &cp
		}
		log.Debug().Str("episode", id).Str("verdict", string(turn.Verdict)).
			Str("reason", string(turn.Reason)).Int("mistakes", e.State.Mistakes).Msg("turn judged")
		return nil
	})
	if err != nil {
		return nil, err
	}
	if finished != nil {
		s.persist(ctx, finished)
	}
	return &res, nil
}

// persist writes a finished episode to the results store (and the daily
// store for daily plays), once. Failures are logged, not surfaced.
func (s *Server) persist(ctx context.Context, e *game.Episode) {
	s.mu.Lock()
	meta := s.meta[e.ID]
	delete(s.meta, e.ID)
	s.mu.Unlock()
	if meta == nil {
		return
	}
	m := *meta

	res := results.FromEpisode(e, m.PlayerID)
	if err := s.deps.Results.Insert(ctx, res); err != nil {
		log.Warn().Err(err).Str("episode", e.ID).Msg("persist result")
	}
	if m.DailyDate != "" {
		err := s.deps.Daily.InsertResult(ctx, daily.Result{
			PlayerID:    m.DailyPlayer,
			Date:        m.DailyDate,
			PuzzleID:    e.Puzzle.ID,
			Won:         e.State.Outcome == game.OutcomeWon,
			Mistakes:    e.State.Mistakes,
			GroupsFound: len(e.State.FoundGroups),
			ElapsedMs:   int(time.Since(m.Start).Milliseconds()),
		})
		if err != nil {
			log.Warn().Err(err).Str("episode", e.ID).Msg("persist daily result")
		} else {
			s.mu.Lock()
			delete(s.daily, dailyKey(m.DailyPlayer, m.DailyDate))
			s.mu.Unlock()
		}
	}
	log.Info().Str("episode", e.ID).Str("outcome", string(e.State.Outcome)).
		Float64("reward", res.Metrics.Reward).Msg("episode finished")
}
