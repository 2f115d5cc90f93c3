// internal/httpserver/server.go
//
// HTTP status surface for a running wordled.
// Responsibilities:
//   - Router + middleware (JSON, timeouts, panic recovery, request IDs).
//   - Diagnostics: "/", "/health" (503 once the game server is shutting down).
//   - Read-only views: /stats (aggregate statistics), /sessions (live games),
//     /games/recent (finished-game log, when one is configured).
//   - Prometheus scrape endpoint: /metrics.
//
// Notes:
//   - Nothing here mutates game state; players only ever talk TCP.
//   - Shuts down with its context so the process can exit once the game
//     server has drained.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle/apps/wordled/internal/stats"
	"github.com/robalobadob/wordle/apps/wordled/internal/store"
)

// GameServer is the part of the TCP server the status API reads.
type GameServer interface {
	Stats() stats.Snapshot
	Sessions(ctx context.Context) ([]store.Session, error)
	ShuttingDown() bool
}

// GameHistory is the finished-game log. *store.GameLog implements it.
type GameHistory interface {
	Recent(ctx context.Context, limit int) ([]store.GameRecord, error)
	CountByOutcome(ctx context.Context) (map[string]int, error)
}

// Server bundles the router and what it reports on.
type Server struct {
	r       *chi.Mux
	game    GameServer
	history GameHistory
	words   int
}

// New constructs a Server, installs middleware, and registers routes.
// history may be nil; gatherer may be nil to skip /metrics.
func New(game GameServer, history GameHistory, gatherer prometheus.Gatherer, dictSize int) *Server {
	s := &Server{r: chi.NewRouter(), game: game, history: history, words: dictSize}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))

	if gatherer != nil {
		s.r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.r.Group(func(r chi.Router) {
		r.Use(jsonContentType)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"service":   "wordled",
				"words":     s.words,
				"endpoints": []string{"/health", "/stats", "/sessions", "/games/recent", "/metrics"},
			})
		})
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Get("/sessions", s.handleSessions)
		r.Get("/games/recent", s.handleRecent)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
		})
	})

	return s
}

// Start serves HTTP on addr until ctx is cancelled, then shuts down.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- hs.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("status server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.game.ShuttingDown() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"ok":false,"state":"shutting_down"}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"state":"accepting"}`))
}

type statsRes struct {
	stats.Snapshot
	DistinctWords []string       `json:"distinctWords"`
	WinRate       float64        `json:"winRate"`
	Outcomes      map[string]int `json:"outcomes,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.game.Stats()
	res := statsRes{Snapshot: snap, DistinctWords: snap.DistinctWords(), WinRate: snap.WinRate()}
	if s.history != nil {
		counts, err := s.history.CountByOutcome(r.Context())
		if err != nil {
			log.Warn().Err(err).Msg("count games by outcome")
		} else {
			res.Outcomes = counts
		}
	}
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.game.Sessions(r.Context())
	if err != nil {
		http.Error(w, `{"error":"sessions_unavailable"}`, http.StatusInternalServerError)
		return
	}
	type sessionRow struct {
		ID        string    `json:"id"`
		Remote    string    `json:"remote"`
		State     string    `json:"state"`
		Guesses   int       `json:"guesses"`
		StartedAt time.Time `json:"startedAt"`
	}
	out := make([]sessionRow, 0, len(list))
	for _, ss := range list {
		out = append(out, sessionRow{ID: ss.ID, Remote: ss.Remote, State: ss.State, Guesses: ss.Guesses, StartedAt: ss.StartedAt})
	}
	_ = json.NewEncoder(w).Encode(out)
}

// handleRecent lists finished games, newest first. ?limit=N (1..100, default 20).
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, `{"error":"history_disabled"}`, http.StatusNotFound)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, `{"error":"bad_limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("recent games")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []store.GameRecord{}
	}
	_ = json.NewEncoder(w).Encode(recs)
}
