package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/robalobadob/wordle/apps/wordled/internal/stats"
	"github.com/robalobadob/wordle/apps/wordled/internal/store"
)

type fakeGame struct {
	snap     stats.Snapshot
	sessions []store.Session
	stopping bool
}

func (f *fakeGame) Stats() stats.Snapshot { return f.snap }
func (f *fakeGame) Sessions(context.Context) ([]store.Session, error) {
	return f.sessions, nil
}
func (f *fakeGame) ShuttingDown() bool { return f.stopping }

type fakeHistory struct {
	recs []store.GameRecord
	err  error
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]store.GameRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.recs) {
		return f.recs[:limit], nil
	}
	return f.recs, nil
}

func (f *fakeHistory) CountByOutcome(context.Context) (map[string]int, error) {
	out := map[string]int{}
	for _, r := range f.recs {
		out[r.Outcome]++
	}
	return out, f.err
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthReflectsShutdown(t *testing.T) {
	g := &fakeGame{}
	s := New(g, nil, nil, 10)

	if rec := get(t, s, "/health"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body)
	}
	g.stopping = true
	if rec := get(t, s, "/health"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("health while stopping = %d", rec.Code)
	}
}

func TestStats(t *testing.T) {
	g := &fakeGame{snap: stats.Snapshot{TotalGuesses: 7, TotalWins: 1, TotalLosses: 1, Games: 2, UsedWords: []string{"apple", "apple"}}}
	h := &fakeHistory{recs: []store.GameRecord{{ID: "a", Outcome: store.OutcomeWon}, {ID: "b", Outcome: store.OutcomeDisconnected}}}
	rec := get(t, New(g, h, nil, 10), "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	var body struct {
		TotalGuesses  int            `json:"totalGuesses"`
		Games         int            `json:"games"`
		DistinctWords []string       `json:"distinctWords"`
		WinRate       float64        `json:"winRate"`
		Outcomes      map[string]int `json:"outcomes"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.TotalGuesses != 7 || body.Games != 2 || body.WinRate != 0.5 {
		t.Errorf("body = %+v", body)
	}
	if len(body.DistinctWords) != 1 || body.Outcomes["won"] != 1 || body.Outcomes["disconnected"] != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestSessions(t *testing.T) {
	g := &fakeGame{sessions: []store.Session{{ID: "s1", Remote: "127.0.0.1:5000", State: "awaiting_guess", Guesses: 2, StartedAt: time.Now()}}}
	rec := get(t, New(g, nil, nil, 10), "/sessions")
	var out []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0]["id"] != "s1" || out[0]["guesses"].(float64) != 2 {
		t.Errorf("sessions = %v", out)
	}
}

func TestRecentGames(t *testing.T) {
	h := &fakeHistory{recs: []store.GameRecord{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	s := New(&fakeGame{}, h, nil, 10)

	var out []store.GameRecord
	rec := get(t, s, "/games/recent?limit=2")
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].ID != "a" {
		t.Errorf("recent = %+v", out)
	}

	if rec := get(t, s, "/games/recent?limit=0"); rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d", rec.Code)
	}
	if rec := get(t, New(&fakeGame{}, nil, nil, 10), "/games/recent"); rec.Code != http.StatusNotFound {
		t.Errorf("no history status = %d", rec.Code)
	}
	h.err = errors.New("disk on fire")
	if rec := get(t, s, "/games/recent"); rec.Code != http.StatusInternalServerError {
		t.Errorf("db error status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "wordled_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Add(3)

	rec := get(t, New(&fakeGame{}, nil, reg, 10), "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "wordled_test_total 3") {
		t.Fatalf("metrics = %d %s", rec.Code, rec.Body)
	}
	if rec := get(t, New(&fakeGame{}, nil, nil, 10), "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("metrics without gatherer = %d", rec.Code)
	}
}

func TestIndexAndNotFound(t *testing.T) {
	s := New(&fakeGame{}, nil, nil, 42)
	if rec := get(t, s, "/"); !strings.Contains(rec.Body.String(), `"words":42`) {
		t.Errorf("index = %s", rec.Body)
	}
	if rec := get(t, s, "/nope"); rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "not_found") {
		t.Errorf("404 = %d %s", rec.Code, rec.Body)
	}
}
