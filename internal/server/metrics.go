package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/robalobadob/wordle/apps/wordled/internal/game"
)

// Metrics holds the Prometheus collectors for the game server.
// A nil *Metrics records nothing.
type Metrics struct {
	connections     prometheus.Counter
	rejected        *prometheus.CounterVec
	activeSessions  prometheus.Gauge
	guesses         *prometheus.CounterVec
	games           *prometheus.CounterVec
	gameGuesses     prometheus.Histogram
	sessionDuration prometheus.Histogram
}

// NewMetrics registers the server collectors with reg under the "wordled" namespace.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		connections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wordled",
			Name:      "connections_total",
			Help:      "Total number of accepted TCP connections",
		}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordled",
			Name:      "connections_rejected_total",
			Help:      "Connections closed without starting a session",
		}, []string{"reason"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "wordled",
			Name:      "active_sessions",
			Help:      "Number of sessions currently running",
		}),
		guesses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordled",
			Name:      "guesses_total",
			Help:      "Guess requests by result",
		}, []string{"result"}),
		games: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordled",
			Name:      "games_total",
			Help:      "Finished games by outcome",
		}, []string{"outcome"}),
		gameGuesses: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wordled",
			Name:      "game_guesses",
			Help:      "Valid guesses used per finished game",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6},
		}),
		sessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wordled",
			Name:      "session_duration_seconds",
			Help:      "Wall time from accept to session end",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
}

func (m *Metrics) accepted() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) reject(reason string) {
	if m != nil {
		m.rejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) sessionStarted() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

func (m *Metrics) guess(valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.guesses.WithLabelValues(result).Inc()
}

func (m *Metrics) sessionEnded(state game.State, used int, d time.Duration) {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
	m.games.WithLabelValues(state.String()).Inc()
	m.gameGuesses.Observe(float64(used))
	m.sessionDuration.Observe(d.Seconds())
}
