package server

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

var (
	// ErrCapacity is reported when a connection is turned away because
	// MaxSessions sessions are already running.
	ErrCapacity = errors.New("server at capacity")
	// ErrDisconnected wraps read/write failures that end a session.
	ErrDisconnected = errors.New("client disconnected")
)

// ConfigError reports a startup failure (bind/listen) before any connection is served.
type ConfigError struct {
	Op   string
	Addr string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("server: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config tunes the accept loop and sessions. The zero value (plus Addr) is a
// server that serves exactly one finished game, like the classic homework server.
type Config struct {
	Addr string // listen address, e.g. ":8192"

	MaxSessions  int           // concurrent sessions; 0 = unlimited
	AcceptRate   float64       // accepted connections per second; 0 = unlimited
	AcceptBurst  int           // burst for AcceptRate
	ReadTimeout  time.Duration // per-guess read deadline; 0 = none
	DrainTimeout time.Duration // bound on waiting for sessions at shutdown; 0 = wait
	KeepServing  bool          // do not stop accepting when a game finishes
}

// IndexSource yields dictionary indices for new sessions.
// Only the accept loop calls Next, so implementations need no locking.
type IndexSource interface {
	Next() int
}

type seededSource struct {
	r *rand.Rand
}

// NewSeededSource returns a deterministic, non-negative index stream for seed.
func NewSeededSource(seed int64) IndexSource {
	return &seededSource{r: rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))}
}

func (s *seededSource) Next() int { return int(s.r.Int32()) }
