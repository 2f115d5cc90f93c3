// internal/server/server.go
//
// TCP game server.
// Responsibilities:
//   - Own the listener and the accept loop; one goroutine per accepted connection.
//   - Pick each session's target word from the dictionary via an IndexSource.
//   - Keep the shutdown flag: set once by RequestShutdown (signal handler or a
//     finished session), which wakes the accept loop by closing the listener.
//   - Supervise sessions (registry + WaitGroup) and drain them on shutdown.
//
// Notes:
//   - Unless Config.KeepServing is set, the first session to finish anywhere
//     stops the accept loop; sessions already running still play to the end.
//   - Shared state mutated by sessions lives in stats.Stats (one mutex).

package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/robalobadob/wordle/apps/wordled/internal/protocol"
	"github.com/robalobadob/wordle/apps/wordled/internal/stats"
	"github.com/robalobadob/wordle/apps/wordled/internal/store"
	"github.com/robalobadob/wordle/apps/wordled/internal/words"
)

const tracerName = "github.com/robalobadob/wordle/apps/wordled/internal/server"

// GameRecorder persists finished games. *store.GameLog implements it.
type GameRecorder interface {
	Insert(ctx context.Context, r store.GameRecord) error
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Server) { s.log = l } }

// WithIndexSource sets how target indices are drawn.
func WithIndexSource(src IndexSource) Option { return func(s *Server) { s.source = src } }

// WithSessionStore replaces the in-memory session registry.
func WithSessionStore(st store.Store) Option { return func(s *Server) { s.sessions = st } }

// WithGameRecorder logs every finished game to r.
func WithGameRecorder(r GameRecorder) Option { return func(s *Server) { s.games = r } }

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option { return func(s *Server) { s.metrics = m } }

// WithTracer overrides the OpenTelemetry tracer (default: global provider).
func WithTracer(t trace.Tracer) Option { return func(s *Server) { s.tracer = t } }

// Server accepts connections and runs one game session per connection.
type Server struct {
	cfg      Config
	dict     *words.Dictionary
	stats    *stats.Stats
	source   IndexSource
	sessions store.Store
	games    GameRecorder
	metrics  *Metrics
	tracer   trace.Tracer
	log      zerolog.Logger
	limiter  *rate.Limiter

	shutdown atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}

	readyOnce sync.Once
	ready     chan struct{}

	mu    sync.Mutex
	ln    net.Listener
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// New builds a server for dict that records outcomes into st.
func New(cfg Config, dict *words.Dictionary, st *stats.Stats, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		dict:     dict,
		stats:    st,
		source:   NewSeededSource(1),
		sessions: store.NewMemoryStore(),
		tracer:   otel.Tracer(tracerName),
		log:      log.With().Str("component", "server").Logger(),
		stopCh:   make(chan struct{}),
		ready:    make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.AcceptRate > 0 {
		burst := cfg.AcceptBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), burst)
	}
	return s
}

// Run listens on Config.Addr and serves until shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return &ConfigError{Op: "listen", Addr: s.cfg.Addr, Err: err}
	}
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop on ln until RequestShutdown is called, ctx is
// cancelled, or Accept fails permanently. It then closes ln, waits for
// running sessions and returns. A graceful stop returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })

	s.log.Info().Str("addr", ln.Addr().String()).Int("words", s.dict.Len()).Msg("wordle server listening")

	// Sessions outlive the accept loop's context.
	sessCtx := context.WithoutCancel(ctx)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-loopCtx.Done():
		case <-s.stopCh:
		}
		cancel()
		ln.Close()
	}()

	err := s.acceptLoop(loopCtx, sessCtx, ln)
	ln.Close()

	s.log.Info().Int("sessions", s.sessions.Len()).Msg("wordle server shutting down")
	s.drain()
	return err
}

func (s *Server) acceptLoop(ctx, sessCtx context.Context, ln net.Listener) error {
	var tempDelay time.Duration
	for {
		if s.stopping(ctx) {
			return nil
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			if s.stopping(ctx) {
				return nil
			}
			if isTemporary(err) {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if tempDelay > time.Second {
					tempDelay = time.Second
				}
				s.log.Warn().Err(err).Dur("retry_in", tempDelay).Msg("accept failed")
				select {
				case <-time.After(tempDelay):
				case <-ctx.Done():
				}
				continue
			}
			s.log.Error().Err(err).Msg("accept failed")
			return err
		}
		tempDelay = 0

		s.metrics.accepted()
		s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("rcvd incoming connection request")

		if s.stopping(ctx) {
			s.reject(conn, "shutting_down", "server shutting down")
			return nil
		}
		if s.cfg.MaxSessions > 0 && s.sessions.Len() >= s.cfg.MaxSessions {
			s.log.Warn().Err(ErrCapacity).Int("max", s.cfg.MaxSessions).Msg("rejecting connection")
			s.reject(conn, "capacity", "server busy; try again later")
			continue
		}

		target := s.dict.Pick(s.source.Next())
		s.spawn(sessCtx, conn, target)
	}
}

func (s *Server) stopping(ctx context.Context) bool {
	return s.shutdown.Load() || ctx.Err() != nil
}

// spawn registers and starts a session. The registry entry and WaitGroup slot
// are taken before the goroutine starts so drain can never miss it.
func (s *Server) spawn(ctx context.Context, conn net.Conn, target string) {
	ss := newSession(s, conn, uuid.NewString(), target)

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	s.wg.Add(1)
	if err := s.sessions.Save(ctx, ss.info()); err != nil {
		s.log.Warn().Err(err).Str("session", ss.id).Msg("register session")
	}
	s.metrics.sessionStarted()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
		}()
		ss.run(ctx)
	}()
}

// reject closes a connection that will not get a session.
func (s *Server) reject(conn net.Conn, reason, notice string) {
	s.metrics.reject(reason)
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = protocol.WriteLine(conn, "%s", notice)
	conn.Close()
}

// drain waits for running sessions. With a DrainTimeout, connections still
// open when it expires are closed, which ends their sessions as disconnected.
func (s *Server) drain() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	if s.cfg.DrainTimeout <= 0 {
		<-done
		return
	}
	select {
	case <-done:
		return
	case <-time.After(s.cfg.DrainTimeout):
	}

	s.mu.Lock()
	n := len(s.conns)
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.log.Warn().Int("sessions", n).Dur("timeout", s.cfg.DrainTimeout).Msg("drain timeout; closed remaining connections")
	<-done
}

// RequestShutdown sets the shutdown flag and wakes the accept loop.
// It is safe to call any number of times from any goroutine.
func (s *Server) RequestShutdown(reason string) {
	s.shutdown.Store(true)
	s.stopOnce.Do(func() {
		s.log.Info().Str("reason", reason).Msg("shutdown requested")
		close(s.stopCh)
	})
}

// ShuttingDown reports whether RequestShutdown has been called.
func (s *Server) ShuttingDown() bool { return s.shutdown.Load() }

// Done is closed once shutdown has been requested.
func (s *Server) Done() <-chan struct{} { return s.stopCh }

// Ready is closed once the server has a listener.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ActiveSessions returns the number of sessions still running.
func (s *Server) ActiveSessions() int { return s.sessions.Len() }

// Sessions lists live sessions.
func (s *Server) Sessions(ctx context.Context) ([]store.Session, error) {
	return s.sessions.List(ctx)
}

// Stats returns a consistent snapshot of the shared statistics.
func (s *Server) Stats() stats.Snapshot { return s.stats.Snapshot() }

// isTemporary reports accept errors worth retrying (the EINTR/EMFILE class).
func isTemporary(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	for _, errno := range []syscall.Errno{syscall.EINTR, syscall.ECONNABORTED, syscall.EMFILE, syscall.ENFILE, syscall.EAGAIN} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

var _ GameRecorder = (*store.GameLog)(nil)
