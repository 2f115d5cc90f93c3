package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/robalobadob/wordle/apps/wordled/internal/game"
	"github.com/robalobadob/wordle/apps/wordled/internal/protocol"
	"github.com/robalobadob/wordle/apps/wordled/internal/store"
)

// finalWriteTimeout bounds the best-effort goodbye lines.
const finalWriteTimeout = time.Second

// session is one connection's game. Only its own goroutine touches it.
type session struct {
	srv     *Server
	conn    net.Conn
	w       *bufio.Writer
	id      string
	remote  string
	game    *game.Game
	started time.Time
	log     zerolog.Logger
	span    trace.Span
}

func newSession(srv *Server, conn net.Conn, id, target string) *session {
	remote := conn.RemoteAddr().String()
	return &session{
		srv:     srv,
		conn:    conn,
		w:       bufio.NewWriter(conn),
		id:      id,
		remote:  remote,
		game:    game.New(target),
		started: time.Now(),
		log:     srv.log.With().Str("session", id).Str("remote", remote).Logger(),
	}
}

func (ss *session) info() store.Session {
	return store.Session{
		ID:        ss.id,
		Remote:    ss.remote,
		State:     ss.game.State().String(),
		Guesses:   ss.game.Used,
		StartedAt: ss.started,
	}
}

// run plays the game to a terminal state and then finishes the session.
func (ss *session) run(ctx context.Context) {
	ctx, ss.span = ss.srv.tracer.Start(ctx, "wordle.session", trace.WithAttributes(
		attribute.String("session.id", ss.id),
		attribute.String("net.peer.addr", ss.remote),
	))
	defer ss.finish(ctx)
	defer func() {
		if r := recover(); r != nil {
			ss.log.Error().Interface("panic", r).Msg("session panicked")
			ss.span.SetStatus(codes.Error, "panic")
			ss.game.Abort()
		}
	}()

	ss.log.Info().Msg("waiting for guess")
	ss.line("connected to wordled; guess the %d-letter word (%d guesses)", protocol.GuessSize, game.MaxGuesses)
	if err := ss.w.Flush(); err != nil {
		ss.drop(err)
		return
	}

	for !ss.game.State().Terminal() {
		ss.line("enter guess:")
		if err := ss.w.Flush(); err != nil {
			ss.drop(err)
			return
		}

		if ss.srv.cfg.ReadTimeout > 0 {
			_ = ss.conn.SetReadDeadline(time.Now().Add(ss.srv.cfg.ReadTimeout))
		}
		guess, err := protocol.ReadGuess(ss.conn)
		if err != nil {
			ss.drop(err)
			return
		}

		res, gerr := ss.game.ApplyGuess(guess, ss.srv.dict)
		ss.srv.metrics.guess(res.Valid)
		ss.span.AddEvent("guess", trace.WithAttributes(
			attribute.Bool("valid", res.Valid),
			attribute.Int("remaining", res.Remaining),
			attribute.String("state", res.State.String()),
		))

		if gerr != nil {
			ss.log.Info().Str("guess", guess).Err(gerr).Int("remaining", res.Remaining).Msg("invalid guess; sending reply: ?????")
			ss.line("invalid guess -- %d guesses remaining", res.Remaining)
		} else {
			ss.log.Info().Str("guess", guess).Msg("rcvd guess")
			ss.log.Info().Str("feedback", res.Feedback).Int("remaining", res.Remaining).Msg("sending reply")
			ss.line("response: %s -- %d guesses remaining", res.Feedback, res.Remaining)
		}
		reply := protocol.Reply{Valid: res.Valid, Remaining: uint16(res.Remaining), Feedback: res.Feedback}
		if err := protocol.WriteReply(ss.w, reply); err != nil {
			ss.abort(err)
			return
		}
		if err := ss.w.Flush(); err != nil {
			ss.abort(err)
			return
		}

		if err := ss.srv.sessions.Save(ctx, ss.info()); err != nil {
			ss.log.Warn().Err(err).Msg("update session registry")
		}
	}
}

// line buffers one advisory text line; errors surface on the next Flush.
func (ss *session) line(format string, args ...any) {
	_ = protocol.WriteLine(ss.w, format, args...)
}

// drop ends a session whose peer went away while we were waiting on it.
func (ss *session) drop(err error) {
	ss.log.Info().Err(err).Int("guesses", ss.game.Used).Msg("client disconnected")
	ss.span.RecordError(fmt.Errorf("%w: %v", ErrDisconnected, err))
	ss.game.Disconnect()
}

// abort ends a session whose reply could not be delivered.
func (ss *session) abort(err error) {
	ss.log.Info().Err(err).Int("guesses", ss.game.Used).Msg("write failed; dropping client")
	ss.span.RecordError(fmt.Errorf("%w: %v", ErrDisconnected, err))
	ss.game.Abort()
}

// finish records the outcome, says goodbye, closes the connection and, unless
// the server keeps serving, asks it to stop accepting.
func (ss *session) finish(ctx context.Context) {
	state := ss.game.State()
	won := ss.game.Won()

	ss.srv.stats.Finish(won, ss.game.Used, ss.game.Target)

	_ = ss.conn.SetWriteDeadline(time.Now().Add(finalWriteTimeout))
	switch state {
	case game.Won:
		ss.line("you won!")
	case game.Exhausted:
		ss.line("game over! the word was %s", ss.game.Target)
	}
	ss.line("disconnecting...")
	_ = ss.w.Flush()
	ss.conn.Close()

	ss.log.Info().Str("outcome", state.String()).Int("guesses", ss.game.Used).
		Msgf("game over; word was %s!", ss.game.Target)

	finished := time.Now()
	if err := ss.srv.sessions.Delete(ctx, ss.id); err != nil {
		ss.log.Warn().Err(err).Msg("remove session from registry")
	}
	ss.srv.metrics.sessionEnded(state, ss.game.Used, finished.Sub(ss.started))
	if ss.srv.games != nil {
		rec := store.GameRecord{
			ID:         ss.id,
			Remote:     ss.remote,
			Word:       ss.game.Target,
			Outcome:    state.String(),
			Guesses:    ss.game.Used,
			StartedAt:  ss.started,
			FinishedAt: finished,
		}
		if err := ss.srv.games.Insert(ctx, rec); err != nil {
			ss.log.Warn().Err(err).Msg("record game")
		}
	}

	ss.span.SetAttributes(attribute.String("outcome", state.String()), attribute.Int("guesses", ss.game.Used))
	ss.span.End()

	if !ss.srv.cfg.KeepServing {
		ss.srv.RequestShutdown("game finished")
	}
}
