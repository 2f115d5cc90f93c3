//go:build !unix

package main

import (
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
)

type shutdowner interface {
	RequestShutdown(reason string)
}

// watchSignals turns an interrupt into a shutdown request; there is no
// SIGUSR1 here. The returned func stops watching.
func watchSignals(s shutdowner) func() {
	ch := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(ch, os.Interrupt)
	go func() {
		for {
			select {
			case sig := <-ch:
				log.Info().Str("signal", sig.String()).Msg("interrupt rcvd; shutting down")
				s.RequestShutdown("signal")
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
