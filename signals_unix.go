//go:build unix

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

type shutdowner interface {
	RequestShutdown(reason string)
}

// watchSignals turns SIGUSR1 into a shutdown request and ignores the usual
// termination signals. The returned func stops watching.
func watchSignals(s shutdowner) func() {
	signal.Ignore(syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR2)

	ch := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(ch, syscall.SIGUSR1)
	go func() {
		for {
			select {
			case sig := <-ch:
				log.Info().Str("signal", sig.String()).Msg("SIGUSR1 rcvd; shutting down")
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
