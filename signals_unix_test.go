//go:build unix

package main

import (
	"os/signal"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type countingShutdowner struct {
	calls atomic.Int32
	seen  chan string
}

func (c *countingShutdowner) RequestShutdown(reason string) {
	c.calls.Add(1)
	c.seen <- reason
}

func TestWatchSignals(t *testing.T) {
	fake := &countingShutdowner{seen: make(chan string, 4)}
	stop := watchSignals(fake)
	t.Cleanup(func() {
		stop()
		signal.Reset(syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR2)
	})

	for _, sig := range []syscall.Signal{syscall.SIGUSR2, syscall.SIGTERM, syscall.SIGINT} {
		if err := syscall.Kill(syscall.Getpid(), sig); err != nil {
			t.Fatalf("kill %v: %v", sig, err)
		}
	}
	time.Sleep(100 * time.Millisecond)
	if n := fake.calls.Load(); n != 0 {
		t.Fatalf("shutdown requested %d times by ignored signals", n)
	}

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("kill SIGUSR1: %v", err)
	}
	select {
	case reason := <-fake.seen:
		if reason != "signal" {
			t.Errorf("reason = %q", reason)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("SIGUSR1 did not request shutdown")
	}
	time.Sleep(50 * time.Millisecond)
	if n := fake.calls.Load(); n != 1 {
		t.Errorf("shutdown requested %d times, want 1", n)
	}
}
