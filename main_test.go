package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/wordle/apps/wordled/internal/server"
	"github.com/robalobadob/wordle/apps/wordled/internal/stats"
	"github.com/robalobadob/wordle/apps/wordled/internal/words"
)

func TestParseServeArgs(t *testing.T) {
	good, err := parseServeArgs([]string{"8192", "-7", "words.txt", "100"})
	if err != nil {
		t.Fatalf("parseServeArgs: %v", err)
	}
	if good != (serveArgs{port: 8192, seed: -7, dictPath: "words.txt", numWords: 100}) {
		t.Errorf("args = %+v", good)
	}

	for _, args := range [][]string{
		{"8192", "1", "words.txt"},
		{"http", "1", "words.txt", "10"},
		{"70000", "1", "words.txt", "10"},
		{"8192", "seed", "words.txt", "10"},
		{"8192", "1", "words.txt", "0"},
		{"8192", "1", "words.txt", "many"},
	} {
		if _, err := parseServeArgs(args); !errors.Is(err, errUsage) {
			t.Errorf("parseServeArgs(%v) err = %v, want errUsage", args, err)
		}
	}
}

func TestRunServeRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	o := serveOptions{dbDSN: ":memory:", mode: "random"}

	err := runServe(ctx, serveArgs{dictPath: filepath.Join(t.TempDir(), "missing.txt"), numWords: 5}, o)
	var loadErr *words.LoadError
	if !errors.As(err, &loadErr) {
		t.Errorf("missing dictionary err = %v, want *words.LoadError", err)
	}

	dict := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(dict, []byte("apple\ncrane\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	o.mode = "weekly"
	if err := runServe(ctx, serveArgs{dictPath: dict, numWords: 5}, o); !errors.Is(err, errUsage) {
		t.Errorf("bad mode err = %v, want errUsage", err)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("WORDLE_TEST_DUR", "30")
	if d := getEnvDuration("WORDLE_TEST_DUR", 0); d != 30*time.Second {
		t.Errorf("bare seconds = %v", d)
	}
	t.Setenv("WORDLE_TEST_DUR", "250ms")
	if d := getEnvDuration("WORDLE_TEST_DUR", 0); d != 250*time.Millisecond {
		t.Errorf("duration = %v", d)
	}
	t.Setenv("WORDLE_STOP_AFTER_GAME", "false")
	if o := defaultServeOptions(); !o.keepServing {
		t.Error("WORDLE_STOP_AFTER_GAME=false should keep serving")
	}
	t.Setenv("WORDLE_MAX_SESSIONS", "nope")
	if n := getEnvInt("WORDLE_MAX_SESSIONS", 3); n != 3 {
		t.Errorf("bad int fell through as %d", n)
	}
}

func TestPlayAgainstServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := server.New(server.Config{}, words.New([]string{"apple", "crane"}), stats.New(),
		server.WithLogger(zerolog.New(zerolog.NewTestWriter(t))),
	)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	// Both words are in the dictionary; one of them is the target.
	var out bytes.Buffer
	if err := play(context.Background(), conn, strings.NewReader("xyzzy\ncrane\napple\n"), &out); err != nil {
		t.Fatalf("play: %v", err)
	}
	got := out.String()
	for _, want := range []string{"connected to wordled", "invalid guess -- 6 guesses remaining", "you won!", "disconnecting..."} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after the game")
	}
}

func TestPlayOverlongLineCostsNoGuess(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	st := stats.New()
	srv := server.New(server.Config{}, words.New([]string{"apple"}), st,
		server.WithLogger(zerolog.New(zerolog.NewTestWriter(t))),
	)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	var out bytes.Buffer
	if err := play(context.Background(), conn, strings.NewReader("applesauce\napple\n"), &out); err != nil {
		t.Fatalf("play: %v", err)
	}
	got := out.String()
	for _, want := range []string{"invalid guess -- 6 guesses remaining", "APPLE  (5 left)", "you won!"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after the game")
	}
	if snap := st.Snapshot(); snap.TotalGuesses != 1 || snap.TotalWins != 1 {
		t.Errorf("stats = %+v", snap)
	}
}
