// internal/game/engine.go
//
// Game engine for a single guessing session.
// Responsibilities:
//   - Validate guesses (exact length, dictionary membership).
//   - Score guesses with the two-pass Wordle algorithm (Encode).
//   - Drive the session state machine: awaiting → scoring → awaiting | won | exhausted,
//     plus disconnected when the connection drops.
//
// Invalid guesses never consume a turn.
package game

import (
	"errors"
	"strings"

	"github.com/robalobadob/wordle/apps/wordled/internal/words"
)

const (
	// MaxGuesses is the per-session guess budget.
	MaxGuesses = 6
	// InvalidFeedback is sent in place of a feedback string for rejected guesses.
	InvalidFeedback = "?????"
)

var (
	ErrInvalidLength   = errors.New("invalid guess length")
	ErrNotInDictionary = errors.New("not in dictionary")
	ErrGameOver        = errors.New("game finished")
)

// Validator is the dictionary surface the engine needs.
type Validator interface {
	Contains(word string) bool
}

// New starts a game for target in the AwaitingGuess state.
func New(target string) *Game {
	return &Game{
		Target:     target,
		MaxGuesses: MaxGuesses,
		Guesses:    []string{},
		state:      AwaitingGuess,
	}
}

// State returns the current session state.
func (g *Game) State() State { return g.state }

// Remaining returns how many valid guesses are left.
func (g *Game) Remaining() int { return g.MaxGuesses - g.Used }

// Won reports whether the session ended with a correct guess.
func (g *Game) Won() bool { return g.state == Won }

// ApplyGuess scores one guess request.
//
// Rejected guesses (wrong length, not in dict) return a Result with Valid=false,
// InvalidFeedback and the unchanged remaining count, together with a
// ErrInvalidLength/ErrNotInDictionary error; the game stays in AwaitingGuess.
// Accepted guesses consume a turn and may move the game to Won or Exhausted.
func (g *Game) ApplyGuess(guess string, dict Validator) (Result, error) {
	if g.state.Terminal() {
		return Result{Feedback: InvalidFeedback, Remaining: g.Remaining(), State: g.state}, ErrGameOver
	}
	g.state = Scoring

	var rejected error
	switch {
	case len(guess) != words.WordLength:
		rejected = ErrInvalidLength
	case !dict.Contains(guess):
		rejected = ErrNotInDictionary
	}
	if rejected != nil {
		g.state = AwaitingGuess
		return Result{Feedback: InvalidFeedback, Remaining: g.Remaining(), State: g.state}, rejected
	}

	g.Used++
	g.Guesses = append(g.Guesses, strings.ToLower(guess))
	fb := Encode(guess, g.Target)

	switch {
	case strings.EqualFold(guess, g.Target):
		g.state = Won
	case g.Used >= g.MaxGuesses:
		g.state = Exhausted
	default:
		g.state = AwaitingGuess
	}
	return Result{Valid: true, Feedback: fb, Remaining: g.Remaining(), State: g.state}, nil
}

// Disconnect moves a non-terminal game to Disconnected.
func (g *Game) Disconnect() {
	if !g.state.Terminal() {
		g.state = Disconnected
	}
}

// Abort forces Disconnected, even over Won or Exhausted. Used when the reply
// announcing the outcome could not be delivered.
func (g *Game) Abort() {
	g.state = Disconnected
}

// Encode scores guess against target.
//
// Pass 1 marks exact-position matches with the uppercase guess letter and
// consumes that target position.
// Pass 2 walks the remaining guess positions left to right; each takes the
// first unconsumed target position holding the same letter (case-insensitive)
// and is marked with the lowercase guess letter.
// Everything else is '-'. A target letter is credited at most once, so
// repeated guess letters are only marked present as often as they remain.
//
// Both words must have the same length; the output has that length.
func Encode(guess, target string) string {
	n := len(guess)
	out := make([]byte, n)
	hit := make([]bool, n)
	used := make([]bool, len(target))

	for i := 0; i < n; i++ {
		out[i] = '-'
		if i < len(target) && lower(guess[i]) == lower(target[i]) {
			out[i] = upper(guess[i])
			hit[i], used[i] = true, true
		}
	}

	for i := 0; i < n; i++ {
		if hit[i] {
			continue
		}
		for j := 0; j < len(target); j++ {
			if !used[j] && lower(guess[i]) == lower(target[j]) {
				out[i] = lower(guess[i])
				used[j] = true
				break
			}
		}
	}
	return string(out)
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
