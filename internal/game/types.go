// internal/game/types.go
//
// Core type definitions for a single guessing session.
// Defines:
//   - State: where a session is in its guess/feedback loop.
//   - Result: the scored outcome of one guess request.
//   - Game: per-connection state (target word, guesses used).

package game

// State is a session state. Won, Exhausted and Disconnected are terminal.
type State int

const (
	AwaitingGuess State = iota
	Scoring
	Won
	Exhausted
	Disconnected
)

func (s State) String() string {
	switch s {
	case AwaitingGuess:
		return "awaiting_guess"
	case Scoring:
		return "scoring"
	case Won:
		return "won"
	case Exhausted:
		return "exhausted"
	case Disconnected:
		return "disconnected"
	}
	return "unknown"
}

// Terminal reports whether no further guesses are accepted in s.
func (s State) Terminal() bool {
	return s == Won || s == Exhausted || s == Disconnected
}

// Result is what one guess request produced.
type Result struct {
	Valid     bool   // false when the guess was rejected without consuming a turn
	Feedback  string // InvalidFeedback when !Valid
	Remaining int    // MaxGuesses - guesses used, after this request
	State     State  // session state after this request
}

// Game holds the state of one session. It is owned by a single goroutine.
type Game struct {
	Target     string   // the secret word, as picked from the dictionary
	MaxGuesses int      // guess budget (6)
	Used       int      // valid guesses consumed so far
	Guesses    []string // valid guesses, lowercased
	state      State
}
