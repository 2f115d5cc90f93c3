// internal/stats/stats.go
//
// Process-wide game statistics shared by every session.
//
// Characteristics:
//   - One sync.Mutex guards all counters and the used-words log.
//   - Every mutation is a single short critical section; no I/O under the lock.
//   - Readers take the same lock (Snapshot), so partial updates are never seen.
//   - Lives for the whole process; never reset.

package stats

import (
	"sync"

	"github.com/samber/lo"
)

// Stats aggregates finished-game outcomes.
type Stats struct {
	mu           sync.Mutex
	totalGuesses int
	totalWins    int
	totalLosses  int
	usedWords    []string
}

// Snapshot is a consistent copy of Stats at one instant.
type Snapshot struct {
	TotalGuesses int      `json:"totalGuesses"`
	TotalWins    int      `json:"totalWins"`
	TotalLosses  int      `json:"totalLosses"`
	Games        int      `json:"games"`
	UsedWords    []string `json:"usedWords"`
}

// New returns zeroed statistics.
func New() *Stats {
	return &Stats{usedWords: []string{}}
}

// Finish records a finished game and its target word in one critical
// section, so a Snapshot always has Games == len(UsedWords) for sessions
// that end through Finish.
func (s *Stats) Finish(won bool, guessesUsed int, word string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordOutcome(won, guessesUsed)
	s.usedWords = append(s.usedWords, word)
}

// RecordOutcome adds one finished game. Disconnected games count as losses.
func (s *Stats) RecordOutcome(won bool, guessesUsed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordOutcome(won, guessesUsed)
}

// AppendUsedWord logs the target word of a finished game.
func (s *Stats) AppendUsedWord(word string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usedWords = append(s.usedWords, word)
}

func (s *Stats) recordOutcome(won bool, guessesUsed int) {
	s.totalGuesses += guessesUsed
	if won {
		s.totalWins++
	} else {
		s.totalLosses++
	}
}

// Snapshot returns a consistent copy of the counters and used-words log.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		TotalGuesses: s.totalGuesses,
		TotalWins:    s.totalWins,
		TotalLosses:  s.totalLosses,
		Games:        s.totalWins + s.totalLosses,
		UsedWords:    append([]string(nil), s.usedWords...),
	}
}

// DistinctWords returns the used words with duplicates removed, in first-use order.
func (sn Snapshot) DistinctWords() []string {
	return lo.Uniq(sn.UsedWords)
}

// WinRate is wins over games, or 0 before any game finished.
func (sn Snapshot) WinRate() float64 {
	if sn.Games == 0 {
		return 0
	}
	return float64(sn.TotalWins) / float64(sn.Games)
}
