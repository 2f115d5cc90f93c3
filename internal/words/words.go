// internal/words/words.go
//
// Dictionary of fixed-length words used to pick targets and validate guesses.
//
// Responsibilities:
//   - Load up to N words from a line-oriented text file.
//   - Answer case-insensitive membership queries (Contains).
//   - Return the word at a (random) index, folded into range (Pick).
//
// Constraints:
//   • Every stored word is exactly WordLength ASCII letters; other lines are skipped.
//   • The dictionary is immutable after Load and safe for concurrent readers.

package words

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// WordLength is the only word size the server plays with.
const WordLength = 5

// ErrEmpty is returned (wrapped in a LoadError) when no usable word was read.
var ErrEmpty = errors.New("words: dictionary is empty")

// LoadError reports a dictionary that could not be opened, read, or used.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("words: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Dictionary is an ordered, read-only list of words.
type Dictionary struct {
	words []string
}

// New builds a dictionary from an in-memory list, applying the same
// normalization and length filter as Load.
func New(list []string) *Dictionary {
	return &Dictionary{words: lo.FilterMap(list, func(w string, _ int) (string, bool) {
		w = strings.TrimSpace(w)
		return w, isWord(w)
	})}
}

// Load reads at most limit words from path, one per line.
// Line terminators and surrounding whitespace are trimmed; lines that are not
// WordLength letters are skipped. A file shorter than limit is not an error.
// A limit <= 0 means no limit.
func Load(path string, limit int) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	var out []string
	skipped := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if limit > 0 && len(out) >= limit {
			break
		}
		w := strings.TrimSpace(sc.Text())
		if !isWord(w) {
			skipped++
			continue
		}
		out = append(out, w)
	}
	if err := sc.Err(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if len(out) == 0 {
		return nil, &LoadError{Path: path, Err: ErrEmpty}
	}
	if skipped > 0 {
		log.Debug().Str("path", path).Int("skipped", skipped).Msg("skipped lines that are not 5-letter words")
	}
	return &Dictionary{words: out}, nil
}

// Contains reports whether word case-insensitively equals some entry.
// It is a linear scan; guesses are rare compared to dictionary size.
func (d *Dictionary) Contains(word string) bool {
	for _, w := range d.words {
		if strings.EqualFold(w, word) {
			return true
		}
	}
	return false
}

// Pick returns the entry at index mod Len. Negative indices are folded too.
func (d *Dictionary) Pick(index int) string {
	n := len(d.words)
	if n == 0 {
		return ""
	}
	i := index % n
	if i < 0 {
		i += n
	}
	return d.words[i]
}

// Len returns the number of stored words.
func (d *Dictionary) Len() int { return len(d.words) }

// Words returns a copy of the stored words in load order.
func (d *Dictionary) Words() []string {
	return append([]string(nil), d.words...)
}

// isWord reports whether s is exactly WordLength ASCII letters (either case).
func isWord(s string) bool {
	if len(s) != WordLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}
