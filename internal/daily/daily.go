// Package daily picks the same target for every connection on a given UTC day.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey formats t as the UTC calendar day, e.g. "2026-10-16".
func DateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// Source is an index source keyed on the UTC day. Size is the dictionary
// length; the salt keeps the sequence from being guessable from the date alone.
type Source struct {
	Salt string
	Size int
	Now  func() time.Time // nil means time.Now
}

// Next returns the index for the current day.
func (s Source) Next() int {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return s.IndexOn(now())
}

// IndexOn returns the index for the day containing t, in [0, Size).
// It is 0 for an empty dictionary.
func (s Source) IndexOn(t time.Time) int {
	if s.Size <= 0 {
		return 0
	}
	mac := hmac.New(sha256.New, []byte(s.Salt))
	mac.Write([]byte(DateKey(t)))
	v := binary.BigEndian.Uint64(mac.Sum(nil))
	return int(v % uint64(s.Size))
}
