// internal/protocol/packet.go
//
// Wire format spoken over each game connection.
//
//	guess request (client → server): 5 bytes, right-padded with spaces
//	guess reply   (server → client): 8 bytes
//	    [0]    validity flag 'Y' | 'N'
//	    [1:3]  remaining guesses, uint16 big-endian
//	    [3:8]  feedback ("?????" when the guess was rejected)
//
// Advisory text lines ('\n' terminated) share the stream. For every round the
// narration line is written immediately before the binary reply, so a client
// reads: line, then exactly ReplySize bytes.
package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	GuessSize = 5
	ReplySize = 8

	flagValid   = 'Y'
	flagInvalid = 'N'
)

var (
	ErrShortReply  = errors.New("protocol: short reply")
	ErrBadFlag     = errors.New("protocol: bad validity flag")
	ErrBadFeedback = errors.New("protocol: feedback must be 5 bytes")
)

// EncodeGuess packs a line typed by a player into a guess request.
// A trailing newline is dropped and short input is space padded. Input longer
// than GuessSize becomes an all-space request, which reads back as an empty
// guess and is rejected for its length.
func EncodeGuess(line string) [GuessSize]byte {
	var b [GuessSize]byte
	line = strings.TrimRight(line, "\r\n")
	if len(line) > GuessSize {
		line = ""
	}
	n := copy(b[:], line)
	for i := n; i < GuessSize; i++ {
		b[i] = ' '
	}
	return b
}

// WriteGuess writes one guess request.
func WriteGuess(w io.Writer, line string) error {
	b := EncodeGuess(line)
	_, err := w.Write(b[:])
	return err
}

// ReadGuess blocks until a full guess request is available and returns it
// with trailing padding removed. A short read is reported as an error
// (io.ErrUnexpectedEOF, or io.EOF when the peer closed between requests).
func ReadGuess(r io.Reader) (string, error) {
	var b [GuessSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return "", err
	}
	return strings.TrimRight(string(b[:]), " \x00\r\n"), nil
}

// Reply is the fixed-size answer to one guess request.
type Reply struct {
	Valid     bool
	Remaining uint16
	Feedback  string
}

// MarshalBinary encodes r into its 8-byte wire form.
func (r Reply) MarshalBinary() ([]byte, error) {
	if len(r.Feedback) != GuessSize {
		return nil, fmt.Errorf("%w: %q", ErrBadFeedback, r.Feedback)
	}
	b := make([]byte, ReplySize)
	b[0] = flagInvalid
	if r.Valid {
		b[0] = flagValid
	}
	binary.BigEndian.PutUint16(b[1:3], r.Remaining)
	copy(b[3:], r.Feedback)
	return b, nil
}

// UnmarshalBinary decodes the 8-byte wire form into r.
func (r *Reply) UnmarshalBinary(b []byte) error {
	if len(b) < ReplySize {
		return ErrShortReply
	}
	switch b[0] {
	case flagValid:
		r.Valid = true
	case flagInvalid:
		r.Valid = false
	default:
		return fmt.Errorf("%w: %q", ErrBadFlag, b[0])
	}
	r.Remaining = binary.BigEndian.Uint16(b[1:3])
	r.Feedback = string(b[3:ReplySize])
	return nil
}

// WriteReply writes one reply.
func WriteReply(w io.Writer, r Reply) error {
	b, err := r.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ReadReply reads exactly one reply.
func ReadReply(r io.Reader) (Reply, error) {
	var b [ReplySize]byte
	var rep Reply
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return rep, err
	}
	err := rep.UnmarshalBinary(b[:])
	return rep, err
}

// WriteLine writes one advisory text line.
func WriteLine(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format+"\n", args...)
	return err
}

// ReadLine reads one advisory text line without its terminator.
func ReadLine(r *bufio.Reader) (string, error) {
	s, err := r.ReadString('\n')
	if err != nil {
		return s, err
	}
	return strings.TrimRight(s, "\r\n"), nil
}
