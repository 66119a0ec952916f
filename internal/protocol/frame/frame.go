// Package frame implements the length-prefixed framing used on every
// GophMail connection: a 4-byte big-endian length followed by exactly that
// many payload bytes. Frames are the only unit of exchange; commands,
// arguments, status tokens and message envelopes all travel as frames.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// HeaderLen is the size of the length prefix.
const HeaderLen = 4

// DefaultMaxFrameSize bounds payloads accepted by ReadFrame callers that do
// not configure their own limit.
const DefaultMaxFrameSize uint32 = 1 << 20

var (
	// ErrFrameTooLarge means the declared length exceeds the reader's limit.
	// The payload is left unread, so the stream can no longer be trusted.
	ErrFrameTooLarge = errors.New("frame: too large")
	// ErrConnectionClosed means the peer closed the stream before a full
	// frame was received.
	ErrConnectionClosed = errors.New("frame: connection closed")
)

// WriteFrame writes payload as one frame using a single Write call, so a
// frame is never interleaved with other writes on the same writer.
func WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return ErrFrameTooLarge
	}
	buf := make([]byte, HeaderLen+len(payload))
	binary.BigEndian.PutUint32(buf[:HeaderLen], uint32(len(payload)))
	copy(buf[HeaderLen:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("frame: write: %w", err)
	}
	return nil
}

// WriteString is WriteFrame for textual tokens.
func WriteString(w io.Writer, s string) error {
	return WriteFrame(w, []byte(s))
}

// ReadFrame blocks until one complete frame has been read from r, however
// the bytes were split by the transport. A declared length above maxLen
// yields ErrFrameTooLarge; EOF before the frame is complete yields
// ErrConnectionClosed. Other errors (deadlines, resets) are wrapped as is.
func ReadFrame(r io.Reader, maxLen uint32) ([]byte, error) {
	var header [HeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, readErr(err)
	}

	n := binary.BigEndian.Uint32(header[:])
	if n > maxLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, maxLen)
	}

	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, readErr(err)
		}
	}
	return payload, nil
}

func readErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}
	return fmt.Errorf("frame: read: %w", err)
}
