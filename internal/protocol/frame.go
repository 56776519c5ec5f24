// Package protocol implements the line-delimited JSON wire format spoken
// between table clients and the server.
//
// Every frame is one JSON object on one line. A connection opens with
// {"username": name}; after that clients send {"command": [verb, args...]}
// and the server answers with single-key event objects.
package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// MaxFrameSize bounds a single inbound line.
const MaxFrameSize = 8192

var (
	ErrEmptyFrame    = errors.New("empty frame")
	ErrMalformed     = errors.New("malformed frame")
	ErrBadHandshake  = errors.New("first frame must be {\"username\": name}")
	ErrUnknownVerb   = errors.New("unknown command")
	ErrBadArguments  = errors.New("bad command arguments")
	ErrUnknownEvent  = errors.New("unknown event")
	errMultipleEvent = errors.New("event frame must have exactly one key")
)

// NewScanner returns a scanner that yields one frame per line. Trailing
// carriage returns are stripped.
func NewScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 1024), MaxFrameSize)
	return s
}

// IsBlank reports whether a frame carries nothing but whitespace.
func IsBlank(frame []byte) bool {
	return len(bytes.TrimSpace(frame)) == 0
}
