package nntp

import (
	"bytes"
)

// FramerState is the position of a Framer within one reply.
type FramerState int

const (
	AwaitingStatusLine FramerState = iota
	AccumulatingBody
	Done
)

func (s FramerState) String() string {
	switch s {
	case AwaitingStatusLine:
		return "awaiting-status-line"
	case AccumulatingBody:
		return "accumulating-body"
	case Done:
		return "done"
	}
	return "invalid"
}

var (
	crlf       = []byte(CRLF)
	terminator = []byte("\r\n.\r\n")
)

// A Framer turns transport fragments into exactly one Response. Bytes may
// arrive in arbitrarily small pieces; a reply is only parsed once it is
// complete.
type Framer struct {
	multiline bool
	state     FramerState
	buf       []byte
	// offset of the first body byte, valid in AccumulatingBody
	body int
}

// NewFramer returns a Framer for one reply.
func NewFramer(multiline bool) *Framer {
	return &Framer{multiline: multiline}
}

// Reset prepares f for the next reply, keeping its buffer capacity.
func (f *Framer) Reset(multiline bool) {
	f.multiline = multiline
	f.state = AwaitingStatusLine
	f.buf = f.buf[:0]
	f.body = 0
}

func (f *Framer) State() FramerState { return f.state }

// Buffered returns the number of bytes held for the current reply.
func (f *Framer) Buffered() int { return len(f.buf) }

// Feed adds one fragment. It returns the Response once the reply is
// complete and nil while more bytes are needed.
func (f *Framer) Feed(p []byte) (*Response, error) {
	if f.state == Done {
		return nil, ErrFramerDone
	}
	f.buf = append(f.buf, p...)

	if !f.multiline {
		if !bytes.HasSuffix(f.buf, crlf) {
			return nil, nil
		}
		return f.finish(f.buf)
	}

	if f.state == AwaitingStatusLine {
		i := bytes.Index(f.buf, crlf)
		if i < 0 {
			return nil, nil
		}
		code, err := parseStatus(string(f.buf[:i]))
		if err != nil {
			f.state = Done
			return nil, err
		}
		if !IsSuccess(code) {
			// no body follows a failure
			return f.finish(f.buf[:i+2])
		}
		f.body = i + 2
		f.state = AccumulatingBody
	}

	// The status line's CRLF is included so an empty body (".\r\n"
	// straight after the status line) matches too.
	if !bytes.HasSuffix(f.buf[f.body-2:], terminator) {
		return nil, nil
	}
	return f.finish(f.buf)
}

func (f *Framer) finish(raw []byte) (*Response, error) {
	f.state = Done
	return ParseResponse(raw)
}
