package nntp

import (
	"strings"
)

// A Response is one parsed server reply.
type Response struct {
	// Status is the three digit reply code.
	Status int
	// Summary is the human readable status text. For 211 and 222 it is
	// the remainder of the status line, otherwise the registry text.
	Summary string
	// Message is the remainder of the status line, trimmed.
	Message string
	// Lines holds every line after the status line. For multi-line
	// replies the final element is the lone "." terminator.
	Lines []string
}

// ParseResponse parses a complete reply buffer.
func ParseResponse(raw []byte) (*Response, error) {
	s := strings.TrimSuffix(string(raw), CRLF)
	parts := strings.Split(s, CRLF)

	code, err := parseStatus(parts[0])
	if err != nil {
		return nil, err
	}

	r := &Response{
		Status:  code,
		Message: strings.TrimSpace(parts[0][3:]),
		Lines:   parts[1:],
	}
	if dynamicSummary(code) {
		r.Summary = r.Message
	} else if text, ok := StatusText(code); ok {
		r.Summary = text
	} else {
		r.Summary = unknownStatusText
	}
	return r, nil
}

// Body returns the lines of a multi-line reply without the terminator and
// with dot-stuffing undone. It must not be used on single-line replies.
func (r *Response) Body() []string {
	if len(r.Lines) == 0 {
		return nil
	}
	body := make([]string, len(r.Lines)-1)
	for i, l := range r.Lines[:len(r.Lines)-1] {
		if strings.HasPrefix(l, "..") {
			l = l[1:]
		}
		body[i] = l
	}
	return body
}

func parseStatus(line string) (int, error) {
	// NNTP uses exactly 3 characters always
	if len(line) < 3 || (len(line) > 3 && line[3] != ' ') {
		return 0, &MalformedResponseError{Line: line}
	}
	code := 0
	for i := 0; i < 3; i++ {
		c := line[i]
		if c < '0' || c > '9' {
			return 0, &MalformedResponseError{Line: line}
		}
		code = code*10 + int(c-'0')
	}
	return code, nil
}
