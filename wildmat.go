package nntp

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

type wildmatPiece struct {
	g      glob.Glob
	result bool
}

// A Wildmat is a compiled RFC 3977 wildmat: comma separated patterns, each
// optionally negated with '!'. The last pattern that matches decides.
type Wildmat []wildmatPiece

// CompileWildmat parses a wildmat expression.
func CompileWildmat(s string) (Wildmat, error) {
	if s == "" {
		return nil, fmt.Errorf("nntp: empty wildmat")
	}
	var w Wildmat
	for _, p := range strings.Split(s, ",") {
		result := true
		if strings.HasPrefix(p, "!") {
			result = false
			p = p[1:]
		}
		if p == "" {
			return nil, fmt.Errorf("nntp: empty pattern in wildmat %q", s)
		}
		g, err := glob.Compile(quoteWildmat(p))
		if err != nil {
			return nil, fmt.Errorf("nntp: bad wildmat %q: %w", s, err)
		}
		w = append(w, wildmatPiece{g: g, result: result})
	}
	return w, nil
}

// quoteWildmat escapes glob syntax that is literal in a wildmat; only '*'
// and '?' are wild.
func quoteWildmat(p string) string {
	var b strings.Builder
	for _, c := range p {
		switch c {
		case '{', '}', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Match reports whether s is selected by the wildmat.
func (w Wildmat) Match(s string) bool {
	for i := len(w) - 1; i >= 0; i-- {
		if w[i].g.Match(s) {
			return w[i].result
		}
	}
	return false
}
