package nntp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWildmat(t *testing.T) {
	tests := []struct {
		wildmat string
		in      string
		want    bool
	}{
		{"*", "misc.test", true},
		{"misc.*", "misc.test", true},
		{"misc.*", "alt.test", false},
		{"comp.*,!comp.os.*", "comp.lang.go", true},
		{"comp.*,!comp.os.*", "comp.os.linux", false},
		{"comp.*,!comp.os.*,comp.os.linux", "comp.os.linux", true},
		{"a?c", "abc", true},
		{"a?c", "abbc", false},
		{"{x}", "{x}", true},
		{"[ab]", "a", false},
	}
	for _, tt := range tests {
		w, err := CompileWildmat(tt.wildmat)
		require.NoError(t, err, tt.wildmat)
		assert.Equal(t, tt.want, w.Match(tt.in), "%q ~ %q", tt.wildmat, tt.in)
	}
}

func TestWildmatInvalid(t *testing.T) {
	for _, s := range []string{"", "a,", "!", "a,!"} {
		_, err := CompileWildmat(s)
		assert.Error(t, err, s)
	}
}
