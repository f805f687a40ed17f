package nntpserver

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rangeExpectation struct {
	input string
	low   int64
	high  int64
}

var rangeExpectations = []rangeExpectation{
	{"", 0, math.MaxInt64},
	{"73-", 73, math.MaxInt64},
	{"73-1845", 73, 1845},
	{"12", 12, 12},
}

func TestRange(t *testing.T) {
	for _, e := range rangeExpectations {
		l, h := parseRange(e.input)
		assert.Equal(t, e.low, l, "low of %q", e.input)
		assert.Equal(t, e.high, h, "high of %q", e.input)
	}
}

func TestParseNewsDate(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 30, 5, 0, time.UTC)

	got, err := parseNewsDate([]string{"20240301", "123005", "GMT"})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = parseNewsDate([]string{"240301", "123005"})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = parseNewsDate([]string{"20240301"})
	assert.Equal(t, ErrSyntax, err)
	_, err = parseNewsDate([]string{"yesterday", "now"})
	assert.Equal(t, ErrSyntax, err)
}
