package nntp

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseSummaryFromTable(t *testing.T) {
	for code, text := range SuccessText {
		if code < 200 || code > 299 || dynamicSummary(code) {
			continue
		}
		r, err := ParseResponse([]byte(fmt.Sprintf("%d whatever the server says\r\n", code)))
		require.NoError(t, err)
		assert.Equal(t, code, r.Status)
		assert.Equal(t, text, r.Summary, "code %d", code)
		assert.Equal(t, "whatever the server says", r.Message)
	}
}

func TestParseResponseDynamicSummary(t *testing.T) {
	r, err := ParseResponse([]byte("211 1234 3000234 3002322 misc.test \r\n"))
	require.NoError(t, err)
	assert.Equal(t, 211, r.Status)
	assert.Equal(t, "1234 3000234 3002322 misc.test", r.Summary)

	r, err = ParseResponse([]byte("222 10 <45223423@example.com>\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "10 <45223423@example.com>", r.Summary)
}

func TestParseResponseUnknownStatus(t *testing.T) {
	r, err := ParseResponse([]byte("299 odd\r\n"))
	require.NoError(t, err)
	assert.Equal(t, unknownStatusText, r.Summary)
	assert.Empty(t, r.Lines)
}

func TestParseResponseMalformed(t *testing.T) {
	tests := []string{
		"",
		"20\r\n",
		"abc hello\r\n",
		"2000 hello\r\n",
		"2x1 hello\r\n",
	}
	for _, in := range tests {
		_, err := ParseResponse([]byte(in))
		var merr *MalformedResponseError
		assert.ErrorAs(t, err, &merr, "input %q", in)
	}
}

func TestParseResponseBareCode(t *testing.T) {
	r, err := ParseResponse([]byte("205\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 205, r.Status)
	assert.Equal(t, "", r.Message)
}

func TestResponseBody(t *testing.T) {
	r, err := ParseResponse([]byte("215 list follows\r\nmisc.test 3 1 y\r\n..dotted\r\n.\r\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"misc.test 3 1 y", "..dotted", "."}, r.Lines)
	assert.Equal(t, []string{"misc.test 3 1 y", ".dotted"}, r.Body())
}

func TestResponseBodyEmpty(t *testing.T) {
	r, err := ParseResponse([]byte("231 no new groups\r\n.\r\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"."}, r.Lines)
	assert.Empty(t, r.Body())
}

func TestNewError(t *testing.T) {
	e := NewError(411)
	assert.Equal(t, "411 No such newsgroup", e.Error())
	assert.Equal(t, unrecognizedStatusText, NewError(499).Msg)
	assert.True(t, IsCode(fmt.Errorf("wrapped: %w", e), 411))
	assert.False(t, IsCode(e, 412))
}
