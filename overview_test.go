package nntp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverviewLine(t *testing.T) {
	upper := DecodeFunc(strings.ToUpper)

	row, err := ParseOverviewLine("12345\tHello\tA <a@x>\tdate\t<m1@x>\t\t100\t3", upper)
	require.NoError(t, err)
	assert.Equal(t, OverviewRow{
		NumberID: 12345,
		Subject:  "HELLO",
		Sender:   "A <A@X>",
		Date:     "date",
		GlobalID: "<m1@x>",
		Bytes:    "100",
		Lines:    "3",
	}, row)
	assert.Empty(t, row.Reference)
	assert.Empty(t, row.References())
}

func TestParseOverviewLineReferences(t *testing.T) {
	row, err := ParseOverviewLine("7\tRe: x\tB\td\t<c@x>\t<a@x> <b@x>\t1\t1\tXref: h misc.test:7", nil)
	require.NoError(t, err)
	assert.Equal(t, "<a@x> <b@x>", row.Reference)
	assert.Equal(t, []string{"<a@x>", "<b@x>"}, row.References())
	assert.Equal(t, []string{"Xref: h misc.test:7"}, row.Extra)
}

func TestParseOverviewLineErrors(t *testing.T) {
	for _, line := range []string{
		"x\ta\tb\tc\td\te\tf\tg",
		"1\ta",
		"1\ta\tb\tc\td",
	} {
		_, err := ParseOverviewLine(line, nil)
		var merr *MalformedResponseError
		if assert.ErrorAs(t, err, &merr, line) {
			assert.Equal(t, line, merr.Line)
		}
	}
}

func TestParseOverviewLineShort(t *testing.T) {
	row, err := ParseOverviewLine("3\ts\tf\td\t<3@x>\t<1@x>", nil)
	require.NoError(t, err)
	assert.Equal(t, "<1@x>", row.Reference)
	assert.Empty(t, row.Bytes)
	assert.Empty(t, row.Lines)
}

func TestParseOverview(t *testing.T) {
	rows, err := ParseOverview([]string{
		"1\ta\tb\tc\t<1@x>\t\t1\t1",
		"",
		"2\ta\tb\tc\t<2@x>\t<1@x>\t1\t1",
	}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "<1@x>", rows[1].Reference)
}

func TestParseOverviewRecord(t *testing.T) {
	format := []string{"Subject:", "From:", "Date:", "Message-ID:", "References:", ":bytes", ":lines"}
	rec, err := ParseOverviewRecord("3\tHi\tme\tnow\t<3@x>\t\t10\t2", format)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Number)
	assert.Equal(t, "<3@x>", rec.Fields["MessageID"])
	assert.Equal(t, "10", rec.Fields["bytes"])
	assert.Equal(t, "", rec.Fields["References"])
}

func TestParseHeaderBlock(t *testing.T) {
	info, err := ParseHeaderBlock([]string{
		"Path: pathost!demo!not-for-mail",
		"From: =?utf-8?q?J=C3=B6rg?= <j@example.com>",
		"Newsgroups: misc.test",
		"Subject: A long",
		"\tfolded subject",
		"Date: 6 Oct 1998 04:38:40 -0500",
		"Message-ID: <c@x>",
		"References: <a@x>",
		"  <b@x>",
	}, DecodeFunc(strings.ToLower))
	require.NoError(t, err)
	assert.Equal(t, "misc.test", info.Group)
	assert.Equal(t, "<c@x>", info.GlobalID)
	assert.Equal(t, "<a@x> <b@x>", info.Reference)
	assert.Equal(t, "a long folded subject", info.Subject)
	assert.Equal(t, "pathost!demo!not-for-mail", info.Header.Get("Path"))
}

func TestParseActiveLine(t *testing.T) {
	g, err := ParseActiveLine("misc.test 3002322 3000234 y")
	require.NoError(t, err)
	assert.Equal(t, Group{
		Name:    "misc.test",
		High:    3002322,
		Low:     3000234,
		Count:   2089,
		Posting: PostingPermitted,
	}, g)

	g, err = ParseActiveLine("alt.empty 0 1 n")
	require.NoError(t, err)
	assert.Zero(t, g.Count)

	_, err = ParseActiveLine("bad x 1 y")
	assert.Error(t, err)
}
