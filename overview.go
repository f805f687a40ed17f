package nntp

import (
	"bufio"
	"fmt"
	"net/textproto"
	"strconv"
	"strings"
)

// DecodeFunc decodes MIME encoded-words in a header value.
type DecodeFunc func(string) string

func (d DecodeFunc) decode(s string) string {
	if d == nil {
		return s
	}
	return d(s)
}

// OverviewRow is one article from an OVER/XOVER reply.
type OverviewRow struct {
	NumberID int64
	Subject  string
	Sender   string
	Date     string
	GlobalID string
	// Reference lists ancestor message-ids, oldest first, separated by
	// spaces. It is empty for articles that start a thread.
	Reference string
	Bytes     string
	Lines     string
	// Extra holds any fields after :lines, such as Xref.
	Extra []string
}

// References splits Reference into its message-ids.
func (r OverviewRow) References() []string {
	return strings.Fields(r.Reference)
}

/*
   "0" or article number
   Subject header content
   From header content
   Date header content
   Message-ID header content
   References header content
   :bytes metadata item
   :lines metadata item
*/

const overviewFields = 8

// ParseOverviewLine decodes one tab separated overview line. Subject and
// sender pass through decode.
func ParseOverviewLine(line string, decode DecodeFunc) (OverviewRow, error) {
	f := strings.Split(line, "\t")
	if len(f) < overviewFields-2 {
		return OverviewRow{}, &MalformedResponseError{Line: line}
	}
	n, err := strconv.ParseInt(strings.TrimSpace(f[0]), 10, 64)
	if err != nil {
		return OverviewRow{}, &MalformedResponseError{Line: line}
	}
	for len(f) < overviewFields {
		f = append(f, "")
	}
	row := OverviewRow{
		NumberID:  n,
		Subject:   decode.decode(f[1]),
		Sender:    decode.decode(f[2]),
		Date:      f[3],
		GlobalID:  f[4],
		Reference: strings.TrimSpace(f[5]),
		Bytes:     f[6],
		Lines:     f[7],
	}
	if len(f) > overviewFields {
		row.Extra = f[overviewFields:]
	}
	return row, nil
}

// ParseOverview decodes every line of an overview body.
func ParseOverview(lines []string, decode DecodeFunc) ([]OverviewRow, error) {
	rows := make([]OverviewRow, 0, len(lines))
	for _, l := range lines {
		if l == "" {
			continue
		}
		row, err := ParseOverviewLine(l, decode)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DefaultOverviewFormat is the RFC 3977 LIST OVERVIEW.FMT reply, used
// when a server's format is not known.
var DefaultOverviewFormat = []string{
	"Subject:",
	"From:",
	"Date:",
	"Message-ID:",
	"References:",
	":bytes",
	":lines",
}

// OverviewRecord is an XOVER row keyed by the server's overview format.
type OverviewRecord struct {
	Number int64
	Fields map[string]string
}

// FormatKey turns a LIST OVERVIEW.FMT entry such as "Message-ID:" into the
// key used in OverviewRecord.Fields ("MessageID").
func FormatKey(item string) string {
	return strings.NewReplacer("-", "", ":", "").Replace(item)
}

// ParseOverviewRecord decodes an overview line against format.
func ParseOverviewRecord(line string, format []string) (OverviewRecord, error) {
	f := strings.Split(line, "\t")
	n, err := strconv.ParseInt(strings.TrimSpace(f[0]), 10, 64)
	if err != nil {
		return OverviewRecord{}, fmt.Errorf("nntp: bad article number in overview line %q: %w", line, err)
	}
	rec := OverviewRecord{Number: n, Fields: make(map[string]string, len(format))}
	for i, item := range format {
		if i+1 < len(f) {
			rec.Fields[FormatKey(item)] = f[i+1]
		}
	}
	return rec, nil
}

// HeaderInfo is the result of HEAD: the overview-equivalent fields plus
// the full header block.
type HeaderInfo struct {
	OverviewRow
	Group  string
	Header textproto.MIMEHeader
}

// ParseHeaderBlock decodes the lines of a HEAD reply.
func ParseHeaderBlock(lines []string, decode DecodeFunc) (*HeaderInfo, error) {
	r := textproto.NewReader(bufio.NewReader(
		strings.NewReader(strings.Join(lines, CRLF) + CRLF + CRLF)))
	h, err := r.ReadMIMEHeader()
	if err != nil {
		return nil, fmt.Errorf("nntp: reading header block: %w", err)
	}
	info := &HeaderInfo{
		OverviewRow: OverviewRow{
			Subject:   decode.decode(h.Get("Subject")),
			Sender:    decode.decode(h.Get("From")),
			Date:      h.Get("Date"),
			GlobalID:  h.Get("Message-Id"),
			Reference: strings.Join(strings.Fields(h.Get("References")), " "),
			Bytes:     h.Get("Bytes"),
			Lines:     h.Get("Lines"),
		},
		Group:  h.Get("Newsgroups"),
		Header: h,
	}
	return info, nil
}

// ParseActiveLine decodes a LIST ACTIVE or NEWGROUPS line:
// "name high low status".
func ParseActiveLine(line string) (Group, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return Group{}, fmt.Errorf("nntp: empty active line")
	}
	g := Group{Name: f[0], Posting: Unknown}
	if len(f) < 3 {
		return g, nil
	}
	var err error
	if g.High, err = strconv.ParseInt(f[1], 10, 64); err != nil {
		return g, fmt.Errorf("nntp: bad high water mark in %q: %w", line, err)
	}
	if g.Low, err = strconv.ParseInt(f[2], 10, 64); err != nil {
		return g, fmt.Errorf("nntp: bad low water mark in %q: %w", line, err)
	}
	if g.High >= g.Low {
		g.Count = g.High - g.Low + 1
	}
	if len(f) > 3 && len(f[3]) > 0 {
		g.Posting = PostingStatus(f[3][0])
	}
	return g, nil
}
