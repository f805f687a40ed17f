package nntpclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/nntpkit/go-nntp"
	nntpthread "github.com/nntpkit/go-nntp/thread"
)

// do runs one command under the in-flight guard.
func (c *Client) do(ctx context.Context, cmd command, args ...any) (*nntp.Response, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()
	return c.execute(ctx, cmd, args...)
}

// Group selects a newsgroup.
func (c *Client) Group(ctx context.Context, name string) (rv nntp.Group, err error) {
	resp, err := c.do(ctx, cmdGroup, name)
	if err != nil {
		return
	}
	// count first last name
	parts := strings.Fields(resp.Message)
	if len(parts) < 4 {
		return rv, fmt.Errorf("nntp: don't know how to parse GROUP result %q", resp.Message)
	}
	if rv.Count, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
		return
	}
	if rv.Low, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
		return
	}
	if rv.High, err = strconv.ParseInt(parts[2], 10, 64); err != nil {
		return
	}
	rv.Name = parts[3]
	return rv, nil
}

// ListGroupArticles selects a newsgroup and returns its article numbers.
func (c *Client) ListGroupArticles(ctx context.Context, name string) ([]int64, error) {
	resp, err := c.do(ctx, cmdListGroup, name)
	if err != nil {
		return nil, err
	}
	body := resp.Body()
	rv := make([]int64, 0, len(body))
	for _, l := range body {
		if l == "" {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(l), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("nntp: bad article number %q: %w", l, err)
		}
		rv = append(rv, n)
	}
	return rv, nil
}

// Head fetches and decodes the headers of an article, given its number or
// message-id.
func (c *Client) Head(ctx context.Context, specifier string) (*nntp.HeaderInfo, error) {
	resp, err := c.do(ctx, cmdHead, specifier)
	if err != nil {
		return nil, err
	}
	info, err := nntp.ParseHeaderBlock(resp.Body(), c.opts.Decode)
	if err != nil {
		return nil, err
	}
	if ref, err := parseArticleRef(resp.Message); err == nil {
		info.NumberID = ref.Number
	}
	return info, nil
}

// Article fetches an article undecoded.
func (c *Client) Article(ctx context.Context, specifier string) (*nntp.Article, error) {
	resp, err := c.do(ctx, cmdArticle, specifier)
	if err != nil {
		return nil, err
	}
	return articleFromLines(resp.Body())
}

// ArticleContent fetches an article and decodes its MIME structure into
// text, HTML and attachments.
func (c *Client) ArticleContent(ctx context.Context, specifier string) (*nntp.ArticleContent, error) {
	resp, err := c.do(ctx, cmdArticle, specifier)
	if err != nil {
		return nil, err
	}
	raw := strings.Join(resp.Body(), nntp.CRLF) + nntp.CRLF
	return c.opts.ParseContent(strings.NewReader(raw))
}

func articleFromLines(lines []string) (*nntp.Article, error) {
	raw := strings.Join(lines, nntp.CRLF) + nntp.CRLF
	br := bufio.NewReader(strings.NewReader(raw))
	h, err := textproto.NewReader(br).ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("nntp: reading article header: %w", err)
	}
	n := 0
	for i, l := range lines {
		if l == "" {
			n = len(lines) - i - 1
			break
		}
	}
	return &nntp.Article{Header: h, Body: br, Bytes: len(raw), Lines: n}, nil
}

// Next moves the current article pointer forward.
func (c *Client) Next(ctx context.Context) (nntp.ArticleRef, error) {
	resp, err := c.do(ctx, cmdNext)
	if err != nil {
		return nntp.ArticleRef{}, err
	}
	return parseArticleRef(resp.Message)
}

// Prev moves the current article pointer back.
func (c *Client) Prev(ctx context.Context) (nntp.ArticleRef, error) {
	resp, err := c.do(ctx, cmdLast)
	if err != nil {
		return nntp.ArticleRef{}, err
	}
	return parseArticleRef(resp.Message)
}

func parseArticleRef(msg string) (nntp.ArticleRef, error) {
	parts := strings.Fields(msg)
	if len(parts) < 2 {
		return nntp.ArticleRef{}, fmt.Errorf("nntp: don't know how to parse article reference %q", msg)
	}
	n, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nntp.ArticleRef{}, fmt.Errorf("nntp: bad article number in %q: %w", msg, err)
	}
	return nntp.ArticleRef{Number: n, MessageID: parts[1]}, nil
}

// Stat reports whether an article exists. Any reply other than 223 is
// reported as false.
func (c *Client) Stat(ctx context.Context, specifier string) (bool, error) {
	_, err := c.do(ctx, cmdStat, specifier)
	var perr *nntp.Error
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &perr):
		return false, nil
	}
	return false, err
}

// Post composes p and submits it.
func (c *Client) Post(ctx context.Context, p *nntp.Post) (*nntp.Response, error) {
	msg, err := c.opts.Compose(p)
	if err != nil {
		return nil, fmt.Errorf("nntp: composing post: %w", err)
	}

	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	if _, err := c.execute(ctx, cmdPost); err != nil {
		return nil, err
	}
	return c.execute(ctx, cmdPostData, dotStuff(string(msg)))
}

// PostRaw submits an already formatted article read from r.
func (c *Client) PostRaw(ctx context.Context, r io.Reader) (*nntp.Response, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	if _, err := c.execute(ctx, cmdPost); err != nil {
		return nil, err
	}
	return c.roundTrip(ctx, cmdPostData, func() error {
		w := c.w.DotWriter()
		if _, err := io.Copy(w, r); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	})
}

// dotStuff drops one trailing line break and doubles leading dots.
func dotStuff(s string) string {
	s = strings.TrimSuffix(s, nntp.CRLF)
	lines := strings.Split(s, nntp.CRLF)
	for i, l := range lines {
		if strings.HasPrefix(l, ".") {
			lines[i] = "." + l
		}
	}
	return strings.Join(lines, nntp.CRLF)
}

// ListGroups returns the names of all newsgroups.
func (c *Client) ListGroups(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, cmdList)
	if err != nil {
		return nil, err
	}
	body := resp.Body()
	rv := make([]string, 0, len(body))
	for _, l := range body {
		if f := strings.Fields(l); len(f) > 0 {
			rv = append(rv, f[0])
		}
	}
	return rv, nil
}

// ListActive returns all newsgroups with their water marks.
func (c *Client) ListActive(ctx context.Context) ([]nntp.Group, error) {
	resp, err := c.do(ctx, cmdList)
	if err != nil {
		return nil, err
	}
	return parseGroups(resp.Body())
}

// ListGroupsMatching returns the names of newsgroups selected by wildmat.
func (c *Client) ListGroupsMatching(ctx context.Context, wildmat string) ([]string, error) {
	w, err := nntp.CompileWildmat(wildmat)
	if err != nil {
		return nil, err
	}
	names, err := c.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	rv := names[:0]
	for _, n := range names {
		if w.Match(n) {
			rv = append(rv, n)
		}
	}
	return rv, nil
}

func parseGroups(lines []string) ([]nntp.Group, error) {
	rv := make([]nntp.Group, 0, len(lines))
	for _, l := range lines {
		if l == "" {
			continue
		}
		g, err := nntp.ParseActiveLine(l)
		if err != nil {
			return nil, err
		}
		rv = append(rv, g)
	}
	return rv, nil
}

// OverviewFormat returns the server's overview field names.
func (c *Client) OverviewFormat(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, cmdOverviewFormat)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// XOver returns overview records for the articles numbered from to to in
// the current group, keyed by format. A nil format means
// nntp.DefaultOverviewFormat. A to of zero or less leaves the range open.
func (c *Client) XOver(ctx context.Context, from, to int64, format []string) ([]nntp.OverviewRecord, error) {
	if format == nil {
		format = nntp.DefaultOverviewFormat
	}
	resp, err := c.do(ctx, cmdXOver, rangeArg(from, to))
	if err != nil {
		return nil, err
	}
	body := resp.Body()
	rv := make([]nntp.OverviewRecord, 0, len(body))
	for _, l := range body {
		if l == "" {
			continue
		}
		rec, err := nntp.ParseOverviewRecord(l, format)
		if err != nil {
			return nil, err
		}
		rv = append(rv, rec)
	}
	return rv, nil
}

// Over returns the overview rows for a range of the current group.
func (c *Client) Over(ctx context.Context, from, to int64) ([]nntp.OverviewRow, error) {
	resp, err := c.do(ctx, cmdOver, rangeArg(from, to))
	if err != nil {
		return nil, err
	}
	return nntp.ParseOverview(resp.Body(), c.opts.Decode)
}

// OverRange threads every article in a range.
func (c *Client) OverRange(ctx context.Context, from, to int64) (*nntpthread.Node, error) {
	rows, err := c.Over(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return nntpthread.Build(rows), nil
}

// OverRangeSubject threads the articles in a range whose subject contains
// pattern. Only matches numbered in (begin, end] are threaded; the total
// number of matches is returned with the tree.
func (c *Client) OverRangeSubject(ctx context.Context, from, to int64, pattern string, begin, end int) (*nntpthread.Node, int, error) {
	rows, err := c.Over(ctx, from, to)
	if err != nil {
		return nil, 0, err
	}
	root, n := nntpthread.BuildSubjectWindow(rows, pattern, begin, end)
	return root, n, nil
}

// OverRangeThread threads the article id and its replies found in a range.
func (c *Client) OverRangeThread(ctx context.Context, from, to int64, id string) (*nntpthread.Node, error) {
	rows, err := c.Over(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return nntpthread.BuildSubThread(rows, id), nil
}

// NewNews returns the message-ids of articles in groups matching wildmat
// that arrived after since.
func (c *Client) NewNews(ctx context.Context, wildmat string, since time.Time) ([]string, error) {
	resp, err := c.do(ctx, cmdNewNews, wildmat, since.UTC().Format(newsDate))
	if err != nil {
		return nil, err
	}
	body := resp.Body()
	rv := make([]string, 0, len(body))
	for _, l := range body {
		if l = strings.TrimSpace(l); l != "" {
			rv = append(rv, l)
		}
	}
	return rv, nil
}

// NewGroups returns the groups created after since.
func (c *Client) NewGroups(ctx context.Context, since time.Time) ([]nntp.Group, error) {
	resp, err := c.do(ctx, cmdNewGroups, since.UTC().Format(newsDate))
	if err != nil {
		return nil, err
	}
	return parseGroups(resp.Body())
}
