package nntpclient_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nntpkit/go-nntp"
	nntpclient "github.com/nntpkit/go-nntp/client"
	"github.com/nntpkit/go-nntp/nntptest"
)

func newHarness(t *testing.T) (*nntptest.Backend, *nntpclient.Client) {
	t.Helper()
	b := nntptest.NewBackend()
	b.AddGroup("misc.test", "More testing.", nntp.PostingPermitted)
	b.AddGroup("alt.test", "A test.", nntp.PostingNotPermitted)
	h := nntptest.NewHarness(t, b)
	return b, h.Dial(nntpclient.WithReadTimeout(10 * time.Second))
}

func mustPost(t *testing.T, c *nntpclient.Client, subject, ref string) {
	t.Helper()
	_, err := c.Post(context.Background(), &nntp.Post{
		Name:      "Tester",
		Email:     "tester@example.com",
		Group:     "misc.test",
		Reference: ref,
		Subject:   subject,
		Text:      subject + " body\r\n",
	})
	require.NoError(t, err)
}

func TestSession(t *testing.T) {
	_, c := newHarness(t)
	ctx := context.Background()

	assert.True(t, c.PostingAllowed())

	_, err := c.Group(ctx, "no.such.group")
	assert.True(t, nntp.IsCode(err, 411))

	mustPost(t, c, "Hello world", "")

	g, err := c.Group(ctx, "misc.test")
	require.NoError(t, err)
	assert.Equal(t, nntp.Group{Name: "misc.test", Count: 1, Low: 1, High: 1}, g)

	root, err := c.Head(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), root.NumberID)
	assert.Equal(t, "Hello world", root.Subject)
	assert.Contains(t, root.Sender, "tester@example.com")
	assert.Equal(t, "misc.test", root.Group)
	assert.Empty(t, root.Reference)
	rootID := root.GlobalID
	require.NotEmpty(t, rootID)

	mustPost(t, c, "Re: Hello world", rootID)
	_, err = c.Post(ctx, &nntp.Post{
		Email:     "other@example.com",
		Group:     "misc.test",
		Reference: "<missing@example.com>",
		Subject:   "Other",
		Text:      "orphan",
	})
	require.NoError(t, err)

	nums, err := c.ListGroupArticles(ctx, "misc.test")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, nums)

	ref, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ref.Number)
	replyID := ref.MessageID

	ref, err = c.Prev(ctx)
	require.NoError(t, err)
	assert.Equal(t, nntp.ArticleRef{Number: 1, MessageID: rootID}, ref)

	ok, err := c.Stat(ctx, rootID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.Stat(ctx, "<nope@example.com>")
	require.NoError(t, err)
	assert.False(t, ok)

	rows, err := c.Over(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, replyID, rows[1].GlobalID)
	assert.Equal(t, rootID, rows[1].Reference)

	tree, err := c.OverRange(ctx, 1, 0)
	require.NoError(t, err)
	require.NotNil(t, tree.Child(rootID))
	reply := tree.Child(rootID).Child(replyID)
	require.NotNil(t, reply)
	assert.Equal(t, 2, reply.Depth())
	missing := tree.Child("<missing@example.com>")
	require.NotNil(t, missing)
	assert.True(t, missing.IsPlaceholder())

	tree.PruneUnresolved()
	assert.Nil(t, tree.Child("<missing@example.com>"))
	assert.Equal(t, 3, tree.TreeCount())

	sub, n, err := c.OverRangeSubject(ctx, 1, 0, "HELLO", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, sub.TreeCount())

	thread, err := c.OverRangeThread(ctx, 1, 3, rootID)
	require.NoError(t, err)
	assert.Equal(t, []string{rootID, replyID}, thread.TreeKeys())

	recs, err := c.XOver(ctx, 1, 1, nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Hello world", recs[0].Fields["Subject"])
	assert.Equal(t, rootID, recs[0].Fields["MessageID"])

	format, err := c.OverviewFormat(ctx)
	require.NoError(t, err)
	assert.Equal(t, nntp.DefaultOverviewFormat, format)

	content, err := c.ArticleContent(ctx, rootID)
	require.NoError(t, err)
	assert.Equal(t, "Hello world body", strings.TrimSpace(content.Text))

	art, err := c.Article(ctx, replyID)
	require.NoError(t, err)
	assert.Equal(t, replyID, art.MessageID())
	assert.Equal(t, rootID, art.Header.Get("References"))

	news, err := c.NewNews(ctx, "misc.*", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, news, 3)
	assert.Contains(t, news, rootID)

	groups, err := c.NewGroups(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, groups, 2)

	resp, err := c.Quit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 205, resp.Status)
}

func TestListing(t *testing.T) {
	_, c := newHarness(t)
	ctx := context.Background()
	mustPost(t, c, "one", "")

	names, err := c.ListGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alt.test", "misc.test"}, names)

	names, err = c.ListGroupsMatching(ctx, "*.test,!alt.*")
	require.NoError(t, err)
	assert.Equal(t, []string{"misc.test"}, names)

	active, err := c.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, nntp.Group{Name: "misc.test", Count: 1, Low: 1, High: 1, Posting: nntp.PostingPermitted}, active[1])
	assert.Equal(t, nntp.PostingNotPermitted, active[0].Posting)
}

func TestEmptyLists(t *testing.T) {
	_, c := newHarness(t)
	ctx := context.Background()
	later := time.Now().Add(time.Hour)

	nums, err := c.ListGroupArticles(ctx, "misc.test")
	require.NoError(t, err)
	assert.Empty(t, nums)

	news, err := c.NewNews(ctx, "misc.*", later)
	require.NoError(t, err)
	assert.Empty(t, news)

	groups, err := c.NewGroups(ctx, later)
	require.NoError(t, err)
	assert.Empty(t, groups)

	_, err = c.Over(ctx, 1, 0)
	assert.True(t, nntp.IsCode(err, 423))
}

func TestPostRaw(t *testing.T) {
	_, c := newHarness(t)
	ctx := context.Background()

	raw := "Message-ID: <raw@example.com>\r\n" +
		"Newsgroups: misc.test\r\n" +
		"Subject: raw\r\n" +
		"\r\n" +
		".starts with a dot\r\n" +
		"end\r\n"
	resp, err := c.PostRaw(ctx, strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 240, resp.Status)

	art, err := c.Article(ctx, "<raw@example.com>")
	require.NoError(t, err)
	body, err := io.ReadAll(art.Body)
	require.NoError(t, err)
	assert.Equal(t, ".starts with a dot\r\nend\r\n", string(body))
	assert.Equal(t, 2, art.Lines)
}

func TestPostingNotPermitted(t *testing.T) {
	b := nntptest.NewBackend()
	b.ReadOnly = true
	b.AddGroup("misc.test", "", nntp.PostingNotPermitted)
	c := nntptest.NewHarness(t, b).Dial()

	assert.False(t, c.PostingAllowed())
	_, err := c.Post(context.Background(), &nntp.Post{Email: "a@example.com", Group: "misc.test", Text: "x"})
	assert.True(t, nntp.IsCode(err, 440))

	// a protocol error leaves the session usable
	_, err = c.Group(context.Background(), "misc.test")
	assert.NoError(t, err)
}
