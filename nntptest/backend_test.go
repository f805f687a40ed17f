package nntptest

import (
	"fmt"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nntpkit/go-nntp"
	nntpserver "github.com/nntpkit/go-nntp/server"
)

func post(t *testing.T, b *Backend, id, groups string) {
	t.Helper()
	h := textproto.MIMEHeader{}
	h.Set("Message-Id", id)
	h.Set("Newsgroups", groups)
	h.Set("Subject", "s "+id)
	require.NoError(t, b.Post(&nntp.Article{Header: h, Body: strings.NewReader("body\n")}))
}

func TestBackendPostNumbers(t *testing.T) {
	b := NewBackend()
	b.AddGroup("misc.test", "", nntp.PostingPermitted)
	b.AddGroup("alt.test", "", nntp.PostingPermitted)

	post(t, b, "<1@x>", "misc.test")
	post(t, b, "<2@x>", "misc.test, alt.test")

	g, err := b.GetGroup("misc.test")
	require.NoError(t, err)
	assert.Equal(t, int64(1), g.Low)
	assert.Equal(t, int64(2), g.High)
	assert.Equal(t, int64(2), g.Count)

	a, err := b.GetArticle(g, "2")
	require.NoError(t, err)
	assert.Equal(t, "<2@x>", a.MessageID())
	assert.Equal(t, 1, a.Lines)

	alt, err := b.GetGroup("alt.test")
	require.NoError(t, err)
	a, err = b.GetArticle(alt, "1")
	require.NoError(t, err)
	assert.Equal(t, "<2@x>", a.MessageID())

	_, err = b.GetArticle(g, "9")
	assert.Equal(t, nntpserver.ErrInvalidArticleNumber, err)
	_, err = b.GetArticle(nil, "<nope@x>")
	assert.Equal(t, nntpserver.ErrInvalidMessageID, err)
}

func TestBackendRejectsDuplicatesAndUnknownGroups(t *testing.T) {
	b := NewBackend()
	b.AddGroup("misc.test", "", nntp.PostingPermitted)
	post(t, b, "<1@x>", "misc.test")

	h := textproto.MIMEHeader{}
	h.Set("Message-Id", "<1@x>")
	h.Set("Newsgroups", "misc.test")
	assert.Equal(t, nntpserver.ErrPostingFailed,
		b.Post(&nntp.Article{Header: h, Body: strings.NewReader("")}))

	h.Set("Message-Id", "<2@x>")
	h.Set("Newsgroups", "no.such.group")
	assert.Equal(t, nntpserver.ErrPostingFailed,
		b.Post(&nntp.Article{Header: h, Body: strings.NewReader("")}))
}

func TestBackendExpiresOldArticles(t *testing.T) {
	b := NewBackend()
	b.AddGroup("misc.test", "", nntp.PostingPermitted)
	for i := 1; i <= MaxArticles+5; i++ {
		post(t, b, fmt.Sprintf("<%d@x>", i), "misc.test")
	}

	g, err := b.GetGroup("misc.test")
	require.NoError(t, err)
	assert.Equal(t, int64(6), g.Low)
	assert.Equal(t, int64(MaxArticles+5), g.High)
	assert.Equal(t, int64(MaxArticles), g.Count)

	_, err = b.GetArticle(nil, "<1@x>")
	assert.Error(t, err)

	articles, err := b.GetArticles(g, 0, 7)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, int64(6), articles[0].Num)
	assert.Equal(t, int64(7), articles[1].Num)
}
