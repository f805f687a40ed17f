// Package nntptest provides an in-memory news backend and a harness that
// runs it behind a real server for client tests.
package nntptest

import (
	"bytes"
	"container/ring"
	"io"
	"log/slog"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nntpkit/go-nntp"
	nntpserver "github.com/nntpkit/go-nntp/server"
)

// MaxArticles is how many articles a group keeps before the oldest are
// expired.
const MaxArticles = 100

type articleRef struct {
	msgid string
	num   int64
}

type groupStorage struct {
	group   *nntp.Group
	created time.Time
	// article refs
	articles *ring.Ring
}

type articleStorage struct {
	headers  textproto.MIMEHeader
	body     string
	refcount int
}

// Backend is a nntpserver.Backend that keeps the last MaxArticles
// articles of each group in memory.
type Backend struct {
	// Now stamps group creation for NEWGROUPS. Nil means time.Now.
	Now func() time.Time
	// ReadOnly rejects posts.
	ReadOnly bool
	Logger   *slog.Logger

	mu sync.Mutex
	// group name -> group storage
	groups map[string]*groupStorage
	// message ID -> article
	articles map[string]*articleStorage
}

// NewBackend returns an empty backend.
func NewBackend() *Backend {
	return &Backend{
		groups:   make(map[string]*groupStorage),
		articles: make(map[string]*articleStorage),
	}
}

func (tb *Backend) now() time.Time {
	if tb.Now != nil {
		return tb.Now()
	}
	return time.Now()
}

func (tb *Backend) logger() *slog.Logger {
	if tb.Logger != nil {
		return tb.Logger
	}
	return slog.Default()
}

// AddGroup creates an empty group.
func (tb *Backend) AddGroup(name, description string, posting nntp.PostingStatus) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.groups[name] = &groupStorage{
		group: &nntp.Group{
			Name:        name,
			Description: description,
			Posting:     posting,
		},
		created:  tb.now(),
		articles: ring.New(MaxArticles),
	}
}

func (tb *Backend) ListGroups(max int) ([]*nntp.Group, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	rv := make([]*nntp.Group, 0, len(tb.groups))
	for _, g := range tb.groups {
		gc := *g.group
		rv = append(rv, &gc)
	}
	sort.Slice(rv, func(i, j int) bool { return rv[i].Name < rv[j].Name })
	if max > 0 && len(rv) > max {
		rv = rv[:max]
	}
	return rv, nil
}

func (tb *Backend) GetGroup(name string) (*nntp.Group, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	g, ok := tb.groups[name]
	if !ok {
		return nil, nntpserver.ErrNoSuchGroup
	}
	gc := *g.group
	return &gc, nil
}

// NewGroups lists the groups added after since.
func (tb *Backend) NewGroups(since time.Time) ([]*nntp.Group, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	var rv []*nntp.Group
	for _, g := range tb.groups {
		if g.created.After(since) {
			gc := *g.group
			rv = append(rv, &gc)
		}
	}
	sort.Slice(rv, func(i, j int) bool { return rv[i].Name < rv[j].Name })
	return rv, nil
}

func mkArticle(a *articleStorage) *nntp.Article {
	return &nntp.Article{
		Header: a.headers,
		Body:   strings.NewReader(a.body),
		Bytes:  len(a.body),
		Lines:  strings.Count(a.body, "\n"),
	}
}

func (tb *Backend) GetArticle(group *nntp.Group, id string) (*nntp.Article, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	msgID := id
	if intid, err := strconv.ParseInt(id, 10, 64); err == nil {
		if group == nil {
			return nil, nntpserver.ErrNoGroupSelected
		}
		gs, ok := tb.groups[group.Name]
		if !ok {
			return nil, nntpserver.ErrNoSuchGroup
		}
		msgID = ""
		gs.articles.Do(func(v any) {
			if aref, ok := v.(articleRef); ok && aref.num == intid {
				msgID = aref.msgid
			}
		})
		if msgID == "" {
			return nil, nntpserver.ErrInvalidArticleNumber
		}
	}

	a := tb.articles[msgID]
	if a == nil {
		return nil, nntpserver.ErrInvalidMessageID
	}
	return mkArticle(a), nil
}

func (tb *Backend) GetArticles(group *nntp.Group,
	from, to int64) ([]nntpserver.NumberedArticle, error) {

	tb.mu.Lock()
	defer tb.mu.Unlock()

	gs, ok := tb.groups[group.Name]
	if !ok {
		return nil, nntpserver.ErrNoSuchGroup
	}

	var rv []nntpserver.NumberedArticle
	gs.articles.Do(func(v any) {
		aref, ok := v.(articleRef)
		if !ok || aref.num < from || aref.num > to {
			return
		}
		if a, ok := tb.articles[aref.msgid]; ok {
			rv = append(rv, nntpserver.NumberedArticle{Num: aref.num, Article: mkArticle(a)})
		}
	})

	sort.Slice(rv, func(i, j int) bool { return rv[i].Num < rv[j].Num })
	return rv, nil
}

func (tb *Backend) AllowPost() bool {
	return !tb.ReadOnly
}

func (tb *Backend) decr(msgid string) {
	if a, ok := tb.articles[msgid]; ok {
		a.refcount--
		if a.refcount == 0 {
			tb.logger().Debug("expiring article", "msgid", msgid)
			delete(tb.articles, msgid)
		}
	}
}

// Post stores an article in every known group named by its Newsgroups
// header.
func (tb *Backend) Post(article *nntp.Article) error {
	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, article.Body); err != nil {
		return err
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	a := &articleStorage{
		headers: article.Header,
		body:    buf.String(),
	}

	msgID := a.headers.Get("Message-Id")
	if msgID == "" {
		return nntpserver.ErrPostingFailed
	}
	if _, ok := tb.articles[msgID]; ok {
		return nntpserver.ErrPostingFailed
	}

	for _, name := range newsgroups(article.Header) {
		g, ok := tb.groups[name]
		if !ok {
			continue
		}
		g.articles = g.articles.Next()
		if aref, ok := g.articles.Value.(articleRef); ok {
			tb.decr(aref.msgid)
			g.group.Low++
		} else if g.group.Low == 0 {
			g.group.Low = 1
		}
		g.group.High++
		g.articles.Value = articleRef{msgID, g.group.High}
		a.refcount++
		g.group.Count = g.group.High - g.group.Low + 1

		tb.logger().Debug("stored article", "msgid", msgID, "group", name, "num", g.group.High)
	}

	if a.refcount == 0 {
		return nntpserver.ErrPostingFailed
	}
	tb.articles[msgID] = a
	return nil
}

func newsgroups(h textproto.MIMEHeader) []string {
	var rv []string
	for _, v := range h["Newsgroups"] {
		for _, g := range strings.Split(v, ",") {
			if g = strings.TrimSpace(g); g != "" {
				rv = append(rv, g)
			}
		}
	}
	return rv
}
