// Package nntpserver provides everything you need for your own NNTP server.
package nntpserver

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/mail"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/nntpkit/go-nntp"
)

var (
	// ErrNoSuchGroup is returned for a request for a group that can't be found.
	ErrNoSuchGroup = nntp.NewError(411)

	// ErrNoGroupSelected is returned for a request that requires a current
	// group when none has been selected.
	ErrNoGroupSelected = nntp.NewError(412)

	// ErrInvalidMessageID is returned when a message is requested that can't be found.
	ErrInvalidMessageID = nntp.NewError(430)

	// ErrInvalidArticleNumber is returned when an article is requested that can't be found.
	ErrInvalidArticleNumber = nntp.NewError(423)

	// ErrNoCurrentArticle is returned when a command is executed that
	// requires a current article when one has not been selected.
	ErrNoCurrentArticle = nntp.NewError(420)

	// ErrNoNextArticle is returned by NEXT at the end of a group.
	ErrNoNextArticle = nntp.NewError(421)

	// ErrNoPrevArticle is returned by LAST at the start of a group.
	ErrNoPrevArticle = nntp.NewError(422)

	// ErrUnknownCommand is returned for unknown comands.
	ErrUnknownCommand = nntp.NewError(500)

	// ErrSyntax is returned when a command can't be parsed.
	ErrSyntax = nntp.NewError(501)

	// ErrPostingNotPermitted is returned as the response to an attempt to
	// post an article where posting is not permitted.
	ErrPostingNotPermitted = nntp.NewError(440)

	// ErrPostingFailed is returned when an attempt to post an article fails.
	ErrPostingFailed = nntp.NewError(441)

	// ErrNotWanted is returned when an attempt to post an article is
	// rejected due the server not wanting the article.
	ErrNotWanted = nntp.NewError(435)
)

// Handler is a low-level protocol handler
type Handler func(args []string, s *session, c *textproto.Conn) error

// A NumberedArticle provides local sequence nubers to articles When
// listing articles in a group.
type NumberedArticle struct {
	Num     int64
	Article *nntp.Article
}

// The Backend that provides the things and does the stuff.
type Backend interface {
	ListGroups(max int) ([]*nntp.Group, error)
	GetGroup(name string) (*nntp.Group, error)
	// GetArticle finds an article by number within group, or by
	// message-id, in which case group may be nil.
	GetArticle(group *nntp.Group, id string) (*nntp.Article, error)
	GetArticles(group *nntp.Group, from, to int64) ([]NumberedArticle, error)
	AllowPost() bool
	Post(article *nntp.Article) error
}

// A GroupHistory is a Backend that knows when its groups were created.
// Without one, NEWGROUPS always answers with an empty list.
type GroupHistory interface {
	NewGroups(since time.Time) ([]*nntp.Group, error)
}

type session struct {
	server  *Server
	backend Backend
	group   *nntp.Group
	// current article number in group, 0 when there is none
	current int64
}

// The Server handle.
type Server struct {
	// Handlers are dispatched by command name.
	Handlers map[string]Handler
	// The backend (your code) that provides data
	Backend Backend
	// Logger receives connection and command logs. Nil means slog.Default().
	Logger *slog.Logger
}

// NewServer builds a new server handle request to a backend.
func NewServer(backend Backend) *Server {
	rv := Server{
		Handlers: make(map[string]Handler),
		Backend:  backend,
	}
	rv.Handlers[""] = handleDefault
	rv.Handlers["quit"] = handleQuit
	rv.Handlers["group"] = handleGroup
	rv.Handlers["listgroup"] = handleListGroup
	rv.Handlers["next"] = handleNext
	rv.Handlers["last"] = handleLast
	rv.Handlers["stat"] = handleStat
	rv.Handlers["list"] = handleList
	rv.Handlers["head"] = handleHead
	rv.Handlers["body"] = handleBody
	rv.Handlers["article"] = handleArticle
	rv.Handlers["post"] = handlePost
	rv.Handlers["ihave"] = handleIHave
	rv.Handlers["capabilities"] = handleCap
	rv.Handlers["mode"] = handleMode
	rv.Handlers["newgroups"] = handleNewGroups
	rv.Handlers["newnews"] = handleNewNews
	rv.Handlers["over"] = handleOver
	rv.Handlers["xover"] = handleOver
	return &rv
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *session) dispatchCommand(cmd string, args []string,
	c *textproto.Conn) (err error) {

	handler, found := s.server.Handlers[strings.ToLower(cmd)]
	if !found {
		handler, found = s.server.Handlers[""]
		if !found {
			panic("No default handler.")
		}
	}
	return handler(args, s, c)
}

// Process an NNTP session.
func (s *Server) Process(nc net.Conn) {
	defer nc.Close()
	c := textproto.NewConn(nc)
	log := s.logger().With("remote", nc.RemoteAddr().String())

	sess := &session{
		server:  s,
		backend: s.Backend,
	}

	if s.Backend.AllowPost() {
		c.PrintfLine("200 Hello!")
	} else {
		c.PrintfLine("201 Hello, you can't post")
	}
	for {
		l, err := c.ReadLine()
		if err != nil {
			if err != io.EOF {
				log.Info("error reading from client, dropping conn", "err", err)
			}
			return
		}
		cmd := strings.Fields(l)
		if len(cmd) == 0 {
			c.PrintfLine("%s", ErrSyntax)
			continue
		}
		log.Debug("got command", "cmd", cmd)
		err = sess.dispatchCommand(cmd[0], cmd[1:], c)
		if err != nil {
			_, isNNTPError := err.(*nntp.Error)
			switch {
			case err == io.EOF:
				// Drop this connection silently. They hung up
				return
			case isNNTPError:
				c.PrintfLine("%s", err)
			default:
				log.Warn("error dispatching command, dropping conn", "cmd", cmd[0], "err", err)
				return
			}
		}
	}
}

// Serve accepts connections on l and processes each in its own goroutine
// until l is closed.
func (s *Server) Serve(l net.Listener) error {
	for {
		c, err := l.Accept()
		if err != nil {
			return err
		}
		go s.Process(c)
	}
}

// parseRange decodes "n", "n-" and "n-m". An empty range selects everything.
func parseRange(spec string) (low, high int64) {
	if spec == "" {
		return 0, math.MaxInt64
	}
	parts := strings.SplitN(spec, "-", 2)
	l, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		l = 0
	}
	if len(parts) == 1 {
		return l, l
	}
	h, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		h = math.MaxInt64
	}
	return l, h
}

var overviewEscaper = strings.NewReplacer("\t", " ", "\r", "", "\n", " ")

/*
   "0" or article number (see below)
   Subject header content
   From header content
   Date header content
   Message-ID header content
   References header content
   :bytes metadata item
   :lines metadata item
*/

func writeOverview(w io.Writer, num int64, a *nntp.Article) {
	h := func(k string) string {
		return overviewEscaper.Replace(a.Header.Get(k))
	}
	fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%d\n", num,
		h("Subject"), h("From"), h("Date"), h("Message-Id"), h("References"),
		a.Bytes, a.Lines)
}

// dotWriter writes a dot-encoded body. An empty body is closed with a
// lone dot; textproto's writer would put a blank line before it.
type dotWriter struct {
	c  *textproto.Conn
	dw io.WriteCloser
}

func newDotWriter(c *textproto.Conn) *dotWriter {
	return &dotWriter{c: c}
}

func (d *dotWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if d.dw == nil {
		d.dw = d.c.DotWriter()
	}
	return d.dw.Write(p)
}

func (d *dotWriter) Close() error {
	if d.dw == nil {
		return d.c.PrintfLine(".")
	}
	return d.dw.Close()
}

func handleOver(args []string, s *session, c *textproto.Conn) error {
	if len(args) > 0 && strings.HasPrefix(args[0], "<") {
		article, err := s.backend.GetArticle(s.group, args[0])
		if err != nil {
			return err
		}
		c.PrintfLine("224 here it comes")
		dw := newDotWriter(c)
		defer dw.Close()
		writeOverview(dw, 0, article)
		return nil
	}
	if s.group == nil {
		return ErrNoGroupSelected
	}
	var from, to int64
	if len(args) == 0 {
		if s.current == 0 {
			return ErrNoCurrentArticle
		}
		from, to = s.current, s.current
	} else {
		from, to = parseRange(args[0])
	}
	articles, err := s.backend.GetArticles(s.group, from, to)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		return ErrInvalidArticleNumber
	}
	c.PrintfLine("224 here it comes")
	dw := newDotWriter(c)
	defer dw.Close()
	for _, a := range articles {
		writeOverview(dw, a.Num, a.Article)
	}
	return nil
}

func handleListOverviewFmt(c *textproto.Conn) error {
	err := c.PrintfLine("215 Order of fields in overview database.")
	if err != nil {
		return err
	}
	dw := newDotWriter(c)
	defer dw.Close()
	for _, f := range nntp.DefaultOverviewFormat {
		if _, err := fmt.Fprintln(dw, f); err != nil {
			return err
		}
	}
	return nil
}

/*
   Syntax
     LIST [ACTIVE [wildmat]]
     LIST NEWSGROUPS [wildmat]
     LIST OVERVIEW.FMT
*/

func handleList(args []string, s *session, c *textproto.Conn) error {
	ltype := "active"
	if len(args) > 0 {
		ltype = strings.ToLower(args[0])
	}

	switch ltype {
	case "overview.fmt":
		return handleListOverviewFmt(c)
	case "active", "newsgroups":
	default:
		return ErrSyntax
	}

	var match nntp.Wildmat
	if len(args) > 1 {
		var err error
		if match, err = nntp.CompileWildmat(args[1]); err != nil {
			return ErrSyntax
		}
	}

	groups, err := s.backend.ListGroups(-1)
	if err != nil {
		return err
	}
	c.PrintfLine("215 list of newsgroups follows")
	dw := newDotWriter(c)
	defer dw.Close()
	for _, g := range groups {
		if match != nil && !match.Match(g.Name) {
			continue
		}
		switch ltype {
		case "active":
			fmt.Fprintf(dw, "%s %d %d %v\r\n",
				g.Name, g.High, g.Low, g.Posting)
		case "newsgroups":
			fmt.Fprintf(dw, "%s %s\r\n", g.Name, g.Description)
		}
	}

	return nil
}

// parseNewsDate reads the "date time [GMT]" arguments of NEWNEWS and
// NEWGROUPS. Two digit years are taken to be in this century.
func parseNewsDate(args []string) (time.Time, error) {
	if len(args) < 2 {
		return time.Time{}, ErrSyntax
	}
	layout := "20060102 150405"
	if len(args[0]) == 6 {
		layout = "060102 150405"
	}
	t, err := time.Parse(layout, args[0]+" "+args[1])
	if err != nil {
		return time.Time{}, ErrSyntax
	}
	return t, nil
}

func handleNewGroups(args []string, s *session, c *textproto.Conn) error {
	since, err := parseNewsDate(args)
	if err != nil {
		return err
	}
	var groups []*nntp.Group
	if gh, ok := s.backend.(GroupHistory); ok {
		if groups, err = gh.NewGroups(since); err != nil {
			return err
		}
	}
	c.PrintfLine("231 list of newsgroups follows")
	dw := newDotWriter(c)
	defer dw.Close()
	for _, g := range groups {
		fmt.Fprintf(dw, "%s %d %d %v\r\n", g.Name, g.High, g.Low, g.Posting)
	}
	return nil
}

/*
   Syntax
     NEWNEWS wildmat date time [GMT]

   Responses
     230    List of new articles follows (multi-line)
*/

func handleNewNews(args []string, s *session, c *textproto.Conn) error {
	if len(args) < 3 {
		return ErrSyntax
	}
	match, err := nntp.CompileWildmat(args[0])
	if err != nil {
		return ErrSyntax
	}
	since, err := parseNewsDate(args[1:])
	if err != nil {
		return err
	}
	groups, err := s.backend.ListGroups(-1)
	if err != nil {
		return err
	}

	seen := map[string]bool{}
	var ids []string
	for _, g := range groups {
		if !match.Match(g.Name) {
			continue
		}
		articles, err := s.backend.GetArticles(g, 0, math.MaxInt64)
		if err != nil {
			return err
		}
		for _, a := range articles {
			id := a.Article.MessageID()
			if seen[id] {
				continue
			}
			if d, err := articleDate(a.Article); err == nil && d.After(since) {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	c.PrintfLine("230 list of new articles by message-id follows")
	dw := newDotWriter(c)
	defer dw.Close()
	for _, id := range ids {
		fmt.Fprintf(dw, "%s\r\n", id)
	}
	return nil
}

func articleDate(a *nntp.Article) (time.Time, error) {
	return mail.ParseDate(a.Header.Get("Date"))
}

func handleDefault(args []string, s *session, c *textproto.Conn) error {
	return ErrUnknownCommand
}

func handleQuit(args []string, s *session, c *textproto.Conn) error {
	c.PrintfLine("205 bye")
	return io.EOF
}

func (s *session) selectGroup(name string) error {
	group, err := s.backend.GetGroup(name)
	if err != nil {
		return err
	}
	s.group = group
	s.current = 0
	if group.Count > 0 {
		s.current = group.Low
	}
	return nil
}

func handleGroup(args []string, s *session, c *textproto.Conn) error {
	if len(args) < 1 {
		return ErrSyntax
	}
	if err := s.selectGroup(args[0]); err != nil {
		return err
	}
	group := s.group
	c.PrintfLine("211 %d %d %d %s",
		group.Count, group.Low, group.High, group.Name)
	return nil
}

/*
   Syntax
     LISTGROUP [group [range]]

   Responses
     211 number low high group     Article numbers follow (multi-line)
     411                           No such newsgroup
     412                           No newsgroup selected
*/

func handleListGroup(args []string, s *session, c *textproto.Conn) error {
	if len(args) > 0 {
		if err := s.selectGroup(args[0]); err != nil {
			return err
		}
	}
	if s.group == nil {
		return ErrNoGroupSelected
	}
	from, to := int64(0), int64(math.MaxInt64)
	if len(args) > 1 {
		from, to = parseRange(args[1])
	}
	articles, err := s.backend.GetArticles(s.group, from, to)
	if err != nil {
		return err
	}
	group := s.group
	c.PrintfLine("211 %d %d %d %s",
		group.Count, group.Low, group.High, group.Name)
	dw := newDotWriter(c)
	defer dw.Close()
	for _, a := range articles {
		fmt.Fprintf(dw, "%d\r\n", a.Num)
	}
	return nil
}

func (s *session) step(forward bool) error {
	if s.group == nil {
		return ErrNoGroupSelected
	}
	if s.current == 0 {
		return ErrNoCurrentArticle
	}
	var from, to int64 = s.current + 1, math.MaxInt64
	if !forward {
		from, to = 0, s.current-1
	}
	articles, err := s.backend.GetArticles(s.group, from, to)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		if forward {
			return ErrNoNextArticle
		}
		return ErrNoPrevArticle
	}
	a := articles[0]
	if !forward {
		a = articles[len(articles)-1]
	}
	s.current = a.Num
	return nil
}

func handleNext(args []string, s *session, c *textproto.Conn) error {
	return s.moveAndReport(true, c)
}

func handleLast(args []string, s *session, c *textproto.Conn) error {
	return s.moveAndReport(false, c)
}

func (s *session) moveAndReport(forward bool, c *textproto.Conn) error {
	if err := s.step(forward); err != nil {
		return err
	}
	article, err := s.backend.GetArticle(s.group, strconv.FormatInt(s.current, 10))
	if err != nil {
		return err
	}
	c.PrintfLine("223 %d %s", s.current, article.MessageID())
	return nil
}

// getArticle resolves the article argument shared by ARTICLE, HEAD, BODY
// and STAT: a message-id, a number in the current group, or nothing for
// the current article. The returned number is 0 for message-ids.
func (s *session) getArticle(args []string) (int64, *nntp.Article, error) {
	if len(args) > 0 && strings.HasPrefix(args[0], "<") {
		article, err := s.backend.GetArticle(s.group, args[0])
		return 0, article, err
	}
	if s.group == nil {
		return 0, nil, ErrNoGroupSelected
	}
	num := s.current
	if len(args) > 0 {
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return 0, nil, ErrSyntax
		}
		num = n
	} else if num == 0 {
		return 0, nil, ErrNoCurrentArticle
	}
	article, err := s.backend.GetArticle(s.group, strconv.FormatInt(num, 10))
	if err != nil {
		return 0, nil, err
	}
	s.current = num
	return num, article, nil
}

/*
   Syntax
     STAT message-id
     STAT number
     STAT

   Responses
     223 n message-id    Article exists
*/

func handleStat(args []string, s *session, c *textproto.Conn) error {
	num, article, err := s.getArticle(args)
	if err != nil {
		return err
	}
	c.PrintfLine("223 %d %s", num, article.MessageID())
	return nil
}

func writeHeader(w io.Writer, h textproto.MIMEHeader) {
	for k, vs := range h {
		for _, v := range vs {
			fmt.Fprintf(w, "%s: %s\r\n", k, v)
		}
	}
}

/*
   Syntax
     HEAD message-id
     HEAD number
     HEAD


   First form (message-id specified)
     221 0|n message-id    Headers follow (multi-line)
     430                   No article with that message-id

   Second form (article number specified)
     221 n message-id      Headers follow (multi-line)
     412                   No newsgroup selected
     423                   No article with that number

   Third form (current article number used)
     221 n message-id      Headers follow (multi-line)
     412                   No newsgroup selected
     420                   Current article number is invalid
*/

func handleHead(args []string, s *session, c *textproto.Conn) error {
	num, article, err := s.getArticle(args)
	if err != nil {
		return err
	}
	c.PrintfLine("221 %d %s", num, article.MessageID())
	dw := newDotWriter(c)
	defer dw.Close()
	writeHeader(dw, article.Header)
	return nil
}

func handleBody(args []string, s *session, c *textproto.Conn) error {
	num, article, err := s.getArticle(args)
	if err != nil {
		return err
	}
	c.PrintfLine("222 %d %s", num, article.MessageID())
	dw := newDotWriter(c)
	defer dw.Close()
	_, err = io.Copy(dw, article.Body)
	return err
}

func handleArticle(args []string, s *session, c *textproto.Conn) error {
	num, article, err := s.getArticle(args)
	if err != nil {
		return err
	}
	c.PrintfLine("220 %d %s", num, article.MessageID())
	dw := newDotWriter(c)
	defer dw.Close()

	writeHeader(dw, article.Header)
	fmt.Fprintln(dw, "")

	_, err = io.Copy(dw, article.Body)
	return err
}

// receiveArticle reads a dot-terminated article and hands it to the
// backend. The rest of the article is always consumed so the connection
// stays in step with the client.
func (s *session) receiveArticle(c *textproto.Conn) error {
	article := &nntp.Article{}
	var err error
	article.Header, err = c.ReadMIMEHeader()
	if err != nil {
		return ErrPostingFailed
	}
	body := c.DotReader()
	article.Body = body
	err = s.backend.Post(article)
	io.Copy(io.Discard, body)
	return err
}

/*
   Syntax
     POST

   Responses

   Initial responses
     340    Send article to be posted
     440    Posting not permitted

   Subsequent responses
     240    Article received OK
     441    Posting failed
*/

func handlePost(args []string, s *session, c *textproto.Conn) error {
	if !s.backend.AllowPost() {
		return ErrPostingNotPermitted
	}

	c.PrintfLine("340 Go ahead")
	if err := s.receiveArticle(c); err != nil {
		return err
	}
	c.PrintfLine("240 article received OK")
	return nil
}

func handleIHave(args []string, s *session, c *textproto.Conn) error {
	if len(args) < 1 {
		return ErrSyntax
	}
	if !s.backend.AllowPost() {
		return ErrNotWanted
	}

	if article, _ := s.backend.GetArticle(nil, args[0]); article != nil {
		return ErrNotWanted
	}

	c.PrintfLine("335 send it")
	if err := s.receiveArticle(c); err != nil {
		return err
	}
	c.PrintfLine("235 article received OK")
	return nil
}

func handleCap(args []string, s *session, c *textproto.Conn) error {
	c.PrintfLine("101 Capability list:")
	dw := newDotWriter(c)
	defer dw.Close()

	fmt.Fprintf(dw, "VERSION 2\n")
	fmt.Fprintf(dw, "READER\n")
	if s.backend.AllowPost() {
		fmt.Fprintf(dw, "POST\n")
		fmt.Fprintf(dw, "IHAVE\n")
	}
	fmt.Fprintf(dw, "OVER\n")
	fmt.Fprintf(dw, "XOVER\n")
	fmt.Fprintf(dw, "NEWNEWS\n")
	fmt.Fprintf(dw, "LIST ACTIVE NEWSGROUPS OVERVIEW.FMT\n")
	return nil
}

func handleMode(args []string, s *session, c *textproto.Conn) error {
	if s.backend.AllowPost() {
		c.PrintfLine("200 Posting allowed")
	} else {
		c.PrintfLine("201 Posting prohibited")
	}
	return nil
}
