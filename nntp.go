// Package nntp holds the wire-level pieces shared by the NNTP client and
// server: the status registry, the reply model and its incremental framer,
// and the article data types decoded from replies.
package nntp

import (
	"fmt"
	"io"
	"net/textproto"
)

// CRLF terminates every command and reply line.
const CRLF = "\r\n"

type PostingStatus byte

const (
	Unknown             = PostingStatus(0)
	PostingPermitted    = PostingStatus('y')
	PostingNotPermitted = PostingStatus('n')
	PostingModerated    = PostingStatus('m')
)

func (ps PostingStatus) String() string {
	return fmt.Sprintf("%c", ps)
}

// A Group is a newsgroup as reported by GROUP, LIST or NEWGROUPS.
type Group struct {
	Name        string
	Description string
	Count       int64
	High        int64
	Low         int64
	Posting     PostingStatus
}

type Article struct {
	Header textproto.MIMEHeader
	Body   io.Reader
	Bytes  int
	Lines  int
}

func (a *Article) MessageID() string {
	return a.Header.Get("Message-Id")
}

// ArticleRef is the "n message-id" pair carried by NEXT, LAST and STAT
// replies.
type ArticleRef struct {
	Number    int64
	MessageID string
}

// Attachment is a non-inline MIME part of an article.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ArticleContent is an article body decoded from its MIME structure.
type ArticleContent struct {
	Header      textproto.MIMEHeader
	Text        string
	HTML        string
	Attachments []Attachment
}

// Post describes an article to be submitted with POST. Reference, when set,
// becomes the References header and threads the post under that article.
type Post struct {
	Name        string
	Email       string
	Group       string
	Reference   string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}
