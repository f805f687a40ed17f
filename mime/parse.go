package nntpmime

import (
	"fmt"
	"io"
	"net/textproto"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/nntpkit/go-nntp"
)

// ParseArticle splits a full article into its text, HTML and attachments.
func ParseArticle(r io.Reader) (*nntp.ArticleContent, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("nntpmime: reading article: %w", err)
	}
	defer mr.Close()

	content := &nntp.ArticleContent{Header: make(textproto.MIMEHeader)}
	fields := mr.Header.Fields()
	for fields.Next() {
		content.Header.Add(fields.Key(), fields.Value())
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return nil, fmt.Errorf("nntpmime: reading part: %w", err)
		}
		body, err := io.ReadAll(p.Body)
		if err != nil {
			return nil, fmt.Errorf("nntpmime: reading part body: %w", err)
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			if ct == "text/html" {
				content.HTML += string(body)
			} else {
				content.Text += string(body)
			}
		case *mail.AttachmentHeader:
			name, _ := h.Filename()
			ct, _, _ := h.ContentType()
			content.Attachments = append(content.Attachments, nntp.Attachment{
				Filename:    name,
				ContentType: ct,
				Data:        body,
			})
		}
	}
	return content, nil
}
