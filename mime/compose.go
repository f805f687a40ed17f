package nntpmime

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/nntpkit/go-nntp"
)

const defaultDomain = "nntpkit.invalid"

// A Composer builds the raw article text for a Post.
type Composer struct {
	// Now stamps the Date header; time.Now when nil.
	Now func() time.Time
	// Domain is the right hand side of generated Message-IDs. When empty
	// the domain of the poster's address is used.
	Domain string
}

// Compose builds p with the zero Composer.
func Compose(p *nntp.Post) ([]byte, error) {
	return Composer{}.Compose(p)
}

func (c Composer) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c Composer) messageID(email string) string {
	domain := c.Domain
	if domain == "" {
		if i := strings.LastIndexByte(email, '@'); i >= 0 && i < len(email)-1 {
			domain = email[i+1:]
		} else {
			domain = defaultDomain
		}
	}
	return uuid.NewString() + "@" + domain
}

// Compose builds the article. A post with only a text body becomes a
// single text/plain message; HTML or attachments make it multipart.
func (c Composer) Compose(p *nntp.Post) ([]byte, error) {
	if p.Group == "" {
		return nil, fmt.Errorf("nntpmime: post has no newsgroup")
	}

	var h mail.Header
	h.SetDate(c.now())
	h.SetAddressList("From", []*mail.Address{{Name: p.Name, Address: p.Email}})
	h.SetSubject(p.Subject)
	h.SetMessageID(c.messageID(p.Email))
	h.Set("Newsgroups", p.Group)
	if p.Reference != "" {
		h.Set("References", p.Reference)
	}

	var buf bytes.Buffer
	if p.HTML == "" && len(p.Attachments) == 0 {
		h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
		w, err := mail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(w, p.Text); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if p.Text != "" || p.HTML != "" {
		if err := writeInline(mw, p.Text, p.HTML); err != nil {
			return nil, err
		}
	}
	for _, a := range p.Attachments {
		if err := writeAttachment(mw, a); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeInline(mw *mail.Writer, text, html string) error {
	iw, err := mw.CreateInline()
	if err != nil {
		return err
	}
	for _, part := range []struct{ ct, body string }{
		{"text/plain", text},
		{"text/html", html},
	} {
		if part.body == "" {
			continue
		}
		var ih mail.InlineHeader
		ih.SetContentType(part.ct, map[string]string{"charset": "utf-8"})
		w, err := iw.CreatePart(ih)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, part.body); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
	}
	return iw.Close()
}

func writeAttachment(mw *mail.Writer, a nntp.Attachment) error {
	ct := a.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	var ah mail.AttachmentHeader
	ah.SetContentType(ct, nil)
	ah.SetFilename(a.Filename)
	w, err := mw.CreateAttachment(ah)
	if err != nil {
		return err
	}
	if _, err := w.Write(a.Data); err != nil {
		return err
	}
	return w.Close()
}
