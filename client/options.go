package nntpclient

import (
	"io"
	"log/slog"
	"time"

	"github.com/nntpkit/go-nntp"
	nntpmime "github.com/nntpkit/go-nntp/mime"
)

// Composer builds the raw article text sent for a Post.
type Composer func(*nntp.Post) ([]byte, error)

// ContentParser decodes a full article into its MIME parts.
type ContentParser func(io.Reader) (*nntp.ArticleContent, error)

// Option is a functional option for configuring the client.
type Option func(*Options)

// Options holds all client configuration.
type Options struct {
	// Logger is the structured logger.
	Logger *slog.Logger

	// DialTimeout bounds connection setup in New.
	DialTimeout time.Duration

	// ReadTimeout bounds the wait for one complete reply. Zero waits
	// until the context is done.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing one command.
	WriteTimeout time.Duration

	// Decode decodes encoded-words in subject and sender fields.
	Decode nntp.DecodeFunc

	// Compose builds articles for Post.
	Compose Composer

	// ParseContent decodes articles for ArticleContent.
	ParseContent ContentParser
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		Logger:       slog.Default(),
		DialTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
		Decode:       nntpmime.DecodeHeader,
		Compose:      nntpmime.Compose,
		ParseContent: nntpmime.ParseArticle,
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithDialTimeout sets the dial timeout.
func WithDialTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.DialTimeout = d
	}
}

// WithReadTimeout sets the read timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ReadTimeout = d
	}
}

// WithWriteTimeout sets the write timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.WriteTimeout = d
	}
}

// WithDecoder replaces the encoded-word decoder.
func WithDecoder(d nntp.DecodeFunc) Option {
	return func(o *Options) {
		o.Decode = d
	}
}

// WithComposer replaces the article composer used by Post.
func WithComposer(c Composer) Option {
	return func(o *Options) {
		o.Compose = c
	}
}

// WithContentParser replaces the parser used by ArticleContent.
func WithContentParser(p ContentParser) Option {
	return func(o *Options) {
		o.ParseContent = p
	}
}
