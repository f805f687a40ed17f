// Package nntpclient provides an NNTP client.
//
// A Client owns one connection and runs one command at a time: the reply
// to a command is framed completely before the next command may be sent.
// Calling a second operation while one is in flight returns ErrBusy.
package nntpclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/nntpkit/go-nntp"
)

var (
	// ErrBusy is returned when an operation is started while another
	// one is still waiting for its reply.
	ErrBusy = errors.New("nntp: command already in flight")

	// ErrClosed is returned after Quit or Close.
	ErrClosed = errors.New("nntp: client closed")

	// ErrBroken is returned once a transport or framing error has left
	// the connection in an unknown state.
	ErrBroken = errors.New("nntp: connection broken")
)

// Transport is the byte stream to the server. When it also has
// SetReadDeadline and SetWriteDeadline, as net.Conn does, timeouts and
// context cancellation interrupt blocked reads and writes.
type Transport interface {
	io.ReadWriteCloser
}

type deadliner interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// A Client is an NNTP session.
type Client struct {
	conn   Transport
	w      *textproto.Writer
	framer *nntp.Framer
	inbuf  []byte
	opts   *Options

	inflight *semaphore.Weighted

	// Banner is the text of the server greeting.
	Banner         string
	postingAllowed bool

	mu     sync.Mutex
	broken error
	closed bool
}

// New connects to an NNTP server and reads its greeting.
func New(network, addr string, opts ...Option) (*Client, error) {
	return DialContext(context.Background(), network, addr, opts...)
}

// DialContext is New with a context for the dial and the greeting.
func DialContext(ctx context.Context, network, addr string, opts ...Option) (*Client, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	d := net.Dialer{Timeout: options.DialTimeout}
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("nntp: dial: %w", err)
	}
	return newClient(ctx, conn, options)
}

// NewConn starts a session on an existing transport. The server greeting
// must not have been read yet.
func NewConn(ctx context.Context, t Transport, opts ...Option) (*Client, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return newClient(ctx, t, options)
}

func newClient(ctx context.Context, t Transport, options *Options) (*Client, error) {
	c := &Client{
		conn:     t,
		w:        textproto.NewWriter(bufio.NewWriter(t)),
		framer:   nntp.NewFramer(false),
		inbuf:    make([]byte, 4096),
		opts:     options,
		inflight: semaphore.NewWeighted(1),
	}

	resp, err := c.receive(ctx, false)
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("nntp: reading greeting: %w", err)
	}
	switch resp.Status {
	case 200:
		c.postingAllowed = true
	case 201:
		c.postingAllowed = false
	default:
		t.Close()
		return nil, nntp.NewError(resp.Status)
	}
	c.Banner = resp.Message

	c.opts.Logger.Debug("greeting", "status", resp.Status, "banner", c.Banner)
	return c, nil
}

// PostingAllowed reports whether the greeting permitted posting.
func (c *Client) PostingAllowed() bool {
	return c.postingAllowed
}

// Close closes the connection without sending QUIT.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	return c.conn.Close()
}

// begin claims the session for one operation.
func (c *Client) begin() error {
	if !c.inflight.TryAcquire(1) {
		return ErrBusy
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		c.inflight.Release(1)
		return ErrClosed
	case c.broken != nil:
		c.inflight.Release(1)
		return fmt.Errorf("%w: %v", ErrBroken, c.broken)
	}
	return nil
}

func (c *Client) end() {
	c.inflight.Release(1)
}

// fail marks the session unusable.
func (c *Client) fail(err error) error {
	c.mu.Lock()
	if c.broken == nil {
		c.broken = err
		transportErrors.Inc()
	}
	c.mu.Unlock()
	return err
}

func (c *Client) deadline(ctx context.Context, timeout time.Duration) time.Time {
	var t time.Time
	if timeout > 0 {
		t = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (t.IsZero() || d.Before(t)) {
		t = d
	}
	return t
}

// execute sends one command and frames its reply. A reply with a status
// other than cmd.expect is returned as an *nntp.Error.
func (c *Client) execute(ctx context.Context, cmd command, args ...any) (*nntp.Response, error) {
	line := cmd.line(args...)
	return c.roundTrip(ctx, cmd, func() error {
		return c.w.PrintfLine("%s", line)
	})
}

func (c *Client) roundTrip(ctx context.Context, cmd command, write func() error) (*nntp.Response, error) {
	ctx, span := tracer.Start(ctx, "nntp."+cmd.name, trace.WithAttributes(
		attribute.String("nntp.command", cmd.name),
		attribute.Bool("nntp.multiline", cmd.multiline),
	))
	defer span.End()

	start := time.Now()
	resp, err := c.exchange(ctx, cmd, write)
	commandDuration.WithLabelValues(cmd.name).Observe(time.Since(start).Seconds())
	if err != nil {
		commandsTotal.WithLabelValues(cmd.name, statusLabel(0)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	commandsTotal.WithLabelValues(cmd.name, statusLabel(resp.Status)).Inc()
	responseBytes.WithLabelValues(cmd.name).Observe(float64(c.framer.Buffered()))
	span.SetAttributes(attribute.Int("nntp.status", resp.Status))

	c.opts.Logger.Debug("recv", "command", cmd.name, "status", resp.Status, "lines", len(resp.Lines))

	if resp.Status != cmd.expect {
		err := nntp.NewError(resp.Status)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return resp, nil
}

func (c *Client) exchange(ctx context.Context, cmd command, write func() error) (*nntp.Response, error) {
	c.opts.Logger.Debug("send", "command", cmd.name)

	if d, ok := c.conn.(deadliner); ok {
		d.SetWriteDeadline(c.deadline(ctx, c.opts.WriteTimeout))
	}
	if err := write(); err != nil {
		return nil, c.fail(fmt.Errorf("nntp: writing %s: %w", cmd.name, err))
	}
	return c.receive(ctx, cmd.multiline)
}

// aLongTimeAgo is a deadline that has already passed.
var aLongTimeAgo = time.Unix(1, 0)

// receive feeds transport reads to the framer until one reply is complete.
func (c *Client) receive(ctx context.Context, multiline bool) (*nntp.Response, error) {
	c.framer.Reset(multiline)

	if d, ok := c.conn.(deadliner); ok {
		d.SetReadDeadline(c.deadline(ctx, c.opts.ReadTimeout))
		stop := context.AfterFunc(ctx, func() {
			d.SetReadDeadline(aLongTimeAgo)
		})
		defer stop()
	}

	for {
		n, err := c.conn.Read(c.inbuf)
		if n > 0 {
			resp, ferr := c.framer.Feed(c.inbuf[:n])
			if ferr != nil {
				return nil, c.fail(ferr)
			}
			if resp != nil {
				return resp, nil
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			} else if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, c.fail(fmt.Errorf("nntp: reading response: %w", err))
		}
	}
}

// Command sends an arbitrary single-line command, such as MODE READER,
// and checks its status.
func (c *Client) Command(ctx context.Context, line string, expect int) (*nntp.Response, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()
	name, _, _ := strings.Cut(line, " ")
	return c.execute(ctx, command{name: strings.ToUpper(name), format: "%s", expect: expect}, line)
}

// Quit ends the session and closes the connection.
func (c *Client) Quit(ctx context.Context) (*nntp.Response, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()
	resp, err := c.execute(ctx, cmdQuit)
	c.Close()
	return resp, err
}
