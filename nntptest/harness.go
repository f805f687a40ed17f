package nntptest

import (
	"context"
	"net"
	"testing"

	nntpclient "github.com/nntpkit/go-nntp/client"
	nntpserver "github.com/nntpkit/go-nntp/server"
)

// Harness provides an in-process NNTP server and client for testing.
type Harness struct {
	t        testing.TB
	server   *nntpserver.Server
	listener net.Listener
	done     chan struct{}
}

// NewHarness serves backend on a loopback listener until the test ends.
func NewHarness(t testing.TB, backend nntpserver.Backend) *Harness {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	h := &Harness{
		t:        t,
		server:   nntpserver.NewServer(backend),
		listener: l,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		_ = h.server.Serve(l)
	}()

	t.Cleanup(h.Close)

	return h
}

// Addr returns the address the server is listening on.
func (h *Harness) Addr() string {
	return h.listener.Addr().String()
}

// Dial creates a new client connected to the test server.
func (h *Harness) Dial(opts ...nntpclient.Option) *nntpclient.Client {
	h.t.Helper()

	c, err := nntpclient.DialContext(context.Background(), "tcp", h.Addr(), opts...)
	if err != nil {
		h.t.Fatalf("dial: %v", err)
	}

	h.t.Cleanup(func() {
		_ = c.Close()
	})

	return c
}

// Close stops accepting connections.
func (h *Harness) Close() {
	_ = h.listener.Close()
	<-h.done
}

// Server returns the underlying server.
func (h *Harness) Server() *nntpserver.Server {
	return h.server
}
