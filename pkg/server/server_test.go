package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"tableflow/pkg/restaurant"
)

// startServer runs a Server on a loopback listener and returns its address,
// a stop func and a channel carrying Serve's return value.
func startServer(t *testing.T) (addr string, stop func(), done chan error) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())

	srv := New(NewRouter(restaurant.New(20)), zap.NewNop())
	done = make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	return ln.Addr().String(), cancel, done
}

// roundTrip opens a connection, writes one request and reads the full
// response, relying on the server closing the connection afterwards.
func roundTrip(t *testing.T, addr, req string) string {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(req)); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	resp, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(resp)
}

func TestServeRoundTrip(t *testing.T) {
	addr, stop, _ := startServer(t)
	defer stop()

	resp := roundTrip(t, addr, "POST /orders HTTP/1.1\r\n\r\n{\"table_id\": 6, \"items\": [101, 102]}")
	if !strings.HasPrefix(resp, "HTTP/1.1 200 OK\r\n\r\n") {
		t.Fatalf("unexpected response %q", resp)
	}
	if !strings.Contains(resp, `"message":"Success!"`) {
		t.Fatalf("unexpected body in %q", resp)
	}

	resp = roundTrip(t, addr, "GET /orders/6 HTTP/1.1\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.1 200 OK\r\n\r\n") {
		t.Fatalf("unexpected response %q", resp)
	}
	if !strings.Contains(resp, `item_id`) {
		t.Fatalf("expected orders in %q", resp)
	}
}

func TestServeStatusLines(t *testing.T) {
	addr, stop, _ := startServer(t)
	defer stop()

	resp := roundTrip(t, addr, "GET /invalid-path HTTP/1.1\r\n\r\n")
	if resp != "HTTP/1.1 404 Not Found\r\n\r\nNot Found" {
		t.Fatalf("unexpected response %q", resp)
	}

	resp = roundTrip(t, addr, "DELETE /orders/1/99 HTTP/1.1\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.1 400 Bad Request\r\n\r\n") {
		t.Fatalf("unexpected response %q", resp)
	}
}

func TestServeSilentOnEmptyConnection(t *testing.T) {
	addr, stop, _ := startServer(t)
	defer stop()

	// A peer that connects and leaves without sending must not get a
	// response or take the server down.
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	// The server still answers afterwards.
	resp := roundTrip(t, addr, "GET /orders/0 HTTP/1.1\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.1 200 OK\r\n\r\n") {
		t.Fatalf("unexpected response %q", resp)
	}
}

// stubConn hands out one buffered read, paired with an error, the way a
// TCP read may deliver data and a failure together.
type stubConn struct {
	data    []byte
	readErr error
	wrote   bytes.Buffer
	closed  bool
}

func (c *stubConn) Read(b []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := copy(b, c.data)
	c.data = c.data[n:]
	return n, c.readErr
}

func (c *stubConn) Write(b []byte) (int, error)  { return c.wrote.Write(b) }
func (c *stubConn) Close() error                 { c.closed = true; return nil }
func (c *stubConn) LocalAddr() net.Addr          { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }
func (c *stubConn) RemoteAddr() net.Addr         { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }
func (c *stubConn) SetDeadline(time.Time) error  { return nil }
func (c *stubConn) SetReadDeadline(time.Time) error  { return nil }
func (c *stubConn) SetWriteDeadline(time.Time) error { return nil }

// A read that delivers the request bytes along with an error must still be
// answered.
func TestHandleConnDataWithReadError(t *testing.T) {
	srv := New(NewRouter(restaurant.New(5)), zap.NewNop())
	conn := &stubConn{
		data:    []byte("GET /orders/1 HTTP/1.1\r\n\r\n"),
		readErr: io.ErrUnexpectedEOF,
	}

	srv.handleConn(context.Background(), conn)

	if !conn.closed {
		t.Fatal("connection left open")
	}
	if resp := conn.wrote.String(); !strings.HasPrefix(resp, "HTTP/1.1 200 OK\r\n\r\n") {
		t.Fatalf("unexpected response %q", resp)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	addr, stop, done := startServer(t)

	stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	if _, err := net.Dial("tcp", addr); err == nil {
		t.Fatal("listener still accepting after shutdown")
	}
}

func TestServeConcurrentConnections(t *testing.T) {
	addr, stop, _ := startServer(t)
	defer stop()

	results := make(chan string, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			conn, err := net.Dial("tcp", addr)
			if err != nil {
				results <- "dial: " + err.Error()
				return
			}
			defer conn.Close()
			req := fmt.Sprintf("POST /orders HTTP/1.1\r\n\r\n{\"table_id\": %d, \"items\": [1, 2, 3]}", i)
			if _, err := conn.Write([]byte(req)); err != nil {
				results <- "write: " + err.Error()
				return
			}
			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			b, err := io.ReadAll(conn)
			if err != nil {
				results <- "read: " + err.Error()
				return
			}
			results <- string(b)
		}(i)
	}
	for i := 0; i < 10; i++ {
		if resp := <-results; !strings.HasPrefix(resp, "HTTP/1.1 200 OK\r\n\r\n") {
			t.Fatalf("unexpected response %q", resp)
		}
	}
}
