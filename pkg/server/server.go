package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// readBufferSize bounds one request read. The whole request head and body
// must arrive in a single read; there is no re-read loop.
const readBufferSize = 1024

// Server accepts TCP connections and serves exactly one request on each.
type Server struct {
	router *Router
	log    *zap.Logger
	tracer trace.Tracer
}

// New creates a Server dispatching to the given router.
func New(router *Router, log *zap.Logger) *Server {
	return &Server{
		router: router,
		log:    log,
		tracer: otel.Tracer("tableflow/server"),
	}
}

// Serve accepts connections on ln until ctx is cancelled, handling each on
// its own goroutine with no upper bound. Cancelling ctx closes the listener
// and returns nil; in-flight connections finish on their own.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Error("accept", zap.Error(err))
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

// handleConn reads one request, routes it, writes the response and closes.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	connectionsOpen.Inc()
	defer connectionsOpen.Dec()

	// Read may return data together with an error; whatever arrived still
	// gets served, so only an empty read closes silently.
	buf := make([]byte, readBufferSize)
	n, _ := conn.Read(buf)
	if n == 0 {
		return
	}

	connID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "handle_request",
		trace.WithAttributes(attribute.String("conn_id", connID)))
	defer span.End()

	start := time.Now()
	res := s.router.Handle(ctx, string(buf[:n]))
	span.SetAttributes(attribute.String("outcome", res.Outcome.String()))
	requestsTotal.WithLabelValues(res.Outcome.String()).Inc()
	requestDuration.Observe(time.Since(start).Seconds())

	s.log.Debug("request",
		zap.String("conn_id", connID),
		zap.String("remote", conn.RemoteAddr().String()),
		zap.Int("bytes", n),
		zap.String("outcome", res.Outcome.String()),
	)

	if _, err := conn.Write([]byte(statusLine(res.Outcome) + res.Body)); err != nil {
		s.log.Warn("write response", zap.String("conn_id", connID), zap.Error(err))
	}
}

// statusLine maps an outcome onto the status line and head terminator.
func statusLine(o Outcome) string {
	switch o {
	case OutcomeBadRequest:
		return "HTTP/1.1 400 Bad Request\r\n\r\n"
	case OutcomeNotFound:
		return "HTTP/1.1 404 Not Found\r\n\r\n"
	default:
		return "HTTP/1.1 200 OK\r\n\r\n"
	}
}
