// Package rtmp is the ingest and playback front end: it accepts RTMP
// connections, speaks the command protocol, and bridges media between
// peers and the stream bus.
package rtmp

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"weir/internal/config"
	"weir/internal/core/bus"
	rtmpproto "weir/internal/core/protocol/rtmp"
	"weir/internal/metrics"
)

// Server accepts RTMP connections and runs one service session per peer.
type Server struct {
	cfg      *config.Config
	registry *bus.Registry
	metrics  *metrics.Metrics
	log      *logrus.Entry

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

// NewServer creates a server publishing into the given registry.
func NewServer(cfg *config.Config, registry *bus.Registry, m *metrics.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		metrics:  m,
		log:      logrus.WithField("svc", "rtmp"),
	}
}

// Listen binds the TCP listener.
func (s *Server) Listen(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.log.WithField("addr", listener.Addr().String()).Info("listening")
	return nil
}

// Addr returns the bound address, nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until Close. Each connection gets its own
// goroutine.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	log := s.log.WithField("remote", conn.RemoteAddr().String())
	defer conn.Close()

	s.metrics.RecordIngestConnection()

	start := time.Now()
	if err := rtmpproto.PerformServerHandshake(conn); err != nil {
		if errors.Is(err, rtmpproto.ErrInvalidVersion) {
			log.Debug("not an RTMP client")
			return
		}
		s.metrics.RecordIngestError()
		log.WithError(err).Warn("handshake failed")
		return
	}
	s.metrics.ObserveHandshake(time.Since(start).Seconds())

	session := NewServiceSession(conn, s.registry, s.metrics, s.cfg, log)
	defer session.Close()

	err := session.Serve()
	switch {
	case err == nil,
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed):
		log.Debug("session closed")
	default:
		s.metrics.RecordIngestError()
		log.WithError(err).Info("session ended")
	}
}

// Close stops accepting. Established sessions run until their peers
// disconnect.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
