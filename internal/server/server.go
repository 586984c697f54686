// Package server assembles the engine from its services: RTMP ingest, the
// HTTP surface (API, metrics, FLV and WebSocket playback), the liveness
// probe, and relay tasks, under one lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"weir/internal/config"
	"weir/internal/core/bus"
	"weir/internal/metrics"
	"weir/internal/svc/api"
	"weir/internal/svc/health"
	"weir/internal/svc/httpflv"
	"weir/internal/svc/relay"
	"weir/internal/svc/rtmp"
	"weir/internal/svc/wsflv"
)

// Server owns every listener and service of one engine instance.
type Server struct {
	cfg      *config.Config
	registry *bus.Registry

	ingest *rtmp.Server
	relays *relay.Manager

	httpSrv   *http.Server
	healthSrv *http.Server
	httpLn    net.Listener
	healthLn  net.Listener

	// baseCtx parents every HTTP request context. Cancelling it ends the
	// open-ended FLV and WebSocket responses that Shutdown alone would
	// wait out.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	log *logrus.Entry
}

// New wires all services from cfg. version labels the API. Each instance
// registers its collectors on a private Prometheus registry, so building
// several engines in one process cannot collide.
func New(cfg *config.Config, version string) *Server {
	registry := bus.NewRegistry()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	relays := relay.NewManager(registry, m)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	api.NewService(registry, relays, cfg, version, promReg).Register(engine)
	httpflv.NewHandler(registry, m, cfg.Bus.SubscriberBuffer).Register(engine)
	wsflv.NewHandler(registry, m, cfg.Bus.SubscriberBuffer).Register(engine)

	baseCtx, baseCancel := context.WithCancel(context.Background())

	return &Server{
		cfg:      cfg,
		registry: registry,
		ingest:   rtmp.NewServer(cfg, registry, m),
		relays:   relays,
		httpSrv: &http.Server{
			Handler:     engine,
			BaseContext: func(net.Listener) context.Context { return baseCtx },
		},
		healthSrv:  &http.Server{Handler: health.Handler()},
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		log:        logrus.WithField("svc", "server"),
	}
}

// Listen binds every listener without serving yet. Ports come from cfg;
// port zero binds ephemerally, which tests use.
func (s *Server) Listen() error {
	if err := s.ingest.Listen(fmt.Sprintf(":%d", s.cfg.Server.RTMPPort)); err != nil {
		return fmt.Errorf("rtmp listener: %w", err)
	}

	httpLn, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Server.HTTPPort))
	if err != nil {
		s.ingest.Close()
		return fmt.Errorf("http listener: %w", err)
	}
	s.httpLn = httpLn
	s.log.WithField("addr", httpLn.Addr().String()).Info("http listening")

	healthLn, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Server.HealthPort))
	if err != nil {
		s.ingest.Close()
		httpLn.Close()
		return fmt.Errorf("health listener: %w", err)
	}
	s.healthLn = healthLn
	s.log.WithField("addr", healthLn.Addr().String()).Info("health listening")

	return nil
}

// Serve starts relay tasks and runs every listener until ctx is cancelled
// or one service fails, then shuts everything down. Listen must have
// succeeded first.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.relays.StartTasks(s.cfg); err != nil {
		s.shutdown()
		return fmt.Errorf("relay tasks: %w", err)
	}

	errc := make(chan error, 3)
	go func() { errc <- label("rtmp", s.ingest.Serve()) }()
	go func() { errc <- label("http", ignoreClosed(s.httpSrv.Serve(s.httpLn))) }()
	go func() { errc <- label("health", ignoreClosed(s.healthSrv.Serve(s.healthLn))) }()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
	}

	s.shutdown()
	return err
}

// Run is Listen then Serve.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// RTMPAddr returns the bound ingest address, nil before Listen.
func (s *Server) RTMPAddr() net.Addr { return s.ingest.Addr() }

// HTTPAddr returns the bound HTTP address, nil before Listen.
func (s *Server) HTTPAddr() net.Addr {
	if s.httpLn == nil {
		return nil
	}
	return s.httpLn.Addr()
}

// HealthAddr returns the bound health address, nil before Listen.
func (s *Server) HealthAddr() net.Addr {
	if s.healthLn == nil {
		return nil
	}
	return s.healthLn.Addr()
}

func label(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
