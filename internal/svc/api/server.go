// Package api exposes engine state and relay control as a JSON HTTP API,
// plus the Prometheus exposition endpoint.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"weir/internal/config"
	"weir/internal/core/bus"
	"weir/internal/svc/relay"
)

// RelayController is the slice of the relay manager the API drives.
type RelayController interface {
	GetTasks() []relay.TaskInfo
	Restart(cfg *config.Config) error
}

// Service answers the /api routes. It only reads engine state; the one
// mutating endpoint delegates to the relay manager.
type Service struct {
	registry *bus.Registry
	relays   RelayController
	cfg      *config.Config
	version  string
	gatherer prometheus.Gatherer
	started  time.Time
	log      *logrus.Entry
}

// NewService builds the API over the shared registry and relay manager.
// gatherer feeds GET /metrics.
func NewService(registry *bus.Registry, relays RelayController, cfg *config.Config, version string, gatherer prometheus.Gatherer) *Service {
	return &Service{
		registry: registry,
		relays:   relays,
		cfg:      cfg,
		version:  version,
		gatherer: gatherer,
		started:  time.Now(),
		log:      logrus.WithField("svc", "api"),
	}
}

// Register mounts the API and metrics routes.
func (s *Service) Register(r gin.IRouter) {
	r.GET("/api/server", s.handleServer)
	r.GET("/api/streams", s.handleStreams)
	r.GET("/api/relay", s.handleRelay)
	r.POST("/api/relay/restart", s.handleRelayRestart)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
}
