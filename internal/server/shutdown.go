package server

import (
	"context"
	"time"
)

const shutdownTimeout = 5 * time.Second

// shutdown stops everything in dependency order: relay tasks first so
// nothing keeps pumping, then ingest, then the HTTP surfaces. Cancelling
// baseCtx ends streaming responses; without that, Shutdown would wait the
// whole timeout for viewers that never finish.
func (s *Server) shutdown() {
	s.log.Info("shutting down")

	s.relays.Stop()

	if err := s.ingest.Close(); err != nil {
		s.log.WithError(err).Warn("rtmp listener close")
	}

	s.baseCancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.log.WithError(err).Warn("http shutdown")
	}
	if err := s.healthSrv.Shutdown(ctx); err != nil {
		s.log.WithError(err).Warn("health shutdown")
	}

	// Shutdown only closes listeners its server has begun serving on; a
	// failed start leaves them bound.
	if s.httpLn != nil {
		s.httpLn.Close()
	}
	if s.healthLn != nil {
		s.healthLn.Close()
	}

	s.log.Info("stopped")
}
