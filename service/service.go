// Package service hosts the optional HTTP surfaces of the daemon: a healthz
// endpoint and a Prometheus metrics endpoint. Both are gated on their
// Enabled config.
package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/fullsweep/fullsweep/metrics"
)

type Service struct {
	cfg     Config
	Healthz *HealthzServer
	Metrics *MetricsServer
}

func New(cfg Config, version string) *Service {
	return &Service{
		cfg:     cfg,
		Healthz: NewHealthzServer(version),
		Metrics: &MetricsServer{},
	}
}

// Start launches the enabled servers in background goroutines. Listen
// failures are logged and recorded but do not take down the run.
func (s *Service) Start(ctx context.Context) {
	log.Info("service starting")
	if s.cfg.Healthz.Enabled {
		addr := net.JoinHostPort(s.cfg.Healthz.Host, strconv.Itoa(s.cfg.Healthz.Port))
		log.Info("starting healthz server", "addr", addr)
		go func() {
			if err := s.Healthz.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("error starting healthz server", "err", err)
				metrics.RecordErrorDetails("healthz server", err)
			}
		}()
	}
	if s.cfg.Metrics.Enabled {
		addr := net.JoinHostPort(s.cfg.Metrics.Host, strconv.Itoa(s.cfg.Metrics.Port))
		log.Info("starting metrics server", "addr", addr)
		go func() {
			if err := s.Metrics.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("error starting metrics server", "err", err)
				metrics.RecordErrorDetails("metrics server", err)
			}
		}()
	}
	log.Info("service started")
}

func (s *Service) Shutdown() {
	log.Info("service shutting down")
	if s.cfg.Healthz.Enabled {
		if err := s.Healthz.Shutdown(); err != nil {
			log.Error("error shutting down healthz server", "err", err)
		}
		log.Info("healthz stopped")
	}
	if s.cfg.Metrics.Enabled {
		if err := s.Metrics.Shutdown(); err != nil {
			log.Error("error shutting down metrics server", "err", err)
		}
		log.Info("metrics stopped")
	}
	log.Info("service stopped")
}
