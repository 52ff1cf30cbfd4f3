package service

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsServer struct {
	ctx    context.Context
	server *http.Server
}

func (m *MetricsServer) Start(ctx context.Context, addr string) error {
	handler := http.NewServeMux()
	handler.Handle("/metrics", promhttp.Handler())

	m.ctx = ctx
	m.server = &http.Server{
		Handler: handler,
		Addr:    addr,
	}
	return m.server.ListenAndServe()
}

func (m *MetricsServer) Shutdown() error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(m.ctx)
}
