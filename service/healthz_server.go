package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type HealthzServer struct {
	ctx     context.Context
	server  *http.Server
	version string
}

func NewHealthzServer(version string) *HealthzServer {
	return &HealthzServer{version: version}
}

func (h *HealthzServer) Start(ctx context.Context, addr string) error {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", h.Handle).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})

	h.ctx = ctx
	h.server = &http.Server{
		Handler: c.Handler(router),
		Addr:    addr,
	}
	return h.server.ListenAndServe()
}

func (h *HealthzServer) Shutdown() error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(h.ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": h.version,
	})
	if err != nil {
		log.Error("error encoding healthz response", "err", err)
	}
}
