//go:build !tinygo

package ttgo

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// StatusServer exposes the node status over HTTP.
type StatusServer struct {
	node   *Node
	log    Logger
	router chi.Router
	server *http.Server
}

// NewStatusServer creates the router:
//
//	GET  /status  current Status as JSON
//	POST /send    submit an uplink now
func NewStatusServer(node *Node, log Logger) *StatusServer {
	log = loggerOr(log)
	s := &StatusServer{
		node:   node,
		log:    log,
		router: chi.NewRouter(),
	}
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	s.router.Get("/status", s.handleStatus)
	s.router.Post("/send", s.handleSend)
	return s
}

// ServeHTTP implements http.Handler.
func (s *StatusServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the server
func (s *StatusServer) ListenAndServe(addr string) error {
	s.server.Addr = addr
	s.log.Info("status endpoint listening on " + addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *StatusServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.node.Snapshot())
}

func (s *StatusServer) handleSend(w http.ResponseWriter, r *http.Request) {
	if !s.node.TriggerSend() {
		s.respondJSON(w, http.StatusConflict, map[string]string{
			"error": "uplink not submitted, exchange in flight or rejected",
		})
		return
	}
	s.respondJSON(w, http.StatusAccepted, s.node.Snapshot())
}

// respondJSON responds with JSON
func (s *StatusServer) respondJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("failed to marshal response: " + err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}
