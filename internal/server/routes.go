// Package server wires HTTP handlers into a gorilla/mux router for the
// lobby application.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes configures and returns the router with all application routes.
// WebSocket sessions are accepted on both "/" and "/ws".
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.ServeWS)
	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/lobby", s.LobbyHandler).Methods(http.MethodGet)
	r.HandleFunc("/test", s.TestPageHandler).Methods(http.MethodGet)
	r.HandleFunc("/", s.RootHandler)
	return r
}
