// Package server wires the HTTP surface: room and dashboard websockets, the
// stats ingest endpoint, and the small room management REST API.
package server

import (
	"net/http"
	"time"

	"github.com/cashly-rent-a-car/bingo/internal/room"
	"github.com/cashly-rent-a-car/bingo/internal/stats"
)

type Server struct {
	registry   *room.Registry
	aggregator *stats.Aggregator
}

func NewServer(registry *room.Registry, aggregator *stats.Aggregator) *Server {
	return &Server{
		registry:   registry,
		aggregator: aggregator,
	}
}

// HTTPServer binds the routes to a configured http.Server.
func (s *Server) HTTPServer(port string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
