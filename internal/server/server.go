package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/scythe504/andevent-backend/internal/database"
	"github.com/scythe504/andevent-backend/internal/game"
)

type Server struct {
	port   int
	db     database.Service
	games  *game.Manager
	ws     http.Handler
	logger *slog.Logger
}

// New wires the HTTP surface around the store, the room manager and the
// websocket handler.
func New(port int, db database.Service, games *game.Manager, ws http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		port:   port,
		db:     db,
		games:  games,
		ws:     ws,
		logger: logger.With("component", "server"),
	}
}

func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
