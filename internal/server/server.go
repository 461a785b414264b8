package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tomlord1122/qa-todo-api/internal/config"
	"github.com/Tomlord1122/qa-todo-api/internal/database"
	"github.com/Tomlord1122/qa-todo-api/internal/service"
)

type Server struct {
	cfg         config.ServerConfig
	authService service.AuthService
	todoService service.TodoService
	tokens      TokenVerifier
	db          database.Service
	log         zerolog.Logger
}

// New assembles the HTTP layer from its dependencies.
func New(
	cfg config.ServerConfig,
	authService service.AuthService,
	todoService service.TodoService,
	tokens TokenVerifier,
	dbService database.Service,
	log zerolog.Logger,
) *Server {
	return &Server{
		cfg:         cfg,
		authService: authService,
		todoService: todoService,
		tokens:      tokens,
		db:          dbService,
		log:         log,
	}
}

// HTTPServer wraps the routes in an *http.Server listening on the
// configured port.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
