package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Tomlord1122/qa-todo-api/internal/domain"
	"github.com/Tomlord1122/qa-todo-api/internal/metrics"
	"github.com/Tomlord1122/qa-todo-api/internal/service"
)

const apiVersion = "1.0.0"

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogging(s.log)...)
	r.Use(recordMetrics)
	r.Use(recoverer)

	origins := s.cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Set before mounting sub-routers so they inherit them.
	r.NotFound(s.notFoundHandler)
	r.MethodNotAllowed(s.notFoundHandler)

	r.Get("/", s.bannerHandler)
	r.Get("/health", s.healthHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/", s.bannerHandler)
		r.Get("/health", s.healthHandler)
		r.Post("/register", s.registerHandler)
		r.Post("/login", s.loginHandler)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(s.tokens))
			r.Route("/todos", func(r chi.Router) {
				r.Get("/", s.listTodosHandler)
				r.Post("/", s.createTodoHandler)
				r.Get("/{id}", s.getTodoHandler)
				r.Put("/{id}", s.updateTodoHandler)
				r.Delete("/{id}", s.deleteTodoHandler)
			})
		})
	})

	return r
}

func (s *Server) bannerHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"message": "QA Todo API server",
		"version": apiVersion,
		"endpoints": []string{
			"POST /api/register - register",
			"POST /api/login - log in",
			"GET /api/todos - list todos",
			"POST /api/todos - create todo",
			"GET /api/todos/:id - get todo",
			"PUT /api/todos/:id - edit todo",
			"DELETE /api/todos/:id - delete todo",
			"GET /api/health - health check",
		},
	})
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusNotFound, "requested resource not found")
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := s.db.Health(r.Context())
	if stats["status"] != "up" {
		respondWithJSON(w, http.StatusInternalServerError, map[string]any{
			"ok":      false,
			"db":      false,
			"message": "database connection failed",
		})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"db":      true,
		"message": "server is alive",
		"stats":   stats,
	})
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := s.authService.Register(r.Context(), req)
	metrics.RecordAuthEvent("register", err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := s.authService.Login(r.Context(), req)
	metrics.RecordAuthEvent("login", err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// actingUserID resolves the authenticated identity to a stored user. On
// failure the response has already been written.
func (s *Server) actingUserID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, domain.ErrMissingToken.Message)
		return 0, false
	}

	user, err := s.authService.ResolveUser(r.Context(), identity)
	if err != nil {
		writeError(w, r, err)
		return 0, false
	}
	return user.ID, true
}

// todoID parses the {id} URL parameter. Anything that is not a positive
// integer is answered like a missing todo.
func todoID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, strconv.IntSize)
	if err != nil || id == 0 {
		respondWithError(w, http.StatusNotFound, domain.ErrTodoNotFound.Message)
		return 0, false
	}
	return uint(id), true
}

func (s *Server) listTodosHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUserID(w, r)
	if !ok {
		return
	}

	todos, err := s.todoService.ListTodos(r.Context(), userID)
	metrics.RecordTodoOperation("list", err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, todos)
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUserID(w, r)
	if !ok {
		return
	}

	var req service.CreateTodoRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := s.todoService.CreateTodo(r.Context(), userID, req)
	metrics.RecordTodoOperation("create", err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

func (s *Server) getTodoHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUserID(w, r)
	if !ok {
		return
	}
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	resp, err := s.todoService.GetTodo(r.Context(), userID, id)
	metrics.RecordTodoOperation("get", err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (s *Server) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUserID(w, r)
	if !ok {
		return
	}
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	var req service.UpdateTodoRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := s.todoService.UpdateTodo(r.Context(), userID, id, req)
	metrics.RecordTodoOperation("update", err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUserID(w, r)
	if !ok {
		return
	}
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	resp, err := s.todoService.DeleteTodo(r.Context(), userID, id)
	metrics.RecordTodoOperation("delete", err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}
