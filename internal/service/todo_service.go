package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/Tomlord1122/qa-todo-api/internal/domain"
	"github.com/Tomlord1122/qa-todo-api/internal/repository"
)

// Input/Output Structs (Data Transfer Objects - DTOs)
// These decouple the HTTP layer from the database layer.

// CreateTodoRequest holds the data needed to create a new todo
type CreateTodoRequest struct {
	Title string `json:"title" form:"title"`
}

// UpdateTodoRequest holds the data for updating an existing todo.
// Pointers distinguish a field being omitted from being set to its zero
// value (e.g., setting IsCompleted to false).
type UpdateTodoRequest struct {
	Title       *string `json:"title" form:"title"`
	IsCompleted *bool   `json:"isCompleted" form:"isCompleted"`
}

// TodoResponse is the representation of a Todo returned by create, get and
// update.
type TodoResponse struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"isCompleted"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// TodoListItem is the representation used by the list endpoint. Its snake
// case keys are what the mobile client parses.
type TodoListItem struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type TodoEnvelope struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Todo    *TodoResponse `json:"todo"`
}

type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// --- Service Interface ---

// TodoService defines the operations for managing a user's todos. Every
// method acts only on todos owned by userID.
type TodoService interface {
	ListTodos(ctx context.Context, userID uint) ([]TodoListItem, error)
	CreateTodo(ctx context.Context, userID uint, req CreateTodoRequest) (*TodoEnvelope, error)
	GetTodo(ctx context.Context, userID, id uint) (*TodoEnvelope, error)
	UpdateTodo(ctx context.Context, userID, id uint, req UpdateTodoRequest) (*TodoEnvelope, error)
	DeleteTodo(ctx context.Context, userID, id uint) (*DeleteResponse, error)
}

// --- Service Implementation ---

type todoService struct {
	repo repository.TodoRepository
	log  zerolog.Logger
}

// NewTodoService creates a new instance of todoService.
func NewTodoService(repo repository.TodoRepository, log zerolog.Logger) TodoService {
	return &todoService{
		repo: repo,
		log:  log,
	}
}

// normalizeTitle trims title and enforces the title rules: non-blank and at
// most domain.MaxTitleLength characters.
func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", domain.NewValidationError("title is required")
	}
	if utf8.RuneCountInString(title) > domain.MaxTitleLength {
		return "", domain.NewValidationError("title must be at most 100 characters")
	}
	return title, nil
}

func (s *todoService) ListTodos(ctx context.Context, userID uint) ([]TodoListItem, error) {
	todos, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]TodoListItem, 0, len(todos))
	for _, todo := range todos {
		items = append(items, TodoListItem{
			ID:          todo.ID,
			Title:       todo.Title,
			IsCompleted: todo.Completed,
			CreatedAt:   formatTime(todo.CreatedAt),
			UpdatedAt:   formatTime(todo.UpdatedAt),
		})
	}
	return items, nil
}

func (s *todoService) CreateTodo(ctx context.Context, userID uint, req CreateTodoRequest) (*TodoEnvelope, error) {
	title, err := normalizeTitle(req.Title)
	if err != nil {
		return nil, err
	}

	todo := &domain.Todo{
		UserID: userID,
		Title:  title,
	}
	if err := s.repo.Create(ctx, todo); err != nil {
		return nil, err
	}

	s.log.Debug().Uint("user_id", userID).Uint("todo_id", todo.ID).Msg("todo created")
	return &TodoEnvelope{
		Success: true,
		Message: "todo created",
		Todo:    toTodoResponse(todo),
	}, nil
}

func (s *todoService) GetTodo(ctx context.Context, userID, id uint) (*TodoEnvelope, error) {
	todo, err := s.repo.FindByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return &TodoEnvelope{Success: true, Todo: toTodoResponse(todo)}, nil
}

// UpdateTodo applies only the fields present in req. A request with no
// fields still refreshes updated_at.
func (s *todoService) UpdateTodo(ctx context.Context, userID, id uint, req UpdateTodoRequest) (*TodoEnvelope, error) {
	patch := domain.TodoPatch{Completed: req.IsCompleted}
	if req.Title != nil {
		title, err := normalizeTitle(*req.Title)
		if err != nil {
			return nil, err
		}
		patch.Title = &title
	}
	if patch.Empty() {
		s.log.Debug().Uint("todo_id", id).Msg("update without fields, touching updated_at only")
	}

	todo, err := s.repo.Update(ctx, id, userID, patch)
	if err != nil {
		return nil, err
	}

	return &TodoEnvelope{
		Success: true,
		Message: "todo updated",
		Todo:    toTodoResponse(todo),
	}, nil
}

func (s *todoService) DeleteTodo(ctx context.Context, userID, id uint) (*DeleteResponse, error) {
	n, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrTodoNotFound
	}
	return &DeleteResponse{Success: true, Message: "todo deleted"}, nil
}

func toTodoResponse(todo *domain.Todo) *TodoResponse {
	return &TodoResponse{
		ID:          todo.ID,
		Title:       todo.Title,
		IsCompleted: todo.Completed,
		CreatedAt:   formatTime(todo.CreatedAt),
		UpdatedAt:   formatTime(todo.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
