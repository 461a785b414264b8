package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Tomlord1122/qa-todo-api/internal/domain"
)

// TodoRepository defines the interface for todo data operations. Every
// lookup, update and delete is scoped by the owning user id.
type TodoRepository interface {
	Create(ctx context.Context, todo *domain.Todo) error
	FindByIDForUser(ctx context.Context, id, userID uint) (*domain.Todo, error)
	ListByUser(ctx context.Context, userID uint) ([]domain.Todo, error)
	Update(ctx context.Context, id, userID uint, patch domain.TodoPatch) (*domain.Todo, error)
	Delete(ctx context.Context, id, userID uint) (int64, error)
}

// gormTodoRepository implements TodoRepository using GORM
type gormTodoRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormTodoRepository creates a new GORM todo repository
func NewGormTodoRepository(db *gorm.DB) TodoRepository {
	return &gormTodoRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *gormTodoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	now := r.now()
	todo.CreatedAt = now
	todo.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(todo).Error; err != nil {
		return fmt.Errorf("creating todo: %w", err)
	}
	return nil
}

func (r *gormTodoRepository) FindByIDForUser(ctx context.Context, id, userID uint) (*domain.Todo, error) {
	var todo domain.Todo
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&todo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTodoNotFound
		}
		return nil, fmt.Errorf("finding todo %d: %w", id, err)
	}
	return &todo, nil
}

// ListByUser returns the user's todos, newest first.
func (r *gormTodoRepository) ListByUser(ctx context.Context, userID uint) ([]domain.Todo, error) {
	todos := make([]domain.Todo, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&todos).Error
	if err != nil {
		return nil, fmt.Errorf("listing todos for user %d: %w", userID, err)
	}
	return todos, nil
}

// Update applies patch to the todo inside one transaction. The row is read
// with FOR UPDATE (ignored by sqlite, which already serialises writers), so
// a concurrent edit waits for this one to commit instead of interleaving.
func (r *gormTodoRepository) Update(ctx context.Context, id, userID uint, patch domain.TodoPatch) (*domain.Todo, error) {
	var todo domain.Todo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", id, userID).
			First(&todo).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTodoNotFound
			}
			return fmt.Errorf("locking todo %d: %w", id, err)
		}

		updates := map[string]any{"updated_at": r.now()}
		if patch.Title != nil {
			updates["title"] = *patch.Title
		}
		if patch.Completed != nil {
			updates["is_completed"] = *patch.Completed
		}

		res := tx.Model(&domain.Todo{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("updating todo %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrTodoNotFound
		}

		return tx.Where("id = ?", id).First(&todo).Error
	})
	if err != nil {
		return nil, err
	}
	return &todo, nil
}

// Delete removes the todo if userID owns it and returns the number of rows
// deleted.
func (r *gormTodoRepository) Delete(ctx context.Context, id, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Todo{})
	if res.Error != nil {
		return 0, fmt.Errorf("deleting todo %d: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}
