package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Tomlord1122/qa-todo-api/internal/config"
	"github.com/Tomlord1122/qa-todo-api/internal/database"
	"github.com/Tomlord1122/qa-todo-api/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	svc, err := database.New(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "repo.db"),
	}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, svc.Migrate())
	t.Cleanup(func() { _ = svc.Close() })
	return svc.GetDB()
}

func createUser(t *testing.T, repo UserRepository, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))

	u := createUser(t, repo, "a@x.com")

	byEmail, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)
	assert.False(t, byEmail.CreatedAt.IsZero())

	byID, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)

	_, err = repo.FindByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.FindByID(ctx, u.ID+100)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))

	createUser(t, repo, "dup@x.com")

	err := repo.Create(ctx, &domain.User{Email: "dup@x.com", PasswordHash: "other"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestUserRepository_ConcurrentDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, &domain.User{Email: "race@x.com", PasswordHash: "h"})
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case domain.KindOf(err) == domain.KindConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
}

func TestTodoRepository_ListIsScopedAndNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewGormUserRepository(db)
	repo := NewGormTodoRepository(db).(*gormTodoRepository)

	alice := createUser(t, users, "alice@x.com")
	bob := createUser(t, users, "bob@x.com")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Create(ctx, &domain.Todo{UserID: alice.ID, Title: fmt.Sprintf("alice %d", i)}))
		require.NoError(t, repo.Create(ctx, &domain.Todo{UserID: bob.ID, Title: fmt.Sprintf("bob %d", i)}))
	}

	todos, err := repo.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, todos, 3)
	for _, td := range todos {
		assert.Equal(t, alice.ID, td.UserID)
	}
	assert.Equal(t, "alice 3", todos[0].Title)
	assert.Equal(t, "alice 1", todos[2].Title)

	empty, err := repo.ListByUser(ctx, bob.ID+alice.ID+10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestTodoRepository_CreateDefaults(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := createUser(t, NewGormUserRepository(db), "o@x.com")
	repo := NewGormTodoRepository(db)

	todo := &domain.Todo{UserID: owner.ID, Title: "buy milk"}
	require.NoError(t, repo.Create(ctx, todo))

	got, err := repo.FindByIDForUser(ctx, todo.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "buy milk", got.Title)
	assert.False(t, got.Completed)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, got.CreatedAt.Unix(), got.UpdatedAt.Unix())
}

func TestTodoRepository_CreateRejectsUnknownUser(t *testing.T) {
	repo := NewGormTodoRepository(newTestDB(t))

	err := repo.Create(context.Background(), &domain.Todo{UserID: 4242, Title: "orphan"})
	assert.Error(t, err)
}

func TestTodoRepository_UpdatePartialFields(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := createUser(t, NewGormUserRepository(db), "o@x.com")
	repo := NewGormTodoRepository(db).(*gormTodoRepository)

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return created }
	todo := &domain.Todo{UserID: owner.ID, Title: "original"}
	require.NoError(t, repo.Create(ctx, todo))

	edited := created.Add(time.Hour)
	repo.now = func() time.Time { return edited }

	done := true
	got, err := repo.Update(ctx, todo.ID, owner.ID, domain.TodoPatch{Completed: &done})
	require.NoError(t, err)
	assert.Equal(t, "original", got.Title)
	assert.True(t, got.Completed)
	assert.True(t, got.UpdatedAt.Equal(edited), "updated_at = %v", got.UpdatedAt)
	assert.True(t, got.CreatedAt.Equal(created))

	title := "renamed"
	got, err = repo.Update(ctx, todo.ID, owner.ID, domain.TodoPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.True(t, got.Completed)

	notDone := false
	got, err = repo.Update(ctx, todo.ID, owner.ID, domain.TodoPatch{Completed: &notDone})
	require.NoError(t, err)
	assert.False(t, got.Completed)
}

func TestTodoRepository_UpdateWrongOwner(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewGormUserRepository(db)
	owner := createUser(t, users, "owner@x.com")
	other := createUser(t, users, "other@x.com")
	repo := NewGormTodoRepository(db)

	todo := &domain.Todo{UserID: owner.ID, Title: "mine"}
	require.NoError(t, repo.Create(ctx, todo))

	title := "stolen"
	_, err := repo.Update(ctx, todo.ID, other.ID, domain.TodoPatch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)

	got, err := repo.FindByIDForUser(ctx, todo.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Title)

	_, err = repo.FindByIDForUser(ctx, todo.ID, other.ID)
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)
}

func TestTodoRepository_ConcurrentUpdatesPickOneWrite(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := createUser(t, NewGormUserRepository(db), "o@x.com")
	repo := NewGormTodoRepository(db)

	todo := &domain.Todo{UserID: owner.ID, Title: "start"}
	require.NoError(t, repo.Create(ctx, todo))

	type write struct {
		title string
		done  bool
	}
	const n = 20
	writes := make([]write, n)
	for i := range writes {
		writes[i] = write{title: fmt.Sprintf("title-%02d", i), done: i%2 == 0}
	}

	var wg sync.WaitGroup
	for _, w := range writes {
		wg.Add(1)
		go func(w write) {
			defer wg.Done()
			title, done := w.title, w.done
			_, err := repo.Update(ctx, todo.ID, owner.ID, domain.TodoPatch{Title: &title, Completed: &done})
			assert.NoError(t, err)
		}(w)
	}
	wg.Wait()

	final, err := repo.FindByIDForUser(ctx, todo.ID, owner.ID)
	require.NoError(t, err)

	matched := 0
	for _, w := range writes {
		if final.Title == w.title && final.Completed == w.done {
			matched++
		}
	}
	assert.Equal(t, 1, matched, "final state %q/%v is not one of the submitted writes", final.Title, final.Completed)
}

func TestTodoRepository_DeleteScopedByOwner(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewGormUserRepository(db)
	owner := createUser(t, users, "owner@x.com")
	other := createUser(t, users, "other@x.com")
	repo := NewGormTodoRepository(db)

	todo := &domain.Todo{UserID: owner.ID, Title: "keep me"}
	require.NoError(t, repo.Create(ctx, todo))

	n, err := repo.Delete(ctx, todo.ID, other.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repo.FindByIDForUser(ctx, todo.ID, owner.ID)
	require.NoError(t, err)

	n, err = repo.Delete(ctx, todo.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Delete(ctx, todo.ID, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repo.FindByIDForUser(ctx, todo.ID, owner.ID)
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped postgres unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"postgres foreign key", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"sqlite foreign key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, false},
		{"other", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}
