//go:build integration

package database

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/qa-todo-api/internal/database/dbtest"
	"github.com/Tomlord1122/qa-todo-api/internal/domain"
)

func TestPostgres_MigrateAndHealth(t *testing.T) {
	cfg := dbtest.StartPostgres(t)

	svc, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.Migrate())
	assert.True(t, svc.GetDB().Migrator().HasTable(&domain.Todo{}))

	stats := svc.Health(context.Background())
	assert.Equal(t, "up", stats["status"])
	assert.Equal(t, "postgres", stats["driver"])
}
