// Package dbtest opens migrated in-memory sqlite databases for package tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/backorder/internal/database"
	"github.com/Additional-Code/backorder/internal/migration"
)

// Open returns writer/reader connections sharing one migrated in-memory database.
// The database is dropped when the test finishes.
func Open(t testing.TB) *database.Connections {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err)

	// One connection keeps the memory database alive and serialises writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	mig, err := migration.NewForDB(db.DB, "sqlite", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, mig.Up(context.Background()))

	t.Cleanup(func() {
		_ = db.Close()
	})

	return &database.Connections{Writer: db, Reader: db}
}

// Executor returns an executor bound to the writer of conns.
func Executor(t testing.TB, conns *database.Connections) *database.Executor {
	t.Helper()
	return database.NewExecutor(conns, zaptest.NewLogger(t))
}
