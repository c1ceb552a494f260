package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Additional-Code/backorder/internal/config"
	"github.com/Additional-Code/backorder/internal/database"
	"github.com/Additional-Code/backorder/internal/logger"
)

//go:embed sql
var migrations embed.FS

// Module provides the migrator to Fx.
var Module = fx.Provide(New)

// goose keeps its dialect and filesystem in package globals.
var gooseMu sync.Mutex

// Migrator wraps goose operations.
type Migrator struct {
	db      *sql.DB
	dialect string
	dir     string
	logger  *zap.Logger
}

// New constructs a goose-backed migrator for the writer pool.
func New(cfg config.Config, conns *database.Connections, log *zap.Logger) (*Migrator, error) {
	return NewForDB(conns.Writer.DB, cfg.Database.Driver, log)
}

// NewForDB constructs a migrator for an already opened database.
func NewForDB(db *sql.DB, driver string, log *zap.Logger) (*Migrator, error) {
	dialect, dir, err := gooseDialect(driver)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Migrator{db: db, dialect: dialect, dir: dir, logger: log}, nil
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	err := m.run(func() error {
		return goose.UpContext(ctx, m.db, m.dir)
	})
	if err != nil {
		if isNoMigrationErr(err) {
			m.logger.Info("no migrations to apply")

			return nil
		}
		return err
	}

	m.logger.Info("migrations applied", zap.String("dialect", m.dialect))

	return nil
}

// Down rolls back migrations. Steps <=0 defaults to 1; all=true rolls everything back.
func (m *Migrator) Down(ctx context.Context, steps int, all bool) error {
	if all {
		err := m.run(func() error {
			return goose.DownToContext(ctx, m.db, m.dir, 0)
		})
		if err != nil {
			if isNoMigrationErr(err) {
				m.logger.Info("no migrations to rollback")

				return nil
			}
			return err
		}
		m.logger.Info("migrations rolled back", zap.String("mode", "all"))

		return nil
	}

	if steps <= 0 {
		steps = 1
	}

	for i := 0; i < steps; i++ {
		err := m.run(func() error {
			return goose.DownContext(ctx, m.db, m.dir)
		})
		if err != nil {
			if isNoMigrationErr(err) {
				m.logger.Info("no migrations to rollback")

				return nil
			}
			return err
		}
	}

	m.logger.Info("migrations rolled back", zap.Int("steps", steps))

	return nil
}

func (m *Migrator) run(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(logger.PrintfAdapter{Logger: m.logger, Level: zapcore.DebugLevel})
	if err := goose.SetDialect(m.dialect); err != nil {
		return err
	}
	return fn()
}

func gooseDialect(driver string) (string, string, error) {
	switch driver {
	case "postgres", "pg":
		return "postgres", path.Join("sql", "postgres"), nil
	case "mysql":
		return "mysql", path.Join("sql", "mysql"), nil
	case "sqlite", "sqlite3":
		return "sqlite3", path.Join("sql", "sqlite"), nil
	default:
		return "", "", fmt.Errorf("unsupported goose dialect for driver %s", driver)
	}
}

func isNoMigrationErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, goose.ErrNoNextVersion) || errors.Is(err, goose.ErrNoMigrationFiles) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "no migrations")
}
