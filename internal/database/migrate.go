package database

import (
	"embed"
	"fmt"
	"path"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations
var embedMigrations embed.FS

// goose keeps its base FS, dialect and logger in package globals.
var gooseMu sync.Mutex

// gooseLogger routes goose output through zap.
type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) { l.log.Debugf(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...any) { l.log.Fatalf(format, v...) }

// Migrate applies all pending migrations of the DB's dialect. Applying an
// up-to-date schema is a no-op.
func (db *DB) Migrate(logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(embedMigrations)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{log: logger.Named("goose").Sugar()})

	if err := goose.SetDialect(db.Dialect.Goose); err != nil {
		return fmt.Errorf("goose set dialect %s: %w", db.Dialect.Goose, err)
	}
	if err := goose.Up(db.DB, path.Join("migrations", db.Dialect.Name)); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	logger.Info("database migrations applied", zap.String("dialect", db.Dialect.Name))
	return nil
}
