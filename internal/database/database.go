// Package database opens the relational store behind the article index and
// applies its schema migrations. SQLite (modernc, pure Go) is the default
// engine; PostgreSQL is reached through pgx.
package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// sqlitePragmas are applied to every pooled connection by the modernc driver.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// DB is a connection pool paired with the dialect of its engine.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Resolve maps a connection descriptor to a dialect and a driver DSN.
//
//	sqlite:articles.db        -> SQLite file articles.db
//	articles.db               -> same
//	postgres://u:p@host/name  -> PostgreSQL
func Resolve(server string) (Dialect, string) {
	switch {
	case strings.HasPrefix(server, "postgres://"), strings.HasPrefix(server, "postgresql://"):
		return Postgres, server
	case strings.HasPrefix(server, "sqlite:"):
		server = strings.TrimPrefix(server, "sqlite:")
	}
	sep := "?"
	if strings.Contains(server, "?") {
		sep = "&"
	}
	return SQLite, server + sep + sqlitePragmas
}

// Open connects to the store named by server and verifies the connection.
func Open(server string, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if server == "" {
		return nil, fmt.Errorf("database open: empty connection descriptor")
	}
	dialect, dsn := Resolve(server)

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database open %s: %w", dialect.Name, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping %s: %w", dialect.Name, err)
	}

	logger.Info("database connected", zap.String("dialect", dialect.Name))
	return &DB{DB: db, Dialect: dialect}, nil
}
