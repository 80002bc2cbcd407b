// Package database provides the log store backends: an embedded SQLite file
// and a networked PostgreSQL pool behind one query interface.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/user/uniapi-stats/internal/config"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// RowScanner is called once per result row. The rows are closed by the store.
type RowScanner func(rows *sql.Rows) error

// Querier runs a read query written with '?' placeholders. Implementations
// translate placeholders to their native syntax and always release the
// underlying connection before returning.
type Querier interface {
	Query(ctx context.Context, query string, args []any, scan RowScanner) error
}

// Store is a Querier with a lifecycle, chosen once at process start.
type Store interface {
	Querier
	Kind() string
	DB() *sql.DB
	Close() error
}

// Open selects the backend from configuration.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Type {
	case config.DBTypeSQLite:
		s, err := NewSQLite(cfg.Path, !cfg.Bootstrap)
		if err != nil {
			return nil, err
		}
		logger.Info("log store opened",
			zap.String("kind", s.Kind()),
			zap.String("path", cfg.Path),
			zap.Bool("read_only", !cfg.Bootstrap),
		)
		return s, nil
	case config.DBTypePostgres:
		s, err := NewPostgres(cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("log store opened",
			zap.String("kind", s.Kind()),
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.String("database", cfg.Name),
		)
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// SQLiteStore is the embedded backend: one shared handle opened once and
// reused for the life of the process.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens the SQLite file at path. A read-only store requires the
// file to exist and never changes it, journal mode included.
func NewSQLite(path string, readOnly bool) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	if readOnly {
		dsn += "&mode=ro&_pragma=query_only(1)"
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes access to the file.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: conn}, nil
}

// Query implements Querier.
func (s *SQLiteStore) Query(ctx context.Context, query string, args []any, scan RowScanner) error {
	return queryRows(ctx, s.db, query, args, scan)
}

// Kind returns the backend name.
func (s *SQLiteStore) Kind() string { return config.DBTypeSQLite }

// DB exposes the handle for migrations and tests.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// PostgresStore is the networked backend backed by a connection pool.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres opens a pgx-backed pool and verifies connectivity.
func NewPostgres(cfg config.DatabaseConfig) (*PostgresStore, error) {
	conn, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return &PostgresStore{db: conn}, nil
}

// Query implements Querier, rewriting '?' placeholders to $n.
func (s *PostgresStore) Query(ctx context.Context, query string, args []any, scan RowScanner) error {
	return queryRows(ctx, s.db, Rebind(query), args, scan)
}

// Kind returns the backend name.
func (s *PostgresStore) Kind() string { return config.DBTypePostgres }

// DB exposes the pool for migrations.
func (s *PostgresStore) DB() *sql.DB { return s.db }

// Close closes the pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

// queryRows checks a connection out of db, feeds every row to scan and
// returns it on every exit path.
func queryRows(ctx context.Context, db *sql.DB, query string, args []any, scan RowScanner) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Rebind rewrites '?' placeholders outside single-quoted literals to the
// numbered $n form used by PostgreSQL.
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)

	inSingleQuote := false
	arg := 1
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' {
			inSingleQuote = !inSingleQuote
			b.WriteByte(ch)
			continue
		}
		if ch == '?' && !inSingleQuote {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(arg))
			arg++
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}
