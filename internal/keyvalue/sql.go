package keyvalue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Dialect selects the SQL flavour of an SQLStore
type Dialect int

const (
	// DialectSQLite uses ? placeholders and an IN list for multi-key reads
	DialectSQLite Dialect = iota
	// DialectPostgres uses $n placeholders and = ANY($n) for multi-key reads
	DialectPostgres
)

// DialectForDriver maps a database/sql driver name to its dialect
func DialectForDriver(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3":
		return DialectSQLite, nil
	case "pgx", "postgres":
		return DialectPostgres, nil
	default:
		return 0, fmt.Errorf("unsupported key-value driver: %s", driver)
	}
}

// ErrSchemaMissing is returned when the key_value table does not exist
var ErrSchemaMissing = errors.New("key_value table does not exist")

// SQLStore keeps all collections in a single key_value table
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLStore opens a database and wraps it in a store
func OpenSQLStore(driver, dsn string) (*SQLStore, error) {
	dialect, err := DialectForDriver(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	return NewSQLStore(db, dialect), nil
}

// NewSQLStore wraps an open database
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// EnsureSchema creates the key_value table if needed
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	valueType := "BLOB"
	if s.dialect == DialectPostgres {
		valueType = "BYTEA"
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS key_value (
	collection VARCHAR(128) NOT NULL,
	name VARCHAR(128) NOT NULL,
	value %s NOT NULL,
	PRIMARY KEY (collection, name)
)`, valueType)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create key_value table: %w", err)
	}
	return nil
}

// Get returns the value stored under key
func (s *SQLStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	query := s.rebind("SELECT value FROM key_value WHERE collection = ? AND name = ?")

	var value []byte
	err := s.db.QueryRowContext(ctx, query, collection, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, convertError(err, "read", collection)
	}
	return value, nil
}

// GetMultiple returns the values of the keys that exist
func (s *SQLStore) GetMultiple(ctx context.Context, collection string, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	var (
		query string
		args  []any
	)
	if s.dialect == DialectPostgres {
		query = "SELECT name, value FROM key_value WHERE collection = $1 AND name = ANY($2)"
		args = []any{collection, pq.Array(keys)}
	} else {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
		query = "SELECT name, value FROM key_value WHERE collection = ? AND name IN (" + placeholders + ")"
		args = append(args, collection)
		for _, key := range keys {
			args = append(args, key)
		}
	}

	return s.query(ctx, collection, query, args...)
}

// GetAll returns the whole collection
func (s *SQLStore) GetAll(ctx context.Context, collection string) (map[string][]byte, error) {
	query := s.rebind("SELECT name, value FROM key_value WHERE collection = ?")
	return s.query(ctx, collection, query, collection)
}

// Set stores value under key
func (s *SQLStore) Set(ctx context.Context, collection, key string, value []byte) error {
	query := s.rebind("INSERT INTO key_value (collection, name, value) VALUES (?, ?, ?) " +
		"ON CONFLICT (collection, name) DO UPDATE SET value = excluded.value")

	if _, err := s.db.ExecContext(ctx, query, collection, key, value); err != nil {
		return convertError(err, "write", collection)
	}
	return nil
}

// Delete removes keys from a collection
func (s *SQLStore) Delete(ctx context.Context, collection string, keys ...string) error {
	query := s.rebind("DELETE FROM key_value WHERE collection = ? AND name = ?")
	for _, key := range keys {
		if _, err := s.db.ExecContext(ctx, query, collection, key); err != nil {
			return convertError(err, "delete from", collection)
		}
	}
	return nil
}

// Close closes the underlying database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) query(ctx context.Context, collection, query string, args ...any) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, convertError(err, "read", collection)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var (
			name  string
			value []byte
		)
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", collection, err)
		}
		out[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, convertError(err, "read", collection)
	}
	return out, nil
}

// rebind rewrites ? placeholders to $n for Postgres
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func convertError(err error, op, collection string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" { // undefined_table
		return fmt.Errorf("failed to %s %s: %w", op, collection, ErrSchemaMissing)
	}
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("failed to %s %s: %w", op, collection, ErrSchemaMissing)
	}
	return fmt.Errorf("failed to %s %s: %w", op, collection, err)
}
