package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/sharedfs/internal/common"
	"github.com/dmitrijs2005/sharedfs/internal/dbx"
	"github.com/dmitrijs2005/sharedfs/internal/storage/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Dialect describes one SQL engine the store can run on.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string
	// Goose is the goose dialect name.
	Goose string
	// MigrationsDir is the directory inside migrations.Migrations.
	MigrationsDir string
	// Numbered reports whether placeholders are $1, $2... instead of ?.
	Numbered bool
	// MaxConns caps the pool when the engine locks at database level; 0 means
	// no cap.
	MaxConns int
}

var (
	Postgres = Dialect{Driver: "pgx", Goose: "postgres", MigrationsDir: "postgres", Numbered: true}
	SQLite   = Dialect{Driver: "sqlite", Goose: "sqlite3", MigrationsDir: "sqlite", MaxConns: 1}
)

// rebind turns ? placeholders into $n for numbered dialects.
func (d Dialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore keeps each file as one row of the files table. Every mutation is
// a single statement or transaction, so readers see whole rows only.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: d}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// OpenSQLStore connects with the dialect's driver and applies migrations.
func OpenSQLStore(ctx context.Context, d Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Driver, err)
	}
	if d.MaxConns > 0 {
		db.SetMaxOpenConns(d.MaxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Driver, err)
	}

	s := NewSQLStore(db, d)
	if err := s.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return s, nil
}

// RunMigrations applies the embedded migrations for the store's dialect.
func (s *SQLStore) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(s.dialect.Goose); err != nil {
		return err
	}
	return gooseUpContext(ctx, s.db, s.dialect.MigrationsDir)
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) statTx(ctx context.Context, q dbx.DBTX, name string) (int64, error) {
	var size int64
	err := q.QueryRowContext(ctx, s.dialect.rebind(`SELECT size FROM files WHERE name = ?`), name).Scan(&size)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s", common.ErrorNotFound, name)
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return size, nil
}

func (s *SQLStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	_, err := s.statTx(ctx, s.db, name)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLStore) Stat(ctx context.Context, name string) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	return s.statTx(ctx, s.db, name)
}

func (s *SQLStore) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT content FROM files WHERE name = ?`), name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, name)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (s *SQLStore) Create(ctx context.Context, name string, data []byte) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	query := `INSERT INTO files (name, content, size)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO NOTHING`

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), name, nonNil(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %s", common.ErrorAlreadyExists, name)
	}
	return int64(len(data)), nil
}

func (s *SQLStore) Overwrite(ctx context.Context, name string, data []byte) (int64, int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, 0, err
	}
	var oldSize int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		oldSize, err = s.statTx(ctx, tx, name)
		if err != nil {
			return err
		}
		query := `UPDATE files SET content = ?, size = ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?`
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(query), nonNil(data), int64(len(data)), name); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return oldSize, int64(len(data)), nil
}

func (s *SQLStore) Delete(ctx context.Context, name string) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	var size int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		size, err = s.statTx(ctx, tx, name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM files WHERE name = ?`), name); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return size, nil
}

func (s *SQLStore) List(ctx context.Context) (iter.Seq[string], error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM files ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return slices.Values(names), nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
