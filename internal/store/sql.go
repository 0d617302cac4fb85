package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"DialogueRuntime/internal/dialogue"
)

// dialect holds the statements that differ between SQLite and Postgres.
type dialect struct {
	schema []string
	load   string
	clear  string
	insert string
}

var sqliteDialect = dialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS revisits (
			save_key TEXT NOT NULL,
			node_id  TEXT NOT NULL,
			visited  INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (save_key, node_id)
		)`,
	},
	load:   `SELECT node_id, visited FROM revisits WHERE save_key = ?`,
	clear:  `DELETE FROM revisits WHERE save_key = ?`,
	insert: `INSERT INTO revisits (save_key, node_id, visited) VALUES (?, ?, ?)`,
}

var postgresDialect = dialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS revisits (
			save_key TEXT NOT NULL,
			node_id  TEXT NOT NULL,
			visited  BOOLEAN NOT NULL DEFAULT TRUE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (save_key, node_id)
		)`,
	},
	load:   `SELECT node_id, visited FROM revisits WHERE save_key = $1`,
	clear:  `DELETE FROM revisits WHERE save_key = $1`,
	insert: `INSERT INTO revisits (save_key, node_id, visited) VALUES ($1, $2, $3)`,
}

// SQLStore keeps ledgers as rows of (save_key, node_id, visited).
type SQLStore struct {
	db *sql.DB
	q  dialect
}

// NewSQLiteStore opens (creating when needed) the SQLite database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}
	return newSQLStore(ctx, db, sqliteDialect)
}

// NewPostgresStore connects through the pgx database/sql driver.
func NewPostgresStore(ctx context.Context, databaseURL string) (*SQLStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(10)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return newSQLStore(ctx, db, postgresDialect)
}

func newSQLStore(ctx context.Context, db *sql.DB, q dialect) (*SQLStore, error) {
	for _, stmt := range q.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &SQLStore{db: db, q: q}, nil
}

func (s *SQLStore) Load(ctx context.Context, key string) (map[dialogue.NodeID]bool, error) {
	rows, err := s.db.QueryContext(ctx, s.q.load, key)
	if err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", key, err)
	}
	defer rows.Close()

	out := make(map[dialogue.NodeID]bool)
	for rows.Next() {
		var id string
		var visited bool
		if err := rows.Scan(&id, &visited); err != nil {
			return nil, fmt.Errorf("scan ledger %s: %w", key, err)
		}
		out[dialogue.NodeID(id)] = visited
	}
	return out, rows.Err()
}

// Save replaces the stored rows in one transaction.
func (s *SQLStore) Save(ctx context.Context, key string, entries map[dialogue.NodeID]bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save %s: %w", key, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q.clear, key); err != nil {
		return fmt.Errorf("clear ledger %s: %w", key, err)
	}
	stmt, err := tx.PrepareContext(ctx, s.q.insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for id, v := range entries {
		if _, err := stmt.ExecContext(ctx, key, string(id), v); err != nil {
			return fmt.Errorf("save ledger %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) Reset(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.q.clear, key); err != nil {
		return fmt.Errorf("reset ledger %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
