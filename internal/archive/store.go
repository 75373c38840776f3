// Package archive is the canonical store: every conversation the
// aggregator discovers lands here, deduplicated and searchable. It owns
// the schema, the upsert primitives, and the search index mirror.
package archive

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Store wraps the archive database
type Store struct {
	db *sql.DB
}

// Open opens the archive at path, creating it if absent
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open archive")
	}

	// Single writer; ingestion is one pass at a time and sqlite locks
	// at the database level anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping archive")
	}

	return &Store{db: db}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a transaction, rolling back when fn errors
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback also failed: %v", rbErr)
		}
		return err
	}

	return errors.Wrap(tx.Commit(), "commit transaction")
}

// Vacuum reclaims free pages
func (s *Store) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return errors.Wrap(err, "vacuum archive")
}

// CountChats returns the number of chats in the archive
func (s *Store) CountChats(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chats").Scan(&n)
	return n, errors.Wrap(err, "count chats")
}

// CountMessages returns the number of messages in the archive
func (s *Store) CountMessages(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&n)
	return n, errors.Wrap(err, "count messages")
}
