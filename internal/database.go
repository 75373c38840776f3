package internal

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// KeyValuePair represents one row of a source key-value table
type KeyValuePair struct {
	Key   string
	Value string
}

// OpenSourceDB opens a source SQLite store in read-only mode. Source
// stores belong to other programs and are never written.
func OpenSourceDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}

	return db, nil
}

// QueryKVLike queries a key-value table with a LIKE pattern. NULL values
// are dropped; some stores tombstone deleted records that way.
func QueryKVLike(db *sql.DB, table, pattern string) ([]KeyValuePair, error) {
	query := fmt.Sprintf("SELECT key, value FROM %s WHERE key LIKE ? AND value IS NOT NULL", table)
	rows, err := db.Query(query, pattern)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var pairs []KeyValuePair
	for rows.Next() {
		var pair KeyValuePair
		var value sql.NullString
		if err := rows.Scan(&pair.Key, &value); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if value.Valid {
			pair.Value = value.String
			pairs = append(pairs, pair)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return pairs, nil
}

// sqlite caps bound parameters; chunking keeps statements comfortably
// inside the limit.
const kvBatchSize = 500

// QueryKVExact fetches rows for an exact set of keys, batched
func QueryKVExact(db *sql.DB, table string, keys []string) ([]KeyValuePair, error) {
	var pairs []KeyValuePair
	for start := 0; start < len(keys); start += kvBatchSize {
		end := start + kvBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		query := fmt.Sprintf("SELECT key, value FROM %s WHERE key IN (%s) AND value IS NOT NULL", table, placeholders)
		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}

		rows, err := db.Query(query, args...)
		if err != nil {
			return nil, fmt.Errorf("query failed: %w", err)
		}
		for rows.Next() {
			var pair KeyValuePair
			var value sql.NullString
			if err := rows.Scan(&pair.Key, &value); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan failed: %w", err)
			}
			if value.Valid {
				pair.Value = value.String
				pairs = append(pairs, pair)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("rows iteration error: %w", err)
		}
		rows.Close()
	}

	return pairs, nil
}

// QueryItemTable fetches a single value from a store's ItemTable, the
// second key-value table editor stores carry for per-window state.
func QueryItemTable(db *sql.DB, key string) (string, bool, error) {
	var value sql.NullString
	err := db.QueryRow("SELECT value FROM ItemTable WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ItemTable query failed: %w", err)
	}
	if !value.Valid {
		return "", false, nil
	}
	return value.String, true, nil
}
