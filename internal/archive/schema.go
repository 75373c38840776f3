package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Timestamps throughout are integer milliseconds since the Unix epoch,
// UTC. The fts index mirrors messages row-for-row: messages_fts.rowid is
// always a messages.id, written in the same transaction as the message.
const schema = `
CREATE TABLE IF NOT EXISTS workspaces (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	hash          TEXT NOT NULL UNIQUE,
	folder_uri    TEXT NOT NULL DEFAULT '',
	resolved_path TEXT NOT NULL DEFAULT '',
	first_seen_at INTEGER NOT NULL DEFAULT 0,
	last_seen_at  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS chats (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id    TEXT NOT NULL UNIQUE,
	workspace_id   INTEGER REFERENCES workspaces(id) ON DELETE SET NULL,
	title          TEXT NOT NULL DEFAULT '',
	mode           TEXT NOT NULL DEFAULT 'chat',
	created_at     INTEGER NOT NULL DEFAULT 0,
	updated_at     INTEGER NOT NULL DEFAULT 0,
	source         TEXT NOT NULL DEFAULT 'editor',
	messages_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_chats_workspace ON chats(workspace_id);
CREATE INDEX IF NOT EXISTS idx_chats_updated ON chats(updated_at);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id    INTEGER NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	kind       TEXT NOT NULL DEFAULT 'response',
	text       TEXT NOT NULL DEFAULT '',
	rich_text  TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL DEFAULT 0,
	native_id  TEXT NOT NULL DEFAULT '',
	raw_json   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_native
	ON messages(chat_id, native_id) WHERE native_id != '';

CREATE TABLE IF NOT EXISTS chat_files (
	chat_id INTEGER NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	path    TEXT NOT NULL,
	PRIMARY KEY (chat_id, path)
);

CREATE TABLE IF NOT EXISTS tags (
	chat_id INTEGER NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	tag     TEXT NOT NULL,
	PRIMARY KEY (chat_id, tag)
);

CREATE TABLE IF NOT EXISTS sync_state (
	source           TEXT PRIMARY KEY,
	watermark        INTEGER NOT NULL DEFAULT 0,
	last_run_at      INTEGER NOT NULL DEFAULT 0,
	chats_seen       INTEGER NOT NULL DEFAULT 0,
	chats_created    INTEGER NOT NULL DEFAULT 0,
	chats_updated    INTEGER NOT NULL DEFAULT 0,
	chats_skipped    INTEGER NOT NULL DEFAULT 0,
	messages_written INTEGER NOT NULL DEFAULT 0,
	errors           INTEGER NOT NULL DEFAULT 0
);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	text,
	rich_text,
	tokenize='porter unicode61'
);
`

// addedColumn describes a column introduced after the first released
// schema. Migration adds it when absent and refuses to run when a column
// of the same name exists with a different type.
type addedColumn struct {
	table    string
	name     string
	decl     string
	wantType string
}

var addedColumns = []addedColumn{
	{"chats", "source", "source TEXT NOT NULL DEFAULT 'editor'", "TEXT"},
	{"chats", "messages_count", "messages_count INTEGER NOT NULL DEFAULT 0", "INTEGER"},
	{"messages", "kind", "kind TEXT NOT NULL DEFAULT 'response'", "TEXT"},
	{"messages", "raw_json", "raw_json TEXT NOT NULL DEFAULT ''", "TEXT"},
	{"workspaces", "resolved_path", "resolved_path TEXT NOT NULL DEFAULT ''", "TEXT"},
	{"sync_state", "chats_skipped", "chats_skipped INTEGER NOT NULL DEFAULT 0", "INTEGER"},
}

// Migrate applies the schema and the additive column migrations. There
// is no version table: CREATE IF NOT EXISTS plus column probing keeps
// the operation idempotent across any prior schema generation. A type
// mismatch on an existing column is fatal; that database belongs to
// something else.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "apply schema")
	}

	probed := make(map[string]map[string]string)
	for _, col := range addedColumns {
		columns, ok := probed[col.table]
		if !ok {
			var err error
			columns, err = s.tableColumns(ctx, col.table)
			if err != nil {
				return err
			}
			probed[col.table] = columns
		}

		existing, present := columns[col.name]
		if !present {
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", col.table, col.decl)
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return errors.Wrapf(err, "add column %s.%s", col.table, col.name)
			}
			continue
		}
		if !strings.EqualFold(existing, col.wantType) {
			return errors.Errorf("incompatible archive: column %s.%s has type %s, want %s",
				col.table, col.name, existing, col.wantType)
		}
	}

	return nil
}

// tableColumns probes a table's declared column types
func (s *Store) tableColumns(ctx context.Context, table string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, errors.Wrapf(err, "probe table %s", table)
	}
	defer rows.Close()

	columns := make(map[string]string)
	for rows.Next() {
		var cid int
		var name, declType string
		var notNull int
		var dfltValue any
		var pk int
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dfltValue, &pk); err != nil {
			return nil, errors.Wrapf(err, "scan table_info for %s", table)
		}
		columns[name] = declType
	}
	return columns, errors.Wrapf(rows.Err(), "probe table %s", table)
}
