package archive

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
)

// NormalizeTag canonicalizes a user-supplied tag: lowercased, trimmed,
// internal whitespace collapsed to single dashes
func NormalizeTag(tag string) string {
	fields := strings.Fields(strings.ToLower(tag))
	return strings.Join(fields, "-")
}

// AddTag attaches a tag to a chat. Adding a tag the chat already has is
// a no-op.
func (s *Store) AddTag(ctx context.Context, chatID int64, tag string) error {
	tag = NormalizeTag(tag)
	if tag == "" {
		return errors.New("empty tag")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO tags (chat_id, tag) VALUES (?, ?)
	`, chatID, tag)
	return errors.Wrapf(err, "tag chat %d", chatID)
}

// RemoveTag detaches a tag from a chat and reports whether it was
// present
func (s *Store) RemoveTag(ctx context.Context, chatID int64, tag string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM tags WHERE chat_id = ? AND tag = ?
	`, chatID, NormalizeTag(tag))
	if err != nil {
		return false, errors.Wrapf(err, "untag chat %d", chatID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "untag rows affected")
	}
	return n > 0, nil
}

// ChatTags returns a chat's tags in lexical order
func (s *Store) ChatTags(ctx context.Context, chatID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag FROM tags WHERE chat_id = ? ORDER BY tag
	`, chatID)
	if err != nil {
		return nil, errors.Wrapf(err, "tags for chat %d", chatID)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, errors.Wrap(err, "scan tag")
		}
		tags = append(tags, tag)
	}
	return tags, errors.Wrap(rows.Err(), "list chat tags")
}

// TagCount pairs a tag with the number of chats carrying it
type TagCount struct {
	Tag   string
	Chats int64
}

// ListTags returns every tag in use with its chat count, most used
// first
func (s *Store) ListTags(ctx context.Context) ([]TagCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, COUNT(*) FROM tags GROUP BY tag ORDER BY COUNT(*) DESC, tag
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list tags")
	}
	defer rows.Close()

	var tags []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Chats); err != nil {
			return nil, errors.Wrap(err, "scan tag count")
		}
		tags = append(tags, tc)
	}
	return tags, errors.Wrap(rows.Err(), "list tags")
}

// AddFileTx records a file referenced by a chat. References accumulate:
// re-ingesting never removes paths recorded earlier.
func AddFileTx(tx *sql.Tx, chatID int64, path string) error {
	_, err := tx.Exec(`
		INSERT OR IGNORE INTO chat_files (chat_id, path) VALUES (?, ?)
	`, chatID, path)
	return errors.Wrapf(err, "record file for chat %d", chatID)
}

// ChatFiles returns the file paths referenced by a chat in lexical
// order
func (s *Store) ChatFiles(ctx context.Context, chatID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path FROM chat_files WHERE chat_id = ? ORDER BY path
	`, chatID)
	if err != nil {
		return nil, errors.Wrapf(err, "files for chat %d", chatID)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, errors.Wrap(err, "scan file path")
		}
		paths = append(paths, p)
	}
	return paths, errors.Wrap(rows.Err(), "list chat files")
}
