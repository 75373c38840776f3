package archive

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
)

// Chat is one archived conversation
type Chat struct {
	ID            int64
	ExternalID    string
	WorkspaceID   *int64
	WorkspaceHash string // joined in on reads, empty for orphaned chats
	Title         string
	Mode          string
	CreatedAt     int64
	UpdatedAt     int64
	Source        string
	MessagesCount int
}

// ChatDetail is a chat with everything attached to it
type ChatDetail struct {
	Chat
	Messages []*Message
	Files    []string
	Tags     []string
}

const chatColumns = `c.id, c.external_id, c.workspace_id, COALESCE(w.hash, ''),
	c.title, c.mode, c.created_at, c.updated_at, c.source, c.messages_count`

func scanChat(row interface{ Scan(...any) error }) (*Chat, error) {
	c := &Chat{}
	var workspaceID sql.NullInt64
	err := row.Scan(&c.ID, &c.ExternalID, &workspaceID, &c.WorkspaceHash,
		&c.Title, &c.Mode, &c.CreatedAt, &c.UpdatedAt, &c.Source, &c.MessagesCount)
	if err != nil {
		return nil, err
	}
	if workspaceID.Valid {
		c.WorkspaceID = &workspaceID.Int64
	}
	return c, nil
}

// GetChatTx fetches a chat by external id inside a transaction. Returns
// nil when absent.
func GetChatTx(tx *sql.Tx, externalID string) (*Chat, error) {
	row := tx.QueryRow(`
		SELECT `+chatColumns+`
		FROM chats c LEFT JOIN workspaces w ON w.id = c.workspace_id
		WHERE c.external_id = ?
	`, externalID)
	c, err := scanChat(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get chat %s", externalID)
	}
	return c, nil
}

// InsertChatTx inserts a new chat row and returns its id
func InsertChatTx(tx *sql.Tx, c *Chat) (int64, error) {
	var workspaceID any
	if c.WorkspaceID != nil {
		workspaceID = *c.WorkspaceID
	}
	var id int64
	err := tx.QueryRow(`
		INSERT INTO chats (external_id, workspace_id, title, mode, created_at, updated_at, source, messages_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, c.ExternalID, workspaceID, c.Title, c.Mode, c.CreatedAt, c.UpdatedAt, c.Source, c.MessagesCount).Scan(&id)
	if err != nil {
		return 0, errors.Wrapf(err, "insert chat %s", c.ExternalID)
	}
	return id, nil
}

// UpdateChatTx rewrites a chat's mutable fields. The external id and row
// id never change.
func UpdateChatTx(tx *sql.Tx, c *Chat) error {
	var workspaceID any
	if c.WorkspaceID != nil {
		workspaceID = *c.WorkspaceID
	}
	_, err := tx.Exec(`
		UPDATE chats
		SET workspace_id = ?, title = ?, mode = ?, created_at = ?, updated_at = ?, source = ?, messages_count = ?
		WHERE id = ?
	`, workspaceID, c.Title, c.Mode, c.CreatedAt, c.UpdatedAt, c.Source, c.MessagesCount, c.ID)
	return errors.Wrapf(err, "update chat %s", c.ExternalID)
}

// GetChat fetches a chat by external id. Returns nil when absent.
func (s *Store) GetChat(ctx context.Context, externalID string) (*Chat, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+chatColumns+`
		FROM chats c LEFT JOIN workspaces w ON w.id = c.workspace_id
		WHERE c.external_id = ?
	`, externalID)
	c, err := scanChat(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get chat %s", externalID)
	}
	return c, nil
}

// ChatFilter narrows ListChats. Zero values mean "any".
type ChatFilter struct {
	WorkspaceHash string
	Tag           string
	Mode          string
	Source        string
	Since         int64 // updated_at >= Since
	Until         int64 // updated_at <= Until
	Limit         int
}

// ListChats returns chats most recently updated first
func (s *Store) ListChats(ctx context.Context, f ChatFilter) ([]*Chat, error) {
	var where []string
	var args []any

	if f.WorkspaceHash != "" {
		where = append(where, "w.hash = ?")
		args = append(args, f.WorkspaceHash)
	}
	if f.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM tags t WHERE t.chat_id = c.id AND t.tag = ?)")
		args = append(args, f.Tag)
	}
	if f.Mode != "" {
		where = append(where, "c.mode = ?")
		args = append(args, f.Mode)
	}
	if f.Source != "" {
		where = append(where, "c.source = ?")
		args = append(args, f.Source)
	}
	if f.Since > 0 {
		where = append(where, "c.updated_at >= ?")
		args = append(args, f.Since)
	}
	if f.Until > 0 {
		where = append(where, "c.updated_at <= ?")
		args = append(args, f.Until)
	}

	query := `
		SELECT ` + chatColumns + `
		FROM chats c LEFT JOIN workspaces w ON w.id = c.workspace_id
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY c.updated_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list chats")
	}
	defer rows.Close()

	var chats []*Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan chat")
		}
		chats = append(chats, c)
	}
	return chats, errors.Wrap(rows.Err(), "list chats")
}

// GetChatDetail fetches a chat with its ordered messages, file
// references, and tags. Returns nil when the chat is absent.
func (s *Store) GetChatDetail(ctx context.Context, externalID string) (*ChatDetail, error) {
	chat, err := s.GetChat(ctx, externalID)
	if err != nil || chat == nil {
		return nil, err
	}

	detail := &ChatDetail{Chat: *chat}
	if detail.Messages, err = s.ListMessages(ctx, chat.ID); err != nil {
		return nil, err
	}
	if detail.Files, err = s.ChatFiles(ctx, chat.ID); err != nil {
		return nil, err
	}
	if detail.Tags, err = s.ChatTags(ctx, chat.ID); err != nil {
		return nil, err
	}
	return detail, nil
}

// DeleteChat removes a chat, its messages, file references, tags, and
// search-index entries. Index rows go first, while the message rowids
// still exist; the rest cascades.
func (s *Store) DeleteChat(ctx context.Context, externalID string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		chat, err := GetChatTx(tx, externalID)
		if err != nil {
			return err
		}
		if chat == nil {
			return errors.Errorf("chat %s not found", externalID)
		}

		if _, err := tx.Exec(`
			DELETE FROM messages_fts
			WHERE rowid IN (SELECT id FROM messages WHERE chat_id = ?)
		`, chat.ID); err != nil {
			return errors.Wrap(err, "delete search entries")
		}
		if _, err := tx.Exec("DELETE FROM chats WHERE id = ?", chat.ID); err != nil {
			return errors.Wrapf(err, "delete chat %s", externalID)
		}
		return nil
	})
}
