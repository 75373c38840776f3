package archive

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Message is one archived conversation turn
type Message struct {
	ID        int64
	ChatID    int64
	Role      string
	Kind      string
	Text      string
	RichText  string
	CreatedAt int64
	NativeID  string
	RawJSON   string
}

// GetMessageIDTx looks up a message by its idempotency key
// (chat, native id). Returns found=false when no such message exists.
func GetMessageIDTx(tx *sql.Tx, chatID int64, nativeID string) (int64, bool, error) {
	var id int64
	err := tx.QueryRow(`
		SELECT id FROM messages WHERE chat_id = ? AND native_id = ?
	`, chatID, nativeID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "lookup message %s", nativeID)
	}
	return id, true, nil
}

// InsertMessageTx inserts a message and mirrors it into the search index
// within the same transaction. The index rowid is the message id; that
// correspondence is the index-consistency invariant.
func InsertMessageTx(tx *sql.Tx, m *Message) (int64, error) {
	var id int64
	err := tx.QueryRow(`
		INSERT INTO messages (chat_id, role, kind, text, rich_text, created_at, native_id, raw_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, m.ChatID, m.Role, m.Kind, m.Text, m.RichText, m.CreatedAt, m.NativeID, m.RawJSON).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "insert message")
	}

	if _, err := tx.Exec(`
		INSERT INTO messages_fts (rowid, text, rich_text) VALUES (?, ?, ?)
	`, id, m.Text, m.RichText); err != nil {
		return 0, errors.Wrap(err, "index message")
	}

	return id, nil
}

// UpdateMessageTx rewrites a message in place and refreshes its search
// index entry in the same transaction
func UpdateMessageTx(tx *sql.Tx, m *Message) error {
	if _, err := tx.Exec(`
		UPDATE messages
		SET role = ?, kind = ?, text = ?, rich_text = ?, created_at = ?, raw_json = ?
		WHERE id = ?
	`, m.Role, m.Kind, m.Text, m.RichText, m.CreatedAt, m.RawJSON, m.ID); err != nil {
		return errors.Wrapf(err, "update message %d", m.ID)
	}

	if _, err := tx.Exec(`
		UPDATE messages_fts SET text = ?, rich_text = ? WHERE rowid = ?
	`, m.Text, m.RichText, m.ID); err != nil {
		return errors.Wrapf(err, "reindex message %d", m.ID)
	}

	return nil
}

// ListMessages returns a chat's messages in conversation order
func (s *Store) ListMessages(ctx context.Context, chatID int64) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, role, kind, text, rich_text, created_at, native_id, raw_json
		FROM messages
		WHERE chat_id = ?
		ORDER BY id
	`, chatID)
	if err != nil {
		return nil, errors.Wrapf(err, "list messages for chat %d", chatID)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Kind, &m.Text, &m.RichText,
			&m.CreatedAt, &m.NativeID, &m.RawJSON); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		messages = append(messages, m)
	}
	return messages, errors.Wrap(rows.Err(), "list messages")
}
