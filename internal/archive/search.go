package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// SearchHit is one ranked chat returned by full-text search, carrying
// the best-matching message and a highlighted snippet around the match.
type SearchHit struct {
	ChatID     int64   `json:"chat_id"`
	ExternalID string  `json:"external_id"`
	Title      string  `json:"title"`
	Source     string  `json:"source"`
	Mode       string  `json:"mode"`
	UpdatedAt  int64   `json:"updated_at"`
	MessageID  int64   `json:"message_id"`
	Role       string  `json:"role"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

// searchOverfetch bounds how many per-message matches are pulled before
// collapsing to one hit per chat
const searchOverfetch = 500

// SanitizeQuery rewrites free text into FTS5 string syntax. Each
// whitespace-separated token is double-quoted so punctuation like
// dashes and dots cannot be parsed as query operators. Returns ""
// when the input has no usable tokens.
func SanitizeQuery(query string) string {
	fields := strings.Fields(query)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		tokens = append(tokens, `"`+f+`"`)
	}
	return strings.Join(tokens, " ")
}

// Search runs ranked full-text search over message content and returns
// at most limit chats, each represented by its best-matching message.
// Plain text is weighted over rich text. bm25 scores are negative with
// better matches more negative, so ascending order ranks best first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]*SearchHit, error) {
	match := SanitizeQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	fetch := limit * 10
	if fetch > searchOverfetch {
		fetch = searchOverfetch
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.external_id, c.title, c.source, c.mode, c.updated_at,
			m.id, m.role,
			snippet(messages_fts, -1, '[', ']', '…', 12),
			bm25(messages_fts, 4.0, 1.0) AS score
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.rowid
		JOIN chats c ON c.id = m.chat_id
		WHERE messages_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`, match, fetch)
	if err != nil {
		return nil, errors.Wrap(err, "search")
	}
	defer rows.Close()

	var hits []*SearchHit
	seen := make(map[int64]bool)
	for rows.Next() {
		h := &SearchHit{}
		if err := rows.Scan(&h.ChatID, &h.ExternalID, &h.Title, &h.Source, &h.Mode,
			&h.UpdatedAt, &h.MessageID, &h.Role, &h.Snippet, &h.Score); err != nil {
			return nil, errors.Wrap(err, "scan search hit")
		}
		// Rows arrive best-first, so the first hit per chat is its best.
		if seen[h.ChatID] {
			continue
		}
		seen[h.ChatID] = true
		hits = append(hits, h)
		if len(hits) >= limit {
			break
		}
	}
	return hits, errors.Wrap(rows.Err(), "search")
}

// RebuildSearchIndex drops and repopulates the search index from the
// messages table
func (s *Store) RebuildSearchIndex(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM messages_fts`); err != nil {
			return errors.Wrap(err, "clear search index")
		}
		if _, err := tx.Exec(`
			INSERT INTO messages_fts (rowid, text, rich_text)
			SELECT id, text, rich_text FROM messages
		`); err != nil {
			return errors.Wrap(err, "repopulate search index")
		}
		return nil
	})
}

// IndexStatus reports how the search index lines up with the messages
// table
type IndexStatus struct {
	Messages  int64
	Indexed   int64
	Unindexed int64
	Orphaned  int64
}

// Consistent reports whether every message is indexed exactly once and
// no index row points at a missing message
func (st *IndexStatus) Consistent() bool {
	return st.Messages == st.Indexed && st.Unindexed == 0 && st.Orphaned == 0
}

func (st *IndexStatus) String() string {
	return fmt.Sprintf("%d messages, %d indexed, %d unindexed, %d orphaned",
		st.Messages, st.Indexed, st.Unindexed, st.Orphaned)
}

// CheckSearchIndex compares the search index against the messages table
func (s *Store) CheckSearchIndex(ctx context.Context) (*IndexStatus, error) {
	st := &IndexStatus{}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&st.Messages); err != nil {
		return nil, errors.Wrap(err, "count messages")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages_fts`).Scan(&st.Indexed); err != nil {
		return nil, errors.Wrap(err, "count index rows")
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages m
		LEFT JOIN messages_fts f ON f.rowid = m.id
		WHERE f.rowid IS NULL
	`).Scan(&st.Unindexed); err != nil {
		return nil, errors.Wrap(err, "count unindexed messages")
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages_fts f
		LEFT JOIN messages m ON m.id = f.rowid
		WHERE m.id IS NULL
	`).Scan(&st.Orphaned); err != nil {
		return nil, errors.Wrap(err, "count orphaned index rows")
	}
	return st, nil
}
