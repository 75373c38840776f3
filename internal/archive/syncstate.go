package archive

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// SyncState is the per-source incremental sync record. Watermark is the
// updated_at high-water mark: the next incremental pass only considers
// records strictly newer than it.
type SyncState struct {
	Source          string
	Watermark       int64
	LastRunAt       int64
	ChatsSeen       int64
	ChatsCreated    int64
	ChatsUpdated    int64
	ChatsSkipped    int64
	MessagesWritten int64
	Errors          int64
}

// Watermark returns a source's high-water mark, or 0 when the source
// has never synced
func (s *Store) Watermark(ctx context.Context, source string) (int64, error) {
	var wm int64
	err := s.db.QueryRowContext(ctx, `
		SELECT watermark FROM sync_state WHERE source = ?
	`, source).Scan(&wm)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "watermark for %s", source)
	}
	return wm, nil
}

// RecordPass persists the outcome of a sync pass, replacing the
// source's previous record
func (s *Store) RecordPass(ctx context.Context, st *SyncState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (source, watermark, last_run_at, chats_seen,
			chats_created, chats_updated, chats_skipped, messages_written, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source) DO UPDATE SET
			watermark = excluded.watermark,
			last_run_at = excluded.last_run_at,
			chats_seen = excluded.chats_seen,
			chats_created = excluded.chats_created,
			chats_updated = excluded.chats_updated,
			chats_skipped = excluded.chats_skipped,
			messages_written = excluded.messages_written,
			errors = excluded.errors
	`, st.Source, st.Watermark, st.LastRunAt, st.ChatsSeen,
		st.ChatsCreated, st.ChatsUpdated, st.ChatsSkipped, st.MessagesWritten, st.Errors)
	return errors.Wrapf(err, "record sync pass for %s", st.Source)
}

// ResetWatermark clears a source's high-water mark so the next pass
// revisits everything. An empty source clears all of them.
func (s *Store) ResetWatermark(ctx context.Context, source string) error {
	var err error
	if source == "" {
		_, err = s.db.ExecContext(ctx, `UPDATE sync_state SET watermark = 0`)
	} else {
		_, err = s.db.ExecContext(ctx, `UPDATE sync_state SET watermark = 0 WHERE source = ?`, source)
	}
	return errors.Wrap(err, "reset watermark")
}

// SyncStates lists every source's sync record
func (s *Store) SyncStates(ctx context.Context) ([]*SyncState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, watermark, last_run_at, chats_seen, chats_created,
			chats_updated, chats_skipped, messages_written, errors
		FROM sync_state
		ORDER BY source
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list sync state")
	}
	defer rows.Close()

	var states []*SyncState
	for rows.Next() {
		st := &SyncState{}
		if err := rows.Scan(&st.Source, &st.Watermark, &st.LastRunAt, &st.ChatsSeen,
			&st.ChatsCreated, &st.ChatsUpdated, &st.ChatsSkipped, &st.MessagesWritten, &st.Errors); err != nil {
			return nil, errors.Wrap(err, "scan sync state")
		}
		states = append(states, st)
	}
	return states, errors.Wrap(rows.Err(), "list sync state")
}
