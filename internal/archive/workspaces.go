package archive

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Workspace is one known workspace, keyed by the editor's hash
type Workspace struct {
	ID           int64
	Hash         string
	FolderURI    string
	ResolvedPath string
	FirstSeenAt  int64
	LastSeenAt   int64
	ChatCount    int
}

// UpsertWorkspaceTx records a workspace sighting. Folder metadata only
// ever improves: an empty incoming value never clobbers a known one.
func UpsertWorkspaceTx(tx *sql.Tx, hash, folderURI, resolvedPath string, seenAt int64) (int64, error) {
	var id int64
	err := tx.QueryRow(`
		INSERT INTO workspaces (hash, folder_uri, resolved_path, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			last_seen_at = excluded.last_seen_at,
			folder_uri = CASE WHEN excluded.folder_uri != '' THEN excluded.folder_uri ELSE workspaces.folder_uri END,
			resolved_path = CASE WHEN excluded.resolved_path != '' THEN excluded.resolved_path ELSE workspaces.resolved_path END
		RETURNING id
	`, hash, folderURI, resolvedPath, seenAt, seenAt).Scan(&id)
	if err != nil {
		return 0, errors.Wrapf(err, "upsert workspace %s", hash)
	}
	return id, nil
}

// GetWorkspace fetches a workspace by hash. Returns nil when absent.
func (s *Store) GetWorkspace(ctx context.Context, hash string) (*Workspace, error) {
	w := &Workspace{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, hash, folder_uri, resolved_path, first_seen_at, last_seen_at
		FROM workspaces WHERE hash = ?
	`, hash).Scan(&w.ID, &w.Hash, &w.FolderURI, &w.ResolvedPath, &w.FirstSeenAt, &w.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get workspace %s", hash)
	}
	return w, nil
}

// ListWorkspaces returns all workspaces with their chat counts, most
// recently seen first
func (s *Store) ListWorkspaces(ctx context.Context) ([]*Workspace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.hash, w.folder_uri, w.resolved_path, w.first_seen_at, w.last_seen_at,
			COUNT(c.id)
		FROM workspaces w
		LEFT JOIN chats c ON c.workspace_id = w.id
		GROUP BY w.id
		ORDER BY w.last_seen_at DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list workspaces")
	}
	defer rows.Close()

	var workspaces []*Workspace
	for rows.Next() {
		w := &Workspace{}
		if err := rows.Scan(&w.ID, &w.Hash, &w.FolderURI, &w.ResolvedPath, &w.FirstSeenAt, &w.LastSeenAt, &w.ChatCount); err != nil {
			return nil, errors.Wrap(err, "scan workspace")
		}
		workspaces = append(workspaces, w)
	}
	return workspaces, errors.Wrap(rows.Err(), "list workspaces")
}
