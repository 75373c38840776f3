package internal

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Keys the editor writes into each workspace store's ItemTable.
const (
	workspaceChatKey     = "workbench.panel.aichat.view.aichat.chatdata"
	workspaceComposerKey = "composer.composerData"
)

// WorkspaceInfo represents one workspace known to the editor
type WorkspaceInfo struct {
	Hash      string
	FolderURI string
	Path      string // FolderURI normalized to a filesystem path
	Name      string
}

// DetectWorkspaces reads workspace metadata for every hash-named
// directory under workspaceStorage
func DetectWorkspaces(workspaceStorage string) (map[string]*WorkspaceInfo, error) {
	workspaces := make(map[string]*WorkspaceInfo)

	entries, err := os.ReadDir(workspaceStorage)
	if err != nil {
		// Absent directory means no workspaces, not an error.
		return workspaces, nil
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		hash := entry.Name()
		info := &WorkspaceInfo{Hash: hash}

		metaPath := filepath.Join(workspaceStorage, hash, "workspace.json")
		if data, err := os.ReadFile(metaPath); err == nil {
			var meta struct {
				Folder string `json:"folder"`
			}
			if err := json.Unmarshal(data, &meta); err == nil && meta.Folder != "" {
				info.FolderURI = meta.Folder
				info.Path = NormalizeFolderURI(meta.Folder)
				info.Name = filepath.Base(info.Path)
			}
		}

		workspaces[hash] = info
	}

	return workspaces, nil
}

// WorkspaceStore reads one workspace's own store: the composer ownership
// registry and, in older installations, inline chat tabs.
type WorkspaceStore struct {
	Hash string
	db   *sql.DB
}

// OpenWorkspaceStore opens a workspace store database read-only
func OpenWorkspaceStore(ref WorkspaceStoreRef) (*WorkspaceStore, error) {
	db, err := OpenSourceDB(ref.DBPath)
	if err != nil {
		return nil, err
	}
	return &WorkspaceStore{Hash: ref.Hash, db: db}, nil
}

// Close releases the underlying database handle
func (w *WorkspaceStore) Close() error {
	if w.db == nil {
		return nil
	}
	return w.db.Close()
}

// ComposerIDs returns the composer ids this workspace claims ownership
// of. Modern composers live in the global store; the workspace only
// records which ones belong to it.
func (w *WorkspaceStore) ComposerIDs() ([]string, error) {
	value, ok, err := QueryItemTable(w.db, workspaceComposerKey)
	if err != nil || !ok {
		return nil, err
	}

	var registry struct {
		AllComposers []struct {
			ComposerID string `json:"composerId"`
		} `json:"allComposers"`
	}
	if err := json.Unmarshal([]byte(value), &registry); err != nil {
		LogWarn("%v", &ParseError{Source: "workspaceStorage", Key: workspaceComposerKey, Err: err})
		return nil, nil
	}

	ids := make([]string, 0, len(registry.AllComposers))
	for _, c := range registry.AllComposers {
		if c.ComposerID != "" {
			ids = append(ids, c.ComposerID)
		}
	}
	return ids, nil
}

// ChatTabs returns the workspace's inline chat tabs, the oldest of the
// editor layouts. The shape matches legacy JSON exports, which were dumps
// of the same record.
func (w *WorkspaceStore) ChatTabs() ([]RawTab, error) {
	value, ok, err := QueryItemTable(w.db, workspaceChatKey)
	if err != nil || !ok {
		return nil, err
	}

	var chatData struct {
		Tabs []RawTab `json:"tabs"`
	}
	if err := json.Unmarshal([]byte(value), &chatData); err != nil {
		LogWarn("%v", &ParseError{Source: "workspaceStorage", Key: workspaceChatKey, Err: err})
		return nil, nil
	}

	return chatData.Tabs, nil
}

// AssociateComposerWithWorkspace finds the workspace a composer belongs
// to from its request contexts' project layout paths. Used when no
// workspace store claims the composer. Returns "" when no match.
func AssociateComposerWithWorkspace(composerID string, contexts []*MessageContext, workspaces map[string]*WorkspaceInfo) string {
	for _, ctx := range contexts {
		if ctx.ComposerID != composerID || len(ctx.ProjectLayouts) == 0 {
			continue
		}
		for _, layout := range ctx.ProjectLayouts {
			layoutPath := NormalizeFolderURI(layout)
			if layoutPath == "" {
				continue
			}
			for hash, workspace := range workspaces {
				if workspace.Path == "" {
					continue
				}
				if layoutPath == workspace.Path || strings.HasPrefix(layoutPath, workspace.Path+string(os.PathSeparator)) {
					return hash
				}
			}
		}
	}

	return ""
}
