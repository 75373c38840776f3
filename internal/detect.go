package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// StoragePaths holds the detected locations of the editor-family stores
type StoragePaths struct {
	WorkspaceStorage string // per-workspace stores, one hash-named directory each
	GlobalStorage    string // shared global store directory
	BasePath         string // editor user-data root
	AgentStorage     string // agent CLI session root (store.db per session)
}

// DetectStoragePaths locates the editor stores for the current OS
func DetectStoragePaths() (StoragePaths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return StoragePaths{}, fmt.Errorf("failed to get home directory: %w", err)
	}

	var basePath string
	var agentStorage string
	switch runtime.GOOS {
	case "darwin":
		basePath = filepath.Join(home, "Library/Application Support/Cursor/User")
		agentStorage = filepath.Join(home, ".cursor/chats")
	case "linux":
		basePath = filepath.Join(home, ".config/Cursor/User")
		// The agent CLI has moved its root once; prefer the newer
		// location when both exist.
		configChats := filepath.Join(home, ".config/cursor/chats")
		dotChats := filepath.Join(home, ".cursor/chats")
		if info, err := os.Stat(configChats); err == nil && info.IsDir() {
			agentStorage = configChats
		} else {
			agentStorage = dotChats
		}
	default:
		return StoragePaths{}, fmt.Errorf("unsupported OS: %s (only macOS and Linux are supported)", runtime.GOOS)
	}

	return StoragePaths{
		WorkspaceStorage: filepath.Join(basePath, "workspaceStorage"),
		GlobalStorage:    filepath.Join(basePath, "globalStorage"),
		BasePath:         basePath,
		AgentStorage:     agentStorage,
	}, nil
}

// ResolveStoragePaths returns the storage layout, honoring an explicit
// root override. An override pointing at a single database file yields a
// layout with only the global store set.
func ResolveStoragePaths(root, agentRoot string) (StoragePaths, error) {
	if root == "" {
		sp, err := DetectStoragePaths()
		if err != nil {
			return StoragePaths{}, err
		}
		if agentRoot != "" {
			sp.AgentStorage = agentRoot
		}
		return sp, nil
	}

	info, err := os.Stat(root)
	if err != nil {
		return StoragePaths{}, &StorageError{Path: root, Op: "open", Err: err}
	}

	if !info.IsDir() {
		// A bare state.vscdb; treat its directory as the global store.
		return StoragePaths{
			GlobalStorage: filepath.Dir(root),
			BasePath:      filepath.Dir(root),
			AgentStorage:  agentRoot,
		}, nil
	}

	sp := StoragePaths{
		WorkspaceStorage: filepath.Join(root, "workspaceStorage"),
		GlobalStorage:    filepath.Join(root, "globalStorage"),
		BasePath:         root,
		AgentStorage:     agentRoot,
	}
	return sp, nil
}

// GetGlobalStorageDBPath returns the path to the global store database
func (sp StoragePaths) GetGlobalStorageDBPath() string {
	return filepath.Join(sp.GlobalStorage, "state.vscdb")
}

// GlobalStorageExists checks if the global store database exists
func (sp StoragePaths) GlobalStorageExists() bool {
	_, err := os.Stat(sp.GetGlobalStorageDBPath())
	return err == nil
}

// HasAgentStorage checks if the agent session root exists
func (sp StoragePaths) HasAgentStorage() bool {
	if sp.AgentStorage == "" {
		return false
	}
	info, err := os.Stat(sp.AgentStorage)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// FindAgentStoreDBs scans the agent session root for store.db files
func (sp StoragePaths) FindAgentStoreDBs() ([]string, error) {
	if !sp.HasAgentStorage() {
		return []string{}, nil
	}

	var storeDBs []string
	err := filepath.Walk(sp.AgentStorage, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Skip directories we can't access
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() && info.Name() == "store.db" {
			storeDBs = append(storeDBs, path)
		}
		return nil
	})
	if err != nil {
		return nil, &StorageError{Path: sp.AgentStorage, Op: "walk", Err: err}
	}

	return storeDBs, nil
}

// WorkspaceStoreRef points at one workspace's store before it is opened
type WorkspaceStoreRef struct {
	Hash   string
	DBPath string
	Dir    string
}

// FindWorkspaceStores lists the per-workspace stores under workspaceStorage.
// Directories without a state.vscdb are skipped.
func (sp StoragePaths) FindWorkspaceStores() ([]WorkspaceStoreRef, error) {
	if sp.WorkspaceStorage == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(sp.WorkspaceStorage)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StorageError{Path: sp.WorkspaceStorage, Op: "read", Err: err}
	}

	var refs []WorkspaceStoreRef
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(sp.WorkspaceStorage, entry.Name())
		dbPath := filepath.Join(dir, "state.vscdb")
		if _, err := os.Stat(dbPath); err != nil {
			continue
		}
		refs = append(refs, WorkspaceStoreRef{
			Hash:   entry.Name(),
			DBPath: dbPath,
			Dir:    dir,
		})
	}
	return refs, nil
}

// SnapshotStoragePaths copies every known store database into a temporary
// directory and returns a layout pointing at the copies. Reading copies
// avoids lock contention with a running editor. The caller must invoke
// cleanup when done.
func SnapshotStoragePaths(sp StoragePaths) (StoragePaths, func(), error) {
	tmpDir, err := os.MkdirTemp("", "chatvault-snapshot-")
	if err != nil {
		return StoragePaths{}, nil, &StorageError{Path: "", Op: "copy", Err: err}
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	out := StoragePaths{
		BasePath:         tmpDir,
		GlobalStorage:    filepath.Join(tmpDir, "globalStorage"),
		WorkspaceStorage: filepath.Join(tmpDir, "workspaceStorage"),
	}

	if sp.GlobalStorageExists() {
		dst := filepath.Join(out.GlobalStorage, "state.vscdb")
		if err := copySQLiteDB(sp.GetGlobalStorageDBPath(), dst); err != nil {
			cleanup()
			return StoragePaths{}, nil, err
		}
	}

	refs, err := sp.FindWorkspaceStores()
	if err != nil {
		cleanup()
		return StoragePaths{}, nil, err
	}
	for _, ref := range refs {
		dstDir := filepath.Join(out.WorkspaceStorage, ref.Hash)
		if err := copySQLiteDB(ref.DBPath, filepath.Join(dstDir, "state.vscdb")); err != nil {
			LogWarn("skipping workspace %s: %v", ref.Hash, err)
			continue
		}
		// workspace.json rides along so folder resolution keeps working
		meta := filepath.Join(ref.Dir, "workspace.json")
		if _, err := os.Stat(meta); err == nil {
			if err := copyFile(meta, filepath.Join(dstDir, "workspace.json")); err != nil {
				LogWarn("failed to copy workspace.json for %s: %v", ref.Hash, err)
			}
		}
	}

	if sp.HasAgentStorage() {
		out.AgentStorage = filepath.Join(tmpDir, "chats")
		dbs, err := sp.FindAgentStoreDBs()
		if err != nil {
			cleanup()
			return StoragePaths{}, nil, err
		}
		for _, db := range dbs {
			rel, err := filepath.Rel(sp.AgentStorage, db)
			if err != nil {
				rel = filepath.Base(filepath.Dir(db)) + "/store.db"
			}
			if err := copySQLiteDB(db, filepath.Join(out.AgentStorage, rel)); err != nil {
				LogWarn("skipping agent store %s: %v", db, err)
			}
		}
	}

	return out, cleanup, nil
}

// copySQLiteDB copies a database file together with its -wal and -shm
// siblings when present, so uncommitted pages are visible in the copy.
func copySQLiteDB(src, dst string) error {
	if err := copyFile(src, dst); err != nil {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		sidecar := src + suffix
		if _, err := os.Stat(sidecar); err != nil {
			continue
		}
		if err := copyFile(sidecar, dst+suffix); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return &StorageError{Path: src, Op: "copy", Err: err}
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &StorageError{Path: dst, Op: "copy", Err: err}
	}
	out, err := os.Create(dst)
	if err != nil {
		return &StorageError{Path: dst, Op: "copy", Err: err}
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return &StorageError{Path: dst, Op: "copy", Err: err}
	}
	if err := out.Close(); err != nil {
		return &StorageError{Path: dst, Op: "copy", Err: err}
	}
	return nil
}

// FindLegacyChatFiles locates legacy per-workspace JSON exports under a
// directory. Files are named chat_data_<workspaceHash>.json.
func FindLegacyChatFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &StorageError{Path: root, Op: "open", Err: err}
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		name := info.Name()
		if strings.HasPrefix(name, "chat_data_") && strings.HasSuffix(name, ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &StorageError{Path: root, Op: "walk", Err: err}
	}
	return files, nil
}
