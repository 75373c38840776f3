package internal

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/iksnae/chatvault/testutil"
)

func TestDetectStoragePaths(t *testing.T) {
	paths, err := DetectStoragePaths()
	if err != nil {
		t.Fatalf("DetectStoragePaths() error = %v", err)
	}

	if paths.BasePath == "" {
		t.Error("BasePath should not be empty")
	}

	expectedBase := ""
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		expectedBase = filepath.Join(home, "Library/Application Support/Cursor/User")
	case "linux":
		expectedBase = filepath.Join(home, ".config/Cursor/User")
	}

	if paths.BasePath != expectedBase {
		t.Errorf("BasePath = %v, want %v", paths.BasePath, expectedBase)
	}

	if paths.GlobalStorage == "" {
		t.Error("GlobalStorage path should not be empty")
	}
	if paths.WorkspaceStorage == "" {
		t.Error("WorkspaceStorage path should not be empty")
	}
	if paths.AgentStorage == "" {
		t.Error("AgentStorage path should not be empty")
	}
}

func TestGetGlobalStorageDBPath(t *testing.T) {
	paths := StoragePaths{GlobalStorage: "/data/globalStorage"}
	want := filepath.Join("/data/globalStorage", "state.vscdb")
	if got := paths.GetGlobalStorageDBPath(); got != want {
		t.Errorf("GetGlobalStorageDBPath() = %v, want %v", got, want)
	}
}

func TestResolveStoragePaths_ExplicitRoot(t *testing.T) {
	tmpDir := testutil.CreateTempDir(t)

	paths, err := ResolveStoragePaths(tmpDir, "")
	if err != nil {
		t.Fatalf("ResolveStoragePaths() error = %v", err)
	}

	if paths.BasePath != tmpDir {
		t.Errorf("BasePath = %v, want %v", paths.BasePath, tmpDir)
	}
	if paths.GlobalStorage != filepath.Join(tmpDir, "globalStorage") {
		t.Errorf("GlobalStorage = %v", paths.GlobalStorage)
	}
	if paths.WorkspaceStorage != filepath.Join(tmpDir, "workspaceStorage") {
		t.Errorf("WorkspaceStorage = %v", paths.WorkspaceStorage)
	}
}

func TestResolveStoragePaths_FileRoot(t *testing.T) {
	tmpDir := testutil.CreateTempDir(t)
	dbPath := filepath.Join(tmpDir, "state.vscdb")
	if err := os.WriteFile(dbPath, []byte("stub"), 0644); err != nil {
		t.Fatalf("Failed to write stub: %v", err)
	}

	// Pointing at a bare database file yields a layout with only the
	// global store set.
	paths, err := ResolveStoragePaths(dbPath, "")
	if err != nil {
		t.Fatalf("ResolveStoragePaths() error = %v", err)
	}
	if paths.GlobalStorage != tmpDir {
		t.Errorf("GlobalStorage = %v, want %v", paths.GlobalStorage, tmpDir)
	}
	if paths.WorkspaceStorage != "" {
		t.Errorf("WorkspaceStorage = %v, want empty", paths.WorkspaceStorage)
	}
}

func TestResolveStoragePaths_MissingRoot(t *testing.T) {
	if _, err := ResolveStoragePaths("/nonexistent/editor/root", ""); err == nil {
		t.Error("ResolveStoragePaths() expected error for missing root")
	}
}

func TestResolveStoragePaths_AgentOverride(t *testing.T) {
	tmpDir := testutil.CreateTempDir(t)
	agentDir := filepath.Join(tmpDir, "agent-chats")

	paths, err := ResolveStoragePaths(tmpDir, agentDir)
	if err != nil {
		t.Fatalf("ResolveStoragePaths() error = %v", err)
	}
	if paths.AgentStorage != agentDir {
		t.Errorf("AgentStorage = %v, want %v", paths.AgentStorage, agentDir)
	}
}

func TestGlobalStorageExists(t *testing.T) {
	tmpDir := testutil.CreateTempDir(t)
	paths := StoragePaths{GlobalStorage: filepath.Join(tmpDir, "globalStorage")}

	if paths.GlobalStorageExists() {
		t.Error("GlobalStorageExists() = true before the store exists")
	}

	testutil.CreateGlobalStoreFixture(t, tmpDir, map[string]string{"k": "v"})
	if !paths.GlobalStorageExists() {
		t.Error("GlobalStorageExists() = false after creating the store")
	}
}

func TestFindWorkspaceStores(t *testing.T) {
	tmpDir := testutil.CreateTempDir(t)

	testutil.CreateWorkspaceFixture(t, tmpDir, "hash1", "file:///home/user/proj1", map[string]string{})
	testutil.CreateWorkspaceFixture(t, tmpDir, "hash2", "file:///home/user/proj2", map[string]string{})

	// A directory without a store database must be skipped.
	emptyDir := filepath.Join(tmpDir, "workspaceStorage", "hash3")
	if err := os.MkdirAll(emptyDir, 0755); err != nil {
		t.Fatalf("Failed to create empty workspace dir: %v", err)
	}

	paths := StoragePaths{WorkspaceStorage: filepath.Join(tmpDir, "workspaceStorage")}
	refs, err := paths.FindWorkspaceStores()
	if err != nil {
		t.Fatalf("FindWorkspaceStores() error = %v", err)
	}

	if len(refs) != 2 {
		t.Fatalf("FindWorkspaceStores() returned %d refs, want 2", len(refs))
	}
	for _, ref := range refs {
		if ref.Hash != "hash1" && ref.Hash != "hash2" {
			t.Errorf("unexpected workspace hash %q", ref.Hash)
		}
		if _, err := os.Stat(ref.DBPath); err != nil {
			t.Errorf("ref.DBPath %s not readable: %v", ref.DBPath, err)
		}
	}
}

func TestFindWorkspaceStores_MissingDir(t *testing.T) {
	paths := StoragePaths{WorkspaceStorage: "/nonexistent/workspaceStorage"}
	refs, err := paths.FindWorkspaceStores()
	if err != nil {
		t.Fatalf("FindWorkspaceStores() error = %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("FindWorkspaceStores() returned %d refs, want 0", len(refs))
	}
}

func TestFindAgentStoreDBs(t *testing.T) {
	tmpDir := testutil.CreateTempDir(t)
	agentRoot := filepath.Join(tmpDir, "chats")

	testutil.CreateAgentStoreFixture(t, agentRoot, "session-1", map[string]string{})
	testutil.CreateAgentStoreFixture(t, agentRoot, "session-2", map[string]string{})

	paths := StoragePaths{AgentStorage: agentRoot}
	dbs, err := paths.FindAgentStoreDBs()
	if err != nil {
		t.Fatalf("FindAgentStoreDBs() error = %v", err)
	}
	if len(dbs) != 2 {
		t.Errorf("FindAgentStoreDBs() returned %d stores, want 2", len(dbs))
	}

	paths = StoragePaths{AgentStorage: ""}
	dbs, err = paths.FindAgentStoreDBs()
	if err != nil {
		t.Fatalf("FindAgentStoreDBs() error = %v", err)
	}
	if len(dbs) != 0 {
		t.Errorf("FindAgentStoreDBs() with no root returned %d stores, want 0", len(dbs))
	}
}

func TestFindLegacyChatFiles(t *testing.T) {
	tmpDir := testutil.CreateTempDir(t)

	testutil.CreateLegacyExportFixture(t, tmpDir, "abc123", map[string]interface{}{"tabs": []interface{}{}})
	testutil.CreateLegacyExportFixture(t, tmpDir, "def456", map[string]interface{}{"tabs": []interface{}{}})
	if err := os.WriteFile(filepath.Join(tmpDir, "other.json"), []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to write decoy file: %v", err)
	}

	files, err := FindLegacyChatFiles(tmpDir)
	if err != nil {
		t.Fatalf("FindLegacyChatFiles() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("FindLegacyChatFiles() returned %d files, want 2", len(files))
	}

	// A direct file path is returned verbatim, whatever its name.
	direct := filepath.Join(tmpDir, "other.json")
	files, err = FindLegacyChatFiles(direct)
	if err != nil {
		t.Fatalf("FindLegacyChatFiles() error = %v", err)
	}
	if len(files) != 1 || files[0] != direct {
		t.Errorf("FindLegacyChatFiles(%q) = %v", direct, files)
	}
}

func TestFindLegacyChatFiles_MissingRoot(t *testing.T) {
	if _, err := FindLegacyChatFiles("/nonexistent/exports"); err == nil {
		t.Error("FindLegacyChatFiles() expected error for missing root")
	}
}
