package testutil

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// writeKVStore creates a SQLite database at dbPath with a two-column
// key-value table and the given rows
func writeKVStore(t *testing.T, dbPath, table string, rows map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	createTableSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value TEXT
	)`, table)
	if _, err := db.Exec(createTableSQL); err != nil {
		t.Fatalf("Failed to create %s table: %v", table, err)
	}

	insertSQL := fmt.Sprintf("INSERT OR REPLACE INTO %s (key, value) VALUES (?, ?)", table)
	for key, value := range rows {
		if _, err := db.Exec(insertSQL, key, value); err != nil {
			t.Fatalf("Failed to insert %s: %v", key, err)
		}
	}
}

// CreateGlobalStoreFixture creates a global store database under
// baseDir/globalStorage and returns its path
func CreateGlobalStoreFixture(t *testing.T, baseDir string, rows map[string]string) string {
	t.Helper()
	dbPath := filepath.Join(baseDir, "globalStorage", "state.vscdb")
	writeKVStore(t, dbPath, "cursorDiskKV", rows)
	return dbPath
}

// CreateWorkspaceFixture creates one workspace store directory under
// baseDir/workspaceStorage with a workspace.json and an ItemTable
// database, returning the workspace directory
func CreateWorkspaceFixture(t *testing.T, baseDir, workspaceHash, folderURI string, items map[string]string) string {
	t.Helper()
	workspaceDir := filepath.Join(baseDir, "workspaceStorage", workspaceHash)
	if err := os.MkdirAll(workspaceDir, 0755); err != nil {
		t.Fatalf("Failed to create workspace directory: %v", err)
	}

	if folderURI != "" {
		meta, _ := json.Marshal(map[string]interface{}{"folder": folderURI})
		metaPath := filepath.Join(workspaceDir, "workspace.json")
		if err := os.WriteFile(metaPath, meta, 0644); err != nil {
			t.Fatalf("Failed to write workspace.json: %v", err)
		}
	}

	writeKVStore(t, filepath.Join(workspaceDir, "state.vscdb"), "ItemTable", items)
	return workspaceDir
}

// CreateAgentStoreFixture creates one agent session database under
// agentRoot/<sessionID>/store.db and returns its path. Rows land in the
// blobs table using the id/data column pair.
func CreateAgentStoreFixture(t *testing.T, agentRoot, sessionID string, blobs map[string]string) string {
	t.Helper()
	dbPath := filepath.Join(agentRoot, sessionID, "store.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create agent session directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS blobs (
		id TEXT PRIMARY KEY,
		data TEXT
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		t.Fatalf("Failed to create blobs table: %v", err)
	}
	for id, data := range blobs {
		if _, err := db.Exec("INSERT OR REPLACE INTO blobs (id, data) VALUES (?, ?)", id, data); err != nil {
			t.Fatalf("Failed to insert blob %s: %v", id, err)
		}
	}

	return dbPath
}

// CreateLegacyExportFixture writes a chat_data_<hash>.json export into
// dir and returns its path
func CreateLegacyExportFixture(t *testing.T, dir, workspaceHash string, payload interface{}) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create legacy export directory: %v", err)
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal legacy payload: %v", err)
	}
	path := filepath.Join(dir, "chat_data_"+workspaceHash+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write legacy export: %v", err)
	}
	return path
}

// CreateMockEditorDir creates a full editor storage tree: a global store
// with both composer layouts, one workspace claiming composer1, and one
// agent session. Returns the base directory.
func CreateMockEditorDir(t *testing.T) string {
	t.Helper()
	baseDir := CreateTempDir(t)

	CreateGlobalStoreFixture(t, baseDir, map[string]string{
		"composerData:composer1":                   `{"name":"Test Conversation","createdAt":1000,"lastUpdatedAt":2000,"fullConversationHeadersOnly":[{"bubbleId":"bubble1","type":1},{"bubbleId":"bubble2","type":2}]}`,
		"bubbleId:composer1:bubble1":               `{"type":1,"text":"Hello","createdAt":1000}`,
		"bubbleId:composer1:bubble2":               `{"type":2,"text":"Hi there","createdAt":2000}`,
		"composerData:composer2":                   `{"name":"Another Conversation","createdAt":3000,"lastUpdatedAt":4000,"conversation":[{"bubbleId":"bubble3","type":1,"text":"How are you?","createdAt":3000}]}`,
		"messageRequestContext:composer1:context1": `{"bubbleId":"bubble1"}`,
	})

	CreateWorkspaceFixture(t, baseDir, "abc123def456", "file:///home/user/projects/demo", map[string]string{
		"composer.composerData": `{"allComposers":[{"composerId":"composer1"}]}`,
	})

	CreateAgentStoreFixture(t, filepath.Join(baseDir, "chats"), "11111111-2222-3333-4444-555555555555", map[string]string{
		"msg-1": `{"id":"m1","role":"user","content":[{"type":"text","text":"agent question"}],"timestamp":5000}`,
	})

	return baseDir
}
