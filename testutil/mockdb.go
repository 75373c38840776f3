package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateInMemoryDB creates an in-memory SQLite database with the global
// store's key-value table
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS cursorDiskKV (
		key TEXT PRIMARY KEY,
		value TEXT
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		t.Fatalf("Failed to create cursorDiskKV table: %v", err)
	}

	return db
}

// CreateInMemoryItemDB creates an in-memory SQLite database with the
// workspace store's ItemTable
func CreateInMemoryItemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS ItemTable (
		key TEXT PRIMARY KEY,
		value TEXT
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		t.Fatalf("Failed to create ItemTable: %v", err)
	}

	return db
}

// CreateTestDB creates a global-store database covering both composer
// layouts: composer1 is split with per-bubble rows, composer2 is inline
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)

	records := []struct {
		key   string
		value string
	}{
		{
			key:   "composerData:composer1",
			value: `{"name":"Test Conversation","createdAt":1000,"lastUpdatedAt":2000,"fullConversationHeadersOnly":[{"bubbleId":"bubble1","type":1},{"bubbleId":"bubble2","type":2}]}`,
		},
		{
			key:   "bubbleId:composer1:bubble1",
			value: `{"type":1,"text":"Hello","createdAt":1000}`,
		},
		{
			key:   "bubbleId:composer1:bubble2",
			value: `{"type":2,"text":"Hi there","createdAt":2000}`,
		},
		{
			key:   "composerData:composer2",
			value: `{"name":"Another Conversation","createdAt":3000,"lastUpdatedAt":4000,"conversation":[{"bubbleId":"bubble3","type":1,"text":"How are you?","createdAt":3000}]}`,
		},
		{
			key:   "messageRequestContext:composer1:context1",
			value: `{"bubbleId":"bubble1"}`,
		},
	}

	insertSQL := "INSERT INTO cursorDiskKV (key, value) VALUES (?, ?)"
	stmt, err := db.Prepare(insertSQL)
	if err != nil {
		t.Fatalf("Failed to prepare insert statement: %v", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if _, err := stmt.Exec(record.key, record.value); err != nil {
			t.Fatalf("Failed to insert %s: %v", record.key, err)
		}
	}

	return db
}

// InsertKV inserts a key-value row into a store table
func InsertKV(t *testing.T, db *sql.DB, table, key, value string) {
	t.Helper()
	if _, err := db.Exec("INSERT OR REPLACE INTO "+table+" (key, value) VALUES (?, ?)", key, value); err != nil {
		t.Fatalf("Failed to insert %s: %v", key, err)
	}
}

// InsertBubble inserts a bubble record into the global store table
func InsertBubble(t *testing.T, db *sql.DB, key, value string) {
	t.Helper()
	InsertKV(t, db, "cursorDiskKV", key, value)
}

// InsertComposer inserts a composer record into the global store table
func InsertComposer(t *testing.T, db *sql.DB, key, value string) {
	t.Helper()
	InsertKV(t, db, "cursorDiskKV", key, value)
}
