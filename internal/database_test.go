package internal

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/iksnae/chatvault/testutil"
)

func TestOpenSourceDB(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "valid database",
			setup: func(t *testing.T) string {
				tmpDir := testutil.CreateTempDir(t)
				return testutil.CreateGlobalStoreFixture(t, tmpDir, map[string]string{
					"composerData:c1": `{"name":"x"}`,
				})
			},
			wantErr: false,
		},
		{
			name: "non-existent database",
			setup: func(t *testing.T) string {
				tmpDir := testutil.CreateTempDir(t)
				// Read-only mode fails on a missing file; the error
				// surfaces from Ping, not Open.
				return filepath.Join(tmpDir, "nonexistent.db")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := tt.setup(t)
			db, err := OpenSourceDB(dbPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("OpenSourceDB() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if db == nil {
					t.Error("OpenSourceDB() returned nil database")
					return
				}
				db.Close()
			}
		})
	}
}

func TestQueryKVLike(t *testing.T) {
	db := testutil.CreateTestDB(t)

	tests := []struct {
		name    string
		pattern string
		want    int
	}{
		{
			name:    "query bubbles",
			pattern: "bubbleId:%",
			want:    2,
		},
		{
			name:    "query composers",
			pattern: "composerData:%",
			want:    2,
		},
		{
			name:    "query message contexts",
			pattern: "messageRequestContext:%",
			want:    1,
		},
		{
			name:    "query non-existent pattern",
			pattern: "nonexistent:%",
			want:    0,
		},
		{
			name:    "query one composer's bubbles",
			pattern: "bubbleId:composer1:%",
			want:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs, err := QueryKVLike(db, "cursorDiskKV", tt.pattern)
			if err != nil {
				t.Fatalf("QueryKVLike() error = %v", err)
			}

			if len(pairs) != tt.want {
				t.Errorf("QueryKVLike() returned %d pairs, want %d", len(pairs), tt.want)
			}

			for i, pair := range pairs {
				if pair.Key == "" {
					t.Errorf("Pair %d has empty key", i)
				}
				if pair.Value == "" {
					t.Errorf("Pair %d has empty value", i)
				}
				if !matchesPattern(pair.Key, tt.pattern) {
					t.Errorf("Pair %d key %q does not match pattern %q", i, pair.Key, tt.pattern)
				}
			}
		})
	}
}

func TestQueryKVLike_NullValues(t *testing.T) {
	db := testutil.CreateInMemoryDB(t)

	// Deleted records are tombstoned as NULL values; they must not
	// surface as results.
	if _, err := db.Exec("INSERT INTO cursorDiskKV (key, value) VALUES (?, ?)", "test:key1", nil); err != nil {
		t.Fatalf("Failed to insert NULL value: %v", err)
	}
	if _, err := db.Exec("INSERT INTO cursorDiskKV (key, value) VALUES (?, ?)", "test:key2", "value2"); err != nil {
		t.Fatalf("Failed to insert valid value: %v", err)
	}

	pairs, err := QueryKVLike(db, "cursorDiskKV", "test:%")
	if err != nil {
		t.Fatalf("QueryKVLike() error = %v", err)
	}

	if len(pairs) != 1 {
		t.Fatalf("QueryKVLike() returned %d pairs, want 1", len(pairs))
	}
	if pairs[0].Key != "test:key2" {
		t.Errorf("QueryKVLike() returned key %q, want test:key2", pairs[0].Key)
	}
}

func TestQueryKVExact(t *testing.T) {
	db := testutil.CreateTestDB(t)

	pairs, err := QueryKVExact(db, "cursorDiskKV", []string{
		"bubbleId:composer1:bubble1",
		"bubbleId:composer1:bubble2",
		"bubbleId:composer1:missing",
	})
	if err != nil {
		t.Fatalf("QueryKVExact() error = %v", err)
	}

	if len(pairs) != 2 {
		t.Errorf("QueryKVExact() returned %d pairs, want 2", len(pairs))
	}

	pairs, err = QueryKVExact(db, "cursorDiskKV", nil)
	if err != nil {
		t.Fatalf("QueryKVExact() with no keys error = %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("QueryKVExact() with no keys returned %d pairs, want 0", len(pairs))
	}
}

func TestQueryKVExact_Batching(t *testing.T) {
	db := testutil.CreateInMemoryDB(t)

	// More keys than one statement's parameter budget.
	keys := make([]string, 0, kvBatchSize+10)
	for i := 0; i < kvBatchSize+10; i++ {
		key := fmt.Sprintf("bulk:key%d", i)
		testutil.InsertKV(t, db, "cursorDiskKV", key, "v")
		keys = append(keys, key)
	}

	pairs, err := QueryKVExact(db, "cursorDiskKV", keys)
	if err != nil {
		t.Fatalf("QueryKVExact() error = %v", err)
	}
	if len(pairs) != len(keys) {
		t.Errorf("QueryKVExact() returned %d pairs, want %d", len(pairs), len(keys))
	}
}

func TestQueryItemTable(t *testing.T) {
	db := testutil.CreateInMemoryItemDB(t)
	testutil.InsertKV(t, db, "ItemTable", "composer.composerData", `{"allComposers":[]}`)

	value, ok, err := QueryItemTable(db, "composer.composerData")
	if err != nil {
		t.Fatalf("QueryItemTable() error = %v", err)
	}
	if !ok {
		t.Fatal("QueryItemTable() ok = false for existing key")
	}
	if value != `{"allComposers":[]}` {
		t.Errorf("QueryItemTable() = %q", value)
	}

	_, ok, err = QueryItemTable(db, "missing.key")
	if err != nil {
		t.Fatalf("QueryItemTable() error = %v", err)
	}
	if ok {
		t.Error("QueryItemTable() ok = true for missing key")
	}
}

// matchesPattern checks if a key matches a LIKE pattern (simplified)
func matchesPattern(key, pattern string) bool {
	if pattern[len(pattern)-1] == '%' {
		prefix := pattern[:len(pattern)-1]
		return len(key) >= len(prefix) && key[:len(prefix)] == prefix
	}
	return key == pattern
}
