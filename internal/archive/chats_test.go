package archive

import (
	"context"
	"database/sql"
	"strings"
	"testing"
)

func TestInsertAndGetChat(t *testing.T) {
	ctx := context.Background()
	store := openTestArchive(t)

	wsID := insertWorkspace(t, store, "a1b2c3d4e5f60718", "file:///home/user/demo", "/home/user/demo", 1000)
	insertChat(t, store, &Chat{
		ExternalID:    "conv-1",
		WorkspaceID:   &wsID,
		Title:         "Debug session",
		Mode:          "agent",
		CreatedAt:     500,
		UpdatedAt:     1000,
		Source:        "editor",
		MessagesCount: 2,
	})

	chat, err := store.GetChat(ctx, "conv-1")
	if err != nil {
		t.Fatalf("GetChat() error = %v", err)
	}
	if chat == nil {
		t.Fatal("GetChat() = nil for existing chat")
	}
	if chat.Title != "Debug session" || chat.Mode != "agent" || chat.Source != "editor" {
		t.Errorf("chat = %+v", chat)
	}
	if chat.WorkspaceID == nil || *chat.WorkspaceID != wsID {
		t.Errorf("WorkspaceID = %v, want %d", chat.WorkspaceID, wsID)
	}
	// The workspace hash is joined in on reads.
	if chat.WorkspaceHash != "a1b2c3d4e5f60718" {
		t.Errorf("WorkspaceHash = %q", chat.WorkspaceHash)
	}
	if chat.CreatedAt != 500 || chat.UpdatedAt != 1000 || chat.MessagesCount != 2 {
		t.Errorf("chat = %+v", chat)
	}
}

func TestGetChat_Missing(t *testing.T) {
	store := openTestArchive(t)

	chat, err := store.GetChat(context.Background(), "no-such-chat")
	if err != nil {
		t.Fatalf("GetChat() error = %v", err)
	}
	if chat != nil {
		t.Errorf("GetChat() = %+v, want nil", chat)
	}
}

func TestUpdateChatTx(t *testing.T) {
	ctx := context.Background()
	store := openTestArchive(t)

	id := insertChat(t, store, &Chat{ExternalID: "conv-1", Title: "Before", Mode: "chat", Source: "editor", UpdatedAt: 1000})

	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		return UpdateChatTx(tx, &Chat{
			ID:            id,
			ExternalID:    "conv-1",
			Title:         "After",
			Mode:          "agent",
			CreatedAt:     500,
			UpdatedAt:     2000,
			Source:        "editor",
			MessagesCount: 3,
		})
	})
	if err != nil {
		t.Fatalf("UpdateChatTx() error = %v", err)
	}

	chat, err := store.GetChat(ctx, "conv-1")
	if err != nil {
		t.Fatalf("GetChat() error = %v", err)
	}
	if chat.Title != "After" || chat.Mode != "agent" || chat.UpdatedAt != 2000 || chat.MessagesCount != 3 {
		t.Errorf("chat = %+v", chat)
	}
	if chat.WorkspaceID != nil {
		t.Errorf("WorkspaceID = %v, update cleared no workspace so none should appear", chat.WorkspaceID)
	}
}

func TestListChats_Filters(t *testing.T) {
	ctx := context.Background()
	store := openTestArchive(t)

	ws1 := insertWorkspace(t, store, "1111111111111111", "", "", 1000)
	ws2 := insertWorkspace(t, store, "2222222222222222", "", "", 2000)

	idA := insertChat(t, store, &Chat{ExternalID: "conv-a", WorkspaceID: &ws1, Mode: "chat", Source: "editor", UpdatedAt: 1000})
	insertChat(t, store, &Chat{ExternalID: "conv-b", WorkspaceID: &ws2, Mode: "agent", Source: "agent", UpdatedAt: 2000})
	insertChat(t, store, &Chat{ExternalID: "conv-c", Mode: "chat", Source: "legacy", UpdatedAt: 3000})

	if err := store.AddTag(ctx, idA, "golang"); err != nil {
		t.Fatalf("AddTag() error = %v", err)
	}

	tests := []struct {
		name   string
		filter ChatFilter
		want   []string
	}{
		{"no filter newest first", ChatFilter{}, []string{"conv-c", "conv-b", "conv-a"}},
		{"by workspace", ChatFilter{WorkspaceHash: "1111111111111111"}, []string{"conv-a"}},
		{"by mode", ChatFilter{Mode: "chat"}, []string{"conv-c", "conv-a"}},
		{"by source", ChatFilter{Source: "agent"}, []string{"conv-b"}},
		{"by tag", ChatFilter{Tag: "golang"}, []string{"conv-a"}},
		{"since", ChatFilter{Since: 2000}, []string{"conv-c", "conv-b"}},
		{"until", ChatFilter{Until: 2000}, []string{"conv-b", "conv-a"}},
		{"limit", ChatFilter{Limit: 1}, []string{"conv-c"}},
		{"mode and since", ChatFilter{Mode: "chat", Since: 1500}, []string{"conv-c"}},
		{"no matches", ChatFilter{Source: "chatservice"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chats, err := store.ListChats(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListChats() error = %v", err)
			}
			var got []string
			for _, c := range chats {
				got = append(got, c.ExternalID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListChats() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ListChats()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGetChatDetail(t *testing.T) {
	ctx := context.Background()
	store := openTestArchive(t)

	id := insertChat(t, store, &Chat{ExternalID: "conv-1", Title: "Detailed", Mode: "chat", Source: "editor", UpdatedAt: 2000},
		&Message{Role: "user", Kind: "response", Text: "first", NativeID: "m1", CreatedAt: 1000},
		&Message{Role: "assistant", Kind: "response", Text: "second", NativeID: "m2", CreatedAt: 2000},
	)
	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		return AddFileTx(tx, id, "pkg/server.go")
	})
	if err != nil {
		t.Fatalf("AddFileTx() error = %v", err)
	}
	if err := store.AddTag(ctx, id, "reviewed"); err != nil {
		t.Fatalf("AddTag() error = %v", err)
	}

	detail, err := store.GetChatDetail(ctx, "conv-1")
	if err != nil {
		t.Fatalf("GetChatDetail() error = %v", err)
	}
	if detail == nil {
		t.Fatal("GetChatDetail() = nil")
	}
	if detail.Title != "Detailed" {
		t.Errorf("Title = %q", detail.Title)
	}
	if len(detail.Messages) != 2 || detail.Messages[0].Text != "first" || detail.Messages[1].Text != "second" {
		t.Errorf("messages = %+v", detail.Messages)
	}
	if len(detail.Files) != 1 || detail.Files[0] != "pkg/server.go" {
		t.Errorf("files = %v", detail.Files)
	}
	if len(detail.Tags) != 1 || detail.Tags[0] != "reviewed" {
		t.Errorf("tags = %v", detail.Tags)
	}
}

func TestGetChatDetail_Missing(t *testing.T) {
	store := openTestArchive(t)

	detail, err := store.GetChatDetail(context.Background(), "no-such-chat")
	if err != nil {
		t.Fatalf("GetChatDetail() error = %v", err)
	}
	if detail != nil {
		t.Errorf("GetChatDetail() = %+v, want nil", detail)
	}
}

func TestDeleteChat(t *testing.T) {
	ctx := context.Background()
	store := openTestArchive(t)

	id := insertChat(t, store, &Chat{ExternalID: "conv-1", Mode: "chat", Source: "editor"},
		&Message{Role: "user", Kind: "response", Text: "disposable words", NativeID: "m1"},
		&Message{Role: "assistant", Kind: "response", Text: "more disposable words", NativeID: "m2"},
	)
	insertChat(t, store, &Chat{ExternalID: "conv-2", Mode: "chat", Source: "editor"},
		&Message{Role: "user", Kind: "response", Text: "durable words", NativeID: "m1"},
	)
	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		return AddFileTx(tx, id, "gone.go")
	})
	if err != nil {
		t.Fatalf("AddFileTx() error = %v", err)
	}
	if err := store.AddTag(ctx, id, "doomed"); err != nil {
		t.Fatalf("AddTag() error = %v", err)
	}

	if err := store.DeleteChat(ctx, "conv-1"); err != nil {
		t.Fatalf("DeleteChat() error = %v", err)
	}

	if chat, _ := store.GetChat(ctx, "conv-1"); chat != nil {
		t.Error("deleted chat still present")
	}
	messages, err := store.CountMessages(ctx)
	if err != nil {
		t.Fatalf("CountMessages() error = %v", err)
	}
	if messages != 1 {
		t.Errorf("messages = %d, want only the other chat's", messages)
	}

	// Cascades and the index mirror leave nothing behind.
	status, err := store.CheckSearchIndex(ctx)
	if err != nil {
		t.Fatalf("CheckSearchIndex() error = %v", err)
	}
	if !status.Consistent() {
		t.Errorf("search index inconsistent after delete: %s", status)
	}
	if hits, err := store.Search(ctx, "disposable", 10); err != nil || len(hits) != 0 {
		t.Errorf("Search(disposable) = %d hits, %v; want none", len(hits), err)
	}
	if hits, err := store.Search(ctx, "durable", 10); err != nil || len(hits) != 1 {
		t.Errorf("Search(durable) = %d hits, %v; want 1", len(hits), err)
	}
	if tags, err := store.ListTags(ctx); err != nil || len(tags) != 0 {
		t.Errorf("ListTags() = %v, %v; want none", tags, err)
	}
}

func TestDeleteChat_Missing(t *testing.T) {
	store := openTestArchive(t)

	err := store.DeleteChat(context.Background(), "no-such-chat")
	if err == nil {
		t.Fatal("DeleteChat() expected error for missing chat")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v", err)
	}
}
