package cmd

import (
	"testing"

	"github.com/iksnae/chatvault/internal"
	"github.com/iksnae/chatvault/internal/archive"
)

func TestConversationFromDetail(t *testing.T) {
	detail := &archive.ChatDetail{
		Chat: archive.Chat{
			ExternalID:    "a1b2c3d4-e5f6-7890-abcd-ef1234567890",
			Title:         "Refactor the config loader",
			Mode:          "agent",
			Source:        "editor",
			WorkspaceHash: "deadbeefcafe",
			CreatedAt:     1700000000000,
			UpdatedAt:     1700000500000,
		},
		Messages: []*archive.Message{
			{Role: "user", Kind: "response", Text: "Please refactor", CreatedAt: 1700000100000, NativeID: "b-1"},
			{Role: "assistant", Kind: "thinking", Text: "Reading the file first", NativeID: "b-2"},
			{Role: "assistant", Kind: "response", Text: "Done", RichText: `{"root":{}}`, NativeID: "b-3", RawJSON: `{"type":2}`},
		},
		Files: []string{"internal/config.go", "cmd/root.go"},
	}

	conv := conversationFromDetail(detail)

	if conv.ExternalID != detail.ExternalID {
		t.Errorf("ExternalID = %q, want %q", conv.ExternalID, detail.ExternalID)
	}
	if conv.Title != "Refactor the config loader" {
		t.Errorf("Title = %q", conv.Title)
	}
	if conv.Mode != "agent" || conv.Source != "editor" {
		t.Errorf("Mode/Source = %q/%q", conv.Mode, conv.Source)
	}
	if conv.WorkspaceHash != "deadbeefcafe" {
		t.Errorf("WorkspaceHash = %q", conv.WorkspaceHash)
	}
	if conv.CreatedAt != 1700000000000 || conv.UpdatedAt != 1700000500000 {
		t.Errorf("timestamps = %d/%d", conv.CreatedAt, conv.UpdatedAt)
	}
	if len(conv.Files) != 2 {
		t.Fatalf("Files = %v, want 2 entries", conv.Files)
	}
	if len(conv.Messages) != 3 {
		t.Fatalf("Messages = %d, want 3", len(conv.Messages))
	}

	first := conv.Messages[0]
	if first.Role != internal.RoleUser || first.Kind != internal.KindResponse {
		t.Errorf("first message role/kind = %q/%q", first.Role, first.Kind)
	}
	if first.CreatedAt != 1700000100000 || first.NativeID != "b-1" {
		t.Errorf("first message identity = %d/%q", first.CreatedAt, first.NativeID)
	}

	second := conv.Messages[1]
	if second.Kind != internal.KindThinking {
		t.Errorf("second message kind = %q, want thinking", second.Kind)
	}
	if second.Raw != nil {
		t.Errorf("second message Raw = %s, want nil without raw json", second.Raw)
	}

	third := conv.Messages[2]
	if third.RichText == "" {
		t.Error("third message lost its rich text")
	}
	if string(third.Raw) != `{"type":2}` {
		t.Errorf("third message Raw = %s", third.Raw)
	}
}

func TestConversationFromDetail_Empty(t *testing.T) {
	detail := &archive.ChatDetail{
		Chat: archive.Chat{ExternalID: "empty-chat", Mode: "chat", Source: "legacy"},
	}

	conv := conversationFromDetail(detail)
	if len(conv.Messages) != 0 {
		t.Errorf("Messages = %d, want 0", len(conv.Messages))
	}
	if conv.Messages == nil {
		t.Error("Messages should be an empty slice, not nil, so exports render an empty list")
	}
}
