package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/iksnae/chatvault/internal/archive"
)

func TestDisplayChatHeader(t *testing.T) {
	tests := []struct {
		name   string
		detail *archive.ChatDetail
	}{
		{
			name: "all fields",
			detail: &archive.ChatDetail{
				Chat: archive.Chat{
					ExternalID:    "a1b2c3d4",
					Title:         "Debug the sync engine",
					Mode:          "agent",
					Source:        "editor",
					CreatedAt:     time.Now().Add(-time.Hour).UnixMilli(),
					UpdatedAt:     time.Now().UnixMilli(),
					WorkspaceHash: "deadbeef",
				},
				Messages: []*archive.Message{{Role: "user", Text: "hello"}},
				Tags:     []string{"infra", "sqlite"},
				Files:    []string{"internal/sync.go"},
			},
		},
		{
			name: "untitled without workspace",
			detail: &archive.ChatDetail{
				Chat: archive.Chat{
					ExternalID: "b2c3d4e5",
					Mode:       "chat",
					Source:     "legacy",
				},
			},
		},
		{
			name: "no timestamps",
			detail: &archive.ChatDetail{
				Chat: archive.Chat{
					ExternalID: "c3d4e5f6",
					Title:      "Imported chat",
					Mode:       "chat",
					Source:     "legacy",
				},
				Messages: []*archive.Message{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Rendering goes to stdout; just verify it doesn't panic.
			displayChatHeader(tt.detail)
		})
	}
}

func TestDisplayMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  *archive.Message
	}{
		{
			name: "user message",
			msg:  &archive.Message{Role: "user", Kind: "response", Text: "Hello, world!", CreatedAt: time.Now().UnixMilli()},
		},
		{
			name: "assistant message",
			msg:  &archive.Message{Role: "assistant", Kind: "response", Text: "Hi there!", CreatedAt: time.Now().UnixMilli()},
		},
		{
			name: "thinking message",
			msg:  &archive.Message{Role: "assistant", Kind: "thinking", Text: "Considering the options..."},
		},
		{
			name: "tool call without text",
			msg:  &archive.Message{Role: "assistant", Kind: "tool_call", Text: ""},
		},
		{
			name: "empty message",
			msg:  &archive.Message{Role: "user", Kind: "response", Text: ""},
		},
		{
			name: "unknown role",
			msg:  &archive.Message{Role: "system", Kind: "response", Text: "System note"},
		},
		{
			name: "no timestamp",
			msg:  &archive.Message{Role: "user", Kind: "response", Text: "Hello"},
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Rendering goes to stdout; just verify it doesn't panic.
			displayMessage(i+1, tt.msg, len(tests))
		})
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		check func(t *testing.T, got string)
	}{
		{
			name:  "short text unchanged",
			text:  "Hello world",
			width: 80,
			check: func(t *testing.T, got string) {
				if got != "Hello world" {
					t.Errorf("got %q, want unchanged text", got)
				}
			},
		},
		{
			name:  "long line wraps",
			text:  "This is a very long line of text that should be wrapped when it exceeds the width",
			width: 20,
			check: func(t *testing.T, got string) {
				for _, line := range strings.Split(got, "\n") {
					if len(line) > 20 && !strings.Contains(line, " ") {
						continue // single long word, cannot wrap
					}
					if len(line) > 20 {
						t.Errorf("line %q exceeds width 20", line)
					}
				}
			},
		},
		{
			name:  "existing newlines preserved",
			text:  "Line 1\nLine 2\nLine 3",
			width: 80,
			check: func(t *testing.T, got string) {
				if len(strings.Split(got, "\n")) != 3 {
					t.Errorf("got %q, want three lines", got)
				}
			},
		},
		{
			name:  "single long word kept whole",
			text:  "supercalifragilisticexpialidocious",
			width: 10,
			check: func(t *testing.T, got string) {
				if got != "supercalifragilisticexpialidocious" {
					t.Errorf("got %q, want the word kept whole", got)
				}
			},
		},
		{
			name:  "empty text",
			text:  "",
			width: 80,
			check: func(t *testing.T, got string) {
				if got != "" {
					t.Errorf("got %q, want empty", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, wrapText(tt.text, tt.width))
		})
	}
}
