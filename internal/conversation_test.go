package internal

import (
	"strings"
	"testing"
)

func TestNormalizeMode(t *testing.T) {
	tests := []struct {
		name        string
		forceMode   string
		unifiedMode string
		want        string
	}{
		{"both empty", "", "", ModeChat},
		{"force mode", "agent", "", ModeAgent},
		{"unified mode", "", "edit", ModeEdit},
		{"force wins over unified", "ask", "agent", ModeAsk},
		{"composer alias", "composer", "", ModeEdit},
		{"normal alias", "normal", "", ModeChat},
		{"debug alias", "debug", "", ModeAgent},
		{"case and whitespace", " Plan ", "", ModePlan},
		{"unknown force does not fall through", "telepathy", "agent", ModeChat},
		{"unknown unified", "", "telepathy", ModeChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeMode(tt.forceMode, tt.unifiedMode); got != tt.want {
				t.Errorf("NormalizeMode(%q, %q) = %q, want %q", tt.forceMode, tt.unifiedMode, got, tt.want)
			}
		})
	}
}

func TestDisplayTitle(t *testing.T) {
	tests := []struct {
		name string
		conv *Conversation
		want string
	}{
		{
			name: "explicit title",
			conv: &Conversation{Title: "Fix the build"},
			want: "Fix the build",
		},
		{
			name: "whitespace title derives from first user message",
			conv: &Conversation{
				Title: "   ",
				Messages: []Message{
					{Role: RoleAssistant, Text: "not this one"},
					{Role: RoleUser, Text: "why does the build fail?"},
				},
			},
			want: "why does the build fail?",
		},
		{
			name: "empty user messages are skipped",
			conv: &Conversation{
				Messages: []Message{
					{Role: RoleUser, Text: "  "},
					{Role: RoleUser, Text: "second attempt"},
				},
			},
			want: "second attempt",
		},
		{
			name: "no user text at all",
			conv: &Conversation{
				Messages: []Message{{Role: RoleAssistant, Text: "hello"}},
			},
			want: "Untitled",
		},
		{
			name: "no messages",
			conv: &Conversation{},
			want: "Untitled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conv.DisplayTitle(); got != tt.want {
				t.Errorf("DisplayTitle() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("long derived title is truncated", func(t *testing.T) {
		conv := &Conversation{
			Messages: []Message{{Role: RoleUser, Text: strings.Repeat("x", 80)}},
		}
		got := conv.DisplayTitle()
		if len(got) != 60 || !strings.HasSuffix(got, "...") {
			t.Errorf("DisplayTitle() = %q (len %d), want 60 chars ending in ellipsis", got, len(got))
		}
	})
}

func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp(0); got != "" {
		t.Errorf("FormatTimestamp(0) = %q, want empty", got)
	}
	if got := FormatTimestamp(1700000000000); got != "2023-11-14T22:13:20Z" {
		t.Errorf("FormatTimestamp() = %q, want 2023-11-14T22:13:20Z", got)
	}
}
