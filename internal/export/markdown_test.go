package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iksnae/chatvault/internal"
)

func TestMarkdownExporter_Export(t *testing.T) {
	conv := internal.CreateTestConversation("conv-md")
	conv.WorkspacePath = "/home/user/projects/demo"
	conv.Files = []string{"main.go", "README.md"}

	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(conv, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"# Test Conversation",
		"**Source:** editor",
		"**Mode:** chat",
		"**Workspace:** /home/user/projects/demo",
		"**Messages:** 2",
		"- `main.go`",
		"## Messages",
		"**user:**",
		"**assistant:**",
		"Hello, how are you?",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestMarkdownExporter_WorkspaceHashFallback(t *testing.T) {
	conv := internal.CreateTestConversation("conv-hash")
	conv.WorkspaceHash = "abc123def456"

	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(conv, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.Contains(buf.String(), "**Workspace:** abc123def456") {
		t.Error("workspace hash should render when no path is known")
	}
}

func TestMarkdownExporter_KindLabel(t *testing.T) {
	conv := internal.CreateTestConversationWithMessages("conv-kind", []internal.Message{
		{Role: internal.RoleAssistant, Kind: internal.KindThinking, Text: "weighing the options"},
	})

	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(conv, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.Contains(buf.String(), "**assistant [thinking]:**") {
		t.Errorf("non-response kinds should be labeled, got:\n%s", buf.String())
	}
}

func TestMarkdownExporter_DerivedTitle(t *testing.T) {
	conv := internal.CreateTestConversationWithMessages("conv-untitled", []internal.Message{
		{Role: internal.RoleUser, Kind: internal.KindResponse, Text: "Fix the login flow"},
	})

	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(conv, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "# Fix the login flow\n") {
		t.Errorf("title should derive from the first user message, got:\n%s", buf.String())
	}
}

func TestEscapeMarkdown(t *testing.T) {
	input := "emphasis **here**\n```\n**kept verbatim**\n```"
	want := "emphasis \\*\\*here\\*\\*\n```\n**kept verbatim**\n```"
	if got := escapeMarkdown(input); got != want {
		t.Errorf("escapeMarkdown() = %q, want %q", got, want)
	}
}

func TestMarkdownExporter_Extension(t *testing.T) {
	if got := (&MarkdownExporter{}).Extension(); got != "md" {
		t.Errorf("Extension() = %q, want md", got)
	}
}
