package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/chatvault/internal"
)

// MarkdownExporter exports conversations in Markdown format
type MarkdownExporter struct{}

// Export writes a conversation as a readable Markdown document
func (e *MarkdownExporter) Export(conv *internal.Conversation, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# %s\n\n", conv.DisplayTitle())

	_, _ = fmt.Fprintf(w, "**Source:** %s  \n", conv.Source)
	_, _ = fmt.Fprintf(w, "**Mode:** %s  \n", conv.Mode)
	if conv.WorkspacePath != "" {
		_, _ = fmt.Fprintf(w, "**Workspace:** %s  \n", conv.WorkspacePath)
	} else if conv.WorkspaceHash != "" {
		_, _ = fmt.Fprintf(w, "**Workspace:** %s  \n", conv.WorkspaceHash)
	}
	if ts := internal.FormatTimestamp(conv.UpdatedAt); ts != "" {
		_, _ = fmt.Fprintf(w, "**Updated:** %s  \n", ts)
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(conv.Messages))

	if len(conv.Files) > 0 {
		_, _ = fmt.Fprintf(w, "**Files:**\n\n")
		for _, f := range conv.Files {
			_, _ = fmt.Fprintf(w, "- `%s`\n", f)
		}
		_, _ = fmt.Fprintf(w, "\n")
	}

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, msg := range conv.Messages {
		timestamp := ""
		if ts := internal.FormatTimestamp(msg.CreatedAt); ts != "" {
			timestamp = fmt.Sprintf(" (%s)", ts)
		}

		label := string(msg.Role)
		if msg.Kind != internal.KindResponse {
			label = fmt.Sprintf("%s [%s]", msg.Role, msg.Kind)
		}

		content := escapeMarkdown(msg.Text)

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", label, timestamp, content)

		if i < len(conv.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			// Escape markdown syntax outside code blocks
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
