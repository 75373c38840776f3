package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/iksnae/chatvault/internal"
	"github.com/iksnae/chatvault/internal/archive"
)

var (
	showLimit int
	showSince string
)

var (
	// Styles for show command
	chatHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1).
			MarginBottom(1)

	chatMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <chat-id>",
	Short: "Show messages for a specific chat",
	Long:  `Display one archived chat with its messages, file references, and tags.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, _, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		chat, err := resolveChat(ctx, store, args[0])
		if err != nil {
			return err
		}

		detail, err := store.GetChatDetail(ctx, chat.ExternalID)
		if err != nil {
			return fmt.Errorf("failed to load chat: %w", err)
		}

		displayChatHeader(detail)

		messages := detail.Messages
		if showSince != "" {
			sinceMs, err := parseTimeFlag(showSince)
			if err != nil {
				return fmt.Errorf("invalid --since: %w", err)
			}
			filtered := make([]*archive.Message, 0, len(messages))
			for _, msg := range messages {
				if msg.CreatedAt >= sinceMs {
					filtered = append(filtered, msg)
				}
			}
			messages = filtered
		}

		total := len(messages)
		if showLimit > 0 && showLimit < total {
			messages = messages[:showLimit]
		}

		for i, msg := range messages {
			displayMessage(i+1, msg, total)
		}

		if showLimit > 0 && showLimit < total {
			remaining := total - showLimit
			fmt.Println()
			fmt.Println(timestampStyle.Render(fmt.Sprintf("... (%d more message(s))", remaining)))
		}

		return nil
	},
}

// resolveChat finds a chat by its external id, accepting any unique
// prefix of one
func resolveChat(ctx context.Context, store *archive.Store, id string) (*archive.Chat, error) {
	chat, err := store.GetChat(ctx, id)
	if err != nil {
		return nil, err
	}
	if chat != nil {
		return chat, nil
	}

	chats, err := store.ListChats(ctx, archive.ChatFilter{})
	if err != nil {
		return nil, err
	}
	var matches []*archive.Chat
	for _, c := range chats {
		if strings.HasPrefix(c.ExternalID, id) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("chat not found: %s (use 'chatvault list' to see archived chats)", id)
	default:
		return nil, fmt.Errorf("chat id %s is ambiguous (%d matches), use more characters", id, len(matches))
	}
}

func displayChatHeader(detail *archive.ChatDetail) {
	title := detail.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Println(chatHeaderStyle.Render(fmt.Sprintf("💬 %s", title)))

	var metaParts []string
	if ts := internal.FormatTimestamp(detail.CreatedAt); ts != "" {
		metaParts = append(metaParts, fmt.Sprintf("Created: %s", ts))
	}
	if ts := internal.FormatTimestamp(detail.UpdatedAt); ts != "" {
		metaParts = append(metaParts, fmt.Sprintf("Updated: %s", ts))
	}
	metaParts = append(metaParts, fmt.Sprintf("Messages: %d", len(detail.Messages)))
	metaParts = append(metaParts, fmt.Sprintf("Source: %s", detail.Source))
	metaParts = append(metaParts, fmt.Sprintf("Mode: %s", detail.Mode))
	if detail.WorkspaceHash != "" {
		metaParts = append(metaParts, fmt.Sprintf("Workspace: %s", detail.WorkspaceHash))
	}
	fmt.Println(chatMetaStyle.Render(strings.Join(metaParts, " • ")))

	if len(detail.Tags) > 0 {
		fmt.Println(chatMetaStyle.Render("Tags: " + strings.Join(detail.Tags, ", ")))
	}
	if len(detail.Files) > 0 {
		fmt.Println(chatMetaStyle.Render(fmt.Sprintf("Files: %d referenced", len(detail.Files))))
	}
	fmt.Println()
}

func displayMessage(index int, msg *archive.Message, total int) {
	var roleStyle lipgloss.Style
	var roleLabel string

	switch msg.Role {
	case string(internal.RoleUser):
		roleStyle = userMessageStyle
		roleLabel = "👤 User"
	case string(internal.RoleAssistant):
		roleStyle = assistantMessageStyle
		roleLabel = "🤖 Assistant"
	default:
		roleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
		roleLabel = fmt.Sprintf("🔧 %s", msg.Role)
	}
	switch msg.Kind {
	case string(internal.KindThinking):
		roleLabel += " · thinking"
	case string(internal.KindToolCall):
		roleLabel += " · tool call"
	}

	header := roleStyle.Render(roleLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if msg.CreatedAt > 0 {
		header += " " + timestampStyle.Render(time.UnixMilli(msg.CreatedAt).Format("15:04:05"))
	}
	fmt.Println(header)

	content := strings.TrimSpace(msg.Text)
	if content != "" {
		content = wrapText(content, 80)
		fmt.Println(messageContentStyle.Render(content))
	} else {
		fmt.Println(messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	}

	fmt.Println()
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		// Wrap long lines
		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
					currentLine = word
				} else {
					wrapped = append(wrapped, word)
					currentLine = ""
				}
			} else {
				if currentLine == "" {
					currentLine = word
				} else {
					currentLine += " " + word
				}
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVar(&showLimit, "limit", 0, "Limit number of messages shown (0 = all)")
	showCmd.Flags().StringVar(&showSince, "since", "", "Only show messages at or after this time (RFC3339 or YYYY-MM-DD)")
}
