package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/iksnae/chatvault/internal/archive"
)

var (
	listWorkspace string
	listTag       string
	listMode      string
	listSource    string
	listSince     string
	listUntil     string
	listLimit     int
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	workspaceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived chats",
	Long:  `List chats in the archive, optionally filtered by workspace, tag, mode, source, or date range.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, _, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		filter := archive.ChatFilter{
			WorkspaceHash: listWorkspace,
			Tag:           listTag,
			Mode:          listMode,
			Source:        listSource,
			Limit:         listLimit,
		}
		if filter.Since, err = parseTimeFlag(listSince); err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		if filter.Until, err = parseTimeFlag(listUntil); err != nil {
			return fmt.Errorf("invalid --until: %w", err)
		}

		chats, err := store.ListChats(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list chats: %w", err)
		}

		displayChats(chats)
		return nil
	},
}

// parseTimeFlag accepts RFC 3339 or a bare date and returns epoch
// milliseconds. Empty input is 0.
func parseTimeFlag(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UnixMilli(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return 0, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got %q", value)
	}
	return t.UnixMilli(), nil
}

// formatRelativeDate renders a timestamp the way the list and search
// tables show it: tighter the more recent it is.
func formatRelativeDate(ms int64) string {
	if ms == 0 {
		return "-"
	}
	t := time.UnixMilli(ms)
	diff := time.Since(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func displayChats(chats []*archive.Chat) {
	if len(chats) == 0 {
		fmt.Println(headerStyle.Render("📋 No chats found"))
		return
	}

	header := headerStyle.Render(fmt.Sprintf("📋 Found %d chat(s)", len(chats)))
	fmt.Println(header)
	fmt.Println()

	// Use tabwriter for aligned columns with better spacing
	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', tabwriter.AlignRight)

	// Header row
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Mode")+"\t"+titleStyle.Render("Msgs")+"\t"+titleStyle.Render("Updated")+"\t"+titleStyle.Render("Workspace")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 120))

	for _, chat := range chats {
		title := chat.Title
		if title == "" {
			title = "Untitled"
		}
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		title = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Render(title)

		msgCount := countStyle.Render(strconv.Itoa(chat.MessagesCount))
		updated := dateStyle.Render(formatRelativeDate(chat.UpdatedAt))

		workspace := dateStyle.Render("-")
		if chat.WorkspaceHash != "" {
			hash := chat.WorkspaceHash
			if len(hash) > 12 {
				hash = hash[:12]
			}
			workspace = workspaceStyle.Render(hash)
		}

		// Show short ID (first 8 chars) for readability, but it's the full external id
		shortID := chat.ExternalID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		id := idStyle.Render(shortID)

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n", id, title, chat.Mode, msgCount, updated, workspace)
	}

	_ = w.Flush()
	fmt.Println()
	fmt.Println(idStyle.Render("💡 Tip: Use the full ID (e.g., ") +
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(chats[0].ExternalID) +
		idStyle.Render(") with `chatvault show <id>`"))
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listWorkspace, "workspace", "", "Filter by workspace hash")
	listCmd.Flags().StringVar(&listTag, "tag", "", "Filter by tag")
	listCmd.Flags().StringVar(&listMode, "mode", "", "Filter by mode (chat, agent, edit, ask, plan)")
	listCmd.Flags().StringVar(&listSource, "source", "", "Filter by source (editor, agent, legacy, chatservice)")
	listCmd.Flags().StringVar(&listSince, "since", "", "Only chats updated at or after this time (RFC3339 or YYYY-MM-DD)")
	listCmd.Flags().StringVar(&listUntil, "until", "", "Only chats updated at or before this time (RFC3339 or YYYY-MM-DD)")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum chats to list (0 = all)")
}
