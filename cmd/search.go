package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/iksnae/chatvault/internal/archive"
)

var searchLimit int

var (
	snippetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Padding(0, 2)

	rankStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search across archived messages",
	Long: `Search message content across every archived chat. Results are ranked
chats, each shown with a snippet of its best-matching message.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, _, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		query := strings.Join(args, " ")
		hits, err := store.Search(ctx, query, searchLimit)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		displayHits(query, hits)
		return nil
	},
}

func displayHits(query string, hits []*archive.SearchHit) {
	if len(hits) == 0 {
		fmt.Println(headerStyle.Render(fmt.Sprintf("🔍 No matches for %q", query)))
		return
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("🔍 %d chat(s) match %q", len(hits), query)))
	fmt.Println()

	for i, hit := range hits {
		title := hit.Title
		if title == "" {
			title = "Untitled"
		}

		shortID := hit.ExternalID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		fmt.Printf("%s %s %s\n",
			rankStyle.Render(fmt.Sprintf("%2d.", i+1)),
			titleStyle.Render(title),
			idStyle.Render(shortID))
		fmt.Printf("    %s\n", dateStyle.Render(fmt.Sprintf("%s · %s · %s",
			hit.Source, hit.Mode, formatRelativeDate(hit.UpdatedAt))))
		if snippet := strings.TrimSpace(hit.Snippet); snippet != "" {
			fmt.Println(snippetStyle.Render(snippet))
		}
		fmt.Println()
	}

	fmt.Println(idStyle.Render("💡 Tip: `chatvault show <id>` displays the full chat"))
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum chats to return")
}
