package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/iksnae/chatvault/internal"
)

// tagsCmd represents the tags command
var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage chat tags",
	Long: `Manage the tags attached to archived chats. Tags are normalized to
lowercase and survive re-ingestion.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Bare `chatvault tags` lists, same as `chatvault tags list`.
		return tagsListCmd.RunE(cmd, args)
	},
}

var tagsAddCmd = &cobra.Command{
	Use:   "add <chat-id> <tag>...",
	Short: "Attach tags to a chat",
	Args:  cobra.MinimumNArgs(2),
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

		for _, tag := range args[1:] {
			if err := store.AddTag(ctx, chat.ID, tag); err != nil {
				return fmt.Errorf("failed to tag chat: %w", err)
			}
		}
		internal.PrintSuccess(fmt.Sprintf("Tagged %s with %s", chat.ExternalID, strings.Join(args[1:], ", ")))
		return nil
	},
}

var tagsRmCmd = &cobra.Command{
	Use:   "rm <chat-id> <tag>...",
	Short: "Remove tags from a chat",
	Args:  cobra.MinimumNArgs(2),
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

		for _, tag := range args[1:] {
			removed, err := store.RemoveTag(ctx, chat.ID, tag)
			if err != nil {
				return fmt.Errorf("failed to untag chat: %w", err)
			}
			if !removed {
				internal.PrintWarning(fmt.Sprintf("Chat %s did not have tag %q", chat.ExternalID, tag))
			}
		}
		return nil
	},
}

var tagsListCmd = &cobra.Command{
	Use:   "list [chat-id]",
	Short: "List tags, or the tags on one chat",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, _, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if len(args) == 1 {
			chat, err := resolveChat(ctx, store, args[0])
			if err != nil {
				return err
			}
			tags, err := store.ChatTags(ctx, chat.ID)
			if err != nil {
				return fmt.Errorf("failed to list tags: %w", err)
			}
			if len(tags) == 0 {
				fmt.Printf("%s has no tags\n", chat.ExternalID)
				return nil
			}
			fmt.Println(strings.Join(tags, "\n"))
			return nil
		}

		tags, err := store.ListTags(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tags: %w", err)
		}
		if len(tags) == 0 {
			fmt.Println(headerStyle.Render("🏷  No tags yet"))
			fmt.Println(idStyle.Render("💡 Tip: `chatvault tags add <chat-id> <tag>` adds one"))
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("🏷  %d tag(s)", len(tags))))
		fmt.Println()

		w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', tabwriter.AlignRight)
		_, _ = fmt.Fprintln(w, titleStyle.Render("Tag")+"\t"+titleStyle.Render("Chats")+"\t")
		for _, tc := range tags {
			_, _ = fmt.Fprintf(w, "%s\t%s\t\n", tc.Tag, countStyle.Render(fmt.Sprintf("%d", tc.Chats)))
		}
		_ = w.Flush()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tagsCmd)
	tagsCmd.AddCommand(tagsAddCmd)
	tagsCmd.AddCommand(tagsRmCmd)
	tagsCmd.AddCommand(tagsListCmd)
}
