package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iksnae/chatvault/internal"
)

var reindexVacuum bool

// reindexCmd represents the reindex command
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the full-text search index",
	Long: `Drop and rebuild the full-text search index from the archived
messages. Use this if healthcheck reports the index out of sync.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, _, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		err = internal.ShowProgress(ctx, "Rebuilding search index", func() error {
			return store.RebuildSearchIndex(ctx)
		})
		if err != nil {
			return fmt.Errorf("failed to rebuild search index: %w", err)
		}

		status, err := store.CheckSearchIndex(ctx)
		if err != nil {
			return fmt.Errorf("failed to verify search index: %w", err)
		}
		if !status.Consistent() {
			return fmt.Errorf("search index still inconsistent after rebuild: %s", status)
		}

		if reindexVacuum {
			if err := internal.ShowProgress(ctx, "Compacting archive", func() error {
				return store.Vacuum(ctx)
			}); err != nil {
				return fmt.Errorf("failed to compact archive: %w", err)
			}
		}

		internal.PrintSuccess(fmt.Sprintf("Search index rebuilt: %d message(s) indexed", status.Indexed))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
	reindexCmd.Flags().BoolVar(&reindexVacuum, "vacuum", false, "Compact the archive file after reindexing")
}
