package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iksnae/chatvault/internal"
)

// importLegacyCmd represents the import-legacy command
var importLegacyCmd = &cobra.Command{
	Use:   "import-legacy <file-or-dir>...",
	Short: "Import legacy chat_data_*.json exports",
	Long: `Import conversations from legacy per-workspace JSON exports.

Arguments may be individual chat_data_<hash>.json files or directories,
which are walked for matching files. Importing the same export twice is
safe: records are matched by their derived ids and updated in place.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var files []string
		for _, arg := range args {
			found, err := internal.FindLegacyChatFiles(arg)
			if err != nil {
				return err
			}
			files = append(files, found...)
		}
		if len(files) == 0 {
			internal.PrintWarning("No chat_data_*.json files found")
			return nil
		}

		store, _, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		syncer := internal.NewSyncer(store)
		source := internal.NewLegacySource(files)

		var summary *internal.Summary
		err = internal.ShowProgress(ctx, fmt.Sprintf("Importing %d legacy file(s)", len(files)), func() error {
			var runErr error
			summary, runErr = syncer.Run(ctx, []internal.Source{source}, true)
			return runErr
		})
		if summary != nil {
			printSummary(summary)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(importLegacyCmd)
}
