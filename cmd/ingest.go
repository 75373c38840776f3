package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iksnae/chatvault/internal"
)

var (
	ingestFull      bool
	ingestSources   []string
	ingestLegacyDir string
	ingestJSON      bool
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Pull conversations from every store into the archive",
	Long: `Run one ingestion pass: discover conversations in the editor stores,
agent session stores, the chat service, and legacy exports, then upsert
them into the archive.

Passes are incremental by default: each source resumes from its last
committed watermark. Use --full to revisit everything; a full pass is
idempotent and never duplicates archived data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, profile, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if ingestLegacyDir != "" {
			profile.LegacyDir = ingestLegacyDir
		}
		sources, err := profile.BuildSources(ingestSources)
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			return fmt.Errorf("no ingestion sources available (checked: editor, agent, legacy, chatservice)")
		}

		syncer := internal.NewSyncer(store)
		var summary *internal.Summary
		if ingestJSON {
			summary, err = syncer.Run(ctx, sources, ingestFull)
			if summary != nil {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(summary)
			}
			return err
		}

		err = internal.ShowProgress(ctx, fmt.Sprintf("Ingesting from %d source(s)", len(sources)), func() error {
			var runErr error
			summary, runErr = syncer.Run(ctx, sources, ingestFull)
			return runErr
		})
		if summary != nil {
			printSummary(summary)
		}
		return err
	},
}

func printSummary(s *internal.Summary) {
	internal.PrintSuccess(fmt.Sprintf("Ingested %d conversation(s): %d created, %d updated, %d unchanged",
		s.ChatsSeen, s.ChatsCreated, s.ChatsUpdated, s.ChatsSkipped))
	internal.PrintInfo(fmt.Sprintf("Messages written: %d", s.MessagesWritten))
	if s.Errors > 0 {
		internal.PrintWarning(fmt.Sprintf("%d record(s) skipped with errors, re-run with --verbose for details", s.Errors))
	}
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestFull, "full", false, "Ignore watermarks and re-ingest everything")
	ingestCmd.Flags().StringSliceVar(&ingestSources, "source", nil, "Only ingest the named sources (editor, agent, legacy, chatservice)")
	ingestCmd.Flags().StringVar(&ingestLegacyDir, "legacy-dir", "", "Directory containing legacy chat_data_*.json exports")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "Print the pass summary as JSON")
}
