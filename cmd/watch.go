package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iksnae/chatvault/internal"
)

var watchDebounce time.Duration

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the stores and ingest changes as they settle",
	Long: `Watch the editor and agent session stores for changes and run an
incremental ingestion pass each time activity settles.

Bursts of writes are coalesced: a pass starts only after the stores have
been quiet for the debounce interval. Stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, profile, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		sources, err := profile.BuildSources(nil)
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			return fmt.Errorf("no ingestion sources available (checked: editor, agent, legacy, chatservice)")
		}

		syncer := internal.NewSyncer(store)
		runPass := func(ctx context.Context) {
			summary, err := syncer.Run(ctx, sources, false)
			if err != nil {
				internal.LogWarn("ingestion pass failed: %v", err)
			}
			if summary != nil && summary.ChatsCreated+summary.ChatsUpdated > 0 {
				internal.PrintInfo(fmt.Sprintf("Archived %d new, %d updated conversation(s)",
					summary.ChatsCreated, summary.ChatsUpdated))
			}
		}

		// Catch up before settling into the watch loop.
		runPass(ctx)

		paths, err := profile.StoragePaths()
		if err != nil {
			return err
		}
		internal.PrintInfo(fmt.Sprintf("Watching stores (debounce %s), Ctrl-C to stop", watchDebounce))

		watcher := internal.NewWatcher(paths, watchDebounce, runPass)
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", internal.DefaultDebounce, "How long store activity must settle before ingesting")
}
