package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iksnae/chatvault/internal"
	"github.com/iksnae/chatvault/internal/archive"
)

var (
	verbose        bool
	snapshotStores bool
	version        string = "dev"
	commit         string = "unknown"
	date           string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatvault",
	Short: "Archive and search chat sessions from your editors and agents",
	Long: `A CLI tool that gathers chat sessions from every store on your machine
into one searchable archive.

chatvault reads the editor's per-workspace and global databases, agent CLI
session stores, a remote chat service, and legacy JSON exports, then keeps
them reconciled in a single local database with full-text search.

Features:
  • Incremental ingestion: re-runs only pick up what changed
  • Full-text search across every archived message
  • Workspace-aware organization and filtering
  • Tags and file-reference tracking per chat
  • Export in multiple formats (JSONL, Markdown, YAML, JSON)
  • Watch mode that archives new messages as they are written

Quick Start:
  chatvault ingest                  # Pull everything into the archive
  chatvault list                    # List archived chats
  chatvault search "tls handshake"  # Search message content
  chatvault show <chat-id>          # View one chat
  chatvault export --format md      # Export as Markdown

For detailed usage, see: https://github.com/iksnae/chatvault`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().String("data", "", "Archive directory (default ~/.chatvault)")
	rootCmd.PersistentFlags().String("storage", "", "Custom editor storage location")
	rootCmd.PersistentFlags().String("agent-storage", "", "Custom agent session storage location")
	rootCmd.PersistentFlags().BoolVar(&snapshotStores, "copy", false, "Copy store files to a temporary location before reading to avoid locking issues")

	for _, key := range []string{"data", "storage", "agent-storage"} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("chatvault")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadProfile resolves the runtime configuration from flags, environment
// and defaults
func loadProfile() (*internal.Profile, error) {
	profile := &internal.Profile{
		Data:        viper.GetString("data"),
		StorageRoot: viper.GetString("storage"),
		AgentRoot:   viper.GetString("agent-storage"),
		Snapshot:    snapshotStores,
		Verbose:     verbose,
	}
	profile.FromEnv()
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

// openArchive opens the canonical archive and applies schema migrations.
// Migration failure is fatal: an incompatible database must never be
// written to.
func openArchive(ctx context.Context) (*archive.Store, *internal.Profile, error) {
	profile, err := loadProfile()
	if err != nil {
		return nil, nil, err
	}
	store, err := archive.Open(profile.ArchivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("archive schema check failed: %w", err)
	}
	return store, profile, nil
}
