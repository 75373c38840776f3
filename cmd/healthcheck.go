package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/iksnae/chatvault/internal"
)

var (
	healthcheckVerbose bool
)

var (
	successStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	warningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	infoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("62")).
		Bold(true).
		Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check if chatvault can reach its stores and archive",
	Long: `Check the health of chatvault by verifying:
  • Storage path detection
  • Editor and agent store availability
  • Archive accessibility and schema
  • Search index consistency

This command is useful for debugging storage issues, especially in CI/CD environments.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		fmt.Println(sectionStyle.Render("🔍 ChatVault Health Check"))
		fmt.Println()

		// Step 1: Detect storage paths
		fmt.Println(infoStyle.Render("Step 1: Detecting storage paths..."))
		profile, err := loadProfile()
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Failed to load profile:"), err)
			os.Exit(1)
		}
		paths, err := profile.StoragePaths()
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Failed to detect storage paths:"), err)
			os.Exit(1)
		}
		fmt.Println(successStyle.Render("✅ Storage paths detected"))
		if healthcheckVerbose {
			fmt.Printf("   Base path: %s\n", paths.BasePath)
			fmt.Printf("   Global storage: %s\n", paths.GlobalStorage)
			fmt.Printf("   Workspace storage: %s\n", paths.WorkspaceStorage)
			fmt.Printf("   Agent storage: %s\n", paths.AgentStorage)
			fmt.Printf("   Archive: %s\n", profile.ArchivePath)
		}
		fmt.Println()

		// Step 2: Check editor stores
		fmt.Println(infoStyle.Render("Step 2: Checking editor stores..."))
		editorExists := paths.GlobalStorageExists()
		if editorExists {
			fmt.Println(successStyle.Render("✅ Global store found"))
			if healthcheckVerbose {
				fmt.Printf("   Database: %s\n", paths.GetGlobalStorageDBPath())
			}
		} else {
			fmt.Println(warningStyle.Render("⚠️  Global store not found"))
			if healthcheckVerbose {
				fmt.Printf("   Expected: %s\n", paths.GetGlobalStorageDBPath())
			}
		}
		workspaceStores, err := paths.FindWorkspaceStores()
		if err != nil {
			fmt.Println(warningStyle.Render("⚠️  Error scanning workspace storage:"), err)
		} else if len(workspaceStores) > 0 {
			fmt.Println(successStyle.Render(fmt.Sprintf("✅ Found %d workspace store(s)", len(workspaceStores))))
			if healthcheckVerbose {
				for i, ws := range workspaceStores {
					if i < 5 { // Show first 5
						fmt.Printf("   [%d] %s\n", i+1, ws.Hash)
					}
				}
				if len(workspaceStores) > 5 {
					fmt.Printf("   ... and %d more\n", len(workspaceStores)-5)
				}
			}
		} else {
			fmt.Println(warningStyle.Render("⚠️  No workspace stores found"))
		}
		fmt.Println()

		// Step 3: Check agent storage
		fmt.Println(infoStyle.Render("Step 3: Checking agent CLI storage..."))
		agentExists := paths.HasAgentStorage()
		var storeDBs []string
		if agentExists {
			fmt.Println(successStyle.Render("✅ Agent storage directory exists"))
			var dbErr error
			storeDBs, dbErr = paths.FindAgentStoreDBs()
			if dbErr != nil {
				fmt.Println(warningStyle.Render("⚠️  Error scanning agent storage:"), dbErr)
			} else if len(storeDBs) > 0 {
				fmt.Println(successStyle.Render(fmt.Sprintf("✅ Found %d session database(s)", len(storeDBs))))
				if healthcheckVerbose {
					for i, db := range storeDBs {
						if i < 5 { // Show first 5
							fmt.Printf("   [%d] %s\n", i+1, db)
						}
					}
					if len(storeDBs) > 5 {
						fmt.Printf("   ... and %d more\n", len(storeDBs)-5)
					}
				}
			} else {
				fmt.Println(warningStyle.Render("⚠️  Agent storage directory exists but no store.db files found"))
				if healthcheckVerbose {
					fmt.Printf("   Expected pattern: %s/{hash}/{session-id}/store.db\n", paths.AgentStorage)
				}
			}
		} else {
			fmt.Println(warningStyle.Render("⚠️  Agent storage directory not found"))
			if healthcheckVerbose && paths.AgentStorage != "" {
				fmt.Printf("   Expected: %s\n", paths.AgentStorage)
				fmt.Printf("   This directory is created when the agent CLI is first used\n")
			}
		}
		if profile.ServiceURL != "" {
			fmt.Println(successStyle.Render("✅ Chat service configured"))
			if healthcheckVerbose {
				fmt.Printf("   URL: %s\n", profile.ServiceURL)
			}
		}
		fmt.Println()

		// Step 4: Open the archive
		fmt.Println(infoStyle.Render("Step 4: Opening the archive..."))
		store, _, err := openArchive(ctx)
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Failed to open archive"))
			fmt.Println()
			fmt.Println("Error details:")
			fmt.Println(err)
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()
		fmt.Println(successStyle.Render("✅ Archive open, schema up to date"))
		fmt.Println()

		// Step 5: Count archived data
		fmt.Println(infoStyle.Render("Step 5: Reading archive contents..."))
		chats, err := store.CountChats(ctx)
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Failed to count chats:"), err)
			os.Exit(1)
		}
		messages, err := store.CountMessages(ctx)
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Failed to count messages:"), err)
			os.Exit(1)
		}
		if chats > 0 {
			fmt.Println(successStyle.Render(fmt.Sprintf("✅ %d chat(s), %d message(s) archived", chats, messages)))
		} else {
			fmt.Println(warningStyle.Render("⚠️  Archive is empty"))
			fmt.Println("   Run `chatvault ingest` to pull conversations in")
		}
		if healthcheckVerbose {
			states, err := store.SyncStates(ctx)
			if err == nil {
				for _, st := range states {
					fmt.Printf("   %s: watermark %s, last pass %s\n",
						st.Source, internal.FormatTimestamp(st.Watermark), internal.FormatTimestamp(st.LastRunAt))
				}
			}
		}
		fmt.Println()

		// Step 6: Check the search index
		fmt.Println(infoStyle.Render("Step 6: Checking search index..."))
		status, err := store.CheckSearchIndex(ctx)
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Failed to check search index:"), err)
			os.Exit(1)
		}
		if status.Consistent() {
			fmt.Println(successStyle.Render(fmt.Sprintf("✅ Search index consistent (%d message(s) indexed)", status.Indexed)))
		} else {
			fmt.Println(warningStyle.Render("⚠️  Search index out of sync: " + status.String()))
			fmt.Println("   Run `chatvault reindex` to rebuild it")
		}
		fmt.Println()

		// Summary
		fmt.Println(sectionStyle.Render("📊 Summary"))
		fmt.Println()

		haveSource := editorExists || len(workspaceStores) > 0 || len(storeDBs) > 0 || profile.ServiceURL != ""
		switch {
		case haveSource && chats > 0:
			fmt.Println(successStyle.Render("✅ Health check passed!"))
			fmt.Println(successStyle.Render("   • Stores: Available"))
			fmt.Println(successStyle.Render(fmt.Sprintf("   • Archive: %d chat(s)", chats)))
			return nil
		case haveSource:
			fmt.Println(warningStyle.Render("⚠️  Stores available but nothing archived yet"))
			fmt.Println("   • Run `chatvault ingest` to populate the archive")
			return nil
		case chats > 0:
			fmt.Println(warningStyle.Render("⚠️  Archive readable but no live stores found"))
			fmt.Println("   • Existing data remains searchable")
			fmt.Println("   • New conversations will not be picked up on this machine")
			return nil
		default:
			fmt.Println(errorStyle.Render("❌ Health check failed"))
			fmt.Println("   • No store is available and the archive is empty")
			return fmt.Errorf("health check failed: no storage available")
		}
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckVerbose, "verbose", "v", false, "Show detailed diagnostic information")
}
