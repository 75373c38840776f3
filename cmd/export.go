package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iksnae/chatvault/internal"
	"github.com/iksnae/chatvault/internal/archive"
	"github.com/iksnae/chatvault/internal/export"
)

var (
	exportFormat    string
	exportOut       string
	exportWorkspace string
	exportTag       string
	exportSource    string
	exportChatID    string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export archived chats to files",
	Long: `Export archived chats to various formats (jsonl, md, yaml, json).

You can export the whole archive, filter by workspace, tag, or source,
or export a specific chat by ID. Use 'chatvault list' to see chat IDs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, _, err := openArchive(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		var chats []*archive.Chat
		if exportChatID != "" {
			chat, err := resolveChat(ctx, store, exportChatID)
			if err != nil {
				return err
			}
			chats = []*archive.Chat{chat}
		} else {
			chats, err = store.ListChats(ctx, archive.ChatFilter{
				WorkspaceHash: exportWorkspace,
				Tag:           exportTag,
				Source:        exportSource,
			})
			if err != nil {
				return fmt.Errorf("failed to list chats: %w", err)
			}
		}
		if len(chats) == 0 {
			internal.PrintWarning("Nothing to export")
			return nil
		}

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(exportOut, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		exported := 0
		err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d chat(s) to %s", len(chats), exportOut), func() error {
			for _, chat := range chats {
				detail, err := store.GetChatDetail(ctx, chat.ExternalID)
				if err != nil {
					internal.LogError("Failed to load chat %s: %v", chat.ExternalID, err)
					continue
				}

				filename := fmt.Sprintf("chat_%s.%s", chat.ExternalID, exporter.Extension())
				path := filepath.Join(exportOut, filename)

				file, err := os.Create(path)
				if err != nil {
					internal.LogError("Failed to create file %s: %v", path, err)
					continue
				}
				if err := exporter.Export(conversationFromDetail(detail), file); err != nil {
					_ = file.Close()
					internal.LogError("Failed to export chat %s: %v", chat.ExternalID, err)
					continue
				}
				if err := file.Close(); err != nil {
					internal.LogWarn("Failed to close file %s: %v", path, err)
					continue
				}
				exported++
			}
			return nil
		})
		if err != nil {
			return err
		}

		internal.PrintSuccess(fmt.Sprintf("Export complete: %d chat(s) exported to %s", exported, exportOut))
		return nil
	},
}

// conversationFromDetail rebuilds the normalized conversation shape from
// archived rows so the exporters have one input type
func conversationFromDetail(detail *archive.ChatDetail) *internal.Conversation {
	conv := &internal.Conversation{
		ExternalID:    detail.ExternalID,
		Title:         detail.Title,
		Mode:          detail.Mode,
		Source:        detail.Source,
		WorkspaceHash: detail.WorkspaceHash,
		CreatedAt:     detail.CreatedAt,
		UpdatedAt:     detail.UpdatedAt,
		Messages:      make([]internal.Message, 0, len(detail.Messages)),
		Files:         detail.Files,
	}
	for _, m := range detail.Messages {
		msg := internal.Message{
			Role:      internal.Role(m.Role),
			Kind:      internal.MessageKind(m.Kind),
			Text:      m.Text,
			RichText:  m.RichText,
			NativeID:  m.NativeID,
			CreatedAt: m.CreatedAt,
		}
		if m.RawJSON != "" {
			msg.Raw = json.RawMessage(m.RawJSON)
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&exportWorkspace, "workspace", "", "Only export chats linked to this workspace hash")
	exportCmd.Flags().StringVar(&exportTag, "tag", "", "Only export chats carrying this tag")
	exportCmd.Flags().StringVar(&exportSource, "source", "", "Only export chats from this source")
	exportCmd.Flags().StringVar(&exportChatID, "id", "", "Export a specific chat by ID")
}
