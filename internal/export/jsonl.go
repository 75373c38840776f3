package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/chatvault/internal"
)

// JSONLExporter exports conversations in JSONL format (one message per line)
type JSONLExporter struct{}

// Export writes each message as a single JSON line
func (e *JSONLExporter) Export(conv *internal.Conversation, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range conv.Messages {
		obj := map[string]interface{}{
			"role": msg.Role,
			"kind": msg.Kind,
			"text": msg.Text,
		}

		if ts := internal.FormatTimestamp(msg.CreatedAt); ts != "" {
			obj["timestamp"] = ts
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
