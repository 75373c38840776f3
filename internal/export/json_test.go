package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/iksnae/chatvault/internal"
)

func TestJSONExporter_Export(t *testing.T) {
	conv := internal.CreateTestConversation("conv-json")

	var buf bytes.Buffer
	exporter := &JSONExporter{}
	if err := exporter.Export(conv, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var decoded internal.Conversation
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.ExternalID != "conv-json" {
		t.Errorf("ExternalID = %q, want conv-json", decoded.ExternalID)
	}
	if len(decoded.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(decoded.Messages))
	}
	if decoded.Messages[0].Role != internal.RoleUser {
		t.Errorf("first role = %q, want user", decoded.Messages[0].Role)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("output should be indented")
	}
}

func TestJSONExporter_Export_NoMessages(t *testing.T) {
	conv := internal.CreateTestConversationWithMessages("conv-empty", nil)

	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(conv, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var decoded internal.Conversation
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Messages) != 0 {
		t.Errorf("messages = %d, want 0", len(decoded.Messages))
	}
}

func TestJSONExporter_Extension(t *testing.T) {
	if got := (&JSONExporter{}).Extension(); got != "json" {
		t.Errorf("Extension() = %q, want json", got)
	}
}
