package internal

import (
	"encoding/json"
	"strings"
	"time"
)

// Role identifies who produced a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageKind classifies a message by its dominant payload
type MessageKind string

const (
	// KindResponse is ordinary text content
	KindResponse MessageKind = "response"
	// KindToolCall is a tool invocation with no prose of its own
	KindToolCall MessageKind = "tool_call"
	// KindThinking carries a reasoning trace, with or without text
	KindThinking MessageKind = "thinking"
	// KindEmpty has no extractable content at all
	KindEmpty MessageKind = "empty"
)

// Source names for the stores conversations are discovered in
const (
	SourceEditor      = "editor"
	SourceAgent       = "agent"
	SourceChatService = "chatservice"
	SourceLegacy      = "legacy"
)

// Conversation is the normalized form every source resolver produces.
// Nothing loosely typed crosses this boundary: timestamps are epoch
// milliseconds UTC, roles and kinds are closed sets.
type Conversation struct {
	ExternalID      string    `json:"external_id" yaml:"external_id"`
	Title           string    `json:"title,omitempty" yaml:"title,omitempty"`
	Mode            string    `json:"mode" yaml:"mode"`
	Source          string    `json:"source" yaml:"source"`
	WorkspaceHash   string    `json:"workspace_hash,omitempty" yaml:"workspace_hash,omitempty"`
	WorkspaceFolder string    `json:"workspace_folder,omitempty" yaml:"workspace_folder,omitempty"`
	WorkspacePath   string    `json:"workspace_path,omitempty" yaml:"workspace_path,omitempty"`
	CreatedAt       int64     `json:"created_at" yaml:"created_at"`
	UpdatedAt       int64     `json:"updated_at" yaml:"updated_at"`
	Messages        []Message `json:"messages" yaml:"messages"`
	Files           []string  `json:"files,omitempty" yaml:"files,omitempty"`
}

// Message is one normalized conversation entry
type Message struct {
	Role      Role        `json:"role" yaml:"role"`
	Kind      MessageKind `json:"kind" yaml:"kind"`
	Text      string      `json:"text" yaml:"text"`
	RichText  string      `json:"rich_text,omitempty" yaml:"rich_text,omitempty"`
	NativeID  string      `json:"native_id,omitempty" yaml:"native_id,omitempty"`
	CreatedAt int64       `json:"created_at,omitempty" yaml:"created_at,omitempty"`

	Raw json.RawMessage `json:"-" yaml:"-"`
}

// Modes the archive recognizes. Unknown modes normalize to ModeChat.
const (
	ModeChat  = "chat"
	ModeAgent = "agent"
	ModeEdit  = "edit"
	ModeAsk   = "ask"
	ModePlan  = "plan"
)

var knownModes = map[string]string{
	"chat":     ModeChat,
	"agent":    ModeAgent,
	"edit":     ModeEdit,
	"ask":      ModeAsk,
	"plan":     ModePlan,
	"composer": ModeEdit,
	"normal":   ModeChat,
	"debug":    ModeAgent,
}

// NormalizeMode maps a store's mode markers onto the archive's closed set.
// forceMode wins over unifiedMode when both are present.
func NormalizeMode(forceMode, unifiedMode string) string {
	for _, raw := range []string{forceMode, unifiedMode} {
		if raw == "" {
			continue
		}
		if mode, ok := knownModes[strings.ToLower(strings.TrimSpace(raw))]; ok {
			return mode
		}
		LogDebug("unknown conversation mode %q, treating as %s", raw, ModeChat)
		return ModeChat
	}
	return ModeChat
}

// DisplayTitle returns the conversation title, deriving one from the first
// user message when the store never named it.
func (c *Conversation) DisplayTitle() string {
	if strings.TrimSpace(c.Title) != "" {
		return c.Title
	}
	for _, m := range c.Messages {
		if m.Role != RoleUser {
			continue
		}
		t := strings.TrimSpace(m.Text)
		if t == "" {
			continue
		}
		if len(t) > 60 {
			return t[:57] + "..."
		}
		return t
	}
	return "Untitled"
}

// UpdatedTime returns the conversation's update timestamp as UTC time
func (c *Conversation) UpdatedTime() time.Time {
	return time.UnixMilli(c.UpdatedAt).UTC()
}

// FormatTimestamp renders epoch milliseconds as RFC 3339 UTC for display
// and export. Zero renders as the empty string.
func FormatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
