package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FlexTime is a timestamp field that source stores write in two shapes:
// integer milliseconds since the Unix epoch, or an RFC 3339 string. It
// normalizes to milliseconds on unmarshal. The zero value means "absent".
type FlexTime int64

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*t = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*t = 0
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp string %q: %w", s, err)
		}
		*t = FlexTime(parsed.UnixMilli())
		return nil
	}
	// Some stores write fractional milliseconds.
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	*t = FlexTime(int64(f))
	return nil
}

func (t FlexTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(t), 10)), nil
}

// Millis returns the timestamp as milliseconds since the Unix epoch.
func (t FlexTime) Millis() int64 {
	return int64(t)
}

// Time returns the timestamp as a UTC time.Time. Zero FlexTime maps to the
// zero time.
func (t FlexTime) Time() time.Time {
	if t == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(t)).UTC()
}

// ThinkingBlock is an assistant reasoning trace attached to a bubble
type ThinkingBlock struct {
	Text      string `json:"text,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// ToolCall is the decoded form of a bubble's tool invocation payload
type ToolCall struct {
	Name         string          `json:"name,omitempty"`
	Tool         string          `json:"tool,omitempty"`
	RawArgs      json.RawMessage `json:"rawArgs,omitempty"`
	Params       json.RawMessage `json:"params,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	Status       string          `json:"status,omitempty"`
	UserDecision string          `json:"userDecision,omitempty"`
}

// DisplayName returns the best human-readable name for the tool
func (tc *ToolCall) DisplayName() string {
	if tc.Name != "" {
		return tc.Name
	}
	return tc.Tool
}

// RawBubble represents one message record from an editor-family store. In
// split-layout composers bubbles live under their own keys; in inline
// layouts they are embedded in the composer body.
type RawBubble struct {
	BubbleID       string          `json:"bubbleId"`
	ComposerID     string          `json:"chatId"`
	Type           int             `json:"type"` // 1=user, 2=assistant
	Text           string          `json:"text,omitempty"`
	RichText       string          `json:"richText,omitempty"`
	Thinking       *ThinkingBlock  `json:"thinking,omitempty"`
	CodeBlocks     []CodeBlock     `json:"codeBlocks,omitempty"`
	ToolFormerData json.RawMessage `json:"toolFormerData,omitempty"`
	RelevantFiles  []string        `json:"relevantFiles,omitempty"`
	Timestamp      FlexTime        `json:"timestamp,omitempty"`
	CreatedAt      FlexTime        `json:"createdAt,omitempty"`

	// Raw holds the record as stored, for archival alongside the
	// normalized fields.
	Raw json.RawMessage `json:"-"`
}

// When returns the bubble's timestamp in milliseconds. Newer stores write
// createdAt, older ones timestamp.
func (rb *RawBubble) When() int64 {
	if rb.CreatedAt != 0 {
		return rb.CreatedAt.Millis()
	}
	return rb.Timestamp.Millis()
}

// GetTimestamp returns the bubble time as a time.Time
func (rb *RawBubble) GetTimestamp() time.Time {
	return FlexTime(rb.When()).Time()
}

// ToolCallData decodes the bubble's tool payload, if any
func (rb *RawBubble) ToolCallData() (*ToolCall, bool) {
	if len(rb.ToolFormerData) == 0 || string(rb.ToolFormerData) == "null" {
		return nil, false
	}
	var tc ToolCall
	if err := json.Unmarshal(rb.ToolFormerData, &tc); err != nil {
		// Payload present but undecodable still counts as tool data.
		return &ToolCall{}, true
	}
	return &tc, true
}

// HasThinking reports whether the bubble carries a non-empty reasoning trace
func (rb *RawBubble) HasThinking() bool {
	return rb.Thinking != nil && strings.TrimSpace(rb.Thinking.Text) != ""
}

// CodeBlock represents a code block in a message
type CodeBlock struct {
	Language string `json:"language,omitempty"`
	Content  string `json:"content,omitempty"`
	Code     string `json:"code,omitempty"`
}

// Body returns whichever content field the store populated
func (cb *CodeBlock) Body() string {
	if cb.Content != "" {
		return cb.Content
	}
	return cb.Code
}

// Layout identifies how a composer record carries its messages
type Layout int

const (
	// LayoutEmpty is a composer with no messages in either shape
	LayoutEmpty Layout = iota
	// LayoutInline embeds full message bodies in the composer record
	LayoutInline
	// LayoutSplit stores only ordered headers; bodies live under
	// per-bubble keys
	LayoutSplit
)

func (l Layout) String() string {
	switch l {
	case LayoutInline:
		return "inline"
	case LayoutSplit:
		return "split"
	default:
		return "empty"
	}
}

// RawComposer represents composer data from an editor-family store
type RawComposer struct {
	ComposerID                  string               `json:"composerId"`
	Name                        string               `json:"name,omitempty"`
	Subtitle                    string               `json:"subtitle,omitempty"`
	Text                        string               `json:"text,omitempty"` // unsent input buffer
	ForceMode                   string               `json:"forceMode,omitempty"`
	UnifiedMode                 string               `json:"unifiedMode,omitempty"`
	Conversation                []*RawBubble         `json:"conversation,omitempty"`
	FullConversationHeadersOnly []ConversationHeader `json:"fullConversationHeadersOnly,omitempty"`
	CreatedAt                   FlexTime             `json:"createdAt,omitempty"`
	LastUpdatedAt               FlexTime             `json:"lastUpdatedAt,omitempty"`

	// SchemaVersion is written by some store generations. Layout
	// detection never trusts it; see Layout.
	SchemaVersion int `json:"_v,omitempty"`
}

// Layout detects the record's message layout structurally. A non-empty
// inline conversation wins; otherwise headers mean split. The _v field is
// ignored because stores have shipped records whose _v disagrees with the
// fields actually present.
func (rc *RawComposer) Layout() Layout {
	if len(rc.Conversation) > 0 {
		return LayoutInline
	}
	if len(rc.FullConversationHeadersOnly) > 0 {
		return LayoutSplit
	}
	return LayoutEmpty
}

// GetCreatedAt returns the creation time as a time.Time
func (rc *RawComposer) GetCreatedAt() time.Time {
	return rc.CreatedAt.Time()
}

// GetLastUpdatedAt returns the last-update time, falling back to the
// creation time when the store never wrote one
func (rc *RawComposer) GetLastUpdatedAt() time.Time {
	if rc.LastUpdatedAt == 0 {
		return rc.GetCreatedAt()
	}
	return rc.LastUpdatedAt.Time()
}

// UpdatedMillis returns the composer's effective update timestamp in
// milliseconds, with the same fallback as GetLastUpdatedAt.
func (rc *RawComposer) UpdatedMillis() int64 {
	if rc.LastUpdatedAt != 0 {
		return rc.LastUpdatedAt.Millis()
	}
	return rc.CreatedAt.Millis()
}

// ConversationHeader is one entry in a split-layout ordering list
type ConversationHeader struct {
	BubbleID       string `json:"bubbleId"`
	Type           int    `json:"type"` // 1=user, 2=assistant
	ServerBubbleID string `json:"serverBubbleId,omitempty"`
}

// MessageContext represents per-request context data, used to associate
// composers with workspaces when the owning store doesn't record it
type MessageContext struct {
	BubbleID       string   `json:"bubbleId"`
	ComposerID     string   `json:"composerId"`
	ContextID      string   `json:"contextId"`
	GitStatusRaw   string   `json:"gitStatusRaw,omitempty"`
	TerminalFiles  []string `json:"terminalFiles,omitempty"`
	ProjectLayouts []string `json:"projectLayouts,omitempty"`
}

// ParseRawBubble parses a store row into a RawBubble. Keys have the form
// bubbleId:<composerId>:<bubbleId>; the key components win over whatever
// the body claims.
func ParseRawBubble(key, value string) (*RawBubble, error) {
	rest, ok := strings.CutPrefix(key, "bubbleId:")
	if !ok {
		return nil, fmt.Errorf("invalid bubbleId key format: %s", key)
	}
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid bubbleId key format: %s", key)
	}

	var bubble RawBubble
	if err := json.Unmarshal([]byte(value), &bubble); err != nil {
		return nil, fmt.Errorf("failed to parse bubble JSON: %w", err)
	}

	bubble.ComposerID = parts[0]
	bubble.BubbleID = parts[1]
	bubble.Raw = json.RawMessage(value)

	return &bubble, nil
}

// ParseRawComposer parses a store row into a RawComposer. Keys have the
// form composerData:<composerId>.
func ParseRawComposer(key, value string) (*RawComposer, error) {
	composerID, ok := strings.CutPrefix(key, "composerData:")
	if !ok || composerID == "" {
		return nil, fmt.Errorf("invalid composerData key format: %s", key)
	}

	var composer RawComposer
	if err := json.Unmarshal([]byte(value), &composer); err != nil {
		return nil, fmt.Errorf("failed to parse composer JSON: %w", err)
	}

	composer.ComposerID = composerID
	for _, b := range composer.Conversation {
		if b != nil && b.ComposerID == "" {
			b.ComposerID = composerID
		}
	}

	return &composer, nil
}

// ParseMessageContext parses a store row into a MessageContext. Keys have
// the form messageRequestContext:<composerId>:<contextId>.
func ParseMessageContext(key, value string) (*MessageContext, error) {
	rest, ok := strings.CutPrefix(key, "messageRequestContext:")
	if !ok {
		return nil, fmt.Errorf("invalid messageRequestContext key format: %s", key)
	}
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return nil, fmt.Errorf("invalid messageRequestContext key format: %s", key)
	}

	var context MessageContext
	if err := json.Unmarshal([]byte(value), &context); err != nil {
		return nil, fmt.Errorf("failed to parse context JSON: %w", err)
	}

	context.ComposerID = parts[0]
	context.ContextID = parts[1]

	return &context, nil
}
