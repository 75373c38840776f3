package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// RawTab is one chat tab in the oldest editor layout: fully inline
// messages with string-typed senders. Legacy JSON exports and old
// workspace stores both carry this shape.
type RawTab struct {
	ID           string         `json:"id,omitempty"`
	TabID        string         `json:"tabId,omitempty"`
	ChatTitle    string         `json:"chatTitle,omitempty"`
	LastSendTime FlexTime       `json:"lastSendTime,omitempty"`
	Bubbles      []RawTabBubble `json:"bubbles"`
}

// Key returns the tab's identifier, whichever field the writer used
func (t *RawTab) Key() string {
	if t.TabID != "" {
		return t.TabID
	}
	return t.ID
}

// RawTabBubble is one message in a RawTab
type RawTabBubble struct {
	ID            string   `json:"id,omitempty"`
	Type          string   `json:"type"` // "user" or "ai"
	Text          string   `json:"text,omitempty"`
	RawText       string   `json:"rawText,omitempty"`
	Timestamp     FlexTime `json:"timestamp,omitempty"`
	CreatedAt     FlexTime `json:"createdAt,omitempty"`
	RelevantFiles []string `json:"relevantFiles,omitempty"`
}

// Body returns whichever text field the writer populated
func (b *RawTabBubble) Body() string {
	if b.Text != "" {
		return b.Text
	}
	return b.RawText
}

// When returns the bubble time in milliseconds
func (b *RawTabBubble) When() int64 {
	if b.CreatedAt != 0 {
		return b.CreatedAt.Millis()
	}
	return b.Timestamp.Millis()
}

func tabRole(bubbleType string) Role {
	switch strings.ToLower(strings.TrimSpace(bubbleType)) {
	case "user", "human":
		return RoleUser
	case "ai", "assistant", "bot":
		return RoleAssistant
	default:
		return RoleSystem
	}
}

// ResolveTab normalizes one tab. externalID must be stable across runs:
// native tab ids are reused verbatim for workspace-store tabs, derived
// ids are used for legacy file imports.
func ResolveTab(tab RawTab, source, externalID, workspaceHash string) *Conversation {
	conv := &Conversation{
		ExternalID:    externalID,
		Title:         tab.ChatTitle,
		Mode:          ModeChat,
		Source:        source,
		WorkspaceHash: workspaceHash,
		UpdatedAt:     tab.LastSendTime.Millis(),
		Messages:      []Message{},
	}

	files := make(map[string]struct{})
	seen := make(map[string]int)
	for _, bubble := range tab.Bubbles {
		text := bubble.Body()
		role := tabRole(bubble.Type)
		kind := KindResponse
		if strings.TrimSpace(text) == "" {
			kind = KindEmpty
		}
		raw, err := json.Marshal(bubble)
		if err != nil {
			raw = nil
		}
		nativeID := bubble.ID
		if nativeID == "" {
			// Old exports predate per-message ids. Derive one so
			// re-importing the same file updates rather than appends;
			// the occurrence counter keeps identical messages apart.
			fp := MessageFingerprint(role, text, bubble.When())
			if n := seen[fp]; n > 0 {
				nativeID = fmt.Sprintf("%s-%d", fp, n)
			} else {
				nativeID = fp
			}
			seen[fp]++
		}
		conv.Messages = append(conv.Messages, Message{
			Role:      role,
			Kind:      kind,
			Text:      text,
			NativeID:  nativeID,
			CreatedAt: bubble.When(),
			Raw:       raw,
		})
		for _, f := range bubble.RelevantFiles {
			if f = strings.TrimSpace(f); f != "" {
				files[f] = struct{}{}
			}
		}
	}
	conv.Files = sortedKeys(files)

	for _, m := range conv.Messages {
		if m.CreatedAt > conv.UpdatedAt {
			conv.UpdatedAt = m.CreatedAt
		}
		if m.CreatedAt != 0 && (conv.CreatedAt == 0 || m.CreatedAt < conv.CreatedAt) {
			conv.CreatedAt = m.CreatedAt
		}
	}
	if conv.CreatedAt == 0 {
		conv.CreatedAt = conv.UpdatedAt
	}

	return conv
}

// LegacySource reads chat_data_<hash>.json exports. Legacy records carry
// no durable ids of their own, so identity derives from the file content
// hash and tab id; re-importing the same file is idempotent.
type LegacySource struct {
	Paths []string
}

// NewLegacySource builds a source over explicit files or directories
func NewLegacySource(paths []string) *LegacySource {
	return &LegacySource{Paths: paths}
}

func (s *LegacySource) Name() string {
	return SourceLegacy
}

// Resolve reads every legacy file and normalizes its tabs. A malformed
// file is skipped with a warning; the batch continues.
func (s *LegacySource) Resolve(ctx context.Context, since int64) ([]*Conversation, error) {
	var conversations []*Conversation

	for _, root := range s.Paths {
		files, err := FindLegacyChatFiles(root)
		if err != nil {
			LogWarn("skipping legacy path %s: %v", root, err)
			continue
		}
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return conversations, err
			}
			convs, err := resolveLegacyFile(path)
			if err != nil {
				LogWarn("skipping legacy file %s: %v", path, err)
				continue
			}
			for _, conv := range convs {
				if since > 0 && conv.UpdatedAt <= since {
					continue
				}
				conversations = append(conversations, conv)
			}
		}
	}

	return conversations, nil
}

func resolveLegacyFile(path string) ([]*Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "read", Err: err}
	}

	var payload struct {
		Tabs []RawTab `json:"tabs"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &ParseError{Source: "legacy", Key: path, Err: err}
	}

	workspaceHash := WorkspaceHashFromLegacyName(path)

	// Identity scope: the workspace hash survives file edits, so updated
	// exports re-derive the same ids. Content hash is the fallback for
	// files named outside the convention.
	scope := workspaceHash
	if scope == "" {
		scope = HashContent(data)
	}

	conversations := make([]*Conversation, 0, len(payload.Tabs))
	for i, tab := range payload.Tabs {
		tabKey := tab.Key()
		if tabKey == "" {
			// No id at all; position within the file is the only handle.
			tabKey = fmt.Sprintf("tab-%d", i)
		}
		externalID := DeriveLegacyID(scope, tabKey)
		conversations = append(conversations, ResolveTab(tab, SourceLegacy, externalID, workspaceHash))
	}

	return conversations, nil
}
