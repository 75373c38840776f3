package internal

import (
	"errors"
	"sort"
	"strings"
)

// BubbleLookup provides split-layout message bodies by owning composer
// and bubble id
type BubbleLookup interface {
	Bubble(composerID, bubbleID string) (*RawBubble, bool)
}

// ClassifyBubble buckets a message by its dominant payload. The checks
// run in priority order: a reasoning trace wins over everything, a tool
// payload without prose is a tool call, and only a payload with nothing
// extractable at all is empty.
func ClassifyBubble(bubble *RawBubble, extracted string) MessageKind {
	if bubble.HasThinking() {
		return KindThinking
	}
	_, hasTool := bubble.ToolCallData()
	text := strings.TrimSpace(extracted)
	if hasTool && text == "" {
		return KindToolCall
	}
	if text == "" && !hasTool {
		return KindEmpty
	}
	return KindResponse
}

// bubbleRole maps a store's numeric sender flag onto a Role
func bubbleRole(bubbleType int) (Role, bool) {
	switch bubbleType {
	case 1:
		return RoleUser, true
	case 2:
		return RoleAssistant, true
	default:
		return "", false
	}
}

// MessageFromBubble normalizes one raw bubble. Returns false when the
// bubble's sender flag is unknown; such records are skipped, not guessed.
func MessageFromBubble(bubble *RawBubble) (Message, bool) {
	role, ok := bubbleRole(bubble.Type)
	if !ok {
		LogDebug("skipping bubble %s with unknown type %d", bubble.BubbleID, bubble.Type)
		return Message{}, false
	}

	text := ExtractTextFromBubble(bubble)
	kind := ClassifyBubble(bubble, text)

	// Thinking and tool messages often have no prose of their own; give
	// them their trace or tool name as display text.
	if kind == KindThinking && strings.TrimSpace(text) == "" && bubble.Thinking != nil {
		text = bubble.Thinking.Text
	}
	if kind == KindToolCall && strings.TrimSpace(text) == "" {
		if tc, ok := bubble.ToolCallData(); ok && tc.DisplayName() != "" {
			text = tc.DisplayName()
		}
	}

	return Message{
		Role:      role,
		Kind:      kind,
		Text:      text,
		RichText:  bubble.RichText,
		NativeID:  bubble.BubbleID,
		CreatedAt: bubble.When(),
		Raw:       bubble.Raw,
	}, true
}

// ResolveComposer turns a raw composer record into a normalized
// conversation. Layout is detected structurally; both layouts produce
// identical output for identical message content. A composer with no
// messages still resolves, with an empty message list.
func ResolveComposer(composer *RawComposer, bubbles BubbleLookup, source string) (*Conversation, error) {
	if composer == nil || composer.ComposerID == "" {
		return nil, &ResolveError{Err: errors.New("composer record has no id")}
	}

	title := composer.Name
	if title == "" {
		title = composer.Subtitle
	}

	conv := &Conversation{
		ExternalID: composer.ComposerID,
		Title:      title,
		Mode:       NormalizeMode(composer.ForceMode, composer.UnifiedMode),
		Source:     source,
		CreatedAt:  composer.CreatedAt.Millis(),
		UpdatedAt:  composer.UpdatedMillis(),
		Messages:   []Message{},
	}

	files := make(map[string]struct{})

	switch composer.Layout() {
	case LayoutInline:
		for _, bubble := range composer.Conversation {
			if bubble == nil {
				continue
			}
			msg, ok := MessageFromBubble(bubble)
			if !ok {
				continue
			}
			conv.Messages = append(conv.Messages, msg)
			collectFiles(files, bubble)
		}

	case LayoutSplit:
		for _, header := range composer.FullConversationHeadersOnly {
			if header.BubbleID == "" {
				continue
			}
			bubble, ok := lookupBubble(bubbles, composer.ComposerID, header.BubbleID)
			if !ok {
				// Body never fetched or since vacuumed; keep the slot
				// so ordering and counts survive.
				LogWarn("bubble %s missing for conversation %s, degrading to empty", header.BubbleID, composer.ComposerID)
				role, roleOK := bubbleRole(header.Type)
				if !roleOK {
					role = RoleSystem
				}
				conv.Messages = append(conv.Messages, Message{
					Role:     role,
					Kind:     KindEmpty,
					NativeID: header.BubbleID,
				})
				continue
			}
			msg, ok := MessageFromBubble(bubble)
			if !ok {
				continue
			}
			conv.Messages = append(conv.Messages, msg)
			collectFiles(files, bubble)
		}
	}

	conv.Files = sortedKeys(files)

	// Some records never carry conversation-level timestamps; fall back
	// to what the messages know.
	if conv.UpdatedAt == 0 {
		for _, m := range conv.Messages {
			if m.CreatedAt > conv.UpdatedAt {
				conv.UpdatedAt = m.CreatedAt
			}
		}
	}
	if conv.CreatedAt == 0 {
		for _, m := range conv.Messages {
			if m.CreatedAt != 0 && (conv.CreatedAt == 0 || m.CreatedAt < conv.CreatedAt) {
				conv.CreatedAt = m.CreatedAt
			}
		}
	}

	return conv, nil
}

func lookupBubble(bubbles BubbleLookup, composerID, bubbleID string) (*RawBubble, bool) {
	if bubbles == nil {
		return nil, false
	}
	bubble, ok := bubbles.Bubble(composerID, bubbleID)
	if !ok || bubble == nil {
		return nil, false
	}
	return bubble, true
}

func collectFiles(files map[string]struct{}, bubble *RawBubble) {
	for _, f := range bubble.RelevantFiles {
		f = strings.TrimSpace(f)
		if f != "" {
			files[f] = struct{}{}
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
