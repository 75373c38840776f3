package internal

import (
	"time"
)

// CreateTestConversation creates a normalized conversation with sample data
func CreateTestConversation(externalID string) *Conversation {
	now := time.Now().UnixMilli()
	return &Conversation{
		ExternalID: externalID,
		Title:      "Test Conversation",
		Mode:       ModeChat,
		Source:     SourceEditor,
		CreatedAt:  now - 60_000,
		UpdatedAt:  now,
		Messages: []Message{
			{
				Role:      RoleUser,
				Kind:      KindResponse,
				Text:      "Hello, how are you?",
				NativeID:  "bubble-" + externalID + "-1",
				CreatedAt: now - 60_000,
			},
			{
				Role:      RoleAssistant,
				Kind:      KindResponse,
				Text:      "I'm doing well, thank you!",
				NativeID:  "bubble-" + externalID + "-2",
				CreatedAt: now - 30_000,
			},
		},
	}
}

// CreateTestConversationWithMessages creates a conversation with custom messages
func CreateTestConversationWithMessages(externalID string, messages []Message) *Conversation {
	now := time.Now().UnixMilli()
	return &Conversation{
		ExternalID: externalID,
		Mode:       ModeChat,
		Source:     SourceEditor,
		CreatedAt:  now,
		UpdatedAt:  now,
		Messages:   messages,
	}
}

// CreateTestRawBubble creates a test RawBubble
func CreateTestRawBubble(bubbleID, composerID, text string, msgType int) *RawBubble {
	return &RawBubble{
		BubbleID:   bubbleID,
		ComposerID: composerID,
		Text:       text,
		Timestamp:  FlexTime(time.Now().UnixMilli()),
		Type:       msgType,
	}
}

// CreateTestRawComposer creates a test RawComposer
func CreateTestRawComposer(composerID, name string) *RawComposer {
	now := FlexTime(time.Now().UnixMilli())
	return &RawComposer{
		ComposerID:    composerID,
		Name:          name,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// CreateTestMessageContext creates a test MessageContext
func CreateTestMessageContext(bubbleID, composerID, contextID string) *MessageContext {
	return &MessageContext{
		BubbleID:   bubbleID,
		ComposerID: composerID,
		ContextID:  contextID,
	}
}
