package internal

import (
	"sync"
)

// BubbleSet provides thread-safe access to message bodies loaded from a
// store, keyed by owning composer and bubble id. Split-layout resolution
// looks bodies up here while walking a composer's header list.
type BubbleSet struct {
	mu      sync.RWMutex
	bubbles map[string]*RawBubble
}

// NewBubbleSet creates an empty BubbleSet
func NewBubbleSet() *BubbleSet {
	return &BubbleSet{
		bubbles: make(map[string]*RawBubble),
	}
}

func bubbleKey(composerID, bubbleID string) string {
	return composerID + "\x00" + bubbleID
}

// Put stores a bubble under its composer and bubble id
func (bs *BubbleSet) Put(bubble *RawBubble) {
	if bubble == nil || bubble.BubbleID == "" {
		return
	}
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.bubbles[bubbleKey(bubble.ComposerID, bubble.BubbleID)] = bubble
}

// Bubble retrieves a body by composer and bubble id. Bodies stored
// without a composer scope match any composer; agent stores write those.
func (bs *BubbleSet) Bubble(composerID, bubbleID string) (*RawBubble, bool) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	if bubble, ok := bs.bubbles[bubbleKey(composerID, bubbleID)]; ok {
		return bubble, true
	}
	bubble, ok := bs.bubbles[bubbleKey("", bubbleID)]
	return bubble, ok
}

// Len returns the number of bubbles in the set
func (bs *BubbleSet) Len() int {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return len(bs.bubbles)
}

// All returns every bubble in the set, in no particular order
func (bs *BubbleSet) All() []*RawBubble {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	bubbles := make([]*RawBubble, 0, len(bs.bubbles))
	for _, bubble := range bs.bubbles {
		bubbles = append(bubbles, bubble)
	}
	return bubbles
}
