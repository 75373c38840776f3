package internal

import (
	"database/sql"
	"fmt"
)

// GlobalStore reads the editor's shared global store, where modern
// composer records and split-layout message bodies live
type GlobalStore struct {
	db   *sql.DB
	path string
}

// OpenGlobalStore opens the global store database read-only
func OpenGlobalStore(path string) (*GlobalStore, error) {
	db, err := OpenSourceDB(path)
	if err != nil {
		return nil, err
	}
	return &GlobalStore{db: db, path: path}, nil
}

// Close releases the underlying database handle
func (g *GlobalStore) Close() error {
	if g.db == nil {
		return nil
	}
	return g.db.Close()
}

// Path returns the database file path the store was opened from
func (g *GlobalStore) Path() string {
	return g.path
}

// LoadComposers loads all composer records. Malformed records are
// skipped with a warning; one bad row never aborts the scan.
func (g *GlobalStore) LoadComposers() ([]*RawComposer, error) {
	pairs, err := QueryKVLike(g.db, "cursorDiskKV", "composerData:%")
	if err != nil {
		return nil, fmt.Errorf("failed to query composers: %w", err)
	}

	composers := make([]*RawComposer, 0, len(pairs))
	for _, pair := range pairs {
		composer, err := ParseRawComposer(pair.Key, pair.Value)
		if err != nil {
			LogWarn("%v", &ParseError{Source: "globalStorage", Key: pair.Key, Err: err})
			continue
		}
		composers = append(composers, composer)
	}

	return composers, nil
}

// LoadBubbles fetches the bodies for one composer's header list by exact
// key, returning them in a BubbleSet for resolution.
func (g *GlobalStore) LoadBubbles(composerID string, bubbleIDs []string) (*BubbleSet, error) {
	keys := make([]string, 0, len(bubbleIDs))
	for _, id := range bubbleIDs {
		if id == "" {
			continue
		}
		keys = append(keys, "bubbleId:"+composerID+":"+id)
	}

	set := NewBubbleSet()
	if len(keys) == 0 {
		return set, nil
	}

	pairs, err := QueryKVExact(g.db, "cursorDiskKV", keys)
	if err != nil {
		return nil, fmt.Errorf("failed to query bubbles: %w", err)
	}
	for _, pair := range pairs {
		bubble, err := ParseRawBubble(pair.Key, pair.Value)
		if err != nil {
			LogWarn("%v", &ParseError{Source: "globalStorage", Key: pair.Key, Err: err})
			continue
		}
		set.Put(bubble)
	}

	return set, nil
}

// LoadAllBubbles scans every message body in the store. Used by the
// inspect surface; ingestion fetches per conversation instead.
func (g *GlobalStore) LoadAllBubbles() (*BubbleSet, error) {
	pairs, err := QueryKVLike(g.db, "cursorDiskKV", "bubbleId:%")
	if err != nil {
		return nil, fmt.Errorf("failed to query bubbles: %w", err)
	}

	set := NewBubbleSet()
	for _, pair := range pairs {
		bubble, err := ParseRawBubble(pair.Key, pair.Value)
		if err != nil {
			LogWarn("%v", &ParseError{Source: "globalStorage", Key: pair.Key, Err: err})
			continue
		}
		set.Put(bubble)
	}

	return set, nil
}

// LoadMessageContexts loads per-request context records grouped by
// composer id. These carry the project layout paths used for workspace
// linkage when no workspace store owns the composer.
func (g *GlobalStore) LoadMessageContexts() (map[string][]*MessageContext, error) {
	pairs, err := QueryKVLike(g.db, "cursorDiskKV", "messageRequestContext:%")
	if err != nil {
		return nil, fmt.Errorf("failed to query message contexts: %w", err)
	}

	contextMap := make(map[string][]*MessageContext)
	for _, pair := range pairs {
		context, err := ParseMessageContext(pair.Key, pair.Value)
		if err != nil {
			LogDebug("%v", &ParseError{Source: "globalStorage", Key: pair.Key, Err: err})
			continue
		}
		contextMap[context.ComposerID] = append(contextMap[context.ComposerID], context)
	}

	return contextMap, nil
}

// CountKeys reports how many rows match a key pattern. Inspection helper.
func (g *GlobalStore) CountKeys(pattern string) (int, error) {
	var count int
	err := g.db.QueryRow("SELECT COUNT(*) FROM cursorDiskKV WHERE key LIKE ?", pattern).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return count, nil
}
