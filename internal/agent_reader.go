package internal

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AgentSource reads the agent CLI's per-session store.db files. Each
// session directory holds one database with blobs and meta tables whose
// payloads reuse the editor's record shapes, sometimes wrapped in base64
// or a binary envelope.
type AgentSource struct {
	paths StoragePaths
}

// NewAgentSource builds a source over the detected agent session root
func NewAgentSource(paths StoragePaths) *AgentSource {
	return &AgentSource{paths: paths}
}

func (s *AgentSource) Name() string {
	return SourceAgent
}

// Resolve loads every session database and normalizes its conversations.
// A session that fails to open or parse is skipped with a warning.
func (s *AgentSource) Resolve(ctx context.Context, since int64) ([]*Conversation, error) {
	dbPaths, err := s.paths.FindAgentStoreDBs()
	if err != nil {
		return nil, err
	}

	var conversations []*Conversation
	for _, dbPath := range dbPaths {
		if err := ctx.Err(); err != nil {
			return conversations, err
		}
		convs, err := ResolveAgentStore(dbPath)
		if err != nil {
			LogWarn("skipping agent store %s: %v", dbPath, err)
			continue
		}
		for _, conv := range convs {
			if since > 0 && conv.UpdatedAt <= since {
				continue
			}
			conversations = append(conversations, conv)
		}
	}

	return conversations, nil
}

// ResolveAgentStore normalizes every conversation in one session database
func ResolveAgentStore(dbPath string) ([]*Conversation, error) {
	bubbles, composers, err := loadAgentStore(dbPath)
	if err != nil {
		return nil, err
	}

	sessionID := agentSessionID(dbPath)
	dirHash := agentDirHash(dbPath)

	// Some sessions carry bare message records and no composer; the
	// session directory name is the only conversation identity there.
	if len(composers) == 0 && bubbles.Len() > 0 {
		composers = append(composers, synthesizeAgentComposer(sessionID, bubbles))
	}

	var mtimeMillis int64
	if info, err := os.Stat(dbPath); err == nil {
		mtimeMillis = info.ModTime().UnixMilli()
	}

	conversations := make([]*Conversation, 0, len(composers))
	for _, composer := range composers {
		conv, err := ResolveComposer(composer, bubbles, SourceAgent)
		if err != nil {
			LogWarn("skipping agent conversation in %s: %v", dbPath, err)
			continue
		}
		conv.Mode = ModeAgent
		if dirHash != "" {
			conv.WorkspaceHash = dirHash
		}
		// Sessions without record timestamps still need a stable update
		// time for watermarking; the database mtime serves.
		if conv.UpdatedAt == 0 {
			conv.UpdatedAt = mtimeMillis
		}
		if conv.CreatedAt == 0 {
			conv.CreatedAt = conv.UpdatedAt
		}
		conversations = append(conversations, conv)
	}

	return conversations, nil
}

// loadAgentStore reads and classifies every record in a session database
func loadAgentStore(dbPath string) (*BubbleSet, []*RawComposer, error) {
	db, err := OpenSourceDB(dbPath)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	sessionID := agentSessionID(dbPath)
	bubbles := NewBubbleSet()
	var composers []*RawComposer

	for _, table := range []string{"blobs", "meta"} {
		entries, err := queryAgentTable(db, table)
		if err != nil {
			return nil, nil, err
		}
		for _, entry := range entries {
			payload, ok := decodeAgentBlob(entry.Value)
			if !ok {
				LogDebug("agent blob %s in %s: no decodable JSON payload", entry.Key, dbPath)
				continue
			}
			classifyAgentRecord(payload, sessionID, bubbles, &composers)
		}
	}

	return bubbles, composers, nil
}

// queryAgentTable reads a two-column table whose exact schema drifts
// between agent versions. The column pair is probed, not assumed.
func queryAgentTable(db *sql.DB, table string) ([]KeyValuePair, error) {
	var tableExists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT name FROM sqlite_master
			WHERE type='table' AND name=?
		)
	`, table).Scan(&tableExists)
	if err != nil {
		return nil, fmt.Errorf("failed to check for %s table: %w", table, err)
	}
	if !tableExists {
		return nil, nil
	}

	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s table info: %w", table, err)
	}
	var columns []string
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull int
		var defaultValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			continue
		}
		columns = append(columns, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s table info: %w", table, err)
	}

	var query string
	switch {
	case containsString(columns, "key") && containsString(columns, "value"):
		query = fmt.Sprintf("SELECT key, value FROM %s WHERE value IS NOT NULL", table)
	case containsString(columns, "id") && containsString(columns, "data"):
		query = fmt.Sprintf("SELECT id, data FROM %s WHERE data IS NOT NULL", table)
	case len(columns) >= 2:
		query = fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IS NOT NULL", columns[0], columns[1], table, columns[1])
	default:
		return nil, nil
	}

	rows, err = db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s table: %w", table, err)
	}
	defer rows.Close()

	var entries []KeyValuePair
	for rows.Next() {
		var entry KeyValuePair
		var value sql.NullString
		if err := rows.Scan(&entry.Key, &value); err != nil {
			LogDebug("failed to scan %s row: %v", table, err)
			continue
		}
		if value.Valid {
			entry.Value = value.String
			entries = append(entries, entry)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entries, nil
}

// decodeAgentBlob unwraps a blob value into JSON bytes. Values arrive as
// plain JSON, base64-wrapped JSON, or JSON embedded in a binary envelope.
func decodeAgentBlob(value string) ([]byte, bool) {
	raw := []byte(value)
	if json.Valid(raw) {
		return raw, true
	}

	if decoded, err := tryBase64Decode(value); err == nil {
		if json.Valid(decoded) {
			return decoded, true
		}
		if embedded, found := extractJSONFromBinary(decoded); found && json.Valid(embedded) {
			return embedded, true
		}
	}

	if embedded, found := extractJSONFromBinary(raw); found && json.Valid(embedded) {
		return embedded, true
	}

	return nil, false
}

// classifyAgentRecord routes one decoded payload to the right raw shape.
// Records that match nothing are ignored; agent stores carry plenty of
// bookkeeping rows this aggregation has no use for.
func classifyAgentRecord(payload []byte, sessionID string, bubbles *BubbleSet, composers *[]*RawComposer) {
	var probe struct {
		BubbleID   string          `json:"bubbleId"`
		ComposerID string          `json:"composerId"`
		ID         string          `json:"id"`
		Role       string          `json:"role"`
		Content    json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return
	}

	switch {
	case probe.BubbleID != "":
		var bubble RawBubble
		if err := json.Unmarshal(payload, &bubble); err != nil {
			LogDebug("agent bubble %s: %v", probe.BubbleID, err)
			return
		}
		if bubble.ComposerID == "" {
			bubble.ComposerID = sessionID
		}
		bubble.Raw = append(json.RawMessage(nil), payload...)
		bubbles.Put(&bubble)

	case probe.ComposerID != "":
		var composer RawComposer
		if err := json.Unmarshal(payload, &composer); err != nil {
			LogDebug("agent composer %s: %v", probe.ComposerID, err)
			return
		}
		*composers = append(*composers, &composer)

	case probe.ID != "" && probe.Role != "":
		if bubble := parseAgentMessage(payload, probe.ID, probe.Role, sessionID); bubble != nil {
			bubbles.Put(bubble)
		}
	}
}

// parseAgentMessage converts the agent CLI's message shape (id, role,
// content parts) into a RawBubble.
func parseAgentMessage(payload []byte, id, role, sessionID string) *RawBubble {
	var msg struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
			Data string `json:"data"`
		} `json:"content"`
		Timestamp FlexTime `json:"timestamp"`
		CreatedAt FlexTime `json:"createdAt"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		LogDebug("agent message %s: %v", id, err)
		return nil
	}

	bubble := &RawBubble{
		BubbleID:   id,
		ComposerID: sessionID,
		Timestamp:  msg.Timestamp,
		CreatedAt:  msg.CreatedAt,
		Raw:        append(json.RawMessage(nil), payload...),
	}

	switch role {
	case "user", "human":
		bubble.Type = 1
	case "assistant":
		bubble.Type = 2
	default:
		LogDebug("agent message %s has unknown role %q", id, role)
		return nil
	}

	var textParts []string
	var thinkingParts []string
	for _, part := range msg.Content {
		switch part.Type {
		case "thinking":
			if part.Text != "" {
				thinkingParts = append(thinkingParts, part.Text)
			}
		case "redacted-reasoning", "redacted_reasoning":
			// Most payloads are encrypted; only recovered text is kept.
			if decoded, ok := decodeRedactedReasoning(part.Data); ok {
				thinkingParts = append(thinkingParts, decoded)
			}
		default:
			if part.Text != "" {
				textParts = append(textParts, part.Text)
			}
		}
	}
	bubble.Text = strings.Join(textParts, "\n\n")
	if len(thinkingParts) > 0 {
		bubble.Thinking = &ThinkingBlock{Text: strings.Join(thinkingParts, "\n\n")}
	}

	return bubble
}

// synthesizeAgentComposer builds a composer for sessions that store bare
// messages with no conversation record. Message order falls back to
// timestamps since no header list exists.
func synthesizeAgentComposer(sessionID string, bubbles *BubbleSet) *RawComposer {
	all := bubbles.All()
	sortBubblesByTime(all)

	composer := &RawComposer{ComposerID: sessionID}
	for _, bubble := range all {
		composer.FullConversationHeadersOnly = append(composer.FullConversationHeadersOnly, ConversationHeader{
			BubbleID: bubble.BubbleID,
			Type:     bubble.Type,
		})
		if when := bubble.When(); when > composer.LastUpdatedAt.Millis() {
			composer.LastUpdatedAt = FlexTime(when)
		}
	}
	return composer
}

func sortBubblesByTime(bubbles []*RawBubble) {
	// Ordered on (time, id) so ties don't reorder between runs.
	sort.SliceStable(bubbles, func(i, j int) bool {
		if bubbles[i].When() != bubbles[j].When() {
			return bubbles[i].When() < bubbles[j].When()
		}
		return bubbles[i].BubbleID < bubbles[j].BubbleID
	})
}

// agentSessionID extracts the session id from a store.db path:
// <root>/<dirHash>/<session-id>/store.db
func agentSessionID(dbPath string) string {
	return filepath.Base(filepath.Dir(dbPath))
}

// agentDirHash extracts the working-directory hash component, when the
// path has one. It groups sessions started from the same directory.
func agentDirHash(dbPath string) string {
	parent := filepath.Base(filepath.Dir(filepath.Dir(dbPath)))
	if isHashLike(parent) {
		return parent
	}
	return ""
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// tryBase64Decode attempts standard, URL-safe, and padded decodings
func tryBase64Decode(s string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(s)
	if err == nil {
		return decoded, nil
	}
	if len(s)%4 != 0 {
		padded := s + strings.Repeat("=", 4-len(s)%4)
		decoded, err = base64.StdEncoding.DecodeString(padded)
		if err == nil {
			return decoded, nil
		}
	}
	return nil, fmt.Errorf("not base64 encoded")
}

// extractJSONFromBinary scans binary data for a complete top-level JSON
// object, honoring strings and escapes while counting braces.
func extractJSONFromBinary(data []byte) ([]byte, bool) {
	startIdx := bytes.Index(data, []byte("{"))
	if startIdx == -1 {
		return nil, false
	}

	depth := 0
	inString := false
	escapeNext := false

	for i := startIdx; i < len(data); i++ {
		if escapeNext {
			escapeNext = false
			continue
		}
		if data[i] == '\\' {
			escapeNext = true
			continue
		}
		if data[i] == '"' {
			inString = !inString
			continue
		}
		if !inString {
			if data[i] == '{' {
				depth++
			} else if data[i] == '}' {
				depth--
				if depth == 0 {
					return data[startIdx : i+1], true
				}
			}
		}
	}

	return nil, false
}

// isHashLike checks if a string looks like a hex hash of sane length
func isHashLike(s string) bool {
	if len(s) < 16 || len(s) > 128 {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}
