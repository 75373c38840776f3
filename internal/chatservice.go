package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPError is a non-2xx response from the chat service
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("chat service returned %d: %s", e.StatusCode, e.Message)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// ChatServiceClient talks to the external chat service's conversation
// API. All calls are read-only.
type ChatServiceClient struct {
	baseURL    string
	token      string
	httpClient *http.Client

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	pageSize   int
}

// NewChatServiceClient builds a client. httpClient may be nil, in which
// case a default with a request timeout is used.
func NewChatServiceClient(baseURL, token string, httpClient *http.Client) *ChatServiceClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &ChatServiceClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
		maxRetries: 3,
		baseDelay:  time.Second,
		maxDelay:   30 * time.Second,
		pageSize:   50,
	}
}

// remoteConversationStub is the list-endpoint's lightweight entry
type remoteConversationStub struct {
	UUID      string   `json:"uuid"`
	Name      string   `json:"name"`
	UpdatedAt FlexTime `json:"updated_at"`
}

// remoteConversation is the detail-endpoint payload
type remoteConversation struct {
	UUID         string          `json:"uuid"`
	Name         string          `json:"name"`
	CreatedAt    FlexTime        `json:"created_at"`
	UpdatedAt    FlexTime        `json:"updated_at"`
	ChatMessages []remoteMessage `json:"chat_messages"`
}

type remoteMessage struct {
	UUID      string   `json:"uuid"`
	Sender    string   `json:"sender"`
	Text      string   `json:"text"`
	CreatedAt FlexTime `json:"created_at"`
}

// ListConversations pages through the conversation index. updatedAfter
// filters client-side; the endpoint's own cursor is offset-based.
func (c *ChatServiceClient) ListConversations(ctx context.Context, updatedAfter int64) ([]remoteConversationStub, error) {
	var stubs []remoteConversationStub
	offset := 0

	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(c.pageSize))
		query.Set("offset", strconv.Itoa(offset))

		var page []remoteConversationStub
		if err := c.doJSON(ctx, "/api/chat_conversations", query, &page); err != nil {
			return nil, err
		}

		for _, stub := range page {
			if updatedAfter > 0 && stub.UpdatedAt.Millis() <= updatedAfter {
				continue
			}
			stubs = append(stubs, stub)
		}

		if len(page) < c.pageSize {
			return stubs, nil
		}
		offset += len(page)
	}
}

// GetConversation fetches one conversation with its messages
func (c *ChatServiceClient) GetConversation(ctx context.Context, uuid string) (*remoteConversation, error) {
	var conv remoteConversation
	if err := c.doJSON(ctx, "/api/chat_conversations/"+url.PathEscape(uuid), nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// doJSON performs a GET with auth, retrying transient failures with
// exponential backoff.
func (c *ChatServiceClient) doJSON(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	delay := c.baseDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			LogDebug("retrying chat service request %s (attempt %d/%d)", path, attempt, c.maxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			httpErr := &HTTPError{StatusCode: resp.StatusCode, Message: truncateForLog(string(body), 200)}
			if retryableStatus(resp.StatusCode) {
				lastErr = httpErr
				continue
			}
			return httpErr
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode chat service response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("chat service request failed after %d retries: %w", c.maxRetries, lastErr)
}

func truncateForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func remoteRole(sender string) Role {
	switch sender {
	case "human", "user":
		return RoleUser
	case "assistant", "ai":
		return RoleAssistant
	default:
		return RoleSystem
	}
}

// resolveRemoteConversation normalizes a chat-service payload. The
// service assigns durable UUIDs, so identity is reused verbatim.
func resolveRemoteConversation(rc *remoteConversation) *Conversation {
	conv := &Conversation{
		ExternalID: rc.UUID,
		Title:      rc.Name,
		Mode:       ModeChat,
		Source:     SourceChatService,
		CreatedAt:  rc.CreatedAt.Millis(),
		UpdatedAt:  rc.UpdatedAt.Millis(),
		Messages:   make([]Message, 0, len(rc.ChatMessages)),
	}

	for _, rm := range rc.ChatMessages {
		kind := KindResponse
		if rm.Text == "" {
			kind = KindEmpty
		}
		raw, err := json.Marshal(rm)
		if err != nil {
			raw = nil
		}
		conv.Messages = append(conv.Messages, Message{
			Role:      remoteRole(rm.Sender),
			Kind:      kind,
			Text:      rm.Text,
			NativeID:  rm.UUID,
			CreatedAt: rm.CreatedAt.Millis(),
			Raw:       raw,
		})
	}

	if conv.UpdatedAt == 0 {
		for _, m := range conv.Messages {
			if m.CreatedAt > conv.UpdatedAt {
				conv.UpdatedAt = m.CreatedAt
			}
		}
	}

	return conv
}

// ChatServiceSource adapts the client to the common source interface
type ChatServiceSource struct {
	client *ChatServiceClient
}

// NewChatServiceSource wraps a configured client
func NewChatServiceSource(client *ChatServiceClient) *ChatServiceSource {
	return &ChatServiceSource{client: client}
}

func (s *ChatServiceSource) Name() string {
	return SourceChatService
}

// Resolve lists changed conversations and fetches each in full. One
// failed fetch skips that conversation, not the batch.
func (s *ChatServiceSource) Resolve(ctx context.Context, since int64) ([]*Conversation, error) {
	stubs, err := s.client.ListConversations(ctx, since)
	if err != nil {
		return nil, err
	}

	conversations := make([]*Conversation, 0, len(stubs))
	for _, stub := range stubs {
		if err := ctx.Err(); err != nil {
			return conversations, err
		}
		rc, err := s.client.GetConversation(ctx, stub.UUID)
		if err != nil {
			LogWarn("skipping remote conversation %s: %v", stub.UUID, err)
			continue
		}
		conversations = append(conversations, resolveRemoteConversation(rc))
	}

	return conversations, nil
}
