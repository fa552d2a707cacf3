// Package chatclient is a Go client for the chat API that mirrors the
// web frontend's optimistic rendering: sent messages appear immediately
// as pending entries, streamed assistant replies grow incrementally, and
// a delayed background reconcile replaces the optimistic state with the
// server's view.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultReconcileDelay = 500 * time.Millisecond

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a client for the API at baseURL (e.g.
// "http://localhost:3000"). token is the bearer session token; pass an
// empty string for guest calls. httpClient and logger may be nil.
func NewClient(baseURL, token string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Message is one entry in the session transcript. Pending entries exist
// locally but have not been confirmed by a reconcile yet.
type Message struct {
	Id             uuid.UUID `json:"id"`
	ConversationId uuid.UUID `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Pending        bool      `json:"-"`
}

// Session tracks the transcript of one conversation.
type Session struct {
	client         *Client
	conversationId uuid.UUID
	reconcileDelay time.Duration

	mu       sync.Mutex
	messages []Message
}

func (c *Client) NewSession(conversationId uuid.UUID) *Session {
	return &Session{
		client:         c,
		conversationId: conversationId,
		reconcileDelay: defaultReconcileDelay,
	}
}

// Messages returns a snapshot of the transcript in creation order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

type sendMessagePayload struct {
	ConversationId *uuid.UUID `json:"conversation_id"`
	Content        string     `json:"content"`
}

type sendMessageResult struct {
	ConversationId uuid.UUID `json:"conversation_id"`
	UserMessage    Message   `json:"user_message"`
}

// Send posts a user message. The transcript gains an optimistic pending
// entry immediately; on success it is swapped for the server's copy, on
// failure it is removed again.
func (s *Session) Send(ctx context.Context, content string) (*Message, error) {
	tempId := uuid.New()
	s.mu.Lock()
	s.messages = append(s.messages, Message{
		Id:             tempId,
		ConversationId: s.conversationId,
		Role:           "user",
		Content:        content,
		CreatedAt:      time.Now(),
		Pending:        true,
	})
	s.mu.Unlock()

	convId := s.conversationId
	req, err := s.client.newRequest(ctx, http.MethodPost, "/api/chat/messages", sendMessagePayload{
		ConversationId: &convId,
		Content:        content,
	})
	if err != nil {
		s.remove(tempId)
		return nil, err
	}

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		s.remove(tempId)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		s.remove(tempId)
		return nil, fmt.Errorf("send message: unexpected status %d", resp.StatusCode)
	}

	var result sendMessageResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		s.remove(tempId)
		return nil, err
	}

	s.replace(tempId, result.UserMessage)
	return &result.UserMessage, nil
}

// StreamAssistant requests an assistant reply and feeds chunks to
// onChunk as they arrive. The assistant entry is identified by the
// X-Assistant-Id response header and grows in place while the body is
// read. Cancel ctx to stop early; whatever arrived stays in the
// transcript and the scheduled reconcile picks up the server's final
// content.
func (s *Session) StreamAssistant(ctx context.Context, onChunk func(chunk string)) error {
	path := fmt.Sprintf("/api/chat/conversations/%s/stream", s.conversationId)
	req, err := s.client.newRequest(ctx, http.MethodPost, path, struct{}{})
	if err != nil {
		return err
	}

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream: unexpected status %d", resp.StatusCode)
	}

	assistantId, err := uuid.Parse(resp.Header.Get("X-Assistant-Id"))
	if err != nil {
		return fmt.Errorf("stream: missing assistant id header")
	}

	s.mu.Lock()
	s.messages = append(s.messages, Message{
		Id:             assistantId,
		ConversationId: s.conversationId,
		Role:           "assistant",
		CreatedAt:      time.Now(),
		Pending:        true,
	})
	s.mu.Unlock()

	defer s.scheduleReconcile()

	buf := make([]byte, 4096)
	for {
		// Cooperative cancellation between reads.
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			s.appendContent(assistantId, chunk)
			if onChunk != nil {
				onChunk(chunk)
			}
		}
		if readErr == io.EOF {
			s.markDone(assistantId)
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

// Reconcile replaces the transcript with the server's view, keeping any
// local pending entries the server does not know about yet.
func (s *Session) Reconcile(ctx context.Context) error {
	path := fmt.Sprintf("/api/chat/conversations/%s/messages", s.conversationId)
	req, err := s.client.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reconcile: unexpected status %d", resp.StatusCode)
	}

	var serverMessages []Message
	if err := json.NewDecoder(resp.Body).Decode(&serverMessages); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]Message, 0, len(serverMessages))
	seen := make(map[uuid.UUID]bool, len(serverMessages))
	for _, m := range serverMessages {
		seen[m.Id] = true
		merged = append(merged, m)
	}
	for _, m := range s.messages {
		if m.Pending && !seen[m.Id] {
			merged = append(merged, m)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	s.messages = merged
	return nil
}

// scheduleReconcile runs Reconcile after a short delay so the server has
// finished persisting the streamed reply. A stale reconcile overlapping
// with a newer send is tolerated; the next reconcile corrects it.
func (s *Session) scheduleReconcile() {
	go func() {
		time.Sleep(s.reconcileDelay)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Reconcile(ctx); err != nil {
			s.client.logger.Warn("reconcile failed", zap.Error(err))
		}
	}()
}

func (s *Session) remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.messages {
		if m.Id == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

func (s *Session) replace(id uuid.UUID, with Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.messages {
		if m.Id == id {
			s.messages[i] = with
			return
		}
	}
	s.messages = append(s.messages, with)
}

func (s *Session) appendContent(id uuid.UUID, chunk string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.messages {
		if m.Id == id {
			s.messages[i].Content += chunk
			return
		}
	}
}

func (s *Session) markDone(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.messages {
		if m.Id == id {
			s.messages[i].Pending = false
			return
		}
	}
}
