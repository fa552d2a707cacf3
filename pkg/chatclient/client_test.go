package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, conversationId, assistantId uuid.UUID, serverMessages []Message) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/chat/messages", func(w http.ResponseWriter, r *http.Request) {
		var payload sendMessagePayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(sendMessageResult{
			ConversationId: conversationId,
			UserMessage: Message{
				Id:             uuid.New(),
				ConversationId: conversationId,
				Role:           "user",
				Content:        payload.Content,
				CreatedAt:      time.Now(),
			},
		})
	})

	mux.HandleFunc("/api/chat/conversations/"+conversationId.String()+"/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Assistant-Id", assistantId.String())
		flusher := w.(http.Flusher)
		for _, chunk := range []string{"Hello", ", ", "world"} {
			w.Write([]byte(chunk))
			flusher.Flush()
		}
	})

	mux.HandleFunc("/api/chat/conversations/"+conversationId.String()+"/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(serverMessages)
	})

	return httptest.NewServer(mux)
}

func TestSend(t *testing.T) {
	conversationId := uuid.New()
	srv := newTestServer(t, conversationId, uuid.New(), nil)
	defer srv.Close()

	client := NewClient(srv.URL, "token", nil, nil)
	session := client.NewSession(conversationId)

	msg, err := session.Send(context.Background(), "hi there")
	require.NoError(t, err)
	assert.Equal(t, "hi there", msg.Content)

	// The optimistic temp entry was swapped for the server's copy
	messages := session.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, msg.Id, messages[0].Id)
	assert.False(t, messages[0].Pending)
}

func TestSendFailureRemovesOptimisticEntry(t *testing.T) {
	conversationId := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "token", nil, nil)
	session := client.NewSession(conversationId)

	_, err := session.Send(context.Background(), "hi there")
	require.Error(t, err)
	assert.Empty(t, session.Messages())
}

func TestStreamAssistant(t *testing.T) {
	conversationId := uuid.New()
	assistantId := uuid.New()
	srv := newTestServer(t, conversationId, assistantId, nil)
	defer srv.Close()

	client := NewClient(srv.URL, "token", nil, nil)
	session := client.NewSession(conversationId)

	var received strings.Builder
	err := session.StreamAssistant(context.Background(), func(chunk string) {
		received.WriteString(chunk)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", received.String())

	messages := session.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, assistantId, messages[0].Id)
	assert.Equal(t, "assistant", messages[0].Role)
	assert.Equal(t, "Hello, world", messages[0].Content)
	assert.False(t, messages[0].Pending)
}

func TestStreamAssistantCancellation(t *testing.T) {
	conversationId := uuid.New()
	assistantId := uuid.New()

	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/conversations/"+conversationId.String()+"/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Assistant-Id", assistantId.String())
		flusher := w.(http.Flusher)
		w.Write([]byte("first"))
		flusher.Flush()
		<-release
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer close(release)

	client := NewClient(srv.URL, "token", nil, nil)
	session := client.NewSession(conversationId)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := session.StreamAssistant(ctx, nil)
	require.Error(t, err)

	// Whatever arrived before the cancel stays in the transcript
	messages := session.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "first", messages[0].Content)
}

func TestReconcile(t *testing.T) {
	conversationId := uuid.New()
	now := time.Now()
	serverMessages := []Message{
		{Id: uuid.New(), ConversationId: conversationId, Role: "user", Content: "question", CreatedAt: now.Add(-2 * time.Minute)},
		{Id: uuid.New(), ConversationId: conversationId, Role: "assistant", Content: "answer", CreatedAt: now.Add(-1 * time.Minute)},
	}
	srv := newTestServer(t, conversationId, uuid.New(), serverMessages)
	defer srv.Close()

	client := NewClient(srv.URL, "token", nil, nil)
	session := client.NewSession(conversationId)

	// A pending entry the server does not know about yet must survive
	pendingId := uuid.New()
	session.messages = []Message{
		{Id: serverMessages[1].Id, Role: "assistant", Content: "partial answ", CreatedAt: now.Add(-1 * time.Minute), Pending: true},
		{Id: pendingId, Role: "user", Content: "follow-up", CreatedAt: now, Pending: true},
	}

	require.NoError(t, session.Reconcile(context.Background()))

	messages := session.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, "question", messages[0].Content)
	// Server content wins for known ids
	assert.Equal(t, "answer", messages[1].Content)
	assert.False(t, messages[1].Pending)
	// Local pending entry kept and sorted last by creation time
	assert.Equal(t, pendingId, messages[2].Id)
	assert.True(t, messages[2].Pending)
}
