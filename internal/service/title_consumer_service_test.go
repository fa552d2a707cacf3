package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"corevai-be/internal/constant"
	"corevai-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackTitle(t *testing.T) {
	assert.Equal(t, "what is Go?", fallbackTitle("what is Go?"))
	assert.Equal(t, "one two three", fallbackTitle("  one \n two\tthree  "))

	long := strings.Repeat("abcd ", 30)
	got := fallbackTitle(long)
	assert.LessOrEqual(t, len(got), constant.ConversationTitleMaxLen)
	assert.NotEmpty(t, got)
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Learning Go Basics", "Learning Go Basics"},
		{"quoted", `"Learning Go Basics"`, "Learning Go Basics"},
		{"whitespace", "  Learning\nGo  ", "Learning Go"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeTitle(tt.in))
		})
	}
}

func TestTitleConsumer(t *testing.T) {
	store, chatSvc, userId := newChatFixture(&fakeLLM{})
	ctx := context.Background()

	sent, err := chatSvc.SendMessage(ctx, &userId, &dto.SendMessageRequest{Content: "how do goroutines work?"})
	require.NoError(t, err)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	consumer := NewTitleConsumerService(pubSub, "titles-test", &chatFactory{store}, &fakeLLM{chunks: []string{`"Goroutines Explained"`}})
	require.NoError(t, consumer.Consume(ctx))

	payload, err := json.Marshal(dto.PublishTitleMessage{
		ConversationId: sent.ConversationId,
		FirstPrompt:    "how do goroutines work?",
	})
	require.NoError(t, err)
	require.NoError(t, pubSub.Publish("titles-test", message.NewMessage(watermill.NewUUID(), payload)))

	require.Eventually(t, func() bool {
		conv := store.conversations[sent.ConversationId]
		return conv.Title != nil && *conv.Title != ""
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "Goroutines Explained", *store.conversations[sent.ConversationId].Title)
}

func TestTitleConsumerKeepsUserRename(t *testing.T) {
	store, chatSvc, userId := newChatFixture(&fakeLLM{})
	ctx := context.Background()

	sent, err := chatSvc.SendMessage(ctx, &userId, &dto.SendMessageRequest{Content: "first prompt"})
	require.NoError(t, err)

	// User renames before the consumer gets to it
	renamed := "my own title"
	_, err = chatSvc.UpdateConversation(ctx, userId, &dto.UpdateConversationRequest{Id: sent.ConversationId, Title: &renamed})
	require.NoError(t, err)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	consumer := NewTitleConsumerService(pubSub, "titles-test", &chatFactory{store}, &fakeLLM{chunks: []string{"Generated Title"}})
	require.NoError(t, consumer.Consume(ctx))

	payload, err := json.Marshal(dto.PublishTitleMessage{ConversationId: sent.ConversationId, FirstPrompt: "first prompt"})
	require.NoError(t, err)
	require.NoError(t, pubSub.Publish("titles-test", message.NewMessage(watermill.NewUUID(), payload)))

	// Give the consumer a moment, then confirm the rename survived
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, renamed, *store.conversations[sent.ConversationId].Title)
}
