package service

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"corevai-be/internal/constant"
	"corevai-be/internal/dto"
	"corevai-be/internal/repository/specification"
	"corevai-be/internal/repository/unitofwork"
	"corevai-be/pkg/llm"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type ITitleConsumerService interface {
	Consume(ctx context.Context) error
}

// titleConsumerService derives a short conversation title from the first
// prompt, off the request path so sending a message never waits on a
// second model call.
type titleConsumerService struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	uowFactory  unitofwork.RepositoryFactory
	llmProvider llm.LLMProvider
}

func NewTitleConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
) ITitleConsumerService {
	return &titleConsumerService{
		pubSub:      pubSub,
		topicName:   topicName,
		uowFactory:  uowFactory,
		llmProvider: llmProvider,
	}
}

func (cs *titleConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// fallbackTitle truncates the prompt when the model is unavailable.
func fallbackTitle(prompt string) string {
	title := strings.Join(strings.Fields(prompt), " ")
	if len(title) > constant.ConversationTitleMaxLen {
		title = strings.TrimSpace(title[:constant.ConversationTitleMaxLen])
	}
	return title
}

func sanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.Trim(title, `"'`)
	title = strings.Join(strings.Fields(title), " ")
	if len(title) > constant.ConversationTitleMaxLen {
		title = strings.TrimSpace(title[:constant.ConversationTitleMaxLen])
	}
	return title
}

func (cs *titleConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishTitleMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal title message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	conv, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: payload.ConversationId})
	if err != nil {
		log.Printf("[ERROR] Failed to get conversation %s: %v", payload.ConversationId, err)
		msg.Nack()
		return
	}
	if conv == nil {
		// Deleted before titling ran.
		msg.Ack()
		return
	}
	if conv.Title != nil && *conv.Title != "" {
		// Renamed by the user in the meantime, don't overwrite.
		msg.Ack()
		return
	}

	prompt := "Write a concise title (max 6 words) for a conversation that starts with this message. " +
		"Reply with the title only, no quotes:\n\n" + payload.FirstPrompt

	title, err := cs.llmProvider.Generate(ctx, prompt, llm.WithMaxTokens(30))
	if err != nil {
		log.Printf("[WARN] Title generation failed for %s, using fallback: %v", payload.ConversationId, err)
		title = fallbackTitle(payload.FirstPrompt)
	} else {
		title = sanitizeTitle(title)
		if title == "" {
			title = fallbackTitle(payload.FirstPrompt)
		}
	}

	conv.Title = &title
	if err := uow.ConversationRepository().Update(ctx, conv); err != nil {
		log.Printf("[ERROR] Failed to save title for %s: %v", payload.ConversationId, err)
		msg.Nack()
		return
	}

	msg.Ack()
}
