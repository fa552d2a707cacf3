package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"corevai-be/internal/constant"
	"corevai-be/internal/dto"
	"corevai-be/internal/entity"
	"corevai-be/internal/pkg/logger"
	"corevai-be/internal/repository/specification"
	"corevai-be/internal/repository/unitofwork"
	"corevai-be/pkg/llm"

	"github.com/google/uuid"
)

// Conversation-scoped operations take a nullable owner: nil means an
// anonymous visitor, who may create and use ownerless conversations but
// never sees account-owned ones.
type IChatService interface {
	Sidebar(ctx context.Context, userId uuid.UUID) (*dto.SidebarResponse, error)
	Recents(ctx context.Context, userId uuid.UUID, limit int) ([]dto.ConversationDTO, error)
	CreateConversation(ctx context.Context, ownerId *uuid.UUID, req *dto.CreateConversationRequest) (*dto.ConversationDTO, error)
	UpdateConversation(ctx context.Context, userId uuid.UUID, req *dto.UpdateConversationRequest) (*dto.ConversationDTO, error)
	DeleteConversation(ctx context.Context, userId uuid.UUID, conversationId uuid.UUID) error
	ListMessages(ctx context.Context, ownerId *uuid.UUID, conversationId uuid.UUID) ([]dto.MessageDTO, error)

	SendMessage(ctx context.Context, ownerId *uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	PrepareAssistantMessage(ctx context.Context, ownerId *uuid.UUID, conversationId uuid.UUID) (uuid.UUID, error)
	StreamAssistant(ctx context.Context, conversationId, assistantId uuid.UUID, onChunk llm.StreamFunc) error

	// StreamGuest answers a single prompt without persisting anything.
	StreamGuest(ctx context.Context, prompt string, onChunk llm.StreamFunc) error
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	llmProvider      llm.LLMProvider
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	publisherService IPublisherService,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:       uowFactory,
		llmProvider:      llmProvider,
		publisherService: publisherService,
		logger:           log,
	}
}

func conversationDTO(c *entity.Conversation) dto.ConversationDTO {
	title := constant.ConversationDefaultTitle
	if c.Title != nil && *c.Title != "" {
		title = *c.Title
	}
	return dto.ConversationDTO{
		Id:        c.Id,
		Title:     title,
		Pinned:    c.Pinned,
		ProjectId: c.ProjectId,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func messageDTO(m *entity.Message) dto.MessageDTO {
	return dto.MessageDTO{
		Id:             m.Id,
		ConversationId: m.ConversationId,
		Role:           m.Role,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

// ownedConversation loads a conversation and enforces ownership. An
// ownerless conversation belongs to the anonymous visitor (nil owner);
// mismatches report NotFound so existence never leaks.
func (s *chatService) ownedConversation(ctx context.Context, uow unitofwork.UnitOfWork, ownerId *uuid.UUID, conversationId uuid.UUID) (*entity.Conversation, error) {
	conv, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: conversationId})
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrNotFound
	}
	if conv.OwnerId == nil {
		if ownerId != nil {
			return nil, ErrNotFound
		}
		return conv, nil
	}
	if ownerId == nil || *conv.OwnerId != *ownerId {
		return nil, ErrNotFound
	}
	return conv, nil
}

func (s *chatService) Sidebar(ctx context.Context, userId uuid.UUID) (*dto.SidebarResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	pinned, err := uow.ConversationRepository().FindAll(ctx,
		specification.OwnedBy{OwnerID: userId},
		specification.Pinned{Value: true},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	recents, err := uow.ConversationRepository().FindAll(ctx,
		specification.OwnedBy{OwnerID: userId},
		specification.Pinned{Value: false},
		specification.OrderBy{Field: "updated_at", Desc: true},
		specification.Limit{N: constant.SidebarRecentsLimit},
	)
	if err != nil {
		return nil, err
	}

	resp := &dto.SidebarResponse{
		Pinned:  make([]dto.ConversationDTO, len(pinned)),
		Recents: make([]dto.ConversationDTO, len(recents)),
	}
	for i, c := range pinned {
		resp.Pinned[i] = conversationDTO(c)
	}
	for i, c := range recents {
		resp.Recents[i] = conversationDTO(c)
	}
	return resp, nil
}

func (s *chatService) Recents(ctx context.Context, userId uuid.UUID, limit int) ([]dto.ConversationDTO, error) {
	// Clamp to a sane window.
	if limit < 1 {
		limit = 1
	}
	if limit > 50 {
		limit = 50
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	convs, err := uow.ConversationRepository().FindAll(ctx,
		specification.OwnedBy{OwnerID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
		specification.Limit{N: limit},
	)
	if err != nil {
		return nil, err
	}

	result := make([]dto.ConversationDTO, len(convs))
	for i, c := range convs {
		result[i] = conversationDTO(c)
	}
	return result, nil
}

func (s *chatService) CreateConversation(ctx context.Context, ownerId *uuid.UUID, req *dto.CreateConversationRequest) (*dto.ConversationDTO, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	// Projects are account-scoped; anonymous conversations stay detached.
	if req.ProjectId != nil {
		if ownerId == nil {
			return nil, ErrNotFound
		}
		project, err := uow.ProjectRepository().FindOne(ctx, specification.ByID{ID: *req.ProjectId})
		if err != nil {
			return nil, err
		}
		if project == nil || project.OwnerId != *ownerId {
			return nil, ErrNotFound
		}
	}

	now := time.Now()
	conv := &entity.Conversation{
		Id:        uuid.New(),
		OwnerId:   ownerId,
		ProjectId: req.ProjectId,
		Title:     req.Title,
		Pinned:    false,
		CreatedAt: now,
		UpdatedAt: &now,
	}
	if err := uow.ConversationRepository().Create(ctx, conv); err != nil {
		return nil, err
	}

	result := conversationDTO(conv)
	return &result, nil
}

func (s *chatService) UpdateConversation(ctx context.Context, userId uuid.UUID, req *dto.UpdateConversationRequest) (*dto.ConversationDTO, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conv, err := s.ownedConversation(ctx, uow, &userId, req.Id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		conv.Title = req.Title
	}
	if req.Pinned != nil {
		conv.Pinned = *req.Pinned
	}
	if req.ProjectId != nil {
		project, err := uow.ProjectRepository().FindOne(ctx, specification.ByID{ID: *req.ProjectId})
		if err != nil {
			return nil, err
		}
		if project == nil || project.OwnerId != userId {
			return nil, ErrNotFound
		}
		conv.ProjectId = req.ProjectId
	}

	now := time.Now()
	conv.UpdatedAt = &now
	if err := uow.ConversationRepository().Update(ctx, conv); err != nil {
		return nil, err
	}

	result := conversationDTO(conv)
	return &result, nil
}

func (s *chatService) DeleteConversation(ctx context.Context, userId uuid.UUID, conversationId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.ownedConversation(ctx, uow, &userId, conversationId); err != nil {
		return err
	}

	return uow.ConversationRepository().Delete(ctx, conversationId)
}

func (s *chatService) ListMessages(ctx context.Context, ownerId *uuid.UUID, conversationId uuid.UUID) ([]dto.MessageDTO, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.ownedConversation(ctx, uow, ownerId, conversationId); err != nil {
		return nil, err
	}

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	result := make([]dto.MessageDTO, len(messages))
	for i, m := range messages {
		result[i] = messageDTO(m)
	}
	return result, nil
}

// SendMessage persists the user's prompt, creating the conversation on
// first use. The first prompt of a conversation is queued for async
// titling.
func (s *chatService) SendMessage(ctx context.Context, ownerId *uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrInvalidInput
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	var conv *entity.Conversation
	var err error
	firstMessage := false

	if req.ConversationId == nil {
		now := time.Now()
		conv = &entity.Conversation{
			Id:        uuid.New(),
			OwnerId:   ownerId,
			CreatedAt: now,
			UpdatedAt: &now,
		}
		firstMessage = true
	} else {
		conv, err = s.ownedConversation(ctx, uow, ownerId, *req.ConversationId)
		if err != nil {
			return nil, err
		}
		count, err := uow.MessageRepository().Count(ctx, specification.ByConversationID{ConversationID: conv.Id})
		if err != nil {
			return nil, err
		}
		firstMessage = count == 0
	}

	userMsg := &entity.Message{
		Id:             uuid.New(),
		ConversationId: conv.Id,
		Role:           constant.MessageRoleUser,
		Content:        content,
		CreatedAt:      time.Now(),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if req.ConversationId == nil {
		if err := uow.ConversationRepository().Create(ctx, conv); err != nil {
			return nil, err
		}
	}
	if err := uow.MessageRepository().Create(ctx, userMsg); err != nil {
		return nil, err
	}
	if err := uow.ConversationRepository().Touch(ctx, conv.Id); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	// Queue async titling when the conversation has no title yet.
	if firstMessage && (conv.Title == nil || *conv.Title == "") {
		payload := dto.PublishTitleMessage{
			ConversationId: conv.Id,
			FirstPrompt:    content,
		}
		payloadJson, err := json.Marshal(payload)
		if err == nil {
			if err := s.publisherService.Publish(ctx, payloadJson); err != nil {
				s.logger.Warn("Chat", "Failed to queue title generation", map[string]interface{}{
					"conversation_id": conv.Id,
					"error":           err.Error(),
				})
			}
		}
	}

	return &dto.SendMessageResponse{
		ConversationId: conv.Id,
		UserMessage:    messageDTO(userMsg),
	}, nil
}

// PrepareAssistantMessage creates the placeholder row before streaming
// begins so the client can reconcile by id even if the stream is cut.
func (s *chatService) PrepareAssistantMessage(ctx context.Context, ownerId *uuid.UUID, conversationId uuid.UUID) (uuid.UUID, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.ownedConversation(ctx, uow, ownerId, conversationId); err != nil {
		return uuid.Nil, err
	}

	assistantMsg := &entity.Message{
		Id:             uuid.New(),
		ConversationId: conversationId,
		Role:           constant.MessageRoleAssistant,
		Content:        "",
		CreatedAt:      time.Now(),
	}
	if err := uow.MessageRepository().Create(ctx, assistantMsg); err != nil {
		return uuid.Nil, err
	}

	return assistantMsg.Id, nil
}

func (s *chatService) buildHistory(ctx context.Context, uow unitofwork.UnitOfWork, conversationId, excludeId uuid.UUID) ([]llm.Message, error) {
	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		if m.Id == excludeId || m.Content == "" {
			continue
		}
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	return history, nil
}

// StreamAssistant runs the model over the conversation history and
// updates the placeholder row exactly once at the end. A failed or
// interrupted stream leaves an explicit error marker, never a silent
// empty message.
func (s *chatService) StreamAssistant(ctx context.Context, conversationId, assistantId uuid.UUID, onChunk llm.StreamFunc) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	history, err := s.buildHistory(ctx, uow, conversationId, assistantId)
	if err != nil {
		return err
	}

	full, streamErr := s.llmProvider.ChatStream(ctx, history, onChunk)

	// Finalize with a background-derived context: the request context is
	// likely canceled when the client disconnected mid-stream.
	finalizeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	finalizeUow := s.uowFactory.NewUnitOfWork(finalizeCtx)

	content := full
	if streamErr != nil {
		s.logger.Error("Chat", "Assistant stream failed", map[string]interface{}{
			"conversation_id": conversationId,
			"error":           streamErr.Error(),
		})
		if content != "" {
			content += "\n\n[reply interrupted]"
		} else {
			content = "[reply failed]"
		}
	}

	if err := finalizeUow.MessageRepository().UpdateContent(finalizeCtx, assistantId, content); err != nil {
		return fmt.Errorf("finalize assistant message: %w", err)
	}
	if err := finalizeUow.ConversationRepository().Touch(finalizeCtx, conversationId); err != nil {
		s.logger.Warn("Chat", "Failed to touch conversation", map[string]interface{}{
			"conversation_id": conversationId,
			"error":           err.Error(),
		})
	}

	return streamErr
}

func (s *chatService) StreamGuest(ctx context.Context, prompt string, onChunk llm.StreamFunc) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ErrInvalidInput
	}
	_, err := s.llmProvider.ChatStream(ctx, []llm.Message{{Role: "user", Content: prompt}}, onChunk)
	return err
}
