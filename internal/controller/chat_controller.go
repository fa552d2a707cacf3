package controller

import (
	"bufio"
	"context"
	"time"

	"corevai-be/internal/dto"
	"corevai-be/internal/pkg/logger"
	"corevai-be/internal/pkg/serverutils"
	"corevai-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Sidebar(ctx *fiber.Ctx) error
	Recents(ctx *fiber.Ctx) error
	CreateConversation(ctx *fiber.Ctx) error
	UpdateConversation(ctx *fiber.Ctx) error
	DeleteConversation(ctx *fiber.Ctx) error
	ListMessages(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
	logger  logger.ILogger
}

func NewChatController(service service.IChatService, log logger.ILogger) IChatController {
	return &chatController{
		service: service,
		logger:  log,
	}
}

// Conversation create/read/send/stream accept anonymous visitors, who
// work against ownerless conversations under the guest prompt limit.
// Sidebar and conversation management stay account-only.
func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat")
	h.Get("/sidebar", serverutils.JwtMiddleware, c.Sidebar)
	h.Get("/conversations/recents", serverutils.JwtMiddleware, c.Recents)
	h.Post("/conversations", serverutils.OptionalJwtMiddleware, c.CreateConversation)
	h.Patch("/conversations/:id", serverutils.JwtMiddleware, c.UpdateConversation)
	h.Delete("/conversations/:id", serverutils.JwtMiddleware, c.DeleteConversation)
	h.Get("/conversations/:id/messages", serverutils.OptionalJwtMiddleware, c.ListMessages)
	h.Post("/messages", serverutils.OptionalJwtMiddleware, c.SendMessage)
	h.Post("/conversations/:id/stream", serverutils.OptionalJwtMiddleware, c.Stream)
}

func (c *chatController) Sidebar(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	res, err := c.service.Sidebar(ctx.Context(), userId)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *chatController) Recents(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	limit := ctx.QueryInt("limit", 20)
	res, err := c.service.Recents(ctx.Context(), userId, limit)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *chatController) CreateConversation(ctx *fiber.Ctx) error {
	var req dto.CreateConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	res, err := c.service.CreateConversation(ctx.Context(), optionalUserId(ctx), &req)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(res)
}

func (c *chatController) UpdateConversation(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	conversationId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fail(ctx, service.ErrNotFound)
	}

	var req dto.UpdateConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.Id = conversationId

	res, err := c.service.UpdateConversation(ctx.Context(), userId, &req)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *chatController) DeleteConversation(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	conversationId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fail(ctx, service.ErrNotFound)
	}

	if err := c.service.DeleteConversation(ctx.Context(), userId, conversationId); err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(fiber.Map{"ok": true})
}

func (c *chatController) ListMessages(ctx *fiber.Ctx) error {
	conversationId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fail(ctx, service.ErrNotFound)
	}

	res, err := c.service.ListMessages(ctx.Context(), optionalUserId(ctx), conversationId)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	userId := optionalUserId(ctx)
	if userId == nil && !reserveGuestQuota(ctx) {
		return guestLimitReached(ctx)
	}

	res, err := c.service.SendMessage(ctx.Context(), userId, &req)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(res)
}

// Stream creates the assistant placeholder, announces its id in the
// X-Assistant-Id header, then streams plain-text chunks. The row is
// finalized server-side even when the client disconnects, so a follow-up
// message list always reconciles.
func (c *chatController) Stream(ctx *fiber.Ctx) error {
	conversationId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fail(ctx, service.ErrNotFound)
	}

	assistantId, err := c.service.PrepareAssistantMessage(ctx.Context(), optionalUserId(ctx), conversationId)
	if err != nil {
		return fail(ctx, err)
	}

	ctx.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	ctx.Set("X-Assistant-Id", assistantId.String())

	svc := c.service
	log := c.logger

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// The fiber ctx is gone once this writer runs; use an
		// independent deadline for the model call.
		streamCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		err := svc.StreamAssistant(streamCtx, conversationId, assistantId, func(chunk string) error {
			if _, werr := w.WriteString(chunk); werr != nil {
				return werr
			}
			// Flush per chunk so tokens reach the client as they arrive.
			return w.Flush()
		})
		if err != nil {
			log.Warn("Chat", "Stream ended with error", map[string]interface{}{
				"conversation_id": conversationId,
				"error":           err.Error(),
			})
		}
	}))

	return nil
}
