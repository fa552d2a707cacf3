package controller

import (
	"bufio"
	"context"
	"strconv"
	"time"

	"corevai-be/internal/constant"
	"corevai-be/internal/dto"
	"corevai-be/internal/pkg/limits"
	"corevai-be/internal/pkg/serverutils"
	"corevai-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// Guest endpoints serve visitors without accounts. Usage is tracked in a
// counter cookie; nothing a guest sends or receives is persisted.

type IGuestController interface {
	RegisterRoutes(r fiber.Router)
	Usage(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
}

type guestController struct {
	chatService service.IChatService
}

func NewGuestController(chatService service.IChatService) IGuestController {
	return &guestController{chatService: chatService}
}

func (c *guestController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/guest", serverutils.OptionalJwtMiddleware)
	h.Get("/usage", c.Usage)
	h.Post("/reset", c.Reset)
	h.Post("/stream", c.Stream)
}

func setGuestCookie(ctx *fiber.Ctx, used int) {
	ctx.Cookie(&fiber.Cookie{
		Name:     constant.GuestCookieName,
		Value:    strconv.Itoa(used),
		Path:     "/",
		MaxAge:   int(constant.GuestCookieMaxAge / time.Second),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

// reserveGuestQuota spends one anonymous prompt credit. On success the
// counter cookie is advanced and the new budget reported in a header.
func reserveGuestQuota(ctx *fiber.Ctx) bool {
	used := limits.Read(ctx.Cookies(constant.GuestCookieName))
	newUsed, remaining, allowed := limits.CheckAndReserve(used, constant.GuestPromptLimit)
	if !allowed {
		return false
	}
	setGuestCookie(ctx, newUsed)
	ctx.Set("X-Guest-Remaining", strconv.Itoa(remaining))
	return true
}

func guestLimitReached(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"ok":        false,
		"error":     "guest_limit_reached",
		"remaining": 0,
	})
}

func (c *guestController) Usage(ctx *fiber.Ctx) error {
	// Signed-in users are never limited.
	if _, signedIn := currentUserId(ctx); signedIn {
		return ctx.JSON(dto.GuestUsageResponse{
			Ok:        true,
			Remaining: constant.GuestPromptLimit,
			Limit:     constant.GuestPromptLimit,
		})
	}

	used := limits.Read(ctx.Cookies(constant.GuestCookieName))
	return ctx.JSON(dto.GuestUsageResponse{
		Ok:        true,
		Used:      used,
		Remaining: limits.Remaining(used, constant.GuestPromptLimit),
		Limit:     constant.GuestPromptLimit,
	})
}

// Reset zeroes the usage counter. The cookie is advisory, so handing
// guests a reset button costs nothing and helps local development.
func (c *guestController) Reset(ctx *fiber.Ctx) error {
	setGuestCookie(ctx, 0)
	return ctx.JSON(dto.GuestUsageResponse{
		Ok:        true,
		Remaining: constant.GuestPromptLimit,
		Limit:     constant.GuestPromptLimit,
	})
}

func (c *guestController) Stream(ctx *fiber.Ctx) error {
	var req struct {
		Content string `json:"content"`
	}
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	// The limit only applies to anonymous visitors.
	if _, signedIn := currentUserId(ctx); !signedIn {
		if !reserveGuestQuota(ctx) {
			return guestLimitReached(ctx)
		}
	}

	ctx.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")

	svc := c.chatService
	prompt := req.Content

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		streamCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		_ = svc.StreamGuest(streamCtx, prompt, func(chunk string) error {
			if _, werr := w.WriteString(chunk); werr != nil {
				return werr
			}
			return w.Flush()
		})
	}))

	return nil
}
