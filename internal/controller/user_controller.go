package controller

import (
	"corevai-be/internal/dto"
	"corevai-be/internal/pkg/serverutils"
	"corevai-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IUserController interface {
	RegisterRoutes(r fiber.Router)
	UpdatePassword(ctx *fiber.Ctx) error
	DeleteAccount(ctx *fiber.Ctx) error
	Notifications(ctx *fiber.Ctx) error
	MarkNotificationRead(ctx *fiber.Ctx) error
}

type userController struct {
	service             service.IUserService
	twoFactorService    service.ITwoFactorService
	notificationService *service.NotificationService
}

func NewUserController(userService service.IUserService, twoFactorService service.ITwoFactorService, notificationService *service.NotificationService) IUserController {
	return &userController{
		service:             userService,
		twoFactorService:    twoFactorService,
		notificationService: notificationService,
	}
}

func (c *userController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/me", serverutils.JwtMiddleware)
	// Password change and account deletion are step-up gated for
	// accounts with two-factor enabled.
	h.Put("/password", RequireStepUp(c.twoFactorService), c.UpdatePassword)
	h.Delete("/", RequireStepUp(c.twoFactorService), c.DeleteAccount)
	h.Get("/notifications", c.Notifications)
	h.Post("/notifications/:id/read", c.MarkNotificationRead)
}

func (c *userController) UpdatePassword(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	var req dto.UpdatePasswordRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	if err := c.service.UpdatePassword(ctx.Context(), userId, &req); err != nil {
		return fail(ctx, err)
	}
	return ok(ctx, "Password updated", nil)
}

func (c *userController) DeleteAccount(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	if err := c.service.DeleteAccount(ctx.Context(), userId); err != nil {
		return fail(ctx, err)
	}

	clearSessionCookie(ctx)
	return ok(ctx, "Account deleted", nil)
}

func (c *userController) Notifications(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	limit := ctx.QueryInt("limit", 50)
	res, err := c.notificationService.List(ctx.Context(), userId, limit)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *userController) MarkNotificationRead(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	notificationId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fail(ctx, service.ErrNotFound)
	}

	if err := c.notificationService.MarkRead(ctx.Context(), userId, notificationId); err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(fiber.Map{"ok": true})
}
