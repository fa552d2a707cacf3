package controller

import (
	"corevai-be/internal/constant"
	"corevai-be/internal/dto"
	"corevai-be/internal/pkg/serverutils"
	"corevai-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ITwoFactorController interface {
	RegisterRoutes(r fiber.Router)
	Status(ctx *fiber.Ctx) error
	Setup(ctx *fiber.Ctx) error
	Verify(ctx *fiber.Ctx) error
	Disable(ctx *fiber.Ctx) error
	RegenerateCodes(ctx *fiber.Ctx) error
	StepUp(ctx *fiber.Ctx) error
}

type twoFactorController struct {
	service service.ITwoFactorService
}

func NewTwoFactorController(service service.ITwoFactorService) ITwoFactorController {
	return &twoFactorController{service: service}
}

func (c *twoFactorController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/settings/totp", serverutils.JwtMiddleware)
	h.Get("/status", c.Status)
	h.Post("/setup", c.Setup)
	h.Post("/verify", c.Verify)
	h.Post("/disable", c.Disable)
	h.Post("/backup-codes", RequireStepUp(c.service), c.RegenerateCodes)

	r.Post("/settings/stepup", serverutils.JwtMiddleware, c.StepUp)
}

// RequireStepUp gates sensitive operations behind a recent TOTP or
// backup-code verification. Accounts without two-factor pass through.
func RequireStepUp(svc service.ITwoFactorService) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		userId, found := currentUserId(ctx)
		if !found {
			return fail(ctx, service.ErrUnauthorized)
		}

		token := ctx.Cookies(constant.StepUpCookieName)
		passed, err := svc.CheckStepUp(ctx.Context(), userId, token)
		if err != nil {
			return fail(ctx, err)
		}
		if !passed {
			return fail(ctx, service.ErrStepUpNeeded)
		}
		return ctx.Next()
	}
}

func (c *twoFactorController) Status(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	res, err := c.service.Status(ctx.Context(), userId)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *twoFactorController) Setup(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	res, err := c.service.StartSetup(ctx.Context(), userId)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *twoFactorController) Verify(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	var req dto.TwoFactorVerifyRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.VerifyAndEnable(ctx.Context(), userId, req.Code)
	if err != nil {
		return fail(ctx, err)
	}

	if res.GrantToken != "" {
		setStepUpCookie(ctx, res.GrantToken)
	}
	return ctx.JSON(res)
}

// Disable proves possession with a live TOTP code or an unused backup
// code instead of a step-up grant, so losing the grant cookie never
// locks a user out of turning two-factor off.
func (c *twoFactorController) Disable(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	var req dto.TwoFactorVerifyRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	if err := c.service.Disable(ctx.Context(), userId, req.Code); err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(dto.TwoFactorOkResponse{Ok: true})
}

func (c *twoFactorController) RegenerateCodes(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	res, err := c.service.RegenerateBackupCodes(ctx.Context(), userId)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *twoFactorController) StepUp(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	var req dto.TwoFactorVerifyRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	token, err := c.service.StepUpVerify(ctx.Context(), userId, req.Code)
	if err != nil {
		return fail(ctx, err)
	}

	setStepUpCookie(ctx, token)
	return ctx.JSON(dto.TwoFactorOkResponse{Ok: true})
}
