package controller

import (
	"corevai-be/internal/dto"
	"corevai-be/internal/pkg/serverutils"
	"corevai-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Signup(ctx *fiber.Ctx) error
	Login(ctx *fiber.Ctx) error
	LoginTwoFactor(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
	Me(ctx *fiber.Ctx) error
}

type authController struct {
	service     service.IAuthService
	userService service.IUserService
}

func NewAuthController(authService service.IAuthService, userService service.IUserService) IAuthController {
	return &authController{
		service:     authService,
		userService: userService,
	}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/signup", c.Signup)
	h.Post("/login", c.Login)
	h.Post("/login/2fa", c.LoginTwoFactor)
	h.Post("/logout", c.Logout)
	h.Get("/me", serverutils.JwtMiddleware, c.Me)
}

func (c *authController) Signup(ctx *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Signup(ctx.Context(), &req)
	if err != nil {
		return fail(ctx, err)
	}

	setSessionCookie(ctx, res.AccessToken)
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"code":    201,
		"message": "Account created",
		"data":    res,
	})
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Login(ctx.Context(), &req)
	if err != nil {
		return fail(ctx, err)
	}

	if res.RequiresTwoFactor {
		// No session cookie yet: the second factor is still outstanding.
		return ok(ctx, "Two-factor code required", res)
	}

	setSessionCookie(ctx, res.AccessToken)
	return ok(ctx, "Login successful", res)
}

func (c *authController) LoginTwoFactor(ctx *fiber.Ctx) error {
	var req dto.TwoFactorLoginRequest
	if err := serverutils.ParseAndValidate(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.CompleteTwoFactorLogin(ctx.Context(), &req)
	if err != nil {
		return fail(ctx, err)
	}

	setSessionCookie(ctx, res.AccessToken)
	return ok(ctx, "Login successful", res)
}

func (c *authController) Logout(ctx *fiber.Ctx) error {
	clearSessionCookie(ctx)
	return ok(ctx, "Logged out", nil)
}

func (c *authController) Me(ctx *fiber.Ctx) error {
	userId, found := currentUserId(ctx)
	if !found {
		return fail(ctx, service.ErrUnauthorized)
	}

	profile, err := c.userService.Profile(ctx.Context(), userId)
	if err != nil {
		return fail(ctx, err)
	}
	return ok(ctx, "Profile", profile)
}
