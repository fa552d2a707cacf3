package controller

import (
	"os"

	"corevai-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IOAuthController interface {
	RegisterRoutes(r fiber.Router)
	Login(ctx *fiber.Ctx) error
	Callback(ctx *fiber.Ctx) error
}

type oauthController struct {
	service service.IOAuthService
}

func NewOAuthController(service service.IOAuthService) IOAuthController {
	return &oauthController{service: service}
}

func (c *oauthController) RegisterRoutes(r fiber.Router) {
	// e.g., /auth/google
	h := r.Group("/auth")
	h.Get("/:provider", c.Login)
	h.Get("/:provider/callback", c.Callback)
}

func (c *oauthController) Login(ctx *fiber.Ctx) error {
	provider := ctx.Params("provider")
	redirectTo := ctx.Query("redirect_to", "/")

	url, err := c.service.GetLoginURL(provider, redirectTo)
	if err != nil {
		return fail(ctx, err)
	}

	return ctx.Redirect(url)
}

func (c *oauthController) Callback(ctx *fiber.Ctx) error {
	provider := ctx.Params("provider")
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" || state == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"code":    400,
			"message": "Missing code or state",
		})
	}

	res, redirectTo, err := c.service.HandleCallback(ctx.Context(), provider, code, state)
	if err != nil {
		return fail(ctx, err)
	}

	setSessionCookie(ctx, res.AccessToken)

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	if redirectTo == "" {
		redirectTo = "/"
	}

	return ctx.Redirect(frontendURL + redirectTo)
}
