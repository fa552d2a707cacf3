package controller

import (
	"errors"
	"time"

	"corevai-be/internal/constant"
	"corevai-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// currentUserId reads the user id set by the JWT middleware.
func currentUserId(ctx *fiber.Ctx) (uuid.UUID, bool) {
	raw := ctx.Locals("user_id")
	idStr, ok := raw.(string)
	if !ok {
		return uuid.Nil, false
	}
	userId, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, false
	}
	return userId, true
}

// optionalUserId returns the session user or nil for anonymous visitors
// on routes behind OptionalJwtMiddleware.
func optionalUserId(ctx *fiber.Ctx) *uuid.UUID {
	if userId, found := currentUserId(ctx); found {
		return &userId
	}
	return nil
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrEmailTaken):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrNotSetup), errors.Is(err, service.ErrNotEnabled):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, service.ErrStepUpNeeded):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(ctx *fiber.Ctx, err error) error {
	code := errStatus(err)
	message := err.Error()
	if code == fiber.StatusInternalServerError {
		message = "Internal server error"
	}
	return ctx.Status(code).JSON(fiber.Map{
		"success": false,
		"code":    code,
		"message": message,
	})
}

func ok(ctx *fiber.Ctx, message string, data interface{}) error {
	return ctx.JSON(fiber.Map{
		"success": true,
		"code":    200,
		"message": message,
		"data":    data,
	})
}

func setSessionCookie(ctx *fiber.Ctx, token string) {
	ctx.Cookie(&fiber.Cookie{
		Name:     constant.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(constant.SessionTokenExpiry / time.Second),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

func clearSessionCookie(ctx *fiber.Ctx) {
	ctx.Cookie(&fiber.Cookie{
		Name:     constant.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

func setStepUpCookie(ctx *fiber.Ctx, token string) {
	ctx.Cookie(&fiber.Cookie{
		Name:     constant.StepUpCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(constant.StepUpWindow / time.Second),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}
