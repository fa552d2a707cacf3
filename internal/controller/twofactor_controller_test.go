package controller

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"corevai-be/internal/pkg/serverutils"
	"corevai-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStepUpService struct {
	service.ITwoFactorService
	passed bool
}

func (s *stubStepUpService) CheckStepUp(ctx context.Context, userId uuid.UUID, token string) (bool, error) {
	return s.passed, nil
}

func newStepUpApp(passed bool) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	app.Post("/guarded", serverutils.JwtMiddleware, RequireStepUp(&stubStepUpService{passed: passed}), func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{"ok": true})
	})
	return app
}

func TestRequireStepUpBlocksWithoutGrant(t *testing.T) {
	app := newStepUpApp(false)

	token, err := service.IssueSessionToken(uuid.New())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Missing grant answers with the standard error envelope, not a
	// bespoke body
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"success":false`)
	assert.Contains(t, string(body), service.ErrStepUpNeeded.Error())
}

func TestRequireStepUpPassesWithGrant(t *testing.T) {
	app := newStepUpApp(true)

	token, err := service.IssueSessionToken(uuid.New())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
