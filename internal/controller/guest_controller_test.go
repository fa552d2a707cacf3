package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"corevai-be/internal/constant"
	"corevai-be/internal/dto"
	"corevai-be/internal/pkg/serverutils"
	"corevai-be/internal/service"
	"corevai-be/pkg/llm"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatService struct {
	service.IChatService
}

func (s *stubChatService) StreamGuest(ctx context.Context, prompt string, onChunk llm.StreamFunc) error {
	for _, chunk := range []string{"echo: ", prompt} {
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}

func newGuestApp() *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewGuestController(&stubChatService{}).RegisterRoutes(api)
	return app
}

func guestCookie(used int) *http.Cookie {
	return &http.Cookie{Name: constant.GuestCookieName, Value: strconv.Itoa(used)}
}

func cookieValue(resp *http.Response, name string) (string, bool) {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

func TestGuestUsage(t *testing.T) {
	app := newGuestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/guest/usage", nil)
	req.AddCookie(guestCookie(12))

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"used":12`)
	assert.Contains(t, string(body), `"remaining":38`)
}

func TestGuestUsageMalformedCookie(t *testing.T) {
	app := newGuestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/guest/usage", nil)
	req.Header.Set("Cookie", constant.GuestCookieName+"=garbage")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"used":0`)
	assert.Contains(t, string(body), `"remaining":50`)
}

func TestGuestStreamReservesOne(t *testing.T) {
	app := newGuestApp()

	req := httptest.NewRequest(http.MethodPost, "/api/guest/stream", strings.NewReader(`{"content":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(guestCookie(48))

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-Guest-Remaining"))

	value, found := cookieValue(resp, constant.GuestCookieName)
	require.True(t, found)
	assert.Equal(t, "49", value)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "echo: hello", string(body))
}

func TestGuestStreamDeniedAtLimit(t *testing.T) {
	app := newGuestApp()

	req := httptest.NewRequest(http.MethodPost, "/api/guest/stream", strings.NewReader(`{"content":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(guestCookie(constant.GuestPromptLimit))

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "guest_limit_reached")
}

func TestGuestReset(t *testing.T) {
	app := newGuestApp()

	req := httptest.NewRequest(http.MethodPost, "/api/guest/reset", nil)
	req.AddCookie(guestCookie(50))

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	value, found := cookieValue(resp, constant.GuestCookieName)
	require.True(t, found)
	assert.Equal(t, "0", value)

	var out dto.GuestUsageResponse
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, constant.GuestPromptLimit, out.Remaining)
}

func TestGuestStreamSignedInBypassesLimit(t *testing.T) {
	app := newGuestApp()

	token, err := service.IssueSessionToken(uuid.New())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/guest/stream", strings.NewReader(`{"content":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.AddCookie(guestCookie(constant.GuestPromptLimit))

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "echo: hi", string(body))
}
