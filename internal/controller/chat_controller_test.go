package controller

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"corevai-be/internal/constant"
	"corevai-be/internal/dto"
	"corevai-be/internal/pkg/serverutils"
	"corevai-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }

// recordingChatService captures the owner passed by the controller so
// tests can verify how anonymous requests are presented to the service.
type recordingChatService struct {
	service.IChatService
	lastOwner    *uuid.UUID
	ownerWasSet  bool
	sendMessages int
}

func (s *recordingChatService) CreateConversation(ctx context.Context, ownerId *uuid.UUID, req *dto.CreateConversationRequest) (*dto.ConversationDTO, error) {
	s.lastOwner = ownerId
	s.ownerWasSet = true
	return &dto.ConversationDTO{Id: uuid.New()}, nil
}

func (s *recordingChatService) SendMessage(ctx context.Context, ownerId *uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	s.lastOwner = ownerId
	s.ownerWasSet = true
	s.sendMessages++
	return &dto.SendMessageResponse{ConversationId: uuid.New()}, nil
}

func newChatApp(svc *recordingChatService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewChatController(svc, noopLogger{}).RegisterRoutes(api)
	return app
}

func TestCreateConversationAnonymous(t *testing.T) {
	svc := &recordingChatService{}
	app := newChatApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/conversations", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// No session means an ownerless conversation, not a 401
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, svc.ownerWasSet)
	assert.Nil(t, svc.lastOwner)
}

func TestCreateConversationSignedInKeepsOwner(t *testing.T) {
	svc := &recordingChatService{}
	app := newChatApp(svc)

	userId := uuid.New()
	token, err := service.IssueSessionToken(userId)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/conversations", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotNil(t, svc.lastOwner)
	assert.Equal(t, userId, *svc.lastOwner)
}

func TestSendMessageGuestSpendsQuota(t *testing.T) {
	svc := &recordingChatService{}
	app := newChatApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(`{"content":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(guestCookie(48))

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Nil(t, svc.lastOwner)

	value, found := cookieValue(resp, constant.GuestCookieName)
	require.True(t, found)
	assert.Equal(t, "49", value)
}

func TestSendMessageGuestDeniedAtLimit(t *testing.T) {
	svc := &recordingChatService{}
	app := newChatApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(`{"content":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(guestCookie(constant.GuestPromptLimit))

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 0, svc.sendMessages)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "guest_limit_reached")
}

func TestSidebarStillRequiresSession(t *testing.T) {
	app := newChatApp(&recordingChatService{})

	req := httptest.NewRequest(http.MethodGet, "/api/chat/sidebar", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
