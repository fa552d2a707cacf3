package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"corevai-be/internal/constant"
	"corevai-be/internal/entity"
	"corevai-be/internal/repository/specification"
	"corevai-be/internal/repository/unitofwork"
	"corevai-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.UserRepository())
	assert.NotNil(t, uow.ConversationRepository())
	assert.NotNil(t, uow.TwoFactorRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)
	t.Log("Successfully connected to DB and initialized UnitOfWork Factory")

	t.Run("Check Conversation Repository", func(t *testing.T) {
		count, err := uow.ConversationRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("Conversation count: %d", count)
	})

	t.Run("Conversation round trip", func(t *testing.T) {
		ctx := context.Background()
		uow := uowFactory.NewUnitOfWork(ctx)

		hash := "not-a-real-hash"
		user := &entity.User{
			Id:           uuid.New(),
			Email:        uuid.NewString() + "@integration.test",
			Name:         "Integration User",
			PasswordHash: &hash,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		require.NoError(t, uow.UserRepository().Create(ctx, user))
		defer uow.UserRepository().Delete(ctx, user.Id)

		title := "integration check"
		now := time.Now()
		conversation := &entity.Conversation{
			Id:        uuid.New(),
			OwnerId:   &user.Id,
			Title:     &title,
			CreatedAt: now,
			UpdatedAt: &now,
		}
		require.NoError(t, uow.ConversationRepository().Create(ctx, conversation))
		defer uow.ConversationRepository().Delete(ctx, conversation.Id)

		message := &entity.Message{
			Id:             uuid.New(),
			ConversationId: conversation.Id,
			Role:           constant.MessageRoleUser,
			Content:        "hello from the integration test",
			CreatedAt:      time.Now(),
		}
		require.NoError(t, uow.MessageRepository().Create(ctx, message))

		found, err := uow.MessageRepository().FindAll(ctx,
			specification.ByConversationID{ConversationID: conversation.Id},
			specification.OrderBy{Field: "created_at"},
		)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, message.Content, found[0].Content)
	})
}
