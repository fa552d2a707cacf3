package bootstrap

import (
	"context"
	"log"

	"corevai-be/internal/config"
	"corevai-be/internal/controller"
	"corevai-be/internal/handler"
	"corevai-be/internal/pkg/logger"
	"corevai-be/internal/pkg/mailer"
	"corevai-be/internal/repository/memory"
	"corevai-be/internal/repository/stepup"
	"corevai-be/internal/repository/unitofwork"
	"corevai-be/internal/service"
	"corevai-be/internal/websocket"
	"corevai-be/pkg/llm/factory"
	pkgNats "corevai-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container holds all initialized components (Dependency Injection)
type Container struct {
	AuthController      controller.IAuthController
	OAuthController     controller.IOAuthController
	TwoFactorController controller.ITwoFactorController
	ChatController      controller.IChatController
	GuestController     controller.IGuestController
	ProjectController   controller.IProjectController
	UserController      controller.IUserController
	WsHandler           *handler.WsHandler

	TitleConsumerService service.ITitleConsumerService
	TwoFactorService     service.ITwoFactorService
	WebSocketHub         *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// Core Infrastructure
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// Messaging (Watermill Channel for async titling)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)

	// NATS JetStream for security events. The app degrades gracefully
	// when the broker is unreachable: events are dropped, not queued.
	var natsPub *pkgNats.Publisher
	var natsSub *pkgNats.Subscriber
	if pub, err := pkgNats.NewPublisher(cfg.App.NatsURL); err != nil {
		log.Printf("[WARN] NATS publisher unavailable: %v", err)
	} else {
		natsPub = pub
	}
	if sub, err := pkgNats.NewSubscriber(cfg.App.NatsURL); err != nil {
		log.Printf("[WARN] NATS subscriber unavailable: %v", err)
	} else {
		natsSub = sub
	}

	// Redis for step-up grants and websocket fanout
	var rdb *redis.Client
	if opts, err := redis.ParseURL(cfg.App.RedisURL); err != nil {
		log.Printf("[WARN] Invalid REDIS_URL, falling back to default options: %v", err)
		rdb = redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	} else {
		rdb = redis.NewClient(opts)
	}
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("[WARN] Redis unreachable: %v", err)
	}
	grantStore := stepup.NewRedisGrantStore(rdb)

	// LLM Provider
	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.BaseURL, cfg.Ai.APIKey)
	if err != nil {
		log.Panicf("Unable to initialize LLM provider: %v", err)
	}

	// WebSocket hub with its own log file
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// OAuth state nonces (in-memory, single redemption)
	stateRepo := memory.NewStateRepository()

	// Services
	publisherService := service.NewPublisherService(cfg.Keys.TitleTopic, pubSub)
	authService := service.NewAuthService(uowFactory, emailService)
	oauthService := service.NewOAuthService(uowFactory, stateRepo)
	twoFactorService := service.NewTwoFactorService(uowFactory, grantStore, natsPub)
	chatService := service.NewChatService(uowFactory, llmProvider, publisherService, sysLogger)
	projectService := service.NewProjectService(uowFactory)
	userService := service.NewUserService(uowFactory, grantStore, natsPub)
	titleConsumerService := service.NewTitleConsumerService(pubSub, cfg.Keys.TitleTopic, uowFactory, llmProvider)
	notificationService := service.NewNotificationService(uowFactory, natsSub, wsHub, emailService, wsLogger)

	if natsSub != nil {
		go notificationService.Start()
	}

	return &Container{
		AuthController:      controller.NewAuthController(authService, userService),
		OAuthController:     controller.NewOAuthController(oauthService),
		TwoFactorController: controller.NewTwoFactorController(twoFactorService),
		ChatController:      controller.NewChatController(chatService, sysLogger),
		GuestController:     controller.NewGuestController(chatService),
		ProjectController:   controller.NewProjectController(projectService),
		UserController:      controller.NewUserController(userService, twoFactorService, notificationService),
		WsHandler:           handler.NewWsHandler(wsHub, wsLogger),

		TitleConsumerService: titleConsumerService,
		TwoFactorService:     twoFactorService,
		WebSocketHub:         wsHub,
	}
}
