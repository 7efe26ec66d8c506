package bootstrap

import (
	"context"
	"log"
	"time"

	"linguabridge-gateway/internal/config"
	"linguabridge-gateway/internal/controller"
	"linguabridge-gateway/internal/handler"
	"linguabridge-gateway/internal/pkg/logger"
	"linguabridge-gateway/internal/pkg/mailer"
	"linguabridge-gateway/internal/repository/memory"
	"linguabridge-gateway/internal/service"
	"linguabridge-gateway/internal/websocket"
	"linguabridge-gateway/pkg/backend"
	"linguabridge-gateway/pkg/events"
	"linguabridge-gateway/pkg/identity"

	pktNats "linguabridge-gateway/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	AuthController     controller.IAuthController
	SessionController  controller.ISessionController
	DocumentController controller.IDocumentController
	ChatController     controller.IChatController
	FeedbackController controller.IFeedbackController

	// Middleware
	Verifier *identity.Verifier

	// Background Services (Exposed for main.go to run)
	StateConsumer    service.IStateConsumer
	LifecycleService service.ILifecycleService

	// WebSockets
	SessionHandler *handler.SessionHandler
	WebSocketHub   *websocket.Hub

	Logger logger.ILogger

	uploads service.IUploadService
	intents service.IIntentService
	pubSub  *gochannel.GoChannel
	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	rdb     *redis.Client
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	backendClient := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
	identityProvider := identity.NewGoTrueProvider(cfg.Identity.URL, cfg.Identity.AnonKey, cfg.Backend.Timeout)
	verifier := identity.NewVerifier(cfg.Identity.JWTSecret)
	if cfg.Identity.JWTSecret == "" {
		log.Printf("[WARN] JWT_SECRET is empty; every bearer token will be rejected")
	}

	// 2. Snapshot Bus
	// Blocking publish keeps snapshots of one notifier in commit order.
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{BlockPublishUntilSubscriberAck: true},
		watermillLogger,
	)

	// 3. Infrastructure
	// NATS
	var eventPublisher events.Publisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, cfg.App.InstanceID)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		eventPublisher = natsPub
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Widgets only receive frames from this instance", err)
		_ = rdb.Close()
		rdb = nil
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	wsHub := websocket.NewHub(rdb, cfg.App.InstanceID, wsLogger)
	go wsHub.Run()

	// 4. Services
	statePublisher := service.NewStatePublisher(pubSub, service.SnapshotTopic, sysLogger)
	stateConsumer := service.NewStateConsumer(pubSub, service.SnapshotTopic, wsHub, sysLogger)

	sessionRepo := memory.NewSessionRepository(cfg.Session.TTL)
	sessionService := service.NewSessionService(
		sessionRepo,
		backendClient,
		statePublisher,
		stateConsumer,
		eventPublisher,
		sysLogger,
		cfg.Session.SettleDelay,
	)

	authService := service.NewAuthService(identityProvider, verifier, sessionService, sysLogger)
	intentService := service.NewIntentService(sysLogger)
	documentService := service.NewDocumentService(sysLogger)
	uploadService := service.NewUploadService(backendClient, wsHub, cfg.Backend.UploadTimeout, sysLogger)
	fileService := service.NewFileService(backendClient)
	chatService := service.NewChatService()
	var feedbackNotifier service.FeedbackNotifier
	if cfg.SMTP.Enabled() {
		feedbackNotifier = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.Email,
			cfg.SMTP.SenderName,
			cfg.SMTP.FeedbackRecipient,
		)
	}
	feedbackService := service.NewFeedbackService(backendClient, eventPublisher, feedbackNotifier, sysLogger)

	var lifecycleService service.ILifecycleService
	if natsSub != nil {
		lifecycleService = service.NewLifecycleService(natsSub, sessionService, cfg.App.InstanceID, sysLogger)
	}

	// 5. Controllers
	return &Container{
		AuthController:     controller.NewAuthController(authService),
		SessionController:  controller.NewSessionController(sessionService, intentService),
		DocumentController: controller.NewDocumentController(sessionService, documentService, uploadService, fileService),
		ChatController:     controller.NewChatController(sessionService, chatService),
		FeedbackController: controller.NewFeedbackController(sessionService, feedbackService),

		Verifier: verifier,

		StateConsumer:    stateConsumer,
		LifecycleService: lifecycleService,

		SessionHandler: handler.NewSessionHandler(verifier, sessionService, intentService, wsHub, wsLogger),
		WebSocketHub:   wsHub,

		Logger: sysLogger,

		uploads: uploadService,
		intents: intentService,
		pubSub:  pubSub,
		natsPub: natsPub,
		natsSub: natsSub,
		rdb:     rdb,
	}
}

// Close waits for in-flight uploads and chat turns, then releases the
// connections, giving up when ctx expires.
func (c *Container) Close(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		c.uploads.Wait()
		c.intents.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Printf("[WARN] Shutdown deadline reached with work in flight")
	}

	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	_ = c.pubSub.Close()
	_ = c.Logger.Sync()
}

// ShutdownTimeout bounds Close during a graceful stop.
const ShutdownTimeout = 10 * time.Second
