package handler

import (
	"context"
	"fmt"
	"os"

	"github.com/ClareAI/astra-message-service/internal/adapters/dialogflow"
	"github.com/ClareAI/astra-message-service/internal/adapters/speech"
	"github.com/ClareAI/astra-message-service/internal/adapters/tts"
	twiliogw "github.com/ClareAI/astra-message-service/internal/adapters/twilio"
	"github.com/ClareAI/astra-message-service/internal/config"
	"github.com/ClareAI/astra-message-service/internal/core/language"
	"github.com/ClareAI/astra-message-service/internal/core/session"
	"github.com/ClareAI/astra-message-service/internal/core/task"
	"github.com/ClareAI/astra-message-service/internal/services/orchestrator"
	"github.com/ClareAI/astra-message-service/internal/storage"
	"github.com/ClareAI/astra-message-service/pkg/logger"
	"github.com/ClareAI/astra-message-service/pkg/redis"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandlerManager manages all handlers and their initialization
type HandlerManager struct {
	config   *config.MessageGatewayConfig
	service  *orchestrator.Service
	sessions session.Store
	taskBus  task.Bus
	audio    *storage.AudioStore
	gateway  *twiliogw.Client
}

// NewHandlerManager creates and initializes all services and handlers
func NewHandlerManager(cfg *config.MessageGatewayConfig) (*HandlerManager, error) {
	ctx := context.Background()

	// Scratch store for voice notes, with optional GCS archive
	archiveBucket := ""
	if cfg.AudioArchiveEnabled {
		archiveBucket = cfg.AudioArchiveBucket
	}
	audioStore, err := storage.NewAudioStore(ctx, cfg.ScratchDir, cfg.MaxAudioBytes, archiveBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio store: %w", err)
	}

	// Redis backs the session store and task bus when configured; the
	// default memory/local pair needs no external services.
	var redisSvc redis.RedisServiceInterface
	if cfg.SessionStoreType == "redis" || cfg.TaskBusType == "redis" {
		redisSvc, err = newRedisService()
		if err != nil {
			logger.Base().Warn("failed to initialize redis, falling back to in-process stores", zap.Error(err))
			redisSvc = nil
		}
	}

	var sessions session.Store
	if cfg.SessionStoreType == "redis" && redisSvc != nil {
		sessions = session.NewRedisStore(redisSvc, cfg.SessionTimeout)
		logger.Base().Info("session store: redis", zap.Duration("ttl", cfg.SessionTimeout))
	} else {
		sessions = session.NewMemoryStore(cfg.SessionTimeout)
		logger.Base().Info("session store: memory",
			zap.Duration("configured_timeout", cfg.SessionTimeout))
	}

	var taskBus task.Bus
	if cfg.TaskBusType == "redis" && redisSvc != nil {
		taskBus = task.NewRedisBus(redisSvc)
		logger.Base().Info("task bus: redis")
	} else {
		taskBus = task.NewLocalBus(64, cfg.TaskBusWorkers)
		logger.Base().Info("task bus: local", zap.Int("workers", cfg.TaskBusWorkers))
	}

	// Gateway client (outbound messaging + media retrieval)
	gateway := twiliogw.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, audioStore)

	// Cloud adapters
	transcriber, err := speech.NewClient(ctx, cfg.DefaultLanguage, cfg.AlternateLanguage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize transcription adapter: %w", err)
	}
	agent, err := dialogflow.NewClient(ctx, cfg.GoogleProjectID, cfg.DialogflowLocation, cfg.DialogflowAgentID, sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize intent adapter: %w", err)
	}
	synth, err := tts.NewClient(ctx, audioStore)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize synthesis adapter: %w", err)
	}

	// Orchestrator with interface-typed adapter handles
	service := orchestrator.NewService(gateway, transcriber, agent, synth, audioStore, language.NewMarkerDetector())

	// Start draining the task bus before the webhook can publish to it
	if err := taskBus.Subscribe(ctx, service.HandleTask); err != nil {
		return nil, fmt.Errorf("failed to subscribe to task bus: %w", err)
	}

	return &HandlerManager{
		config:   cfg,
		service:  service,
		sessions: sessions,
		taskBus:  taskBus,
		audio:    audioStore,
		gateway:  gateway,
	}, nil
}

// SetupAllRoutes sets up all routes with middleware
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	// Apply global middleware
	router.Use(CORSMiddleware)
	router.Use(GlobalLoggingMiddleware)

	// Inbound webhook routes
	webhookHandler := NewWebhookHandler(hm.taskBus, hm.config.TwilioAuthToken, hm.config.ValidateSignature, hm.config.TwilioWebhookBaseURL)
	webhookHandler.SetupWebhookRoutes(router)

	// Admin session routes, JWT-protected when a secret is configured
	adminRouter := router.PathPrefix("/admin").Subrouter()
	adminRouter.Use(APIKeyMiddleware(hm.config.AdminSecretKey))
	sessionHandler := NewSessionHandler(hm.sessions)
	sessionHandler.SetupSessionRoutes(adminRouter)

	// Health and service descriptor
	systemHandler := NewSystemHandler(hm.config.InstanceID)
	systemHandler.SetupSystemRoutes(router)

	logger.Base().Info("all application routes registered")
}

// GetService returns the message orchestrator
func (hm *HandlerManager) GetService() *orchestrator.Service {
	return hm.service
}

// GetSessionStore returns the session registry
func (hm *HandlerManager) GetSessionStore() session.Store {
	return hm.sessions
}

// Close releases resources held by the handler manager
func (hm *HandlerManager) Close() error {
	return hm.audio.Close()
}

// newRedisService builds the redis client from the conventional env vars.
func newRedisService() (redis.RedisServiceInterface, error) {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	return redis.NewRedisService(&redis.RedisConfig{
		Host:     host,
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
}
