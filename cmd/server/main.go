package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ClareAI/astra-message-service/internal/config"
	"github.com/ClareAI/astra-message-service/internal/handler"
	"github.com/ClareAI/astra-message-service/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Server represents the WhatsApp message gateway server
type Server struct {
	config         *config.MessageGatewayConfig
	router         *mux.Router
	handlerManager *handler.HandlerManager
}

// NewServer creates a new WhatsApp message gateway server
func NewServer(cfg *config.MessageGatewayConfig) *Server {
	// Initialize zap logger and redirect stdlib log to it
	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		logger.Base().Error("Failed to initialize zap logger, falling back to std log")
	}

	// Create router
	router := mux.NewRouter()

	// Initialize handler manager - it will create all services internally
	handlerManager, err := handler.NewHandlerManager(cfg)
	if err != nil {
		logger.Base().Error("Failed to initialize handler manager", zap.Error(err))
		return nil
	}

	// Setup all routes through handler manager
	handlerManager.SetupAllRoutes(router)

	server := &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}

	return server
}

// Start starts the WhatsApp message gateway server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("Starting server", zap.String("addr", addr))
	return server.ListenAndServe()
}

// LoadConfigFromEnv loads message gateway configuration from environment
func LoadConfigFromEnv() *config.MessageGatewayConfig {
	cfg := &config.MessageGatewayConfig{
		Port: getEnvOrDefault("MESSAGE_GATEWAY_PORT", "8080"),

		// Twilio configuration
		TwilioAccountSID:     getEnvOrDefault("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:      getEnvOrDefault("TWILIO_AUTH_TOKEN", ""),
		TwilioWhatsAppFrom:   getEnvOrDefault("TWILIO_WHATSAPP_FROM", ""),
		ValidateSignature:    getEnvAsBoolOrDefault("TWILIO_VALIDATE_SIGNATURE", false),
		TwilioWebhookBaseURL: getEnvOrDefault("TWILIO_WEBHOOK_BASE_URL", ""),

		// Dialogflow CX agent configuration
		GoogleProjectID:    getEnvOrDefault("GOOGLE_PROJECT_ID", ""),
		DialogflowLocation: getEnvOrDefault("DIALOGFLOW_LOCATION", "global"),
		DialogflowAgentID:  getEnvOrDefault("DIALOGFLOW_AGENT_ID", ""),

		// Language configuration
		DefaultLanguage:   getEnvOrDefault("DEFAULT_LANGUAGE", "en"),
		AlternateLanguage: getEnvOrDefault("ALTERNATE_LANGUAGE", "es"),

		// Audio configuration
		MaxAudioBytes: getEnvAsInt64OrDefault("MAX_AUDIO_BYTES", config.DefaultMaxAudioBytes),
		ScratchDir:    getEnvOrDefault("AUDIO_SCRATCH_DIR", "voice-notes"),

		// Optional GCS archive of inbound voice notes
		AudioArchiveEnabled: getEnvAsBoolOrDefault("AUDIO_ARCHIVE_ENABLED", false),
		AudioArchiveBucket:  getEnvOrDefault("AUDIO_ARCHIVE_BUCKET", ""),

		// Session configuration
		SessionStoreType: getEnvOrDefault("SESSION_STORE_TYPE", "memory"),
		SessionTimeout:   time.Duration(getEnvAsIntOrDefault("SESSION_TIMEOUT_MINUTES", 60)) * time.Minute,

		// Task bus configuration
		TaskBusType:    getEnvOrDefault("TASK_BUS_TYPE", "local"),
		TaskBusWorkers: getEnvAsIntOrDefault("TASK_BUS_WORKERS", 4),

		// Admin API configuration
		AdminSecretKey: getEnvOrDefault("ADMIN_SECRET_KEY", ""),

		// Instance identifier for multi-pod monitoring and routing
		InstanceID: getDynamicInstanceID(),
	}

	return cfg
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault gets environment variable as bool or returns default
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDynamicInstanceID generates a unique identifier for this service instance.
// It first tries to use the system hostname (pod name in K8s),
// then falls back to a timestamp-based ID.
func getDynamicInstanceID() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return fmt.Sprintf("message-service-%d", time.Now().UnixNano())
}

func main() {
	// 0. Load .env file for local development if it exists
	// This will not override environment variables set by Helm/Docker
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	// 1. Load configuration from environment
	cfg := LoadConfigFromEnv()
	fmt.Printf("Starting Astra Message Service (Instance: %s)\n", cfg.InstanceID)

	// 2. Create the server
	server := NewServer(cfg)
	if server == nil {
		log.Fatal("Failed to create server")
	}
	logger.Base().Info("Server initialized successfully",
		zap.String("port", cfg.Port),
		zap.String("instance_id", cfg.InstanceID))

	// 3. Start the server
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
