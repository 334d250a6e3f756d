package config

import "time"

// MessageGatewayConfig represents configuration for the WhatsApp message gateway
type MessageGatewayConfig struct {
	Port string

	// Twilio configuration (messaging gateway)
	TwilioAccountSID      string
	TwilioAuthToken       string
	TwilioWhatsAppFrom    string // sender address, e.g. "whatsapp:+14155238886"
	ValidateSignature     bool   // verify X-Twilio-Signature on inbound webhooks
	TwilioWebhookBaseURL  string // public base URL used for signature validation

	// Dialogflow CX agent configuration
	GoogleProjectID    string
	DialogflowLocation string
	DialogflowAgentID  string

	// Language configuration
	DefaultLanguage   string // primary transcription/intent language, e.g. "en"
	AlternateLanguage string // second-attempt transcription language, e.g. "es"

	// Audio configuration
	MaxAudioBytes int64  // inbound voice note size ceiling
	ScratchDir    string // transient audio storage location

	// Audio archive configuration (optional GCS upload of voice notes)
	AudioArchiveEnabled bool
	AudioArchiveBucket  string

	// Session configuration
	SessionStoreType string        // "memory" or "redis"
	SessionTimeout   time.Duration // declared for future eviction, not enforced by the memory store

	// Task bus configuration
	TaskBusType    string // "local" or "redis"
	TaskBusWorkers int

	// Admin API configuration
	AdminSecretKey string // JWT secret for /admin routes, empty disables auth

	// Instance identifier for multi-pod monitoring and routing
	InstanceID string
}

// DefaultMaxAudioBytes matches the messaging gateway's own attachment limit.
const DefaultMaxAudioBytes = 16 * 1024 * 1024
