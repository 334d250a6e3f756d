package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ClareAI/astra-message-service/internal/core/task"
	"github.com/ClareAI/astra-message-service/internal/domain"
	"github.com/ClareAI/astra-message-service/pkg/logger"
	"github.com/gorilla/mux"
	twclient "github.com/twilio/twilio-go/client"
	"go.uber.org/zap"
)

// WebhookHandler receives gateway message deliveries. The contract with the
// gateway is acknowledge-then-process: every delivery gets an immediate 200
// and the pass itself runs through the task bus.
type WebhookHandler struct {
	bus               task.Bus
	validator         twclient.RequestValidator
	validateSignature bool
	publicBaseURL     string // external URL the gateway signed against
}

// NewWebhookHandler creates the webhook handler. When validateSignature is
// set, X-Twilio-Signature is checked against the gateway auth token.
func NewWebhookHandler(bus task.Bus, authToken string, validateSignature bool, publicBaseURL string) *WebhookHandler {
	return &WebhookHandler{
		bus:               bus,
		validator:         twclient.NewRequestValidator(authToken),
		validateSignature: validateSignature,
		publicBaseURL:     publicBaseURL,
	}
}

// SetupWebhookRoutes registers the inbound webhook endpoints.
func (h *WebhookHandler) SetupWebhookRoutes(router *mux.Router) {
	router.HandleFunc("/webhook", h.HandleInbound).Methods("POST")
	router.HandleFunc("/webhook", h.HandleProbe).Methods("GET")
	logger.Base().Info("webhook routes registered",
		zap.Bool("signature_validation", h.validateSignature))
}

// HandleInbound parses one gateway delivery, hands it to the task bus, and
// acknowledges immediately. Downstream failures never change the response:
// the gateway would only redeliver, and the user already gets an apology
// from the processing pass.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		logger.Base().Warn("failed to parse webhook form", zap.Error(err))
		h.acknowledge(w)
		return
	}

	if h.validateSignature && !h.signatureValid(r) {
		logger.Base().Warn("webhook signature rejected",
			zap.String("remote_addr", r.RemoteAddr))
		http.Error(w, "signature verification failed", http.StatusForbidden)
		return
	}

	numMedia, _ := strconv.Atoi(r.PostFormValue("NumMedia"))
	msg := domain.InboundMessage{
		Sender:     r.PostFormValue("From"),
		Body:       r.PostFormValue("Body"),
		NumMedia:   numMedia,
		MediaURL:   r.PostFormValue("MediaUrl0"),
		MessageSID: r.PostFormValue("MessageSid"),
		ReceivedAt: time.Now().UTC(),
	}

	logger.Base().Info("webhook delivery received",
		zap.String("sender", msg.Sender),
		zap.String("message_sid", msg.MessageSID),
		zap.Int("num_media", msg.NumMedia))

	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Base().Error("failed to encode inbound message", zap.Error(err))
		h.acknowledge(w)
		return
	}

	if err := h.bus.Publish(r.Context(), task.MessageTask{
		Sender:        msg.Sender,
		CorrelationID: msg.MessageSID,
		Payload:       payload,
	}); err != nil {
		logger.Base().Error("failed to publish message task",
			zap.String("sender", msg.Sender),
			zap.Error(err))
	}

	h.acknowledge(w)
}

// HandleProbe answers connectivity checks on the webhook path.
func (h *WebhookHandler) HandleProbe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("WhatsApp agent webhook is active"))
}

func (h *WebhookHandler) acknowledge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// signatureValid checks X-Twilio-Signature over the public webhook URL and
// the posted form values.
func (h *WebhookHandler) signatureValid(r *http.Request) bool {
	url := h.publicBaseURL + r.URL.RequestURI()
	params := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return h.validator.Validate(url, params, r.Header.Get("X-Twilio-Signature"))
}
