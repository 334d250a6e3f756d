package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ClareAI/astra-message-service/internal/core/task"
	"github.com/ClareAI/astra-message-service/internal/domain"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBus struct {
	tasks   []task.MessageTask
	failPub bool
}

func (b *recordingBus) Publish(ctx context.Context, t task.MessageTask) error {
	if b.failPub {
		return assert.AnError
	}
	b.tasks = append(b.tasks, t)
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, handler func(task.MessageTask)) error {
	return nil
}

func postForm(t *testing.T, router *mux.Router, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleInboundTextMessage(t *testing.T) {
	bus := &recordingBus{}
	router := mux.NewRouter()
	NewWebhookHandler(bus, "token", false, "").SetupWebhookRoutes(router)

	rec := postForm(t, router, url.Values{
		"From":       {"whatsapp:+14155551234"},
		"Body":       {"hello there"},
		"NumMedia":   {"0"},
		"MessageSid": {"SM123"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	require.Len(t, bus.tasks, 1)
	assert.Equal(t, "whatsapp:+14155551234", bus.tasks[0].Sender)
	assert.NotEmpty(t, bus.tasks[0].CorrelationID)

	var msg domain.InboundMessage
	require.NoError(t, json.Unmarshal(bus.tasks[0].Payload, &msg))
	assert.Equal(t, "hello there", msg.Body)
	assert.Equal(t, 0, msg.NumMedia)
	assert.Equal(t, "SM123", msg.MessageSID)
}

func TestHandleInboundVoiceMessage(t *testing.T) {
	bus := &recordingBus{}
	router := mux.NewRouter()
	NewWebhookHandler(bus, "token", false, "").SetupWebhookRoutes(router)

	rec := postForm(t, router, url.Values{
		"From":       {"whatsapp:+14155551234"},
		"NumMedia":   {"1"},
		"MediaUrl0":  {"https://api.twilio.com/media/ME42"},
		"MessageSid": {"SM456"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, bus.tasks, 1)
	var msg domain.InboundMessage
	require.NoError(t, json.Unmarshal(bus.tasks[0].Payload, &msg))
	assert.Equal(t, 1, msg.NumMedia)
	assert.Equal(t, "https://api.twilio.com/media/ME42", msg.MediaURL)
	assert.Equal(t, domain.MessageTypeVoice, msg.Type())
}

func TestHandleInboundAcknowledgesEvenWhenPublishFails(t *testing.T) {
	bus := &recordingBus{failPub: true}
	router := mux.NewRouter()
	NewWebhookHandler(bus, "token", false, "").SetupWebhookRoutes(router)

	rec := postForm(t, router, url.Values{
		"From": {"whatsapp:+14155551234"},
		"Body": {"hello"},
	})

	// The gateway retries on non-2xx, so the webhook acknowledges
	// regardless of downstream state.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHandleInboundRejectsBadSignature(t *testing.T) {
	bus := &recordingBus{}
	router := mux.NewRouter()
	NewWebhookHandler(bus, "token", true, "https://example.com").SetupWebhookRoutes(router)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("From=whatsapp%3A%2B1&Body=hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", "bogus")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, bus.tasks)
}

func TestHandleProbe(t *testing.T) {
	router := mux.NewRouter()
	NewWebhookHandler(&recordingBus{}, "token", false, "").SetupWebhookRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "active")
}
