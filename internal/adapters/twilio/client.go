package twilio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ClareAI/astra-message-service/internal/domain"
	"github.com/ClareAI/astra-message-service/internal/storage"
	"github.com/ClareAI/astra-message-service/pkg/logger"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds SendTextWithRetry.
const DefaultMaxAttempts = 3

// messageCreator is the slice of the Twilio REST API the client depends on.
// *twilio.RestClient's Api service satisfies it.
type messageCreator interface {
	CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error)
}

// Client handles outbound WhatsApp delivery and authenticated media
// retrieval through the Twilio API.
type Client struct {
	messages   messageCreator
	httpClient *http.Client
	store      *storage.AudioStore

	accountSID string
	authToken  string
	from       string // sender address, e.g. "whatsapp:+14155238886"

	sleep func(time.Duration) // injectable for retry tests
}

// NewClient creates a Twilio messaging client.
func NewClient(accountSID, authToken, from string, store *storage.AudioStore) *Client {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &Client{
		messages: rest.Api,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		store:      store,
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		sleep:      time.Sleep,
	}
}

// SendText delivers a text message to the given recipient address.
func (c *Client) SendText(ctx context.Context, to, body string) (domain.DeliveryReceipt, error) {
	params := &api.CreateMessageParams{}
	params.SetTo(normalizeAddress(to))
	params.SetFrom(c.from)
	params.SetBody(body)

	resp, err := c.messages.CreateMessage(params)
	if err != nil {
		return domain.DeliveryReceipt{}, domain.NewDeliveryError("message could not be delivered", err)
	}

	receipt := domain.DeliveryReceipt{To: normalizeAddress(to)}
	if resp.Sid != nil {
		receipt.SID = *resp.Sid
	}
	logger.Base().Info("message delivered",
		zap.String("to", receipt.To),
		zap.String("sid", receipt.SID))
	return receipt, nil
}

// SendMedia delivers a media message. The media URL must be publicly
// reachable by the gateway.
func (c *Client) SendMedia(ctx context.Context, to, body, mediaURL string) (domain.DeliveryReceipt, error) {
	params := &api.CreateMessageParams{}
	params.SetTo(normalizeAddress(to))
	params.SetFrom(c.from)
	if body != "" {
		params.SetBody(body)
	}
	params.SetMediaUrl([]string{mediaURL})

	resp, err := c.messages.CreateMessage(params)
	if err != nil {
		return domain.DeliveryReceipt{}, domain.NewDeliveryError("message could not be delivered", err)
	}

	receipt := domain.DeliveryReceipt{To: normalizeAddress(to)}
	if resp.Sid != nil {
		receipt.SID = *resp.Sid
	}
	return receipt, nil
}

// SendTextWithRetry attempts delivery up to maxAttempts times with linear
// backoff (attempt x 1s). The final error is propagated after exhaustion.
func (c *Client) SendTextWithRetry(ctx context.Context, to, body string, maxAttempts int) (domain.DeliveryReceipt, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		receipt, err := c.SendText(ctx, to, body)
		if err == nil {
			return receipt, nil
		}
		lastErr = err
		logger.Base().Warn("message delivery attempt failed",
			zap.String("to", to),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err))
		if attempt < maxAttempts {
			c.sleep(time.Duration(attempt) * time.Second)
		}
	}
	return domain.DeliveryReceipt{}, lastErr
}

// FetchMedia downloads a voice attachment from a gateway media URL using
// Basic auth, persists it in the scratch store under the correlation id, and
// returns the payload. Size validation is the caller's job.
func (c *Client) FetchMedia(ctx context.Context, mediaURL, correlationID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, domain.NewAudioFetchError("could not download your voice message", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewAudioFetchError("could not download your voice message", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewAudioFetchError("could not download your voice message",
			fmt.Errorf("media fetch returned status %d", resp.StatusCode))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewAudioFetchError("could not download your voice message", err)
	}

	if _, err := c.store.Save(correlationID, payload); err != nil {
		// Scratch persistence is for downstream reuse and debugging; the
		// in-memory payload is still good, so log and continue.
		logger.Base().Warn("failed to persist voice note to scratch",
			zap.String("correlation_id", correlationID),
			zap.Error(err))
	}

	logger.Base().Info("voice note fetched",
		zap.String("correlation_id", correlationID),
		zap.Int("bytes", len(payload)))
	return payload, nil
}

// normalizeAddress ensures the WhatsApp channel prefix is present.
func normalizeAddress(to string) string {
	if strings.HasPrefix(to, "whatsapp:") {
		return to
	}
	return "whatsapp:" + to
}
