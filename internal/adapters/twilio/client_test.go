package twilio

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ClareAI/astra-message-service/internal/domain"
	"github.com/ClareAI/astra-message-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeMessageAPI struct {
	calls     int
	failN     int // fail the first failN calls
	lastTo    string
	lastBody  string
	lastMedia []string
}

func (f *fakeMessageAPI) CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error) {
	f.calls++
	if params.To != nil {
		f.lastTo = *params.To
	}
	if params.Body != nil {
		f.lastBody = *params.Body
	}
	if params.MediaUrl != nil {
		f.lastMedia = *params.MediaUrl
	}
	if f.calls <= f.failN {
		return nil, fmt.Errorf("twilio unavailable")
	}
	sid := fmt.Sprintf("SM%08d", f.calls)
	return &api.ApiV2010Message{Sid: &sid}, nil
}

func newTestClient(t *testing.T, messages messageCreator) *Client {
	t.Helper()
	store, err := storage.NewAudioStore(context.Background(), t.TempDir(), 1024, "")
	require.NoError(t, err)
	return &Client{
		messages:   messages,
		httpClient: http.DefaultClient,
		store:      store,
		accountSID: "ACtest",
		authToken:  "secret",
		from:       "whatsapp:+14155238886",
		sleep:      func(time.Duration) {},
	}
}

func TestSendTextAddsChannelPrefix(t *testing.T) {
	fake := &fakeMessageAPI{}
	client := newTestClient(t, fake)

	receipt, err := client.SendText(context.Background(), "+15550001111", "hi")
	require.NoError(t, err)
	assert.Equal(t, "whatsapp:+15550001111", fake.lastTo)
	assert.Equal(t, "whatsapp:+15550001111", receipt.To)
	assert.Equal(t, "SM00000001", receipt.SID)
}

func TestSendTextWrapsDeliveryError(t *testing.T) {
	fake := &fakeMessageAPI{failN: 100}
	client := newTestClient(t, fake)

	_, err := client.SendText(context.Background(), "whatsapp:+15550001111", "hi")
	require.Error(t, err)
	opErr, ok := domain.AsOperational(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrKindDelivery, opErr.Kind)
}

func TestSendMediaAttachesURL(t *testing.T) {
	fake := &fakeMessageAPI{}
	client := newTestClient(t, fake)

	receipt, err := client.SendMedia(context.Background(), "+15550001111", "here you go", "https://example.com/reply.ogg")
	require.NoError(t, err)
	assert.Equal(t, "whatsapp:+15550001111", fake.lastTo)
	assert.Equal(t, []string{"https://example.com/reply.ogg"}, fake.lastMedia)
	assert.NotEmpty(t, receipt.SID)
}

func TestSendTextWithRetryRecovers(t *testing.T) {
	fake := &fakeMessageAPI{failN: 2}
	client := newTestClient(t, fake)

	var waits []time.Duration
	client.sleep = func(d time.Duration) { waits = append(waits, d) }

	receipt, err := client.SendTextWithRetry(context.Background(), "+15550001111", "hi", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, fake.calls)
	assert.NotEmpty(t, receipt.SID)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, waits, "linear backoff")
}

func TestSendTextWithRetryExhaustsAttempts(t *testing.T) {
	fake := &fakeMessageAPI{failN: 100}
	client := newTestClient(t, fake)

	_, err := client.SendTextWithRetry(context.Background(), "+15550001111", "hi", 3)
	require.Error(t, err)
	assert.Equal(t, 3, fake.calls)
}

func TestFetchMediaBasicAuthAndScratch(t *testing.T) {
	payload := []byte("ogg-opus-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ACtest" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write(payload)
	}))
	defer server.Close()

	client := newTestClient(t, &fakeMessageAPI{})

	got, err := client.FetchMedia(context.Background(), server.URL+"/media/M1", "M1")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFetchMediaAuthRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, &fakeMessageAPI{})
	client.authToken = "wrong"

	_, err := client.FetchMedia(context.Background(), server.URL+"/media/M1", "M1")
	require.Error(t, err)
	opErr, ok := domain.AsOperational(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrKindAudioFetch, opErr.Kind)
}
