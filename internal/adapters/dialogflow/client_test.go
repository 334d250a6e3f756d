package dialogflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
	"github.com/ClareAI/astra-message-service/internal/core/session"
	"github.com/ClareAI/astra-message-service/internal/domain"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionsAPI struct {
	resp     *cxpb.DetectIntentResponse
	err      error
	requests []*cxpb.DetectIntentRequest
}

func (f *fakeSessionsAPI) DetectIntent(ctx context.Context, req *cxpb.DetectIntentRequest, opts ...gax.CallOption) (*cxpb.DetectIntentResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func textResponse(intent string, confidence float32, segments ...string) *cxpb.DetectIntentResponse {
	messages := make([]*cxpb.ResponseMessage, 0, len(segments))
	for _, s := range segments {
		messages = append(messages, &cxpb.ResponseMessage{
			Message: &cxpb.ResponseMessage_Text_{
				Text: &cxpb.ResponseMessage_Text{Text: []string{s}},
			},
		})
	}
	qr := &cxpb.QueryResult{ResponseMessages: messages}
	if intent != "" {
		qr.Match = &cxpb.Match{
			Intent:     &cxpb.Intent{DisplayName: intent},
			Confidence: confidence,
		}
	}
	return &cxpb.DetectIntentResponse{QueryResult: qr}
}

func newFakeClient(api detectAPI) *Client {
	return &Client{
		api:       api,
		sessions:  session.NewMemoryStore(time.Hour),
		projectID: "proj",
		location:  "us-central1",
		agentID:   "agent-1",
	}
}

func TestDetectIntentSessionPathAndQuery(t *testing.T) {
	fake := &fakeSessionsAPI{resp: textResponse("greeting", 0.9, "Hi!")}
	client := newFakeClient(fake)

	reply, err := client.DetectIntent(context.Background(), "hello", "u1", "en")
	require.NoError(t, err)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	sessionID, _ := client.sessions.GetOrCreate(context.Background(), "u1")
	assert.Equal(t, fmt.Sprintf("projects/proj/locations/us-central1/agents/agent-1/sessions/%s", sessionID), req.Session)
	assert.Equal(t, "hello", req.QueryInput.GetText().GetText())
	assert.Equal(t, "en", req.QueryInput.LanguageCode)

	assert.Equal(t, "Hi!", reply.Text)
	assert.Equal(t, "greeting", reply.Intent)
	assert.InDelta(t, 0.9, reply.Confidence, 0.001)
	assert.Equal(t, "en", reply.Language)
}

func TestDetectIntentReusesSessionAcrossMessages(t *testing.T) {
	fake := &fakeSessionsAPI{resp: textResponse("greeting", 0.9, "Hi!")}
	client := newFakeClient(fake)

	_, err := client.DetectIntent(context.Background(), "hello", "u1", "en")
	require.NoError(t, err)
	_, err = client.DetectIntent(context.Background(), "again", "u1", "en")
	require.NoError(t, err)

	require.Len(t, fake.requests, 2)
	assert.Equal(t, fake.requests[0].Session, fake.requests[1].Session)
}

func TestDetectIntentJoinsSegmentsWithNewline(t *testing.T) {
	fake := &fakeSessionsAPI{resp: textResponse("multi", 0.8, "First part.", "Second part.")}
	client := newFakeClient(fake)

	reply, err := client.DetectIntent(context.Background(), "hello", "u1", "en")
	require.NoError(t, err)
	assert.Equal(t, "First part.\nSecond part.", reply.Text)
}

func TestDetectIntentFallbackWhenNoTextSegments(t *testing.T) {
	fake := &fakeSessionsAPI{resp: textResponse("", 0)}
	client := newFakeClient(fake)

	reply, err := client.DetectIntent(context.Background(), "hello", "u1", "en")
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, reply.Text)
	assert.Equal(t, "unknown", reply.Intent)
}

func TestDetectIntentTransportFailure(t *testing.T) {
	fake := &fakeSessionsAPI{err: fmt.Errorf("connection refused")}
	client := newFakeClient(fake)

	_, err := client.DetectIntent(context.Background(), "hello", "u1", "en")
	require.Error(t, err)
	opErr, ok := domain.AsOperational(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrKindIntentDetection, opErr.Kind)
}
