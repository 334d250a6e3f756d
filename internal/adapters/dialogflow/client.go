package dialogflow

import (
	"context"
	"fmt"
	"strings"

	cx "cloud.google.com/go/dialogflow/cx/apiv3"
	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
	"github.com/ClareAI/astra-message-service/internal/core/session"
	"github.com/ClareAI/astra-message-service/internal/domain"
	"github.com/ClareAI/astra-message-service/pkg/logger"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FallbackReply is returned when the agent produces no text segments at all.
const FallbackReply = "I didn't understand that, could you rephrase?"

// detectAPI is the slice of the Dialogflow CX Sessions API the client
// depends on. *cx.SessionsClient satisfies it.
type detectAPI interface {
	DetectIntent(ctx context.Context, req *cxpb.DetectIntentRequest, opts ...gax.CallOption) (*cxpb.DetectIntentResponse, error)
}

// Client sends user text to a Dialogflow CX agent and returns its structured
// reply. Conversation continuity comes from the session registry: one CX
// session id per sender.
type Client struct {
	api      detectAPI
	sessions session.Store

	projectID string
	location  string
	agentID   string
}

// NewClient creates a Dialogflow CX client. Non-global agents need the
// matching regional endpoint.
func NewClient(ctx context.Context, projectID, location, agentID string, sessions session.Store) (*Client, error) {
	var opts []option.ClientOption
	if location != "" && location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-dialogflow.googleapis.com:443", location)))
	}

	api, err := cx.NewSessionsClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialogflow sessions client: %w", err)
	}

	return &Client{
		api:       api,
		sessions:  sessions,
		projectID: projectID,
		location:  location,
		agentID:   agentID,
	}, nil
}

// DetectIntent resolves the sender's session, queries the agent with text in
// the given language, and returns the structured reply.
func (c *Client) DetectIntent(ctx context.Context, text, userID, languageTag string) (domain.AgentReply, error) {
	sessionID, err := c.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		return domain.AgentReply{}, domain.NewIntentDetectionError(
			"the assistant is unavailable right now, please try again later", err)
	}

	req := &cxpb.DetectIntentRequest{
		Session: c.sessionPath(sessionID),
		QueryInput: &cxpb.QueryInput{
			Input: &cxpb.QueryInput_Text{
				Text: &cxpb.TextInput{Text: text},
			},
			LanguageCode: languageTag,
		},
	}

	resp, err := c.api.DetectIntent(ctx, req)
	if err != nil {
		// Transport and auth failures both mean the agent is unreachable,
		// not that the user said something wrong.
		return domain.AgentReply{}, domain.NewIntentDetectionError(
			"the assistant is unavailable right now, please try again later", err)
	}

	reply := replyFromQueryResult(resp.GetQueryResult(), languageTag)
	logger.Base().Info("intent detected",
		zap.String("user_id", userID),
		zap.String("intent", reply.Intent),
		zap.Float64("confidence", reply.Confidence))
	return reply, nil
}

// ClearSession drops the sender's conversation handle so the next message
// starts a fresh agent session.
func (c *Client) ClearSession(ctx context.Context, userID string) error {
	return c.sessions.Clear(ctx, userID)
}

func (c *Client) sessionPath(sessionID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/agents/%s/sessions/%s",
		c.projectID, c.location, c.agentID, sessionID)
}

// replyFromQueryResult extracts the reply text (all text segments joined by
// newline, or the fixed fallback), the matched intent, confidence, and any
// structured parameters.
func replyFromQueryResult(qr *cxpb.QueryResult, languageTag string) domain.AgentReply {
	reply := domain.AgentReply{
		Intent:   "unknown",
		Language: languageTag,
	}
	if qr == nil {
		reply.Text = FallbackReply
		return reply
	}

	var segments []string
	for _, msg := range qr.GetResponseMessages() {
		if text := msg.GetText(); text != nil {
			segments = append(segments, text.GetText()...)
		}
	}
	if len(segments) == 0 {
		reply.Text = FallbackReply
	} else {
		reply.Text = strings.Join(segments, "\n")
	}

	if match := qr.GetMatch(); match != nil {
		if intent := match.GetIntent(); intent != nil && intent.GetDisplayName() != "" {
			reply.Intent = intent.GetDisplayName()
		}
		reply.Confidence = float64(match.GetConfidence())
	}
	if params := qr.GetParameters(); params != nil {
		reply.Parameters = params.AsMap()
	}
	return reply
}
