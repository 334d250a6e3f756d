package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ClareAI/astra-message-service/internal/core/language"
	"github.com/ClareAI/astra-message-service/internal/core/task"
	"github.com/ClareAI/astra-message-service/internal/domain"
	"github.com/ClareAI/astra-message-service/internal/storage"
	"github.com/ClareAI/astra-message-service/pkg/logger"
	"go.uber.org/zap"
)

// genericApology is shown for failures whose detail is not user-safe.
const genericApology = "I'm having trouble right now, please try again later."

// Messenger delivers messages and retrieves media through the gateway.
type Messenger interface {
	SendText(ctx context.Context, to, body string) (domain.DeliveryReceipt, error)
	SendTextWithRetry(ctx context.Context, to, body string, maxAttempts int) (domain.DeliveryReceipt, error)
	FetchMedia(ctx context.Context, mediaURL, correlationID string) ([]byte, error)
}

// Transcriber converts a voice-note payload into text.
type Transcriber interface {
	TranscribeWithDetection(ctx context.Context, payload []byte) (domain.Transcription, error)
}

// IntentDetector sends user text to the conversational agent.
type IntentDetector interface {
	DetectIntent(ctx context.Context, text, userID, languageTag string) (domain.AgentReply, error)
}

// Synthesizer renders reply text as audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, languageTag string) ([]byte, error)
}

// Service drives one processing pass per inbound message: classify, call the
// adapters in sequence, deliver the reply. It is the single recovery
// boundary: no error escapes a pass, every failure resolves to a best-effort
// apology to the sender.
type Service struct {
	gateway     Messenger
	transcriber Transcriber
	agent       IntentDetector
	synth       Synthesizer
	audio       *storage.AudioStore
	detector    language.Detector

	maxSendAttempts int
}

// NewService wires the orchestrator with its adapter handles.
func NewService(gateway Messenger, transcriber Transcriber, agent IntentDetector, synth Synthesizer, audio *storage.AudioStore, detector language.Detector) *Service {
	return &Service{
		gateway:         gateway,
		transcriber:     transcriber,
		agent:           agent,
		synth:           synth,
		audio:           audio,
		detector:        detector,
		maxSendAttempts: 3,
	}
}

// HandleTask adapts the task-bus payload into a processing pass. Passes run
// detached: the webhook was acknowledged long before this executes, so there
// is no deadline to inherit.
func (s *Service) HandleTask(t task.MessageTask) {
	var msg domain.InboundMessage
	if err := json.Unmarshal(t.Payload, &msg); err != nil {
		logger.Base().Error("failed to decode message task",
			zap.String("sender", t.Sender),
			zap.String("correlation_id", t.CorrelationID),
			zap.Error(err))
		return
	}
	s.Process(context.Background(), msg)
}

// Process runs one full pass for an inbound message.
func (s *Service) Process(ctx context.Context, msg domain.InboundMessage) {
	logger.Base().Info("processing inbound message",
		zap.String("sender", msg.Sender),
		zap.String("correlation_id", msg.MessageSID),
		zap.Int("num_media", msg.NumMedia))

	var err error
	switch {
	case msg.NumMedia > 0:
		err = s.processVoice(ctx, msg)
	case msg.Body != "":
		err = s.processText(ctx, msg)
	default:
		err = domain.NewValidationError("invalid message format")
	}

	if err != nil {
		s.recover(ctx, msg.Sender, err)
	}
}

// processText handles the text path: heuristic language detection, intent
// detection, reply delivery.
func (s *Service) processText(ctx context.Context, msg domain.InboundMessage) error {
	lang := s.detector.Detect(msg.Body)

	reply, err := s.agent.DetectIntent(ctx, msg.Body, msg.Sender, lang)
	if err != nil {
		return err
	}

	if _, err := s.gateway.SendTextWithRetry(ctx, msg.Sender, reply.Text, s.maxSendAttempts); err != nil {
		return err
	}

	logger.Base().Info("text pass completed",
		zap.String("sender", msg.Sender),
		zap.String("intent", reply.Intent),
		zap.String("language", lang))
	return nil
}

// processVoice handles the voice path: retrieve, validate, transcribe,
// confirm, detect intent, synthesize, deliver.
func (s *Service) processVoice(ctx context.Context, msg domain.InboundMessage) error {
	if msg.MediaURL == "" {
		return domain.NewValidationError("invalid message format")
	}

	payload, err := s.gateway.FetchMedia(ctx, msg.MediaURL, msg.MessageSID)
	if err != nil {
		return err
	}
	// The scratch file exists from here on; clean it up however the pass
	// ends. Deletion failures are logged inside Remove, never raised.
	defer s.audio.Remove(msg.MessageSID)

	if err := s.audio.ValidateSize(payload); err != nil {
		return err
	}
	s.audio.Archive(msg.MessageSID, payload)

	transcription, err := s.transcriber.TranscribeWithDetection(ctx, payload)
	if err != nil {
		return err
	}

	// Confirmation goes out before the agent reply, always.
	confirmation := fmt.Sprintf("🎤 I heard: \"%s\"", transcription.Text)
	if _, err := s.gateway.SendText(ctx, msg.Sender, confirmation); err != nil {
		return err
	}

	reply, err := s.agent.DetectIntent(ctx, transcription.Text, msg.Sender, transcription.Language)
	if err != nil {
		return err
	}

	// The synthesized audio is computed but the reply still goes out as
	// text. Audio delivery needs a publicly reachable media URL, which the
	// scratch store does not provide yet.
	if _, err := s.synth.Synthesize(ctx, reply.Text, transcription.Language); err != nil {
		return err
	}

	if _, err := s.gateway.SendTextWithRetry(ctx, msg.Sender, reply.Text, s.maxSendAttempts); err != nil {
		return err
	}

	logger.Base().Info("voice pass completed",
		zap.String("sender", msg.Sender),
		zap.String("intent", reply.Intent),
		zap.String("language", transcription.Language),
		zap.Float64("transcription_confidence", transcription.Confidence))
	return nil
}

// recover converts a pass failure into one best-effort message to the
// sender. Operational errors surface their own text; anything else gets the
// generic apology with the detail kept in the log.
func (s *Service) recover(ctx context.Context, sender string, err error) {
	userMessage := genericApology
	if opErr, ok := domain.AsOperational(err); ok {
		userMessage = opErr.UserMessage
		logger.Base().Warn("message pass failed",
			zap.String("sender", sender),
			zap.String("kind", string(opErr.Kind)),
			zap.Error(err))
	} else {
		logger.Base().Error("message pass failed with internal error",
			zap.String("sender", sender),
			zap.Error(err))
	}

	if _, sendErr := s.gateway.SendTextWithRetry(ctx, sender, userMessage, s.maxSendAttempts); sendErr != nil {
		// The pass ends silently from the caller's perspective; the webhook
		// was acknowledged long ago.
		logger.Base().Error("failed to deliver apology",
			zap.String("sender", sender),
			zap.Error(sendErr))
	}
}
