package tts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/ClareAI/astra-message-service/internal/core/language"
	"github.com/ClareAI/astra-message-service/internal/domain"
	"github.com/ClareAI/astra-message-service/internal/storage"
	"github.com/ClareAI/astra-message-service/pkg/logger"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
)

// voiceProfile selects a synthesis voice for a language tag.
type voiceProfile struct {
	languageCode string
	name         string
	gender       texttospeechpb.SsmlVoiceGender
}

// voiceTable is the fixed per-language voice selection. Tags absent from the
// table fall back to the default English profile.
var voiceTable = map[string]voiceProfile{
	language.TagEnglish: {languageCode: "en-US", name: "en-US-Neural2-C", gender: texttospeechpb.SsmlVoiceGender_FEMALE},
	language.TagSpanish: {languageCode: "es-US", name: "es-US-Neural2-A", gender: texttospeechpb.SsmlVoiceGender_FEMALE},
}

// synthesizeAPI is the slice of the Text-to-Speech API the client depends
// on. *texttospeech.Client satisfies it.
type synthesizeAPI interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
}

// Client converts agent reply text into Opus-in-Ogg audio. Output codec is
// fixed for gateway compatibility; speaking rate and pitch stay at neutral
// defaults.
type Client struct {
	api   synthesizeAPI
	store *storage.AudioStore
}

func NewClient(ctx context.Context, store *storage.AudioStore) (*Client, error) {
	api, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}
	return &Client{api: api, store: store}, nil
}

// Synthesize renders text in the voice configured for languageTag.
func (c *Client) Synthesize(ctx context.Context, text, languageTag string) ([]byte, error) {
	profile, ok := voiceTable[languageTag]
	if !ok {
		profile = voiceTable[language.TagEnglish]
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: profile.languageCode,
			Name:         profile.name,
			SsmlGender:   profile.gender,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_OGG_OPUS,
			SpeakingRate:  1.0,
			Pitch:         0.0,
		},
	}

	resp, err := c.api.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, domain.NewSynthesisError("could not generate a voice reply", err)
	}

	logger.Base().Info("speech synthesized",
		zap.String("language", profile.languageCode),
		zap.String("voice", profile.name),
		zap.Int("bytes", len(resp.AudioContent)))
	return resp.AudioContent, nil
}

// SynthesizeToFile renders text and persists the audio in the scratch
// directory under name, returning the file path.
func (c *Client) SynthesizeToFile(ctx context.Context, text, languageTag, name string) (string, error) {
	payload, err := c.Synthesize(ctx, text, languageTag)
	if err != nil {
		return "", err
	}
	path, err := c.store.Save(name, payload)
	if err != nil {
		return "", domain.NewSynthesisError("could not generate a voice reply", err)
	}
	return path, nil
}
