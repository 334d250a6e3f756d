package speech

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/ClareAI/astra-message-service/internal/core/language"
	"github.com/ClareAI/astra-message-service/internal/domain"
	"github.com/ClareAI/astra-message-service/pkg/logger"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
)

const (
	// sampleRateHertz matches the gateway's voice-note format.
	sampleRateHertz = 16000
	// confidenceThreshold triggers the second-language retry.
	confidenceThreshold = 0.7
)

// recognizeAPI is the slice of the Speech API the client depends on.
// *speech.Client satisfies it.
type recognizeAPI interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
}

// Client transcribes Opus-in-Ogg voice notes through the Cloud Speech API.
type Client struct {
	api           recognizeAPI
	defaultLang   string // short tag, e.g. "en"
	alternateLang string // short tag used for the low-confidence retry
}

// NewClient creates a transcription client. defaultLang and alternateLang
// are the two languages the agent is provisioned for.
func NewClient(ctx context.Context, defaultLang, alternateLang string) (*Client, error) {
	api, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &Client{
		api:           api,
		defaultLang:   defaultLang,
		alternateLang: alternateLang,
	}, nil
}

// Transcribe converts the payload to text using languageHint as the primary
// recognition language.
func (c *Client) Transcribe(ctx context.Context, payload []byte, languageHint string) (domain.Transcription, error) {
	primary := localeFor(languageHint)

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_OGG_OPUS,
			SampleRateHertz:            sampleRateHertz,
			LanguageCode:               primary,
			AlternativeLanguageCodes:   alternativeLocales(primary),
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: payload},
		},
	}

	resp, err := c.api.Recognize(ctx, req)
	if err != nil {
		return domain.Transcription{}, domain.NewTranscriptionError(
			"could not transcribe, please speak clearly", err)
	}
	if len(resp.Results) == 0 {
		return domain.Transcription{}, domain.NewTranscriptionError(
			"could not transcribe, please speak clearly", nil)
	}

	var parts []string
	var confidence float64
	detected := primary
	for i, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		top := result.Alternatives[0]
		parts = append(parts, top.Transcript)
		if i == 0 {
			confidence = float64(top.Confidence)
			if result.LanguageCode != "" {
				detected = result.LanguageCode
			}
		}
	}
	if len(parts) == 0 {
		return domain.Transcription{}, domain.NewTranscriptionError(
			"could not transcribe, please speak clearly", nil)
	}

	t := domain.Transcription{
		Text:       strings.Join(parts, " "),
		Language:   shortTag(detected),
		Confidence: confidence,
	}
	logger.Base().Info("transcription completed",
		zap.String("language", t.Language),
		zap.Float64("confidence", t.Confidence),
		zap.Int("chars", len(t.Text)))
	return t, nil
}

// TranscribeWithDetection runs Transcribe with the default language and, when
// the confidence comes back below the threshold, retries once with the
// alternate language, returning whichever attempt scored higher. A
// two-attempt heuristic, not real language identification: it assumes
// exactly two supported languages.
func (c *Client) TranscribeWithDetection(ctx context.Context, payload []byte) (domain.Transcription, error) {
	first, err := c.Transcribe(ctx, payload, c.defaultLang)
	if err != nil {
		return domain.Transcription{}, err
	}
	if first.Confidence >= confidenceThreshold {
		return first, nil
	}

	logger.Base().Info("low transcription confidence, retrying with alternate language",
		zap.Float64("confidence", first.Confidence),
		zap.String("alternate", c.alternateLang))

	second, err := c.Transcribe(ctx, payload, c.alternateLang)
	if err != nil {
		// The first attempt already produced usable text.
		return first, nil
	}
	if second.Confidence > first.Confidence {
		return second, nil
	}
	return first, nil
}

// localeFor maps a short language tag to the recognition locale.
func localeFor(tag string) string {
	switch shortTag(tag) {
	case language.TagSpanish:
		return "es-US"
	default:
		return "en-US"
	}
}

// alternativeLocales is the fixed alternative-language set, minus the primary.
func alternativeLocales(primary string) []string {
	all := []string{"en-US", "es-US"}
	out := make([]string, 0, len(all))
	for _, l := range all {
		if l != primary {
			out = append(out, l)
		}
	}
	return out
}

// shortTag reduces a locale like "en-us" to its language subtag.
func shortTag(locale string) string {
	locale = strings.ToLower(locale)
	if i := strings.IndexByte(locale, '-'); i > 0 {
		return locale[:i]
	}
	return locale
}
