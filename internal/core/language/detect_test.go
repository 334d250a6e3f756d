package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkerDetector(t *testing.T) {
	detector := NewMarkerDetector()

	cases := []struct {
		name string
		text string
		want string
	}{
		{"plain english", "Hello, how are you?", TagEnglish},
		{"empty text", "", TagEnglish},
		{"hola lowercase", "hola amigo", TagSpanish},
		{"hola uppercase", "HOLA", TagSpanish},
		{"hola mixed case", "HoLa, que tal", TagSpanish},
		{"gracias with punctuation", "muchas gracias!", TagSpanish},
		{"marker mid sentence", "ok thanks, gracias", TagSpanish},
		{"no marker spanish", "el libro esta en la mesa", TagEnglish},
		{"marker as substring only", "hollander", TagEnglish},
		{"buenos dias", "Buenos dias", TagSpanish},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, detector.Detect(tc.text))
		})
	}
}

func TestMarkerDetectorCaseInsensitiveEquivalence(t *testing.T) {
	detector := NewMarkerDetector()
	assert.Equal(t, detector.Detect("hola"), detector.Detect("HOLA"))
}
