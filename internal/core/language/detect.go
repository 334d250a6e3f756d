package language

import "strings"

const (
	// TagEnglish and TagSpanish are the only languages the agent is
	// provisioned for.
	TagEnglish = "en"
	TagSpanish = "es"
)

// Detector guesses the language of a text message. Implementations may be
// arbitrarily smart; the orchestrator only depends on this interface.
type Detector interface {
	Detect(text string) string
}

// MarkerDetector classifies text by scanning for a fixed set of Spanish
// marker words. It is a coarse lexical heuristic: Spanish text without a
// marker word falls through to English. Matching is case-insensitive.
type MarkerDetector struct {
	markers map[string]struct{}
}

// spanishMarkers is the fixed marker-word set.
var spanishMarkers = []string{
	"hola",
	"gracias",
	"buenos",
	"buenas",
	"adios",
	"ayuda",
	"favor",
	"necesito",
	"quiero",
	"tengo",
}

func NewMarkerDetector() *MarkerDetector {
	markers := make(map[string]struct{}, len(spanishMarkers))
	for _, w := range spanishMarkers {
		markers[w] = struct{}{}
	}
	return &MarkerDetector{markers: markers}
}

// Detect returns "es" when any marker word occurs in text, otherwise "en".
func (d *MarkerDetector) Detect(text string) string {
	for _, word := range strings.FieldsFunc(strings.ToLower(text), isWordBoundary) {
		if _, ok := d.markers[word]; ok {
			return TagSpanish
		}
	}
	return TagEnglish
}

func isWordBoundary(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return false
	case r >= 'A' && r <= 'Z':
		return false
	case r >= '0' && r <= '9':
		return false
	case r == 'á' || r == 'é' || r == 'í' || r == 'ó' || r == 'ú' || r == 'ñ':
		// accented vowels and ñ stay inside words
		return false
	}
	return true
}
