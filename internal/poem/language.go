package poem

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const spanishMarkers = "áéíóúñÁÉÍÓÚÑ¿¡"

// Language guesses a 2-letter language code for the poem body. Accented
// Spanish characters pick "es"; anything else defaults to "en".
func (d *Document) Language() string {
	if d == nil {
		return "en"
	}
	return DetectLanguage(d.Text())
}

// DetectLanguage applies the same guess to raw text.
func DetectLanguage(text string) string {
	if strings.ContainsAny(text, spanishMarkers) {
		return "es"
	}
	return "en"
}

// NormalizeForSpeech strips combining accent marks for TTS models with
// limited vocabularies while preserving ñ/Ñ, which carry meaning.
func NormalizeForSpeech(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == 'ñ' || r == 'Ñ' {
			b.WriteRune(r)
			continue
		}
		stripped, _, err := transform.String(stripMarks, string(r))
		if err != nil {
			b.WriteRune(r)
			continue
		}
		b.WriteString(stripped)
	}
	return b.String()
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
