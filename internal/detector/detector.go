// Package detector wraps the lingua-go language detector for source-language
// auto-detection and the advisory wrong-language flag on final translations.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// minCheckLength is the minimum rune count for a reliable detection; shorter
// texts pass every check unchallenged.
const minCheckLength = 20

// Detector detects the language of a text. Building one is expensive —
// construct it once and reuse it across segments.
type Detector struct {
	detector lingua.LanguageDetector
}

// New creates a detector covering all languages lingua knows.
func New() *Detector {
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			Build(),
	}
}

// DetectISO returns the ISO 639-1 code of the detected language. The second
// return value is false when detection is ambiguous.
func (d *Detector) DetectISO(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// Matches reports whether text appears to be written in the expected
// language. Short or ambiguous texts match unconditionally: the check is
// advisory and must never reject a translation on weak evidence.
func (d *Detector) Matches(text, expectedLang string) bool {
	if expectedLang == "" {
		return true
	}
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < minCheckLength {
		return true
	}
	detected, ok := d.DetectISO(trimmed)
	if !ok {
		return true
	}
	return strings.EqualFold(detected, expectedLang)
}
