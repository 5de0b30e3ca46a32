// Package guard enforces the structural invariants of a translated segment:
// a leading speaker label never enters a translation stage and is reattached
// verbatim, bracketed cues survive the round trip through sentinel markers,
// every special token of the source must reappear in the final text, and
// glossary terms are substituted with their case shape preserved.
package guard

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/valpere/subtran/internal"
)

// speakerPrefixRe matches a leading speaker label such as "JOHN: " — an
// identifier followed by a colon and optional whitespace.
var speakerPrefixRe = regexp.MustCompile(`^[\p{L}\p{N}_'.-]+:\s*`)

// FreezePrefix splits off a leading speaker-label prefix. The prefix
// (including its trailing whitespace) is returned verbatim for later
// reattachment; the rest is what enters the translation stages. Text
// without a recognizable label comes back unchanged with an empty prefix.
func FreezePrefix(text string) (prefix, rest string) {
	loc := speakerPrefixRe.FindStringIndex(text)
	if loc == nil {
		return "", text
	}
	return text[:loc[1]], text[loc[1]:]
}

// ReattachPrefix prepends a frozen prefix verbatim. Reattaching is
// idempotent: a text that already starts with the prefix is left alone.
func ReattachPrefix(prefix, text string) string {
	if prefix == "" || strings.HasPrefix(text, prefix) {
		return text
	}
	return prefix + text
}

var (
	// bracketSpanRe matches one [...] cue with no nested brackets.
	bracketSpanRe = regexp.MustCompile(`\[([^\[\]]*)\]`)

	// sentinelRe matches a sentinel pair case-insensitively, since models
	// routinely change tag casing.
	sentinelRe = regexp.MustCompile(`(?is)<bkt>(.*?)</bkt>`)
)

// ProtectBrackets rewrites [...] cues to sentinel tag pairs before any
// translation call. The cue content stays in place and may be translated;
// only the bracket shape is protected, because brackets themselves tend to
// be dropped or reshaped by translation backends.
func ProtectBrackets(text string) string {
	return bracketSpanRe.ReplaceAllString(text, "<bkt>$1</bkt>")
}

// RestoreBrackets rewrites sentinel pairs back to brackets. It is applied
// to every text received from a backend, case-insensitively.
func RestoreBrackets(text string) string {
	return sentinelRe.ReplaceAllString(text, "[$1]")
}

// tokenRe extracts the structurally important tokens of a subtitle line:
// HTML-like tags, ellipses, the music-note glyph, brackets, parentheses and
// em/en/double dashes.
var tokenRe = regexp.MustCompile(`<[^<>]+>|\.\.\.|…|♪|\[|\]|\(|\)|--|—|–`)

// ExtractTokens returns the ordered list of special tokens in text.
func ExtractTokens(text string) []string {
	return tokenRe.FindAllString(text, -1)
}

// ValidateTokens reports whether every special token of source appears
// verbatim somewhere in candidate. Order and multiplicity are not checked.
func ValidateTokens(source, candidate string) bool {
	for _, tok := range ExtractTokens(source) {
		if !strings.Contains(candidate, tok) {
			return false
		}
	}
	return true
}

// MissingTokens lists the source tokens absent from candidate, for traces.
func MissingTokens(source, candidate string) []string {
	var missing []string
	for _, tok := range ExtractTokens(source) {
		if !strings.Contains(candidate, tok) {
			missing = append(missing, tok)
		}
	}
	return missing
}

// ApplyGlossary replaces every glossary source term occurring in text
// (case-insensitive, on word boundaries) with its target term, preserving
// the matched word's case shape: ALL CAPS stays ALL CAPS, Capitalized stays
// Capitalized, anything else becomes the lowercase target.
func ApplyGlossary(text string, entries []internal.GlossaryEntry) string {
	for _, entry := range entries {
		if entry.SourceTerm == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(entry.SourceTerm) + `\b`)
		if err != nil {
			continue
		}
		target := entry.TargetTerm
		text = re.ReplaceAllStringFunc(text, func(match string) string {
			return matchCaseShape(match, target)
		})
	}
	return text
}

// matchCaseShape reshapes target to follow the casing of match.
func matchCaseShape(match, target string) string {
	if match == strings.ToUpper(match) && strings.ToLower(match) != match {
		return strings.ToUpper(target)
	}
	runes := []rune(match)
	if len(runes) > 0 && unicode.IsUpper(runes[0]) {
		tr := []rune(strings.ToLower(target))
		if len(tr) > 0 {
			tr[0] = unicode.ToUpper(tr[0])
		}
		return string(tr)
	}
	return strings.ToLower(target)
}

// PickValidCandidate returns the first candidate, in the given priority
// order, whose text passes token validation against source. The second
// return value is false when none passes.
func PickValidCandidate(source string, candidates []internal.Candidate, priority []string) (internal.Candidate, bool) {
	byName := make(map[string]internal.Candidate, len(candidates))
	for _, c := range candidates {
		byName[c.AdapterName] = c
	}

	ordered := make([]internal.Candidate, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, name := range priority {
		if c, ok := byName[name]; ok {
			ordered = append(ordered, c)
			seen[name] = true
		}
	}
	for _, c := range candidates {
		if !seen[c.AdapterName] {
			ordered = append(ordered, c)
		}
	}

	for _, c := range ordered {
		if ValidateTokens(source, c.Text) {
			return c, true
		}
	}
	return internal.Candidate{}, false
}
