// Package postprocess normalizes raw LLM output before it is used downstream.
//
// Every text received from an LLM-backed stage (adapter, arbiter, critic)
// goes through here: reasoning spans are removed, markdown fences and quote
// wrapping stripped, and embedded JSON objects can be carved out of chatty
// replies.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes LLM artifacts from text in three phases and returns the
// trimmed result:
//  1. Thinking / reasoning span removal
//  2. Markdown code fence removal
//  3. Quote wrapping removal
func Clean(text string) string {
	text = StripThink(text)
	text = StripFences(text)
	text = stripQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// thinkSpanRe matches complete <think>…</think> style spans. Each tag
// variant is listed explicitly because Go's RE2 engine does not support
// backreferences. Flags: i = case-insensitive, s = dot matches newline.
var thinkSpanRe = regexp.MustCompile(
	`(?is)<think>.*?</think>|<thinking>.*?</thinking>|<reasoning>.*?</reasoning>`,
)

// truncatedThinkRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkRe = regexp.MustCompile(
	`(?is)(?:<think>|<thinking>|<reasoning>).*$`,
)

// StripThink removes reasoning spans from a raw backend response. It runs
// before any structured parsing, for the arbiter and the critic alike.
func StripThink(text string) string {
	text = thinkSpanRe.ReplaceAllString(text, "")
	text = truncatedThinkRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// fenceRe matches a whole-reply markdown code fence, with an optional
// language tag such as ```json.
var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\n?(.*?)\n?```$")

// StripFences unwraps text that is entirely enclosed in a markdown code
// fence. Text without an enclosing fence is returned unchanged.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// ExtractObject returns the first balanced {...} substring of text, which
// may be buried in prose or inside a code fence. Braces inside JSON string
// literals are ignored. The second return value is false when no balanced
// object is present.
func ExtractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// stripQuoteWrapping strips a matching pair of outer quotes when the entire
// text is wrapped in them (a common LLM artifact). Supported pairs:
//
//	"…"  '…'  «…»  “…”  ‘…’
func stripQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’') {
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}
