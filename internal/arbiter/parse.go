package arbiter

import (
	"encoding/json"
	"strings"

	"github.com/valpere/subtran/internal/postprocess"
)

// reply is the structured shape the arbiter backend is asked to return.
type reply struct {
	Translation string `json:"translation"`
	Reasoning   string `json:"reasoning"`
}

// parser attempts one way of reading a cleaned backend reply. It returns
// false when this strategy cannot produce a usable result, letting the next
// parser in the chain try.
type parser func(text string) (reply, bool)

// parserChain is tried in order; the first success wins. Any <think> span is
// stripped before the chain runs.
var parserChain = []parser{parseDirect, parseEmbedded, parseHeuristic}

// ParseReply extracts the final text and reasoning from a raw backend
// response. It degrades through the parser chain instead of failing: a reply
// that is not valid JSON still yields its raw text as the translation.
func ParseReply(raw string) (text, reasoning string, ok bool) {
	cleaned := postprocess.StripThink(raw)
	for _, parse := range parserChain {
		if r, parsed := parse(cleaned); parsed {
			return strings.TrimSpace(r.Translation), r.Reasoning, true
		}
	}
	return "", "", false
}

// parseDirect reads the whole reply as the expected JSON object, unwrapping
// a markdown fence first.
func parseDirect(text string) (reply, bool) {
	var r reply
	if err := json.Unmarshal([]byte(postprocess.StripFences(text)), &r); err != nil {
		return reply{}, false
	}
	return r, r.Translation != ""
}

// parseEmbedded extracts the first balanced {...} substring and parses that.
func parseEmbedded(text string) (reply, bool) {
	obj, found := postprocess.ExtractObject(text)
	if !found {
		return reply{}, false
	}
	var r reply
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return reply{}, false
	}
	return r, r.Translation != ""
}

// parseHeuristic takes the cleaned raw text as the translation itself,
// stripping fences and quote wrapping. Last resort; never fails on
// non-empty input.
func parseHeuristic(text string) (reply, bool) {
	cleaned := postprocess.Clean(text)
	if cleaned == "" {
		return reply{}, false
	}
	return reply{Translation: cleaned}, true
}
