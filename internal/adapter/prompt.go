package adapter

import (
	"fmt"
	"strings"
)

// buildSystemPrompt constructs the instruction block shared by the
// LLM-backed adapters, optionally injecting glossary terms, the
// neighbouring-line context window, and media hints.
func buildSystemPrompt(req TranslateRequest) string {
	sourceLang := req.SourceLang
	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = "the detected language"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are a professional subtitle translator. Translate the following line from %s to %s.\n", sourceLang, req.TargetLang))
	sb.WriteString("Only respond with the translation, nothing else. No explanations, no quotes, just the translation.\n")
	sb.WriteString("Keep all markup, bracketed cues and punctuation marks exactly as they appear.")

	if req.Hints != "" {
		sb.WriteString(fmt.Sprintf("\n\nABOUT THE MEDIA:\n%s", req.Hints))
	}

	if len(req.GlossaryTerms) > 0 {
		sb.WriteString("\n\nTERMINOLOGY (use these exact translations):\n")
		for src, tgt := range req.GlossaryTerms {
			sb.WriteString(fmt.Sprintf("  %s → %s\n", src, tgt))
		}
	}

	if len(req.Context) > 0 {
		sb.WriteString("\n\nCONTEXT (neighbouring lines for continuity — do NOT translate these):\n")
		for _, line := range req.Context {
			sb.WriteString(fmt.Sprintf("  %s\n", line))
		}
	}

	return sb.String()
}
