package guard

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/valpere/subtran/internal"
)

func TestFreezePrefix(t *testing.T) {
	prefix, rest := FreezePrefix("JOHN: Hello [laughs]")
	if prefix != "JOHN: " {
		t.Errorf("expected prefix 'JOHN: ', got %q", prefix)
	}
	if rest != "Hello [laughs]" {
		t.Errorf("expected rest 'Hello [laughs]', got %q", rest)
	}
}

func TestFreezePrefix_NoLabel(t *testing.T) {
	prefix, rest := FreezePrefix("Hello there")
	if prefix != "" {
		t.Errorf("expected empty prefix, got %q", prefix)
	}
	if rest != "Hello there" {
		t.Errorf("rest changed: %q", rest)
	}
}

func TestReattachPrefix_Idempotent(t *testing.T) {
	original := "JOHN: Hello"
	prefix, rest := FreezePrefix(original)

	once := ReattachPrefix(prefix, rest)
	if once != original {
		t.Errorf("reattach did not reproduce original: %q", once)
	}
	twice := ReattachPrefix(prefix, once)
	if twice != once {
		t.Errorf("reattach is not idempotent: %q vs %q", twice, once)
	}
}

func TestProtectRestoreBrackets(t *testing.T) {
	protected := ProtectBrackets("Hello [laughs] there [door slams]")
	if protected != "Hello <bkt>laughs</bkt> there <bkt>door slams</bkt>" {
		t.Errorf("unexpected protected text: %q", protected)
	}

	restored := RestoreBrackets(protected)
	if restored != "Hello [laughs] there [door slams]" {
		t.Errorf("round trip failed: %q", restored)
	}
}

func TestRestoreBrackets_CaseInsensitive(t *testing.T) {
	restored := RestoreBrackets("Bonjour <BKT>rires</Bkt>")
	if restored != "Bonjour [rires]" {
		t.Errorf("expected case-insensitive restore, got %q", restored)
	}
}

func TestExtractTokens(t *testing.T) {
	tokens := ExtractTokens("<i>Wait...</i> ♪ la ♪ [thud] (softly) -- no — yes")
	want := []string{"<i>", "...", "</i>", "♪", "♪", "[", "]", "(", ")", "--", "—"}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateTokens(t *testing.T) {
	source := "JOHN: Hello [laughs]"
	if !ValidateTokens(source, "JOHN: Bonjour [rires]") {
		t.Error("expected candidate with brackets to pass")
	}
	if ValidateTokens(source, "JOHN: Bonjour rires") {
		t.Error("expected candidate without brackets to fail")
	}
}

func TestValidateTokens_OrderAndMultiplicityIgnored(t *testing.T) {
	if !ValidateTokens("♪ la ♪", "♪ la la la") {
		t.Error("multiplicity must not be checked")
	}
}

func TestMissingTokens(t *testing.T) {
	missing := MissingTokens("<i>Hi</i> [x]", "Hi [x]")
	want := []string{"<i>", "</i>"}
	if diff := cmp.Diff(want, missing); diff != "" {
		t.Errorf("missing tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyGlossary_CaseShapes(t *testing.T) {
	glossary := []internal.GlossaryEntry{{SourceTerm: "airbender", TargetTerm: "luftbøjer"}}

	cases := map[string]string{
		"The Airbender flies": "The Luftbøjer flies",
		"the airbender flies": "the luftbøjer flies",
		"THE AIRBENDER FLIES": "THE LUFTBØJER FLIES",
		"an airbenders guild": "an airbenders guild", // word boundary: no partial match
	}
	for in, want := range cases {
		if got := ApplyGlossary(in, glossary); got != want {
			t.Errorf("ApplyGlossary(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPickValidCandidate(t *testing.T) {
	source := "Hello [laughs]"
	candidates := []internal.Candidate{
		{AdapterName: "broken", Text: "Bonjour"},
		{AdapterName: "good", Text: "Bonjour [rires]"},
	}

	picked, ok := PickValidCandidate(source, candidates, []string{"broken", "good"})
	if !ok {
		t.Fatal("expected a valid candidate")
	}
	if picked.AdapterName != "good" {
		t.Errorf("expected 'good', got %q", picked.AdapterName)
	}
}

func TestPickValidCandidate_PriorityWins(t *testing.T) {
	source := "Hello"
	candidates := []internal.Candidate{
		{AdapterName: "second", Text: "Salut"},
		{AdapterName: "first", Text: "Bonjour"},
	}

	picked, ok := PickValidCandidate(source, candidates, []string{"first", "second"})
	if !ok {
		t.Fatal("expected a valid candidate")
	}
	if picked.AdapterName != "first" {
		t.Errorf("expected priority order to win, got %q", picked.AdapterName)
	}
}

func TestPickValidCandidate_NonePasses(t *testing.T) {
	if _, ok := PickValidCandidate("Hi [x]", []internal.Candidate{{AdapterName: "a", Text: "Hi"}}, nil); ok {
		t.Error("expected no valid candidate")
	}
}
