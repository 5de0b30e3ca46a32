package postprocess

import "testing"

func TestStripThink_CompleteSpan(t *testing.T) {
	got := StripThink("<think>internal reasoning</think>Bonjour")
	if got != "Bonjour" {
		t.Errorf("expected 'Bonjour', got %q", got)
	}
}

func TestStripThink_CaseAndVariants(t *testing.T) {
	cases := map[string]string{
		"<THINK>x</THINK>result":          "result",
		"<thinking>a\nb</thinking>result": "result",
		"<reasoning>c</reasoning>result":  "result",
		"no tags at all":                  "no tags at all",
	}
	for in, want := range cases {
		if got := StripThink(in); got != want {
			t.Errorf("StripThink(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripThink_Truncated(t *testing.T) {
	got := StripThink("result<think>cut off mid-thought")
	if got != "result" {
		t.Errorf("expected 'result', got %q", got)
	}
}

func TestStripFences(t *testing.T) {
	got := StripFences("```json\n{\"translation\":\"Bonjour\"}\n```")
	if got != `{"translation":"Bonjour"}` {
		t.Errorf("unexpected result: %q", got)
	}

	plain := StripFences("no fence here")
	if plain != "no fence here" {
		t.Errorf("unfenced text changed: %q", plain)
	}
}

func TestExtractObject(t *testing.T) {
	obj, ok := ExtractObject(`The answer is {"translation":"Bonjour","n":{"a":1}} as requested.`)
	if !ok {
		t.Fatal("expected an object")
	}
	if obj != `{"translation":"Bonjour","n":{"a":1}}` {
		t.Errorf("unexpected object: %q", obj)
	}
}

func TestExtractObject_BracesInsideStrings(t *testing.T) {
	obj, ok := ExtractObject(`{"text":"curly } inside"} trailing`)
	if !ok {
		t.Fatal("expected an object")
	}
	if obj != `{"text":"curly } inside"}` {
		t.Errorf("unexpected object: %q", obj)
	}
}

func TestExtractObject_None(t *testing.T) {
	if _, ok := ExtractObject("no json here"); ok {
		t.Error("expected no object")
	}
	if _, ok := ExtractObject("{unbalanced"); ok {
		t.Error("expected no object for unbalanced braces")
	}
}

func TestClean_QuoteWrapping(t *testing.T) {
	cases := map[string]string{
		`"Bonjour"`: "Bonjour",
		`«Привіт»`:  "Привіт",
		`“Hello”`:   "Hello",
		"plain":     "plain",
	}
	for in, want := range cases {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClean_ThinkThenFence(t *testing.T) {
	got := Clean("<think>hmm</think>```\nBonjour\n```")
	if got != "Bonjour" {
		t.Errorf("expected 'Bonjour', got %q", got)
	}
}
