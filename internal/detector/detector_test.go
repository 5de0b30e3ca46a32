package detector

import "testing"

func TestDetectISO(t *testing.T) {
	d := New()

	lang, ok := d.DetectISO("The quick brown fox jumps over the lazy dog near the river bank.")
	if !ok {
		t.Fatal("expected a detection")
	}
	if lang != "en" {
		t.Errorf("expected 'en', got %q", lang)
	}
}

func TestDetectISO_Empty(t *testing.T) {
	d := New()
	if _, ok := d.DetectISO("   "); ok {
		t.Error("expected no detection for blank text")
	}
}

func TestMatches(t *testing.T) {
	d := New()

	cases := []struct {
		name string
		text string
		lang string
		want bool
	}{
		{"matching language", "Le renard brun saute rapidement par-dessus le chien paresseux.", "fr", true},
		{"wrong language", "The quick brown fox jumps over the lazy dog near the river bank.", "fr", false},
		{"short text passes", "Oui", "fr", true},
		{"empty expectation passes", "whatever text this is", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := d.Matches(tc.text, tc.lang); got != tc.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tc.text, tc.lang, got, tc.want)
			}
		})
	}
}
