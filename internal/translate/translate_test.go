package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/planivia/editorial/internal/database"
)

// langProvider answers per-language based on the target named in the
// prompt, and records concurrency.
type langProvider struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (p *langProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for lang, resp := range p.responses {
		if strings.Contains(prompt, "into "+languageName(lang)) {
			p.calls = append(p.calls, lang)
			if err := p.errs[lang]; err != nil {
				return "", err
			}
			return resp, nil
		}
	}
	for lang, err := range p.errs {
		if strings.Contains(prompt, "into "+languageName(lang)) {
			p.calls = append(p.calls, lang)
			return "", err
		}
	}
	return "", fmt.Errorf("no scripted response")
}

func (p *langProvider) IsConfigured() bool { return true }

func translatedJSON(title string) string {
	data, _ := json.Marshal(map[string]any{
		"title":   title,
		"excerpt": "A seasonal bouquet sets the tone for the whole celebration.",
		"sections": []map[string]any{
			{"heading": "Why seasonal flowers", "body": []string{"Dahlias rule October."}},
			{"heading": "How to combine them", "body": []string{"Pair earthy tones with deep greens."}},
		},
		"tips":       []string{"Ask your florist for a moodboard."},
		"conclusion": "Seasonal means fresh and sensible.",
		"cta":        "Find more ideas on Planivia.",
	})
	return string(data)
}

func sourceArticle() Article {
	return Article{
		Title:   "Flores de temporada para tu boda",
		Excerpt: "Las flores de temporada marcan el tono de la celebración.",
		Sections: []database.Section{
			{Heading: "Por qué flores de temporada", Body: []string{"Las dalias mandan en octubre."}},
		},
		Tone:       "cálido cercano",
		AuthorName: "Marina Soto",
	}
}

func TestTranslateFanOut(t *testing.T) {
	p := &langProvider{responses: map[string]string{
		"en": translatedJSON("Seasonal flowers for your wedding"),
		"fr": translatedJSON("Fleurs de saison pour votre mariage"),
	}}

	got := New(p, 0).Translate(context.Background(), sourceArticle(), "es", []string{"en", "fr"})
	if len(got) != 2 {
		t.Fatalf("expected 2 translations, got %d", len(got))
	}
	for _, lang := range []string{"en", "fr"} {
		tr := got[lang]
		if tr.Status != StatusReady {
			t.Errorf("expected %s ready, got %q (%s)", lang, tr.Status, tr.Error)
		}
		if tr.Markdown == "" || len(tr.Outline) != 2 {
			t.Errorf("incomplete %s translation: %+v", lang, tr)
		}
	}
	if !strings.HasPrefix(got["en"].Markdown, "# Seasonal flowers") {
		t.Errorf("unexpected en markdown start: %q", got["en"].Markdown[:40])
	}
}

func TestTranslatePartialFailure(t *testing.T) {
	p := &langProvider{
		responses: map[string]string{"en": translatedJSON("Seasonal flowers for your wedding")},
		errs:      map[string]error{"fr": fmt.Errorf("rate limited")},
	}

	got := New(p, 0).Translate(context.Background(), sourceArticle(), "es", []string{"en", "fr"})
	if got["en"].Status != StatusReady {
		t.Errorf("expected en ready, got %q", got["en"].Status)
	}
	if got["fr"].Status != StatusFailed {
		t.Errorf("expected fr failed, got %q", got["fr"].Status)
	}
	if got["fr"].Error == "" {
		t.Error("expected the failure reason to be recorded")
	}
}

func TestTranslateInvalidShapeFails(t *testing.T) {
	p := &langProvider{responses: map[string]string{
		"en": `{"title": "short", "sections": []}`,
	}}

	got := New(p, 0).Translate(context.Background(), sourceArticle(), "es", []string{"en"})
	if got["en"].Status != StatusFailed {
		t.Errorf("expected invalid shape to fail, got %q", got["en"].Status)
	}
}

func TestTranslateFiltersTargets(t *testing.T) {
	p := &langProvider{responses: map[string]string{
		"en": translatedJSON("Seasonal flowers for your wedding"),
	}}

	got := New(p, 0).Translate(context.Background(), sourceArticle(), "es", []string{"ES", "en", "EN", "", "en"})
	if len(got) != 1 {
		t.Fatalf("expected source language and duplicates filtered, got %d entries", len(got))
	}
	if len(p.calls) != 1 {
		t.Errorf("expected a single provider call, got %d", len(p.calls))
	}
}

func TestTranslateWithoutProvider(t *testing.T) {
	got := New(nil, 0).Translate(context.Background(), sourceArticle(), "es", []string{"en", "fr"})
	if len(got) != 0 {
		t.Errorf("expected empty map without a provider, got %v", got)
	}
}

func TestAvailableLanguages(t *testing.T) {
	translations := map[string]database.Translation{
		"en": {Status: StatusReady},
		"fr": {Status: StatusFailed},
	}
	got := AvailableLanguages("es", translations, []string{"en", "fr"})
	if len(got) != 2 || got[0] != "es" || got[1] != "en" {
		t.Errorf("expected [es en], got %v", got)
	}
}
