package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/planivia/editorial/internal/database"
)

type mockProvider struct {
	response   string
	err        error
	configured bool
	prompt     string
}

func (m *mockProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	m.prompt = prompt
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return m.configured }

func validResponse() string {
	data, _ := json.Marshal(map[string]any{
		"title":   "Flores de temporada para una boda de otoño",
		"excerpt": "Las flores de temporada transforman la decoración y cuidan el presupuesto sin renunciar al estilo.",
		"sections": []map[string]any{
			{"heading": "Por qué elegir flores de temporada", "body": []string{"Las dalias y los crisantemos dominan los ramos de octubre.", "Marina Soto recuerda una boda en Gerona donde la paleta granate lo cambió todo."}},
			{"heading": "Cómo combinarlas", "body": []string{"Apuesta por contrastes entre tonos tierra y verdes profundos."}},
		},
		"tips":        []string{"Pide a tu florista un moodboard con flores disponibles en tu fecha."},
		"conclusion":  "Elegir temporada es elegir frescura y sensatez presupuestaria.",
		"cta":         "Descubre más ideas florales en Planivia.",
		"tags":        []string{"Flores", "  otoño ", "decoración"},
		"coverPrompt": "Autumn wedding bouquet, warm palette",
	})
	return string(data)
}

func testInput() Input {
	return Input{
		Topic:          "Flores de temporada",
		Language:       "es",
		Tone:           "cálido cercano",
		Keywords:       []string{"flores", "otoño"},
		AuthorName:     "Marina Soto",
		AuthorTitle:    "Estilista floral",
		StyleDirective: "Escribes como Marina Soto.",
	}
}

func TestSynthesizeProviderPath(t *testing.T) {
	mock := &mockProvider{response: validResponse(), configured: true}
	d := New(mock, 0).Synthesize(context.Background(), testInput())

	if d.Source != SourceProvider {
		t.Fatalf("expected source %q, got %q", SourceProvider, d.Source)
	}
	if d.Title != "Flores de temporada para una boda de otoño" {
		t.Errorf("unexpected title %q", d.Title)
	}
	if !strings.HasPrefix(d.Markdown, "# Flores de temporada") {
		t.Errorf("expected H1 title, got %q", d.Markdown[:40])
	}
	if !strings.Contains(d.Markdown, "## Por qué elegir flores de temporada") {
		t.Error("expected section headings as H2")
	}
	if !strings.Contains(d.Markdown, "### Consejos clave") {
		t.Error("expected tips block")
	}
	if !strings.Contains(d.Markdown, "> Descubre más ideas florales") {
		t.Error("expected CTA blockquote")
	}
	if d.Tags[0] != "flores" || d.Tags[1] != "otoño" {
		t.Errorf("expected lowercased trimmed tags, got %v", d.Tags)
	}
	if d.CoverPrompt != "Autumn wedding bouquet, warm palette" {
		t.Errorf("unexpected cover prompt %q", d.CoverPrompt)
	}

	if !strings.Contains(mock.prompt, "Marina Soto") {
		t.Error("expected the persona in the prompt")
	}
}

func TestSynthesizeRederivesShortExcerpt(t *testing.T) {
	data, _ := json.Marshal(map[string]any{
		"title":   "Flores de temporada para una boda de otoño",
		"excerpt": "corto",
		"sections": []map[string]any{
			{"heading": "Por qué elegir flores de temporada", "body": []string{"Las dalias dominan los ramos de octubre."}},
			{"heading": "Cómo combinarlas", "body": []string{"Contrastes entre tonos tierra y verdes."}},
		},
	})
	mock := &mockProvider{response: string(data), configured: true}
	d := New(mock, 0).Synthesize(context.Background(), testInput())

	if d.Excerpt == "corto" {
		t.Error("expected a too-short excerpt to be rederived from the markdown")
	}
	if !strings.HasPrefix(d.Excerpt, "Flores de temporada") {
		t.Errorf("unexpected derived excerpt %q", d.Excerpt)
	}
}

func TestSynthesizePromptEmbedsResearch(t *testing.T) {
	mock := &mockProvider{response: validResponse(), configured: true}
	in := testInput()
	in.ResearchSummary = "Las flores locales reducen costes un 30%."
	in.References = []database.Reference{
		{Title: "Guía floral", URL: "https://example.com/flores", Snippet: "Temporadas y precios."},
	}
	New(mock, 0).Synthesize(context.Background(), in)

	if !strings.Contains(mock.prompt, "Las flores locales reducen costes") {
		t.Error("expected the research summary in the prompt")
	}
	if !strings.Contains(mock.prompt, "1. Guía floral (https://example.com/flores)") {
		t.Error("expected numbered references in the prompt")
	}
}

func TestSynthesizeFallbackWithoutProvider(t *testing.T) {
	d := New(nil, 0).Synthesize(context.Background(), testInput())

	if d.Source != SourceFallback {
		t.Fatalf("expected source %q, got %q", SourceFallback, d.Source)
	}
	if d.Title == "" || d.Markdown == "" || d.Excerpt == "" {
		t.Error("expected a complete template article")
	}
	if len(d.Sections) != 2 {
		t.Errorf("expected 2 template sections, got %d", len(d.Sections))
	}
	if d.CoverPrompt != FallbackCoverPrompt {
		t.Errorf("expected fallback cover prompt, got %q", d.CoverPrompt)
	}
}

func TestSynthesizeErrorSource(t *testing.T) {
	mock := &mockProvider{err: fmt.Errorf("timeout"), configured: true}
	d := New(mock, 0).Synthesize(context.Background(), testInput())

	if d.Source != SourceError {
		t.Fatalf("expected source %q on provider error, got %q", SourceError, d.Source)
	}
	if d.Markdown == "" {
		t.Error("expected the template article on provider error")
	}
}

func TestSynthesizeInvalidShapes(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"not json", "lo siento, no puedo generar eso"},
		{"short title", `{"title": "corto", "sections": [{"heading": "Uno válido", "body": ["a"]}, {"heading": "Dos válido", "body": ["b"]}]}`},
		{"single section", `{"title": "Título suficientemente largo", "sections": [{"heading": "Solo una", "body": ["a"]}]}`},
		{"empty body", `{"title": "Título suficientemente largo", "sections": [{"heading": "Primera", "body": []}, {"heading": "Segunda", "body": ["b"]}]}`},
		{"blank paragraph", `{"title": "Título suficientemente largo", "sections": [{"heading": "Primera", "body": ["  "]}, {"heading": "Segunda", "body": ["b"]}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := &mockProvider{response: tc.response, configured: true}
			d := New(mock, 0).Synthesize(context.Background(), testInput())
			if d.Source != SourceFallback {
				t.Errorf("expected fallback, got source %q", d.Source)
			}
		})
	}
}

func TestExcerptStripsMarkupAndCaps(t *testing.T) {
	md := "# Título\n\n> Cita\n\n" + strings.Repeat("palabra ", 60)
	e := Excerpt(md)
	if strings.ContainsAny(e, "#>`*") {
		t.Errorf("expected markup stripped, got %q", e)
	}
	if got := len([]rune(e)); got > 220 {
		t.Errorf("expected at most 220 characters, got %d", got)
	}
	if !strings.HasPrefix(e, "Título") {
		t.Errorf("unexpected excerpt start %q", e)
	}
}

func TestEnsureExcerpt(t *testing.T) {
	existing := "Un extracto suficientemente largo para conservarse tal cual."
	if got := EnsureExcerpt("# Algo", existing); got != existing {
		t.Error("expected a substantial existing excerpt to be kept")
	}
	if got := EnsureExcerpt("# Algo interesante sobre bodas", "corto"); got == "corto" {
		t.Error("expected a short excerpt to be rederived")
	}
}

func TestDefaultTags(t *testing.T) {
	sections := []database.Section{
		{Heading: "Presupuesto realista para el banquete", Body: []string{"x"}},
		{Heading: "Flores y decoración", Body: []string{"y"}},
	}
	tags := DefaultTags([]string{"Bodas", "bodas", "otoño"}, sections)

	if len(tags) > 6 {
		t.Fatalf("expected at most 6 tags, got %d", len(tags))
	}
	if tags[0] != "bodas" || tags[1] != "otoño" {
		t.Errorf("expected deduplicated lowercase keywords first, got %v", tags)
	}
	found := false
	for _, tag := range tags {
		if tag == "presupuesto" {
			found = true
		}
		if tag != strings.ToLower(tag) {
			t.Errorf("expected lowercase tags, got %q", tag)
		}
	}
	if !found {
		t.Errorf("expected heading token in tags, got %v", tags)
	}
}

func TestBuildMarkdownOmitsEmptyBlocks(t *testing.T) {
	md := BuildMarkdown("Título", "", []database.Section{{Heading: "Única", Body: []string{"cuerpo"}}}, nil, "", "")
	if strings.Contains(md, "Consejos clave") || strings.Contains(md, "Conclusión") || strings.Contains(md, ">") {
		t.Errorf("expected optional blocks omitted, got %q", md)
	}
}
