// Package translate renders an article into the configured target
// languages. Each language is independent: one failing translation
// never blocks the others or the pipeline.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/planivia/editorial/internal/compose"
	"github.com/planivia/editorial/internal/database"
	"github.com/planivia/editorial/internal/llm"
)

// Translation statuses.
const (
	StatusReady  = "ready"
	StatusFailed = "failed"
)

// Article is the source-language content handed to translation.
type Article struct {
	Title       string
	Excerpt     string
	Sections    []database.Section
	Tips        []string
	Conclusion  string
	CTA         string
	AuthorName  string
	AuthorTitle string
	Tone        string
}

// Translator fans an article out to target languages.
type Translator struct {
	provider  llm.Provider
	maxTokens int
}

// New creates a Translator. provider may be nil.
func New(provider llm.Provider, maxTokens int) *Translator {
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	return &Translator{provider: provider, maxTokens: maxTokens}
}

type langResult struct {
	lang string
	tr   database.Translation
}

// Translate renders the article into each target language concurrently,
// one goroutine per language. Duplicates and the source language are
// skipped; without a configured provider the map is empty. Each entry
// is ready or failed on its own.
func (t *Translator) Translate(ctx context.Context, article Article, from string, targets []string) map[string]database.Translation {
	unique := uniqueTargets(from, targets)
	if len(unique) == 0 {
		return map[string]database.Translation{}
	}
	if t.provider == nil || !t.provider.IsConfigured() {
		return map[string]database.Translation{}
	}

	results := make(chan langResult, len(unique))
	for _, lang := range unique {
		go func(lang string) {
			results <- langResult{lang: lang, tr: t.translateOne(ctx, article, from, lang)}
		}(lang)
	}

	out := make(map[string]database.Translation, len(unique))
	for range unique {
		r := <-results
		out[r.lang] = r.tr
	}
	return out
}

func uniqueTargets(from string, targets []string) []string {
	from = strings.ToLower(from)
	seen := make(map[string]bool)
	var out []string
	for _, t := range targets {
		code := strings.ToLower(strings.TrimSpace(t))
		if code == "" || code == from || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

// translated mirrors the JSON shape requested from the provider.
type translated struct {
	Title      string             `json:"title"`
	Excerpt    string             `json:"excerpt"`
	Sections   []database.Section `json:"sections"`
	Tips       []string           `json:"tips"`
	Conclusion string             `json:"conclusion"`
	CTA        string             `json:"cta"`
}

func (t *Translator) translateOne(ctx context.Context, article Article, from, target string) database.Translation {
	response, err := t.provider.Generate(ctx, buildPrompt(article, from, target), t.maxTokens)
	if err != nil {
		log.Printf("Translation %s -> %s failed: %v", from, target, err)
		return database.Translation{Status: StatusFailed, Error: err.Error()}
	}

	parsed := llm.ParseJSONResponse(response)
	if parsed == nil {
		return database.Translation{Status: StatusFailed, Error: "invalid translation response"}
	}

	var tr translated
	data, _ := json.Marshal(parsed)
	if err := json.Unmarshal(data, &tr); err != nil || !valid(tr) {
		log.Printf("Translation %s -> %s returned an invalid shape", from, target)
		return database.Translation{Status: StatusFailed, Error: "invalid translation shape"}
	}

	markdown := compose.BuildMarkdown(tr.Title, "", tr.Sections, tr.Tips, tr.Conclusion, tr.CTA)
	excerpt := compose.EnsureExcerpt(markdown, strings.TrimSpace(tr.Excerpt))

	return database.Translation{
		Status:     StatusReady,
		Title:      strings.TrimSpace(tr.Title),
		Excerpt:    excerpt,
		Markdown:   markdown,
		Outline:    tr.Sections,
		Tips:       tr.Tips,
		Conclusion: tr.Conclusion,
		CTA:        tr.CTA,
	}
}

func valid(tr translated) bool {
	if len(strings.TrimSpace(tr.Title)) < 8 {
		return false
	}
	if len(tr.Sections) < 2 {
		return false
	}
	for _, s := range tr.Sections {
		if len(strings.TrimSpace(s.Heading)) < 4 || len(s.Body) == 0 {
			return false
		}
	}
	return true
}

// languageName maps a code to the English name used in the prompt.
func languageName(code string) string {
	switch strings.ToLower(code) {
	case "es":
		return "Spanish"
	case "en":
		return "English"
	case "fr":
		return "French"
	case "pt":
		return "Portuguese"
	case "it":
		return "Italian"
	case "de":
		return "German"
	default:
		return code
	}
}

func buildPrompt(article Article, from, target string) string {
	payload := map[string]any{
		"title":      article.Title,
		"excerpt":    article.Excerpt,
		"sections":   article.Sections,
		"tips":       article.Tips,
		"conclusion": article.Conclusion,
		"cta":        article.CTA,
	}
	encoded, _ := json.MarshalIndent(payload, "", "  ")

	voice := "Preserve the original narrative voice and warmth."
	if article.AuthorName != "" {
		voice = fmt.Sprintf("The article voice belongs to %s", article.AuthorName)
		if article.AuthorTitle != "" {
			voice += ", " + article.AuthorTitle
		}
		voice += ". Preserve this voice, cadence, and personality."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a bilingual wedding editor for Planivia. Translate wedding content from %s into %s while keeping a warm, human, conversational tone. Preserve structure, actionable advice, and factual accuracy. %s\n\n", languageName(from), languageName(target), voice)
	fmt.Fprintf(&b, "Desired tone: %s.\n", article.Tone)
	b.WriteString(`Keep sections, tips, and CTA structure exactly as the source. Use natural wording that sounds like a trusted wedding planner speaking to engaged couples. If the article includes quotes or observations, keep them meaningful in the new language without inventing data.
Return valid JSON with this structure:
{
  "title": "string",
  "excerpt": "string",
  "sections": [
    { "heading": "string", "body": ["paragraph 1", "paragraph 2"] }
  ],
  "tips": ["string"],
  "conclusion": "string",
  "cta": "string"
}

Article JSON:
`)
	b.Write(encoded)
	return b.String()
}

// AvailableLanguages lists the source language plus every target whose
// translation is ready, in a stable order.
func AvailableLanguages(from string, translations map[string]database.Translation, order []string) []string {
	langs := []string{strings.ToLower(from)}
	for _, code := range order {
		code = strings.ToLower(code)
		if tr, ok := translations[code]; ok && tr.Status == StatusReady {
			langs = append(langs, code)
		}
	}
	return langs
}
