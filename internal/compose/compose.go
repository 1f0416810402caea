// Package compose turns a planned topic plus research into a full
// article draft. The generative provider is the primary path; a
// deterministic template article guarantees every cycle produces a
// usable draft even when the provider is down or returns garbage.
package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/planivia/editorial/internal/database"
	"github.com/planivia/editorial/internal/llm"
)

// Draft sources recorded on the persisted post.
const (
	SourceProvider = "openai"
	SourceFallback = "fallback"
	SourceError    = "error"
)

// FallbackCoverPrompt is used when the provider supplies no cover prompt.
const FallbackCoverPrompt = "Editorial wedding photography, elegant pastel palette, minimal styling, soft natural light"

const excerptLength = 220

// Input carries everything synthesis needs for one article.
type Input struct {
	Topic           string
	Angle           string
	Language        string
	Tone            string
	Keywords        []string
	Audience        string
	ResearchSummary string
	References      []database.Reference
	AuthorName      string
	AuthorTitle     string
	StyleDirective  string
}

// Draft is the synthesized article before persistence.
type Draft struct {
	Title       string
	Excerpt     string
	Markdown    string
	Sections    []database.Section
	Tips        []string
	Conclusion  string
	CTA         string
	Tags        []string
	CoverPrompt string
	Source      string
}

// Composer synthesizes article drafts.
type Composer struct {
	provider  llm.Provider
	maxTokens int
}

// New creates a Composer. provider may be nil.
func New(provider llm.Provider, maxTokens int) *Composer {
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	return &Composer{provider: provider, maxTokens: maxTokens}
}

// Synthesize produces a draft for the input. It never fails: missing
// provider yields the template article with source "fallback", provider
// errors yield it with source "error", and shape-invalid responses fall
// back as well.
func (c *Composer) Synthesize(ctx context.Context, in Input) Draft {
	if c.provider == nil || !c.provider.IsConfigured() {
		return c.fallback(in, SourceFallback)
	}

	response, err := c.provider.Generate(ctx, buildPrompt(in), c.maxTokens)
	if err != nil {
		log.Printf("Article synthesis failed for %q: %v", in.Topic, err)
		return c.fallback(in, SourceError)
	}

	parsed := llm.ParseJSONResponse(response)
	if parsed == nil {
		return c.fallback(in, SourceFallback)
	}

	var ai aiResponse
	data, _ := json.Marshal(parsed)
	if err := json.Unmarshal(data, &ai); err != nil || !ai.valid() {
		log.Printf("Article synthesis returned an invalid shape for %q", in.Topic)
		return c.fallback(in, SourceFallback)
	}

	markdown := BuildMarkdown(ai.Title, "", ai.Sections, ai.Tips, ai.Conclusion, ai.CTA)
	excerpt := EnsureExcerpt(markdown, strings.TrimSpace(ai.Excerpt))

	tags := normalizeTags(ai.Tags)
	if len(tags) == 0 {
		tags = DefaultTags(in.Keywords, ai.Sections)
	}

	coverPrompt := strings.TrimSpace(ai.CoverPrompt)
	if coverPrompt == "" {
		coverPrompt = FallbackCoverPrompt
	}

	return Draft{
		Title:       strings.TrimSpace(ai.Title),
		Excerpt:     excerpt,
		Markdown:    markdown,
		Sections:    ai.Sections,
		Tips:        ai.Tips,
		Conclusion:  ai.Conclusion,
		CTA:         ai.CTA,
		Tags:        tags,
		CoverPrompt: coverPrompt,
		Source:      SourceProvider,
	}
}

// aiResponse mirrors the JSON shape requested from the provider.
type aiResponse struct {
	Title       string             `json:"title"`
	Excerpt     string             `json:"excerpt"`
	Sections    []database.Section `json:"sections"`
	Tips        []string           `json:"tips"`
	Conclusion  string             `json:"conclusion"`
	CTA         string             `json:"cta"`
	Tags        []string           `json:"tags"`
	CoverPrompt string             `json:"coverPrompt"`
}

// valid enforces the required shape: a real title and at least two
// sections, each with a heading and non-empty body paragraphs.
func (ai aiResponse) valid() bool {
	if len(strings.TrimSpace(ai.Title)) < 8 {
		return false
	}
	if len(ai.Sections) < 2 {
		return false
	}
	for _, s := range ai.Sections {
		if len(strings.TrimSpace(s.Heading)) < 4 || len(s.Body) == 0 {
			return false
		}
		for _, p := range s.Body {
			if strings.TrimSpace(p) == "" {
				return false
			}
		}
	}
	return true
}

func buildPrompt(in Input) string {
	var b strings.Builder

	b.WriteString("Eres editor senior de bodas en Planivia. Redactas artículos útiles y accionables con un tono cercano, humano y experto, como una planner de confianza que asesora a la pareja. Incluye ejemplos concretos basados en información verificada y nunca inventes datos.")
	if in.AuthorName != "" {
		b.WriteString(" Tu firma es " + in.AuthorName)
		if in.AuthorTitle != "" {
			b.WriteString(", " + in.AuthorTitle)
		}
		b.WriteString(".")
	}
	if in.StyleDirective != "" {
		b.WriteString(" " + in.StyleDirective)
	}
	b.WriteString("\n\n")

	keywordsText := "Palabras clave opcionales."
	if len(in.Keywords) > 0 {
		keywordsText = "Palabras clave: " + strings.Join(in.Keywords, ", ") + "."
	}
	audience := in.Audience
	if audience == "" {
		audience = "parejas que planean su boda"
	}

	fmt.Fprintf(&b, "Redacta un artículo completo de blog de bodas sobre %q.", in.Topic)
	if in.Angle != "" {
		fmt.Fprintf(&b, " Ángulo: %s.", in.Angle)
	}
	fmt.Fprintf(&b, " Público: %s. Longitud objetivo: entre 700 y 900 palabras. Tono: %s. %s Si procede, menciona contexto de bodas en España. Usa una voz cálida y cercana que abra con un gancho empático, incluya ejemplos reales y cierre con un mensaje de ánimo. Basado en esta investigación contrastada:\n", audience, in.Tone, keywordsText)
	b.WriteString(researchContext(in.ResearchSummary, in.References))
	b.WriteString("\n\n")
	b.WriteString("Haz que el artículo tenga sensación de reporterismo: añade mini anécdotas, detalles sensoriales y transiciones naturales entre párrafos.")
	if in.AuthorName != "" {
		fmt.Fprintf(&b, " Incluye al menos una cita breve u observación de campo atribuida a %s.", in.AuthorName)
	}
	b.WriteString("\n\n")

	b.WriteString(`Devuelve JSON válido con esta estructura:
{
  "title": "string",
  "excerpt": "string",
  "sections": [
    { "heading": "string", "body": ["párrafo 1", "párrafo 2"] }
  ],
  "tips": ["string"],
  "conclusion": "string",
  "cta": "string",
  "tags": ["string"],
  "coverPrompt": "string"
}`)
	return b.String()
}

// researchContext renders the research block embedded in the prompt:
// the summary followed by numbered references.
func researchContext(summary string, refs []database.Reference) string {
	var lines []string
	if s := strings.TrimSpace(summary); s != "" {
		lines = append(lines, s)
	}

	if len(refs) > 6 {
		refs = refs[:6]
	}
	if len(refs) > 0 {
		lines = append(lines, "Referencias clave:")
		for i, ref := range refs {
			title := strings.TrimSpace(ref.Title)
			if title == "" {
				title = fmt.Sprintf("Fuente %d", i+1)
			}
			line := fmt.Sprintf("%d. %s", i+1, title)
			if ref.URL != "" {
				line += " (" + ref.URL + ")"
			}
			if s := strings.TrimSpace(ref.Snippet); s != "" {
				line += " - " + s
			}
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		return "No se proporcionó investigación externa. Ofrece orientación verificada para bodas en España."
	}
	return strings.Join(lines, "\n")
}

// BuildMarkdown renders the article layout: H1 title, optional lead
// excerpt, H2 sections, a tips list, conclusion and a blockquote CTA.
func BuildMarkdown(title, excerpt string, sections []database.Section, tips []string, conclusion, cta string) string {
	var lines []string
	if title != "" {
		lines = append(lines, "# "+title, "")
	}
	if excerpt != "" {
		lines = append(lines, strings.TrimSpace(excerpt), "")
	}

	for _, s := range sections {
		lines = append(lines, "## "+strings.TrimSpace(s.Heading), "")
		for _, p := range s.Body {
			lines = append(lines, strings.TrimSpace(p), "")
		}
	}

	if len(tips) > 0 {
		lines = append(lines, "### Consejos clave", "")
		for _, tip := range tips {
			lines = append(lines, "- "+strings.TrimSpace(tip))
		}
		lines = append(lines, "")
	}

	if conclusion != "" {
		lines = append(lines, "### Conclusión", "", strings.TrimSpace(conclusion), "")
	}

	if cta != "" {
		lines = append(lines, "> "+strings.TrimSpace(cta), "")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Excerpt derives a short lead from rendered markdown: markup stripped,
// whitespace collapsed, first 220 characters.
func Excerpt(markdown string) string {
	plain := strings.Map(func(r rune) rune {
		switch r {
		case '#', '>', '*', '`':
			return -1
		}
		return r
	}, markdown)
	plain = strings.Join(strings.Fields(plain), " ")

	runes := []rune(plain)
	if len(runes) > excerptLength {
		return string(runes[:excerptLength])
	}
	return plain
}

// EnsureExcerpt keeps an existing excerpt when it is substantial,
// otherwise derives one from the markdown.
func EnsureExcerpt(markdown, existing string) string {
	if len(existing) >= 32 {
		return existing
	}
	return Excerpt(markdown)
}

// DefaultTags derives tags from the plan keywords plus prominent words
// from the section headings, capped at six.
func DefaultTags(keywords []string, sections []database.Section) []string {
	seen := make(map[string]bool)
	var tags []string
	add := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] || len(tags) >= 6 {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	for _, kw := range keywords {
		add(kw)
	}
	for _, s := range sections {
		count := 0
		for _, token := range strings.Fields(strings.ToLower(s.Heading)) {
			if len([]rune(token)) <= 4 {
				continue
			}
			add(strings.Trim(token, ",.;:¿?¡!"))
			count++
			if count >= 2 {
				break
			}
		}
	}
	return tags
}

func normalizeTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	if len(out) > 8 {
		out = out[:8]
	}
	return out
}

// fallback builds the deterministic template article from the inputs
// alone. Always succeeds.
func (c *Composer) fallback(in Input, source string) Draft {
	title := titleCase(in.Topic + " - inspiración para parejas modernas")

	summary := strings.TrimSpace(in.ResearchSummary)
	if summary == "" {
		summary = fmt.Sprintf("Explora tendencias recientes relacionadas con %s. Adapta las propuestas a distintos estilos de boda y mantén un tono %s.", in.Topic, in.Tone)
	}

	sections := []database.Section{
		{
			Heading: "Ideas principales",
			Body: []string{
				summary,
				"Incluye recomendaciones prácticas y recursos útiles para comenzar a planificar.",
			},
		},
		{
			Heading: "Cómo aplicarlo a tu boda",
			Body: []string{
				"Propón pasos concretos, con ejemplos de proveedores y presupuestos orientativos.",
				"Aconseja combinaciones de decoración, paletas de color y moodboards.",
			},
		},
	}

	tips := []string{
		"Define un presupuesto estimado y revisa disponibilidad de proveedores con antelación.",
		"Recopila referencias visuales para compartir con tu planner o equipo creativo.",
		"No dudes en personalizar cada idea con elementos simbólicos de la pareja.",
	}

	conclusion := "Con planificación y un buen equipo de profesionales, cualquier idea puede transformarse en un recuerdo inolvidable."
	cta := "¿Quieres más inspiración personalizada? Inicia sesión en Planivia y descubre herramientas exclusivas."

	markdown := BuildMarkdown(title, "", sections, tips, conclusion, cta)

	tags := in.Keywords
	if len(tags) > 6 {
		tags = tags[:6]
	}

	return Draft{
		Title:       title,
		Excerpt:     Excerpt(markdown),
		Markdown:    markdown,
		Sections:    sections,
		Tips:        tips,
		Conclusion:  conclusion,
		CTA:         cta,
		Tags:        tags,
		CoverPrompt: FallbackCoverPrompt,
		Source:      source,
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		if len(runes) > 0 {
			runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
