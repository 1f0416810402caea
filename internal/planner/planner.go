// Package planner produces the editorial calendar: one topic per day
// with angle, keywords, tone and audience. The generative provider is
// the primary path; a deterministic theme rotation guarantees a plan
// for every requested day no matter what the provider does.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/planivia/editorial/internal/database"
	"github.com/planivia/editorial/internal/llm"
)

// DayPlan is one planned calendar day.
type DayPlan struct {
	Date     string
	Topic    string
	Angle    string
	Keywords []string
	Tone     string
	Audience string
	Language string
	Source   string // "llm" or "fallback"
}

const (
	defaultTone     = "cercano e inspirador"
	defaultAudience = "parejas que planean su boda"
)

// Planner generates day plans for a date range.
type Planner struct {
	provider  llm.Provider
	maxTokens int
}

// New creates a Planner. provider may be nil; everything then comes
// from the rotation.
func New(provider llm.Provider, maxTokens int) *Planner {
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &Planner{provider: provider, maxTokens: maxTokens}
}

// Plan returns exactly one DayPlan per day in [start, start+days). The
// provider is called once for the whole range; every day whose entry is
// missing or malformed gets the deterministic fallback instead.
func (p *Planner) Plan(ctx context.Context, start time.Time, days int, language, focus string) []DayPlan {
	if days <= 0 {
		return nil
	}

	dates := make([]string, days)
	for i := 0; i < days; i++ {
		dates[i] = start.AddDate(0, 0, i).UTC().Format(database.DateKey)
	}

	generated := p.generate(ctx, dates, language, focus)

	plans := make([]DayPlan, 0, days)
	for i, date := range dates {
		if plan, ok := generated[date]; ok {
			plans = append(plans, plan)
			continue
		}
		plans = append(plans, fallbackPlan(start.AddDate(0, 0, i).UTC(), language))
	}
	return plans
}

// planItem mirrors the JSON shape requested from the provider.
type planItem struct {
	Date     string   `json:"date"`
	Topic    string   `json:"topic"`
	Angle    string   `json:"angle"`
	Keywords []string `json:"keywords"`
	Tone     string   `json:"tone"`
	Audience string   `json:"audience"`
}

// generate asks the provider for the full set and returns the valid
// entries keyed by date. Any failure returns an empty map.
func (p *Planner) generate(ctx context.Context, dates []string, language, focus string) map[string]DayPlan {
	if p.provider == nil || !p.provider.IsConfigured() {
		return nil
	}

	response, err := p.provider.Generate(ctx, buildPrompt(dates, language, focus), p.maxTokens)
	if err != nil {
		return nil
	}

	items := llm.ParseJSONArray(response)
	if len(items) == 0 {
		return nil
	}

	wanted := make(map[string]bool, len(dates))
	for _, d := range dates {
		wanted[d] = true
	}

	plans := make(map[string]DayPlan)
	for _, raw := range items {
		data, err := json.Marshal(raw)
		if err != nil {
			continue
		}
		var item planItem
		if err := json.Unmarshal(data, &item); err != nil {
			continue
		}
		if !validItem(item) || !wanted[item.Date] {
			continue
		}
		if _, dup := plans[item.Date]; dup {
			continue
		}
		plans[item.Date] = DayPlan{
			Date:     item.Date,
			Topic:    strings.TrimSpace(item.Topic),
			Angle:    strings.TrimSpace(item.Angle),
			Keywords: item.Keywords,
			Tone:     orDefault(item.Tone, defaultTone),
			Audience: orDefault(item.Audience, defaultAudience),
			Language: language,
			Source:   "llm",
		}
	}
	return plans
}

func validItem(item planItem) bool {
	if len(strings.TrimSpace(item.Topic)) < 8 {
		return false
	}
	if _, err := time.Parse(database.DateKey, item.Date); err != nil {
		return false
	}
	return true
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func buildPrompt(dates []string, language, focus string) string {
	var b strings.Builder
	b.WriteString("Eres el responsable editorial del blog de bodas de Planivia. ")
	b.WriteString("Planifica un tema de artículo por día para las siguientes fechas: ")
	b.WriteString(strings.Join(dates, ", "))
	b.WriteString(".\n")
	if focus != "" {
		b.WriteString("Enfoque editorial: " + focus + "\n")
	}
	b.WriteString("Idioma de los temas: " + language + ".\n\n")
	b.WriteString(`Responde SOLO con un array JSON, un objeto por fecha:
[{"date": "YYYY-MM-DD", "topic": "...", "angle": "...", "keywords": ["..."], "tone": "...", "audience": "..."}]

Reglas: temas variados (presupuesto, decoración, gastronomía, fotografía, protocolo, invitados), ángulos concretos y accionables, entre 3 y 6 keywords por tema. Sin texto fuera del JSON.`)
	return b.String()
}

// fallbackTheme is one stop on the deterministic rotation.
type fallbackTheme struct {
	topic    string
	angle    string
	keywords []string
}

var fallbackThemes = []fallbackTheme{
	{"Cómo planificar el presupuesto de vuestra boda", "guía paso a paso con partidas reales", []string{"presupuesto", "planificación", "proveedores"}},
	{"Ideas de decoración para la ceremonia", "inspiración por estilos y paletas de color", []string{"decoración", "ceremonia", "flores"}},
	{"Claves para elegir el menú del banquete", "cómo acertar con catering y maridajes", []string{"menú", "banquete", "catering"}},
	{"Consejos para un reportaje de fotos inolvidable", "qué pedir al fotógrafo y cuándo", []string{"fotografía", "reportaje", "recuerdos"}},
	{"El calendario de tareas para organizar la boda", "checklist por meses hasta el gran día", []string{"calendario", "checklist", "organización"}},
	{"Tendencias en ramos y flores de temporada", "qué flores funcionan según la época", []string{"ramo", "flores", "tendencias"}},
	{"Cómo organizar el plan de mesas sin conflictos", "estrategias para sentar a los invitados", []string{"invitados", "plan de mesas", "protocolo"}},
	{"Detalles y regalos para los invitados", "ideas originales para cada presupuesto", []string{"detalles", "invitados", "regalos"}},
	{"Elegir la música para la ceremonia y la fiesta", "de la entrada al último baile", []string{"música", "fiesta", "ceremonia"}},
	{"Vestidos y trajes: cómo encontrar el look perfecto", "guía de estilos, pruebas y plazos", []string{"vestido", "traje", "estilo"}},
}

var rotationEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// fallbackPlan builds a fully deterministic plan for a date: the theme
// list cycled by days since a fixed epoch, composed with the season.
func fallbackPlan(date time.Time, language string) DayPlan {
	ordinal := int(date.Sub(rotationEpoch).Hours() / 24)
	if ordinal < 0 {
		ordinal = -ordinal
	}
	theme := fallbackThemes[ordinal%len(fallbackThemes)]

	return DayPlan{
		Date:     date.Format(database.DateKey),
		Topic:    fmt.Sprintf("%s en %s", theme.topic, seasonOf(date.Month())),
		Angle:    theme.angle,
		Keywords: theme.keywords,
		Tone:     defaultTone,
		Audience: defaultAudience,
		Language: language,
		Source:   "fallback",
	}
}

func seasonOf(m time.Month) string {
	switch m {
	case time.March, time.April, time.May:
		return "primavera"
	case time.June, time.July, time.August:
		return "verano"
	case time.September, time.October, time.November:
		return "otoño"
	default:
		return "invierno"
	}
}
