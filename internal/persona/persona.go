// Package persona holds the static roster of writer personas and the
// scoring that assigns one to a topic. Pure and dependency-free at
// runtime: the roster is never mutated.
package persona

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Profile is a static writer persona.
type Profile struct {
	ID             string
	Name           string
	Title          string
	NarrativeStyle string
	Affinities     []string
	Signature      string
}

// Roster is the fixed list of personas, in priority order for tie-breaks.
// The first entry is the designated default when nothing scores.
var Roster = []Profile{
	{
		ID:             "lucia",
		Name:           "Lucía Ferrer",
		Title:          "Wedding planner senior",
		NarrativeStyle: "Cercana y organizada, habla desde la experiencia de cientos de bodas coordinadas, con consejos paso a paso.",
		Affinities:     []string{"planificación", "presupuesto", "calendario", "organización", "proveedores", "timing", "checklist"},
		Signature:      "Lucía Ferrer, planner de cabecera en Planivia",
	},
	{
		ID:             "marina",
		Name:           "Marina Soto",
		Title:          "Estilista floral y decoradora",
		NarrativeStyle: "Sensorial y visual, describe paletas, texturas y ambientes como si el lector pudiera tocarlos.",
		Affinities:     []string{"decoración", "flores", "ramo", "paleta", "colores", "estilo", "inspiración", "tendencias", "centros de mesa"},
		Signature:      "Marina Soto, estilismo floral para Planivia",
	},
	{
		ID:             "carlos",
		Name:           "Carlos Ibáñez",
		Title:          "Crítico gastronómico de eventos",
		NarrativeStyle: "Goloso y directo, cuenta menús y maridajes con anécdotas de banquetes reales.",
		Affinities:     []string{"menú", "catering", "banquete", "vinos", "gastronomía", "tarta", "cóctel", "aperitivos"},
		Signature:      "Carlos Ibáñez, gastronomía nupcial en Planivia",
	},
	{
		ID:             "elena",
		Name:           "Elena Vidal",
		Title:          "Fotógrafa de bodas",
		NarrativeStyle: "Narrativa e íntima, escribe sobre momentos, luz y emociones con ojo de reportera gráfica.",
		Affinities:     []string{"fotografía", "vídeo", "momentos", "reportaje", "luz", "recuerdos", "álbum", "ceremonia"},
		Signature:      "Elena Vidal, fotografía para Planivia",
	},
}

// Assignment is the selected persona plus the directive injected into
// the synthesis prompt.
type Assignment struct {
	Persona        Profile
	StyleDirective string
}

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalize(s string) string {
	folded, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Assign scores every persona against the topic and keywords by
// case/accent-insensitive affinity matches. Highest score wins, ties
// break by roster order, zero everywhere falls back to the default.
func Assign(topic string, keywords []string) Assignment {
	haystack := normalize(topic + " " + strings.Join(keywords, " "))

	best := Roster[0]
	bestScore := 0
	for _, p := range Roster {
		score := 0
		for _, affinity := range p.Affinities {
			if strings.Contains(haystack, normalize(affinity)) {
				score++
			}
		}
		if score > bestScore {
			best = p
			bestScore = score
		}
	}

	return Assignment{
		Persona:        best,
		StyleDirective: styleDirective(best),
	}
}

func styleDirective(p Profile) string {
	var b strings.Builder
	b.WriteString("Escribes como ")
	b.WriteString(p.Name)
	if p.Title != "" {
		b.WriteString(", ")
		b.WriteString(p.Title)
	}
	b.WriteString(". ")
	b.WriteString(p.NarrativeStyle)
	b.WriteString(" Incluye al menos una observación de campo atribuida a ")
	b.WriteString(p.Name)
	b.WriteString(".")
	return b.String()
}

// ByID returns the roster persona with the given ID, or nil.
func ByID(id string) *Profile {
	for i := range Roster {
		if Roster[i].ID == id {
			return &Roster[i]
		}
	}
	return nil
}
