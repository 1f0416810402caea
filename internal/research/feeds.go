package research

import (
	"log"
	"strings"
	"unicode"

	"github.com/mmcdole/gofeed"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/planivia/editorial/internal/database"
)

const maxPerFeed = 20

// FeedConfig represents a single feed configuration.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedSource pulls reference candidates from curated wedding-press
// RSS/Atom feeds. It supplements the search provider when that returns
// few usable references; it never blocks a cycle.
type FeedSource struct {
	feeds  []FeedConfig
	parser *gofeed.Parser
}

// NewFeedSource creates a FeedSource over the configured feeds.
func NewFeedSource(feeds []FeedConfig) *FeedSource {
	return &FeedSource{feeds: feeds, parser: gofeed.NewParser()}
}

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func fold(s string) string {
	folded, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// References returns feed entries loosely related to the topic, capped
// at limit. Feed failures are logged and skipped.
func (fs *FeedSource) References(topic string, limit int) []database.Reference {
	if fs == nil || len(fs.feeds) == 0 || limit <= 0 {
		return nil
	}

	tokens := topicTokens(topic)
	var refs []database.Reference
	for _, fc := range fs.feeds {
		feed, err := fs.parser.ParseURL(fc.URL)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fc.URL, err)
			continue
		}

		count := 0
		for _, item := range feed.Items {
			if len(refs) >= limit {
				return refs
			}
			if count >= maxPerFeed {
				break
			}
			count++

			itemURL := item.Link
			if itemURL == "" {
				itemURL = item.GUID
			}
			title := strings.TrimSpace(item.Title)
			if itemURL == "" || title == "" {
				continue
			}
			if !matchesTopic(title+" "+item.Description, tokens) {
				continue
			}

			refs = append(refs, database.Reference{
				Title:   title,
				URL:     itemURL,
				Snippet: snippet(item.Description),
			})
		}
	}
	return refs
}

// topicTokens extracts folded topic words worth matching on (length > 3
// filters articles and prepositions).
func topicTokens(topic string) []string {
	var tokens []string
	for _, w := range strings.Fields(fold(topic)) {
		if len(w) > 3 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func matchesTopic(text string, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	folded := fold(text)
	for _, tk := range tokens {
		if strings.Contains(folded, tk) {
			return true
		}
	}
	return false
}

func snippet(description string) string {
	s := stripHTML(description)
	// Truncate on runes, not bytes, so the cut never splits an accented
	// character into invalid UTF-8.
	runes := []rune(s)
	if len(runes) > 200 {
		s = string(runes[:200])
	}
	return s
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
