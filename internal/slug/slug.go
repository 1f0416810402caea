// Package slug derives URL-safe identifiers from article titles and
// guarantees store-wide uniqueness.
package slug

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSuffixAttempts = 10

// Store is the slug-existence lookup the uniqueness check needs.
type Store interface {
	SlugExists(slug, excludeID string) (bool, error)
}

// foldDiacritics strips combining marks so "decoración" slugs as "decoracion".
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make normalizes a title to a URL-safe token: diacritics folded,
// lowercased, non-alphanumeric runs collapsed to single hyphens.
func Make(title string) string {
	folded, _, err := transform.String(foldDiacritics, title)
	if err != nil {
		folded = title
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if len(s) > 80 {
		s = strings.TrimRight(s[:80], "-")
	}
	if s == "" {
		s = "articulo"
	}
	return s
}

// EnsureUnique returns a slug for title that no post other than
// excludeID owns. Collisions get numeric suffixes; after ten attempts a
// nanosecond timestamp guarantees termination.
func EnsureUnique(store Store, title, excludeID string) (string, error) {
	base := Make(title)

	candidate := base
	for i := 0; i <= maxSuffixAttempts; i++ {
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d", base, i+1)
		}
		taken, err := store.SlugExists(candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("checking slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return fmt.Sprintf("%s-%d", base, time.Now().UnixNano()), nil
}
