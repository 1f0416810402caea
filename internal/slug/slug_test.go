package slug

import (
	"strconv"
	"strings"
	"testing"
)

type fakeStore struct {
	taken map[string]string // slug -> owner id
}

func (f *fakeStore) SlugExists(slug, excludeID string) (bool, error) {
	owner, ok := f.taken[slug]
	if !ok {
		return false, nil
	}
	return owner != excludeID, nil
}

func TestMake(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Cómo elegir la decoración perfecta", "como-elegir-la-decoracion-perfecta"},
		{"Bodas 2025: ¡tendencias!", "bodas-2025-tendencias"},
		{"  --- ", "articulo"},
		{"Menús & vinos", "menus-vinos"},
	}
	for _, tt := range tests {
		if got := Make(tt.title); got != tt.want {
			t.Errorf("Make(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestMakeTruncates(t *testing.T) {
	long := strings.Repeat("palabra ", 30)
	got := Make(long)
	if len(got) > 80 {
		t.Errorf("expected slug capped at 80 chars, got %d", len(got))
	}
	if strings.HasSuffix(got, "-") {
		t.Error("expected no trailing hyphen after truncation")
	}
}

func TestEnsureUniqueFree(t *testing.T) {
	store := &fakeStore{taken: map[string]string{}}
	got, err := EnsureUnique(store, "Flores de temporada", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "flores-de-temporada" {
		t.Errorf("expected base slug, got %q", got)
	}
}

func TestEnsureUniqueSuffixes(t *testing.T) {
	store := &fakeStore{taken: map[string]string{
		"flores-de-temporada":   "a",
		"flores-de-temporada-2": "b",
	}}
	got, err := EnsureUnique(store, "Flores de temporada", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "flores-de-temporada-3" {
		t.Errorf("expected suffix -3, got %q", got)
	}
}

func TestEnsureUniqueExcludesOwnPost(t *testing.T) {
	store := &fakeStore{taken: map[string]string{"flores-de-temporada": "mine"}}
	got, err := EnsureUnique(store, "Flores de temporada", "mine")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "flores-de-temporada" {
		t.Errorf("expected own slug to be reusable, got %q", got)
	}
}

func TestEnsureUniqueTimestampFallback(t *testing.T) {
	store := &fakeStore{taken: map[string]string{"titulo": "x"}}
	for i := 2; i <= 11; i++ {
		store.taken["titulo-"+strconv.Itoa(i)] = "x"
	}

	got, err := EnsureUnique(store, "Título", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "titulo-") {
		t.Fatalf("expected timestamp-suffixed slug, got %q", got)
	}
	if len(got) <= len("titulo-3") {
		t.Errorf("expected long timestamp suffix, got %q", got)
	}
}

func TestDistinctSlugsForIdenticalTitles(t *testing.T) {
	store := &fakeStore{taken: map[string]string{}}

	first, _ := EnsureUnique(store, "Mismo título", "")
	store.taken[first] = "p1"
	second, _ := EnsureUnique(store, "Mismo título", "")

	if first == second {
		t.Errorf("expected distinct slugs, both were %q", first)
	}
}
