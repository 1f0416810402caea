package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/planivia/editorial/internal/compose"
	"github.com/planivia/editorial/internal/config"
	"github.com/planivia/editorial/internal/cover"
	"github.com/planivia/editorial/internal/database"
	"github.com/planivia/editorial/internal/planner"
	"github.com/planivia/editorial/internal/research"
	"github.com/planivia/editorial/internal/scheduler"
	"github.com/planivia/editorial/internal/translate"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testWorker(db *database.DB) *scheduler.Worker {
	cfg := &config.Config{
		Editorial: config.Editorial{
			WindowDays:        3,
			LookaheadDays:     2,
			BaseLanguage:      "es",
			StaleAfterMinutes: 120,
		},
	}
	s := scheduler.New(db,
		planner.New(nil, 0),
		research.NewResearcher(
			research.NewTavilyClient("EDITORIAL_TEST_NO_SUCH_KEY", "basic", time.Second), nil, 8),
		compose.New(nil, 0),
		translate.New(nil, 0),
		cover.New(false, "EDITORIAL_TEST_NO_SUCH_KEY", "", "", ""),
		cfg,
	)
	return scheduler.NewWorker(s, "@every 1h", time.Minute)
}

func seedPost(t *testing.T, db *database.DB, title, slug string) *database.Post {
	t.Helper()
	p := &database.Post{
		ID:       "post-" + slug,
		Title:    title,
		Slug:     slug,
		Language: "es",
		Status:   database.PostScheduled,
		Markdown: "# " + title + "\n\nUn párrafo de prueba.",
		Excerpt:  "Un párrafo de prueba.",
		Byline:   &database.Byline{ID: "lucia", Name: "Lucía Ferrer", Title: "Wedding planner senior"},
	}
	if err := db.InsertPost(p); err != nil {
		t.Fatal(err)
	}
	return p
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return body
}

func TestHealth(t *testing.T) {
	s := New(openTestDB(t), nil)
	rec := doRequest(t, s, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decode(t, rec); body["status"] != "ok" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestPlanEndpoint(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.UpsertPlanEntry(database.CalendarEntry{
		Date: "2099-01-01", Topic: "Tema futuro de prueba", Language: "es",
	}); err != nil {
		t.Fatal(err)
	}

	s := New(db, nil)
	rec := doRequest(t, s, http.MethodGet, "/api/plan?from=2099-01-01&to=2099-01-31")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	entries, _ := body["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestPostsListAndDetail(t *testing.T) {
	db := openTestDB(t)
	seedPost(t, db, "Flores de temporada", "flores-de-temporada")
	s := New(db, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/posts")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	posts, _ := body["posts"].([]any)
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	summary, _ := posts[0].(map[string]any)
	if _, hasMarkdown := summary["markdown"]; hasMarkdown {
		t.Error("expected the list view to omit markdown")
	}

	rec = doRequest(t, s, http.MethodGet, "/api/posts/flores-de-temporada")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body = decode(t, rec)
	html, _ := body["html"].(string)
	if !strings.Contains(html, "<h1") {
		t.Errorf("expected rendered HTML, got %q", html)
	}
	author, _ := body["author"].(map[string]any)
	if author["id"] != "lucia" || author["name"] != "Lucía Ferrer" {
		t.Errorf("expected the resolved author profile, got %v", body["author"])
	}
	if _, ok := author["narrative_style"]; !ok {
		t.Error("expected the full profile on the detail view")
	}

	rec = doRequest(t, s, http.MethodGet, "/api/posts/no-existe")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown slug, got %d", rec.Code)
	}
}

func TestPostLifecycleActions(t *testing.T) {
	db := openTestDB(t)
	p := seedPost(t, db, "Flores de temporada", "flores-de-temporada")
	s := New(db, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/posts/"+p.ID+"/publish")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got, err := db.GetPostByID(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != database.PostPublished {
		t.Errorf("expected published, got %q", got.Status)
	}
	if got.PublishedAt == nil {
		t.Error("expected published_at stamped")
	}

	rec = doRequest(t, s, http.MethodPost, "/api/posts/"+p.ID+"/archive")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/posts/"+p.ID+"/frobnicate")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown action, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/posts/no-such-id/publish")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown post, got %d", rec.Code)
	}
}

func TestRunEndpoint(t *testing.T) {
	db := openTestDB(t)
	w := testWorker(db)
	s := New(db, w)

	rec := doRequest(t, s, http.MethodPost, "/api/run")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["processed"] != true {
		t.Errorf("expected the cycle to process, got %v", body)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/run")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", rec.Code)
	}
}

func TestRunEndpointWithoutWorker(t *testing.T) {
	s := New(openTestDB(t), nil)
	rec := doRequest(t, s, http.MethodPost, "/api/run")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a worker, got %d", rec.Code)
	}
}
