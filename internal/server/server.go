// Package server exposes the JSON admin surface: inspect the plan and
// the generated posts, move posts through their lifecycle, and trigger
// an automation cycle by hand.
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/planivia/editorial/internal/database"
	"github.com/planivia/editorial/internal/persona"
	"github.com/planivia/editorial/internal/scheduler"
)

var md = goldmark.New()

// Server is the admin HTTP server.
type Server struct {
	db     *database.DB
	worker *scheduler.Worker
	mux    *http.ServeMux
}

// New creates a Server. worker may be nil when the admin surface runs
// without the automation loop; /api/run then reports unavailable.
func New(db *database.DB, worker *scheduler.Worker) *Server {
	s := &Server{db: db, worker: worker, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/plan", s.handlePlan)
	s.mux.HandleFunc("/api/posts", s.handlePosts)
	s.mux.HandleFunc("/api/posts/", s.handlePost)
	s.mux.HandleFunc("/api/run", s.handleRun)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats":  stats,
	})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" {
		from = database.Today()
	}
	if to == "" {
		to = "9999-12-31"
	}

	entries, err := s.db.ListPlan(from, to)
	if err != nil {
		log.Printf("Listing plan failed: %v", err)
		jsonError(w, http.StatusInternalServerError, "listing plan failed")
		return
	}
	if entries == nil {
		entries = []database.CalendarEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.db.ListPosts(r.URL.Query().Get("status"))
	if err != nil {
		log.Printf("Listing posts failed: %v", err)
		jsonError(w, http.StatusInternalServerError, "listing posts failed")
		return
	}

	// List view: strip bulky content fields.
	summaries := make([]map[string]any, 0, len(posts))
	for _, p := range posts {
		summaries = append(summaries, map[string]any{
			"id":                  p.ID,
			"title":               p.Title,
			"slug":                p.Slug,
			"language":            p.Language,
			"available_languages": p.AvailableLanguages,
			"status":              p.Status,
			"excerpt":             p.Excerpt,
			"tags":                p.Tags,
			"byline":              p.Byline,
			"cover":               p.Cover,
			"article_source":      p.ArticleSource,
			"scheduled_at":        p.ScheduledAt,
			"published_at":        p.PublishedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": summaries})
}

// handlePost serves GET /api/posts/{slug} and
// POST /api/posts/{id}/publish|archive.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/posts/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}

	if r.Method == http.MethodPost {
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 {
			http.NotFound(w, r)
			return
		}
		s.handlePostAction(w, parts[0], parts[1])
		return
	}

	post, err := s.db.GetPostBySlug(rest)
	if err != nil {
		log.Printf("Loading post %s failed: %v", rest, err)
		jsonError(w, http.StatusInternalServerError, "loading post failed")
		return
	}
	if post == nil {
		jsonError(w, http.StatusNotFound, "post not found")
		return
	}

	resp := map[string]any{
		"post": post,
		"html": renderMarkdown(post.Markdown),
	}
	// Detail view carries the full writer profile, not just the byline
	// snapshot stored on the post.
	if post.Byline != nil {
		if p := persona.ByID(post.Byline.ID); p != nil {
			resp["author"] = map[string]any{
				"id":              p.ID,
				"name":            p.Name,
				"title":           p.Title,
				"narrative_style": p.NarrativeStyle,
				"affinities":      p.Affinities,
				"signature":       p.Signature,
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePostAction(w http.ResponseWriter, id, action string) {
	var status string
	switch action {
	case "publish":
		status = database.PostPublished
	case "archive":
		status = database.PostArchived
	default:
		jsonError(w, http.StatusNotFound, fmt.Sprintf("unknown action %q", action))
		return
	}

	ok, err := s.db.UpdatePostStatus(id, status)
	if err != nil {
		log.Printf("Updating post %s failed: %v", id, err)
		jsonError(w, http.StatusInternalServerError, "updating post failed")
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if s.worker == nil {
		jsonError(w, http.StatusServiceUnavailable, "automation worker not running")
		return
	}

	result, started := s.worker.TriggerCycle(r.Context())
	if !started {
		jsonError(w, http.StatusConflict, "a cycle is already running")
		return
	}

	resp := map[string]any{
		"ensured":   result.Ensured,
		"processed": result.Processed,
	}
	if result.EntryDate != "" {
		resp["entry_date"] = result.EntryDate
	}
	if result.PostID != "" {
		resp["post_id"] = result.PostID
	}
	if result.Err != nil {
		resp["error"] = result.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return ""
	}
	return buf.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Encoding response failed: %v", err)
	}
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Serve starts the admin server on the given port.
func Serve(db *database.DB, worker *scheduler.Worker, port int) error {
	srv := New(db, worker)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Admin server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
