package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
)

// SlugExists reports whether a slug is taken by a post other than excludeID.
func (db *DB) SlugExists(slug, excludeID string) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM posts WHERE slug = ? AND id != ?", slug, excludeID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertPost persists a post as a standalone write (no entry finalization).
func (db *DB) InsertPost(p *Post) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	scheduledAt := ""
	if p.ScheduledAt != nil {
		scheduledAt = *p.ScheduledAt
	}
	if err := insertPostTx(tx, p, scheduledAt); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertPostTx(tx *sql.Tx, p *Post, scheduledAt string) error {
	var schedPtr *string
	if scheduledAt != "" {
		schedPtr = &scheduledAt
	}
	_, err := tx.Exec(
		`INSERT INTO posts (id, title, slug, language, available_languages, status,
			excerpt, markdown, outline, tips, conclusion, cta, tags, byline, refs,
			cover_status, cover_url, cover_prompt, cover_provider, translations,
			research_provider, research_summary, generated_by, article_source,
			scheduled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Slug, p.Language, encodeJSON(p.AvailableLanguages), p.Status,
		p.Excerpt, p.Markdown, encodeJSON(p.Outline), encodeJSON(p.Tips),
		p.Conclusion, p.CTA, encodeJSON(p.Tags), encodeJSON(p.Byline),
		encodeJSON(p.References), p.Cover.Status, p.Cover.URL, p.Cover.Prompt,
		p.Cover.Provider, encodeJSON(p.Translations), p.ResearchProvider,
		p.ResearchSummary, p.GeneratedBy, p.ArticleSource, schedPtr,
	)
	return err
}

// GetPostBySlug returns a post by its slug, or nil if none exists.
func (db *DB) GetPostBySlug(slug string) (*Post, error) {
	row := db.conn.QueryRow(postSelect+" WHERE slug = ?", slug)
	return scanPostRow(row)
}

// GetPostByID returns a post by its ID, or nil if none exists.
func (db *DB) GetPostByID(id string) (*Post, error) {
	row := db.conn.QueryRow(postSelect+" WHERE id = ?", id)
	return scanPostRow(row)
}

// ListPosts returns posts, newest first. An empty status lists all.
func (db *DB) ListPosts(status string) ([]Post, error) {
	query := postSelect
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY generated_at DESC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// UpdatePostStatus moves a post through its editorial lifecycle.
// Publishing stamps published_at. Returns false when the post does not exist.
func (db *DB) UpdatePostStatus(id, status string) (bool, error) {
	switch status {
	case PostDraft, PostScheduled, PostPublished, PostArchived, PostFailed:
	default:
		return false, fmt.Errorf("invalid post status %q", status)
	}

	var result sql.Result
	var err error
	if status == PostPublished {
		result, err = db.conn.Exec(
			"UPDATE posts SET status = ?, published_at = ?, updated_at = ? WHERE id = ?",
			status, Now(), Now(), id,
		)
	} else {
		result, err = db.conn.Exec(
			"UPDATE posts SET status = ?, updated_at = ? WHERE id = ?",
			status, Now(), id,
		)
	}
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const postSelect = `SELECT id, title, slug, language, available_languages, status,
	excerpt, markdown, outline, tips, conclusion, cta, tags, byline, refs,
	cover_status, cover_url, cover_prompt, cover_provider, translations,
	research_provider, research_summary, generated_by, article_source,
	scheduled_at, published_at, generated_at, updated_at
	FROM posts`

func scanPost(row rowScanner) (*Post, error) {
	var p Post
	var langs, outline, tips, tags, byline, refs, translations *string
	var coverStatus, coverURL, coverPrompt, coverProvider *string
	var researchProvider, researchSummary, generatedBy, articleSource *string
	var excerpt, conclusion, cta *string
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Language, &langs, &p.Status,
		&excerpt, &p.Markdown, &outline, &tips, &conclusion, &cta, &tags, &byline,
		&refs, &coverStatus, &coverURL, &coverPrompt, &coverProvider, &translations,
		&researchProvider, &researchSummary, &generatedBy, &articleSource,
		&p.ScheduledAt, &p.PublishedAt, &p.GeneratedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	p.AvailableLanguages = decodeStrings(langs)
	p.Tips = decodeStrings(tips)
	p.Tags = decodeStrings(tags)
	p.Excerpt = deref(excerpt)
	p.Conclusion = deref(conclusion)
	p.CTA = deref(cta)
	p.Cover = Cover{
		Status:   deref(coverStatus),
		URL:      deref(coverURL),
		Prompt:   deref(coverPrompt),
		Provider: deref(coverProvider),
	}
	p.ResearchProvider = deref(researchProvider)
	p.ResearchSummary = deref(researchSummary)
	p.GeneratedBy = deref(generatedBy)
	p.ArticleSource = deref(articleSource)

	// Corrupt JSON columns degrade to empty fields instead of failing the
	// read, but never silently.
	decodeColumn(p.ID, "outline", outline, &p.Outline)
	decodeColumn(p.ID, "refs", refs, &p.References)
	decodeColumn(p.ID, "translations", translations, &p.Translations)
	if byline != nil {
		var b Byline
		if err := json.Unmarshal([]byte(*byline), &b); err != nil {
			log.Printf("Post %s has a corrupt byline column: %v", p.ID, err)
		} else {
			p.Byline = &b
		}
	}
	return &p, nil
}

func decodeColumn(postID, column string, raw *string, dst any) {
	if raw == nil {
		return
	}
	if err := json.Unmarshal([]byte(*raw), dst); err != nil {
		log.Printf("Post %s has a corrupt %s column: %v", postID, column, err)
	}
}

func scanPostRow(row *sql.Row) (*Post, error) {
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
