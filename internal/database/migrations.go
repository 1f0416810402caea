package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS calendar_entries (
    date TEXT PRIMARY KEY,
    topic TEXT NOT NULL,
    angle TEXT,
    keywords TEXT,
    tone TEXT,
    audience TEXT,
    language TEXT NOT NULL DEFAULT 'es',
    status TEXT NOT NULL DEFAULT 'planned'
        CHECK(status IN ('planned', 'generating', 'scheduled', 'failed')),
    post_id TEXT,
    error TEXT,
    attempts INTEGER DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now')),
    last_run_at TEXT
);

CREATE TABLE IF NOT EXISTS posts (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    slug TEXT UNIQUE NOT NULL,
    language TEXT NOT NULL DEFAULT 'es',
    available_languages TEXT,
    status TEXT NOT NULL DEFAULT 'draft'
        CHECK(status IN ('draft', 'scheduled', 'published', 'archived', 'failed')),
    excerpt TEXT,
    markdown TEXT NOT NULL,
    outline TEXT,
    tips TEXT,
    conclusion TEXT,
    cta TEXT,
    tags TEXT,
    byline TEXT,
    refs TEXT,
    cover_status TEXT,
    cover_url TEXT,
    cover_prompt TEXT,
    cover_provider TEXT,
    translations TEXT,
    research_provider TEXT,
    research_summary TEXT,
    generated_by TEXT,
    article_source TEXT,
    scheduled_at TEXT,
    published_at TEXT,
    generated_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_calendar_status ON calendar_entries(status);
CREATE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug);
CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(status);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
