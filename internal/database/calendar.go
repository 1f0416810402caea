package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// UpsertPlanEntry inserts a planned entry for its date. It is a no-op
// when an entry for that date already exists (idempotent window fill).
// Returns true when a new entry was created.
func (db *DB) UpsertPlanEntry(e CalendarEntry) (bool, error) {
	result, err := db.conn.Exec(
		`INSERT INTO calendar_entries (date, topic, angle, keywords, tone, audience, language, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'planned')
		ON CONFLICT(date) DO NOTHING`,
		e.Date, e.Topic, e.Angle, encodeJSON(e.Keywords), e.Tone, e.Audience, e.Language,
	)
	if err != nil {
		return false, fmt.Errorf("upserting plan entry %s: %w", e.Date, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetEntry returns the calendar entry for a date, or nil if none exists.
func (db *DB) GetEntry(date string) (*CalendarEntry, error) {
	row := db.conn.QueryRow(entrySelect+" WHERE date = ?", date)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListPlan returns calendar entries in [from, to] ordered by date.
func (db *DB) ListPlan(from, to string) ([]CalendarEntry, error) {
	rows, err := db.conn.Query(
		entrySelect+" WHERE date >= ? AND date <= ? ORDER BY date ASC", from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ClaimableDates returns dates in [from, to] whose entries are eligible
// for claiming, in ascending order. Eligible means planned or failed,
// or generating but untouched since staleBefore (an abandoned claim).
func (db *DB) ClaimableDates(from, to, staleBefore string) ([]string, error) {
	rows, err := db.conn.Query(
		`SELECT date FROM calendar_entries
		WHERE date >= ? AND date <= ?
		AND (status IN ('planned', 'failed')
			OR (status = 'generating' AND last_run_at IS NOT NULL AND last_run_at < ?))
		ORDER BY date ASC`,
		from, to, staleBefore,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// ClaimEntry atomically transitions an eligible entry to 'generating'.
// The WHERE clause re-checks eligibility so the whole claim is a single
// read-modify-write; of any number of concurrent callers, exactly one
// sees a row affected. Returns false when the entry was not eligible
// (someone else claimed it, or it was never claimable).
func (db *DB) ClaimEntry(date, staleBefore string) (bool, error) {
	now := Now()
	result, err := db.conn.Exec(
		`UPDATE calendar_entries
		SET status = 'generating', last_run_at = ?, error = NULL,
			attempts = attempts + 1, updated_at = ?
		WHERE date = ?
		AND (status IN ('planned', 'failed')
			OR (status = 'generating' AND last_run_at IS NOT NULL AND last_run_at < ?))`,
		now, now, date, staleBefore,
	)
	if err != nil {
		return false, fmt.Errorf("claiming entry %s: %w", date, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FinalizeEntryFailure returns a claimed entry to 'failed' with the
// error message recorded. The entry is claimable again on a later cycle.
func (db *DB) FinalizeEntryFailure(date, errMsg string) error {
	_, err := db.conn.Exec(
		`UPDATE calendar_entries
		SET status = 'failed', error = ?, updated_at = ?
		WHERE date = ?`,
		errMsg, Now(), date,
	)
	if err != nil {
		return fmt.Errorf("finalizing entry %s as failed: %w", date, err)
	}
	return nil
}

// CreatePostAndSchedule persists a post and finalizes its calendar entry
// as 'scheduled' in one transaction. If either write fails the whole
// unit rolls back, so an entry is never marked scheduled without its
// post existing.
func (db *DB) CreatePostAndSchedule(p *Post, entryDate, scheduledAt string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin schedule transaction: %w", err)
	}

	if err := insertPostTx(tx, p, scheduledAt); err != nil {
		tx.Rollback()
		return fmt.Errorf("inserting post: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE calendar_entries
		SET status = 'scheduled', post_id = ?, error = NULL, updated_at = ?
		WHERE date = ?`,
		p.ID, Now(), entryDate,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("scheduling entry %s: %w", entryDate, err)
	}

	return tx.Commit()
}

// GetStats returns aggregate counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	rows, err := db.conn.Query(
		"SELECT status, COUNT(*) FROM calendar_entries GROUP BY status",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		s.PlanEntries += count
		switch status {
		case EntryPlanned:
			s.PlannedEntries = count
		case EntryGenerating:
			s.GeneratingEntries = count
		case EntryScheduled:
			s.ScheduledEntries = count
		case EntryFailed:
			s.FailedEntries = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.conn.QueryRow("SELECT COUNT(*) FROM posts").Scan(&s.TotalPosts); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM posts WHERE status = 'published'",
	).Scan(&s.PublishedPosts); err != nil {
		return nil, err
	}
	return s, nil
}

const entrySelect = `SELECT date, topic, angle, keywords, tone, audience, language,
	status, post_id, error, attempts, created_at, updated_at, last_run_at
	FROM calendar_entries`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*CalendarEntry, error) {
	var e CalendarEntry
	var keywords *string
	if err := row.Scan(&e.Date, &e.Topic, &e.Angle, &keywords, &e.Tone, &e.Audience,
		&e.Language, &e.Status, &e.PostID, &e.Error, &e.Attempts,
		&e.CreatedAt, &e.UpdatedAt, &e.LastRunAt); err != nil {
		return nil, err
	}
	e.Keywords = decodeStrings(keywords)
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]CalendarEntry, error) {
	var entries []CalendarEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// encodeJSON marshals a value to a JSON text column, nil for empty input.
func encodeJSON(v any) *string {
	switch val := v.(type) {
	case []string:
		if len(val) == 0 {
			return nil
		}
	case []Section:
		if len(val) == 0 {
			return nil
		}
	case []Reference:
		if len(val) == 0 {
			return nil
		}
	case map[string]Translation:
		if len(val) == 0 {
			return nil
		}
	case *Byline:
		if val == nil {
			return nil
		}
	case nil:
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

func decodeStrings(s *string) []string {
	if s == nil || *s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(*s), &out); err != nil {
		return nil
	}
	return out
}
