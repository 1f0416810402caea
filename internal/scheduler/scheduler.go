// Package scheduler drives the editorial automation cycle: keep the
// plan window filled, claim at most one calendar entry per cycle, and
// run the generation pipeline for it. Claiming is the concurrency
// core; everything downstream of a claim degrades gracefully instead
// of failing the cycle.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/planivia/editorial/internal/compose"
	"github.com/planivia/editorial/internal/config"
	"github.com/planivia/editorial/internal/cover"
	"github.com/planivia/editorial/internal/database"
	"github.com/planivia/editorial/internal/persona"
	"github.com/planivia/editorial/internal/planner"
	"github.com/planivia/editorial/internal/research"
	"github.com/planivia/editorial/internal/slug"
	"github.com/planivia/editorial/internal/translate"
)

// publishHour is the UTC hour a generated post is scheduled for on its
// calendar date.
const publishHour = 8

// Scheduler wires the pipeline stages over the store.
type Scheduler struct {
	db         *database.DB
	planner    *planner.Planner
	researcher *research.Researcher
	composer   *compose.Composer
	translator *translate.Translator
	covers     *cover.Generator
	cfg        *config.Config

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a Scheduler over the given stages.
func New(db *database.DB, p *planner.Planner, r *research.Researcher, c *compose.Composer, t *translate.Translator, g *cover.Generator, cfg *config.Config) *Scheduler {
	return &Scheduler{
		db:         db,
		planner:    p,
		researcher: r,
		composer:   c,
		translator: t,
		covers:     g,
		cfg:        cfg,
		now:        time.Now,
	}
}

// CycleResult reports what one automation cycle did.
type CycleResult struct {
	Ensured   int
	Processed bool
	EntryDate string
	PostID    string
	Err       error
}

// EnsureWindow guarantees every date in [start, start+windowDays) has a
// calendar entry. Missing dates are planned in one batch; merge-writes
// keep the fill idempotent, so concurrent calls never duplicate a date.
func (s *Scheduler) EnsureWindow(ctx context.Context, start time.Time, windowDays int) (int, error) {
	if windowDays <= 0 {
		return 0, nil
	}

	from := start.UTC().Format(database.DateKey)
	to := start.AddDate(0, 0, windowDays-1).UTC().Format(database.DateKey)

	existing, err := s.db.ListPlan(from, to)
	if err != nil {
		return 0, fmt.Errorf("listing plan window: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, e := range existing {
		have[e.Date] = true
	}
	if len(have) >= windowDays {
		return 0, nil
	}

	plans := s.planner.Plan(ctx, start, windowDays, s.cfg.Editorial.BaseLanguage, s.cfg.Editorial.Focus)

	created := 0
	for _, p := range plans {
		if have[p.Date] {
			continue
		}
		entry := database.CalendarEntry{
			Date:     p.Date,
			Topic:    p.Topic,
			Angle:    optional(p.Angle),
			Keywords: p.Keywords,
			Tone:     optional(p.Tone),
			Audience: optional(p.Audience),
			Language: p.Language,
		}
		ok, err := s.db.UpsertPlanEntry(entry)
		if err != nil {
			return created, fmt.Errorf("persisting plan for %s: %w", p.Date, err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// Claim finds the first claimable entry between today and
// today+lookaheadDays and atomically claims it. The loop re-runs the
// store-level compare-and-set per date, so losing a race on one date
// just moves on to the next. Returns false when nothing is claimable.
func (s *Scheduler) Claim(ctx context.Context, lookaheadDays int) (*database.CalendarEntry, bool, error) {
	today := s.now().UTC()
	from := today.Format(database.DateKey)
	to := today.AddDate(0, 0, lookaheadDays).Format(database.DateKey)
	staleBefore := today.Add(-s.cfg.StaleAfter()).Format(database.Timestamp)

	dates, err := s.db.ClaimableDates(from, to, staleBefore)
	if err != nil {
		return nil, false, fmt.Errorf("scanning claimable dates: %w", err)
	}

	for _, date := range dates {
		won, err := s.db.ClaimEntry(date, staleBefore)
		if err != nil {
			return nil, false, err
		}
		if !won {
			continue
		}
		entry, err := s.db.GetEntry(date)
		if err != nil {
			return nil, false, err
		}
		return entry, true, nil
	}
	return nil, false, nil
}

// RunCycle executes one full automation cycle: top up the plan window,
// claim an entry, and generate its article. A window failure is logged
// but does not stop claiming; a pipeline failure finalizes the entry
// as failed so a later cycle retries it.
func (s *Scheduler) RunCycle(ctx context.Context) CycleResult {
	var result CycleResult

	created, err := s.EnsureWindow(ctx, s.now().UTC(), s.cfg.Editorial.WindowDays)
	if err != nil {
		log.Printf("Plan window fill failed: %v", err)
	}
	result.Ensured = created

	entry, ok, err := s.Claim(ctx, s.cfg.Editorial.LookaheadDays)
	if err != nil {
		result.Err = err
		return result
	}
	if !ok {
		return result
	}

	result.Processed = true
	result.EntryDate = entry.Date
	log.Printf("Claimed calendar entry %s: %s", entry.Date, entry.Topic)

	postID, err := s.process(ctx, entry)
	if err != nil {
		log.Printf("Pipeline failed for %s: %v", entry.Date, err)
		if ferr := s.db.FinalizeEntryFailure(entry.Date, err.Error()); ferr != nil {
			log.Printf("Failed to record failure for %s: %v", entry.Date, ferr)
		}
		result.Err = err
		return result
	}

	result.PostID = postID
	log.Printf("Scheduled post %s for %s", postID, entry.Date)
	return result
}

// RunDate claims one specific date and runs the pipeline for it,
// bypassing the ascending-date scan. The claim still goes through the
// store-level compare-and-set, so a concurrent worker cannot process
// the same date.
func (s *Scheduler) RunDate(ctx context.Context, date string) CycleResult {
	result := CycleResult{EntryDate: date}

	staleBefore := s.now().UTC().Add(-s.cfg.StaleAfter()).Format(database.Timestamp)
	won, err := s.db.ClaimEntry(date, staleBefore)
	if err != nil {
		result.Err = err
		return result
	}
	if !won {
		result.Err = fmt.Errorf("entry %s is not claimable", date)
		return result
	}

	entry, err := s.db.GetEntry(date)
	if err != nil {
		result.Err = err
		return result
	}

	result.Processed = true
	postID, err := s.process(ctx, entry)
	if err != nil {
		if ferr := s.db.FinalizeEntryFailure(date, err.Error()); ferr != nil {
			log.Printf("Failed to record failure for %s: %v", date, ferr)
		}
		result.Err = err
		return result
	}
	result.PostID = postID
	return result
}

// process runs the generation pipeline for a claimed entry and persists
// the outcome. Only store errors surface; provider stages degrade into
// their fallbacks.
func (s *Scheduler) process(ctx context.Context, entry *database.CalendarEntry) (string, error) {
	res := s.researcher.Research(ctx, entry.Topic, entry.Language)

	assignment := persona.Assign(entry.Topic, entry.Keywords)

	draft := s.composer.Synthesize(ctx, compose.Input{
		Topic:           entry.Topic,
		Angle:           deref(entry.Angle),
		Language:        entry.Language,
		Tone:            derefOr(entry.Tone, "cálido cercano"),
		Keywords:        entry.Keywords,
		Audience:        deref(entry.Audience),
		ResearchSummary: res.Summary,
		References:      res.References,
		AuthorName:      assignment.Persona.Name,
		AuthorTitle:     assignment.Persona.Title,
		StyleDirective:  assignment.StyleDirective,
	})

	targets := s.supportedTargets()
	translations := s.translator.Translate(ctx, translate.Article{
		Title:       draft.Title,
		Excerpt:     draft.Excerpt,
		Sections:    draft.Sections,
		Tips:        draft.Tips,
		Conclusion:  draft.Conclusion,
		CTA:         draft.CTA,
		AuthorName:  assignment.Persona.Name,
		AuthorTitle: assignment.Persona.Title,
		Tone:        derefOr(entry.Tone, "cálido cercano"),
	}, entry.Language, targets)

	coverAsset := s.covers.Generate(ctx, draft.CoverPrompt)

	postSlug, err := slug.EnsureUnique(s.db, draft.Title, "")
	if err != nil {
		return "", fmt.Errorf("assigning slug: %w", err)
	}

	entryDate, err := time.Parse(database.DateKey, entry.Date)
	if err != nil {
		return "", fmt.Errorf("parsing entry date %s: %w", entry.Date, err)
	}
	scheduledAt := entryDate.Add(publishHour * time.Hour).Format(database.Timestamp)

	post := &database.Post{
		ID:       uuid.NewString(),
		Title:    draft.Title,
		Slug:     postSlug,
		Language: entry.Language,
		AvailableLanguages: translate.AvailableLanguages(
			entry.Language, translations, targets),
		Status:     database.PostScheduled,
		Excerpt:    draft.Excerpt,
		Markdown:   draft.Markdown,
		Outline:    draft.Sections,
		Tips:       draft.Tips,
		Conclusion: draft.Conclusion,
		CTA:        draft.CTA,
		Tags:       draft.Tags,
		Byline: &database.Byline{
			ID:        assignment.Persona.ID,
			Name:      assignment.Persona.Name,
			Title:     assignment.Persona.Title,
			Signature: assignment.Persona.Signature,
		},
		References:       res.References,
		Cover:            coverAsset,
		Translations:     translations,
		ResearchProvider: res.Provider,
		ResearchSummary:  res.Summary,
		GeneratedBy:      "editorial-automation",
		ArticleSource:    draft.Source,
	}

	if err := s.db.CreatePostAndSchedule(post, entry.Date, scheduledAt); err != nil {
		return "", fmt.Errorf("persisting post for %s: %w", entry.Date, err)
	}
	return post.ID, nil
}

// supportedTargets drops configured targets outside the supported
// language set. An empty supported list allows everything.
func (s *Scheduler) supportedTargets() []string {
	supported := s.cfg.Editorial.SupportedLanguages
	if len(supported) == 0 {
		return s.cfg.Editorial.TargetLanguages
	}
	allowed := make(map[string]bool, len(supported))
	for _, code := range supported {
		allowed[strings.ToLower(code)] = true
	}
	var targets []string
	for _, code := range s.cfg.Editorial.TargetLanguages {
		if allowed[strings.ToLower(code)] {
			targets = append(targets, code)
		}
	}
	return targets
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefOr(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
