// Package research retrieves factual grounding for a topic from an
// external search/answer provider. It degrades to an empty result on
// any provider failure; errors never cross this boundary.
package research

import (
	"context"
	"fmt"
	"log"

	"github.com/planivia/editorial/internal/database"
)

// Provider labels for the result, recorded on the persisted post.
const (
	ProviderNone   = "none"
	ProviderError  = "error"
	ProviderTavily = "tavily"
)

// minReferences is the point below which feed references top up the result.
const minReferences = 3

// Result is the research payload handed to synthesis. It may be empty;
// downstream stages must not require a non-empty summary.
type Result struct {
	Provider   string
	Summary    string
	References []database.Reference
}

// Researcher runs topic research against the configured providers.
type Researcher struct {
	search     *TavilyClient
	feeds      *FeedSource
	maxResults int
}

// NewResearcher creates a Researcher. Either source may be nil.
func NewResearcher(search *TavilyClient, feeds *FeedSource, maxResults int) *Researcher {
	if maxResults <= 0 {
		maxResults = 8
	}
	return &Researcher{search: search, feeds: feeds, maxResults: maxResults}
}

// Research looks up a topic. Missing credentials yield provider "none",
// call failures yield provider "error"; both return an empty payload.
func (r *Researcher) Research(ctx context.Context, topic, language string) Result {
	if r.search == nil || !r.search.IsConfigured() {
		return Result{Provider: ProviderNone}
	}

	resp, err := r.search.Search(ctx, buildQuery(topic, language), r.maxResults)
	if err != nil {
		log.Printf("Research failed for %q: %v", topic, err)
		return Result{Provider: ProviderError}
	}

	result := Result{Provider: ProviderTavily, Summary: resp.Answer}
	for _, item := range resp.Results {
		if len(result.References) >= r.maxResults {
			break
		}
		if item.URL == "" || item.Title == "" {
			continue
		}
		result.References = append(result.References, database.Reference{
			Title:   item.Title,
			URL:     item.URL,
			Snippet: snippet(item.Content),
		})
	}

	if len(result.References) < minReferences && r.feeds != nil {
		extra := r.feeds.References(topic, r.maxResults-len(result.References))
		result.References = append(result.References, extra...)
	}

	return result
}

func buildQuery(topic, language string) string {
	if language == "en" {
		return fmt.Sprintf("%s wedding planning advice", topic)
	}
	return fmt.Sprintf("%s bodas consejos", topic)
}
