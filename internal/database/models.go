package database

// Calendar entry statuses. Transitions follow the claim state machine:
// planned/failed -> generating -> scheduled | failed.
const (
	EntryPlanned    = "planned"
	EntryGenerating = "generating"
	EntryScheduled  = "scheduled"
	EntryFailed     = "failed"
)

// Post statuses.
const (
	PostDraft     = "draft"
	PostScheduled = "scheduled"
	PostPublished = "published"
	PostArchived  = "archived"
	PostFailed    = "failed"
)

// CalendarEntry is one day's unit of editorial work.
type CalendarEntry struct {
	Date      string
	Topic     string
	Angle     *string
	Keywords  []string
	Tone      *string
	Audience  *string
	Language  string
	Status    string
	PostID    *string
	Error     *string
	Attempts  int
	CreatedAt *string
	UpdatedAt *string
	LastRunAt *string
}

// Section is one heading plus its body paragraphs.
type Section struct {
	Heading string   `json:"heading"`
	Body    []string `json:"body"`
}

// Reference points at an external source used as grounding.
type Reference struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Byline is a snapshot of the writer persona attached to a post.
type Byline struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Title     string `json:"title,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// Cover holds the generated cover-image state for a post.
type Cover struct {
	Status   string `json:"status"`
	URL      string `json:"url,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Translation is one translated rendition of a post.
type Translation struct {
	Status     string    `json:"status"`
	Title      string    `json:"title,omitempty"`
	Excerpt    string    `json:"excerpt,omitempty"`
	Markdown   string    `json:"markdown,omitempty"`
	Outline    []Section `json:"outline,omitempty"`
	Tips       []string  `json:"tips,omitempty"`
	Conclusion string    `json:"conclusion,omitempty"`
	CTA        string    `json:"cta,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Post is a generated article. Created once per successfully processed
// calendar entry, then independently editable via the admin surface.
type Post struct {
	ID                 string
	Title              string
	Slug               string
	Language           string
	AvailableLanguages []string
	Status             string
	Excerpt            string
	Markdown           string
	Outline            []Section
	Tips               []string
	Conclusion         string
	CTA                string
	Tags               []string
	Byline             *Byline
	References         []Reference
	Cover              Cover
	Translations       map[string]Translation
	ResearchProvider   string
	ResearchSummary    string
	GeneratedBy        string
	ArticleSource      string
	ScheduledAt        *string
	PublishedAt        *string
	GeneratedAt        *string
	UpdatedAt          *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	PlanEntries       int
	PlannedEntries    int
	GeneratingEntries int
	ScheduledEntries  int
	FailedEntries     int
	TotalPosts        int
	PublishedPosts    int
}
