package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const tavilyBaseURL = "https://api.tavily.com/search"

// TavilyClient queries the Tavily answer/search API.
type TavilyClient struct {
	BaseURL     string
	apiKey      string
	searchDepth string
	client      *http.Client
}

// NewTavilyClient creates a new Tavily client with a bounded timeout.
func NewTavilyClient(apiKeyEnv, searchDepth string, timeout time.Duration) *TavilyClient {
	if searchDepth == "" {
		searchDepth = "basic"
	}
	return &TavilyClient{
		BaseURL:     tavilyBaseURL,
		apiKey:      os.Getenv(apiKeyEnv),
		searchDepth: searchDepth,
		client:      &http.Client{Timeout: timeout},
	}
}

// IsConfigured returns whether the API key is available.
func (c *TavilyClient) IsConfigured() bool {
	return c.apiKey != ""
}

// SearchResult is one ranked result from the search provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearchResponse is the provider's answer plus ranked results.
type SearchResponse struct {
	Answer  string         `json:"answer"`
	Results []SearchResult `json:"results"`
}

// Search runs a query and returns the answer summary plus ranked results.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) (*SearchResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("tavily API key not configured")
	}

	body := map[string]any{
		"api_key":        c.apiKey,
		"query":          query,
		"search_depth":   c.searchDepth,
		"include_answer": true,
		"max_results":    maxResults,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tavily API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}
