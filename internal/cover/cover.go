// Package cover generates the article cover image through the OpenAI
// images API. Cover generation is strictly best-effort: a missing key
// or a failed call never blocks the pipeline, it just records a
// skipped or failed cover on the post.
package cover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/planivia/editorial/internal/database"
)

// Cover statuses.
const (
	StatusReady   = "ready"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

const defaultImagesURL = "https://api.openai.com/v1/images/generations"

// promptSuffix anchors every cover in the product's visual style.
const promptSuffix = "Escenario editorial de bodas, estilo Planivia, alta calidad."

// Generator calls the images API.
type Generator struct {
	BaseURL string
	enabled bool
	apiKey  string
	model   string
	size    string
	quality string
	client  *http.Client
}

// New creates a Generator reading the API key from the environment.
func New(enabled bool, apiKeyEnv, model, size, quality string) *Generator {
	if model == "" {
		model = "dall-e-3"
	}
	if size == "" {
		size = "1024x1024"
	}
	if quality != "hd" {
		quality = "standard"
	}
	return &Generator{
		BaseURL: defaultImagesURL,
		enabled: enabled,
		apiKey:  os.Getenv(apiKeyEnv),
		model:   model,
		size:    size,
		quality: quality,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Generate requests one image for the prompt. Disabled or unconfigured
// generators report skipped; call errors and empty responses report
// failed. Never returns an error.
func (g *Generator) Generate(ctx context.Context, prompt string) database.Cover {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return database.Cover{Status: StatusSkipped}
	}
	if g == nil || !g.enabled || g.apiKey == "" {
		return database.Cover{Status: StatusSkipped, Prompt: prompt}
	}

	url, err := g.request(ctx, prompt)
	if err != nil {
		log.Printf("Cover generation failed: %v", err)
		return database.Cover{Status: StatusFailed, Prompt: prompt, Provider: "openai"}
	}

	return database.Cover{
		Status:   StatusReady,
		URL:      url,
		Prompt:   prompt,
		Provider: "openai",
	}
}

func (g *Generator) request(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":   g.model,
		"prompt":  prompt + "\n" + promptSuffix,
		"size":    g.size,
		"quality": g.quality,
		"n":       1,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.BaseURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("images API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("images API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Data) == 0 || result.Data[0].URL == "" {
		return "", fmt.Errorf("images API returned no image")
	}
	return result.Data[0].URL, nil
}
