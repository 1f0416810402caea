package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Editorial  Editorial  `yaml:"editorial"`
	Generation Generation `yaml:"generation"`
	Research   Research   `yaml:"research"`
	Images     Images     `yaml:"images"`
	Feeds      []Feed     `yaml:"feeds"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

// Editorial controls the content calendar and the worker loop.
type Editorial struct {
	Enabled            bool     `yaml:"enabled"`
	Interval           string   `yaml:"interval"`
	InitialDelaySecs   int      `yaml:"initial_delay_seconds"`
	WindowDays         int      `yaml:"window_days"`
	LookaheadDays      int      `yaml:"lookahead_days"`
	BaseLanguage       string   `yaml:"base_language"`
	TargetLanguages    []string `yaml:"target_languages"`
	SupportedLanguages []string `yaml:"supported_languages"`
	Focus              string   `yaml:"focus"`
	StaleAfterMinutes  int      `yaml:"stale_after_minutes"`
}

type Generation struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxTokens   int    `yaml:"max_tokens"`
}

type Research struct {
	Provider       string `yaml:"provider"`
	APIKeyEnv      string `yaml:"api_key_env"`
	MaxResults     int    `yaml:"max_results"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	SearchDepth    string `yaml:"search_depth"`
}

type Images struct {
	Enabled   bool   `yaml:"enabled"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	Size      string `yaml:"size"`
	Quality   string `yaml:"quality"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for editorial.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "editorial")
}

// DataDir returns the XDG data directory for editorial.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "editorial")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/editorial/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'editorial init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Editorial: Editorial{
			Enabled:            true,
			Interval:           "@every 1h",
			InitialDelaySecs:   90,
			WindowDays:         14,
			LookaheadDays:      2,
			BaseLanguage:       "es",
			TargetLanguages:    []string{"en", "fr"},
			SupportedLanguages: []string{"es", "en", "fr", "pt", "it", "de"},
			Focus:              "bodas en España",
			StaleAfterMinutes:  120,
		},
		Generation: Generation{
			Provider:    "openai",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   2048,
		},
		Research: Research{
			Provider:       "tavily",
			APIKeyEnv:      "TAVILY_API_KEY",
			MaxResults:     8,
			TimeoutSeconds: 15,
			SearchDepth:    "basic",
		},
		Images: Images{
			Enabled:   false,
			Model:     "dall-e-3",
			APIKeyEnv: "OPENAI_API_KEY",
			Size:      "1024x1024",
			Quality:   "standard",
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// InitialDelay returns the worker start delay as a duration.
func (c *Config) InitialDelay() time.Duration {
	return time.Duration(c.Editorial.InitialDelaySecs) * time.Second
}

// StaleAfter returns how long a generating entry may sit before it is
// considered abandoned and claimable again.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Editorial.StaleAfterMinutes) * time.Minute
}

// ResearchTimeout returns the research provider timeout as a duration.
func (c *Config) ResearchTimeout() time.Duration {
	return time.Duration(c.Research.TimeoutSeconds) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
