package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/planivia/editorial/internal/compose"
	"github.com/planivia/editorial/internal/config"
	"github.com/planivia/editorial/internal/cover"
	"github.com/planivia/editorial/internal/database"
	"github.com/planivia/editorial/internal/llm"
	"github.com/planivia/editorial/internal/planner"
	"github.com/planivia/editorial/internal/research"
	"github.com/planivia/editorial/internal/scheduler"
	"github.com/planivia/editorial/internal/server"
	"github.com/planivia/editorial/internal/translate"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "editorial",
	Short:   "Automated wedding-blog editorial pipeline",
	Long:    "Editorial plans a rolling content calendar, researches each topic, and generates scheduled blog articles with translations and cover assets.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("editorial", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/editorial/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure languages, feeds, and API keys.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show plan and post statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Today: %s\n", database.Today())
		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Calendar:")
		fmt.Printf("  Total entries: %d\n", stats.PlanEntries)
		fmt.Printf("  Planned: %d\n", stats.PlannedEntries)
		fmt.Printf("  Generating: %d\n", stats.GeneratingEntries)
		fmt.Printf("  Scheduled: %d\n", stats.ScheduledEntries)
		fmt.Printf("  Failed: %d\n", stats.FailedEntries)
		fmt.Println("\nPosts:")
		fmt.Printf("  Total: %d\n", stats.TotalPosts)
		fmt.Printf("  Published: %d\n", stats.PublishedPosts)
		return nil
	},
}

// --- plan command ---

var planDays int

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Fill the rolling plan window with calendar entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		days := planDays
		if days <= 0 {
			days = cfg.Editorial.WindowDays
		}

		s := buildScheduler(db)
		created, err := s.EnsureWindow(context.Background(), time.Now().UTC(), days)
		if err != nil {
			return err
		}

		fmt.Printf("Plan window filled: %d new entries over %d days.\n", created, days)

		today := database.Today()
		to := time.Now().UTC().AddDate(0, 0, days-1).Format(database.DateKey)
		entries, err := db.ListPlan(today, to)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("  %s [%s] %s\n", e.Date, e.Status, e.Topic)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().IntVar(&planDays, "days", 0, "Override the plan window size (days)")
}

// --- run command ---

var runDate string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one automation cycle: plan -> claim -> research -> synthesize -> translate -> cover -> persist",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		s := buildScheduler(db)
		ctx := context.Background()

		if runDate != "" {
			return runForDate(ctx, s, db, runDate)
		}

		result := s.RunCycle(ctx)
		printCycle(result)
		return result.Err
	},
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "Process a specific calendar date (YYYY-MM-DD)")
}

// runForDate claims and processes one specific entry, bypassing the
// ascending-date scan.
func runForDate(ctx context.Context, s *scheduler.Scheduler, db *database.DB, date string) error {
	if _, err := time.Parse(database.DateKey, date); err != nil {
		return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", date)
	}

	entry, err := db.GetEntry(date)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no calendar entry for %s; run 'editorial plan' first", date)
	}

	result := s.RunDate(ctx, date)
	printCycle(result)
	return result.Err
}

func printCycle(result scheduler.CycleResult) {
	if result.Ensured > 0 {
		fmt.Printf("Planned %d new calendar entries.\n", result.Ensured)
	}
	switch {
	case result.Err != nil:
		fmt.Printf("Cycle failed for %s: %v\n", result.EntryDate, result.Err)
	case result.Processed:
		fmt.Printf("Generated post %s for %s.\n", result.PostID, result.EntryDate)
	default:
		fmt.Println("No claimable entries in the lookahead window.")
	}
}

// --- worker command ---

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the timer-driven automation worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Editorial.Enabled {
			fmt.Println("Editorial automation is disabled in config (editorial.enabled: false).")
			return nil
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := scheduler.NewWorker(buildScheduler(db), cfg.Editorial.Interval, cfg.InitialDelay())
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()

		<-ctx.Done()
		log.Println("Worker stopping")
		return nil
	},
}

// --- serve command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		// The admin surface gets a worker so POST /api/run can trigger
		// cycles, but the timer loop itself belongs to 'editorial worker'.
		w := scheduler.NewWorker(buildScheduler(db), cfg.Editorial.Interval, cfg.InitialDelay())
		return server.Serve(db, w, cfg.Server.Port)
	},
}

// buildScheduler assembles the pipeline stages from config.
func buildScheduler(db *database.DB) *scheduler.Scheduler {
	gen := cfg.Generation
	provider := llm.CreateProvider(gen.Provider, gen.Model, gen.OllamaURL, gen.OpenAIModel, gen.APIKeyEnv)

	var feeds []research.FeedConfig
	for _, f := range cfg.Feeds {
		feeds = append(feeds, research.FeedConfig{URL: f.URL, Name: f.Name})
	}

	researcher := research.NewResearcher(
		research.NewTavilyClient(cfg.Research.APIKeyEnv, cfg.Research.SearchDepth, cfg.ResearchTimeout()),
		research.NewFeedSource(feeds),
		cfg.Research.MaxResults,
	)

	covers := cover.New(cfg.Images.Enabled, cfg.Images.APIKeyEnv, cfg.Images.Model, cfg.Images.Size, cfg.Images.Quality)

	return scheduler.New(db,
		planner.New(provider, gen.MaxTokens),
		researcher,
		compose.New(provider, gen.MaxTokens),
		translate.New(provider, gen.MaxTokens),
		covers,
		cfg,
	)
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, "editorial.db"))
}
