package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/client"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/config"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/logger"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/metrics"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/notify"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/pipeline"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/schedule"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/scraper"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/similarity"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/storage"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/ui"
)

// printExamples displays usage examples for the program
func printExamples() {
	fmt.Println("\n📋 jobsleuth Usage Examples 📋")
	fmt.Println("\n1. Scrape the default 42 listings and rank them against every configured profile:")
	fmt.Println("   jobsleuth -config config.yaml")

	fmt.Println("\n2. Scrape 100 listings and show the 20 best matches for the \"cook\" profile:")
	fmt.Println("   jobsleuth -config config.yaml -max-jobs 100 -profile cook -top 20")

	fmt.Println("\n3. Collect summaries only, skipping the detail pages, without the banner:")
	fmt.Println("   jobsleuth -no-details -silence")

	fmt.Println("\n4. Re-rank listings saved by an earlier run without touching the network:")
	fmt.Println("   jobsleuth -from-csv uzt_adds.csv -profile default")

	fmt.Println("\n5. Run every morning at 8:00, serve Prometheus metrics and send Telegram alerts:")
	fmt.Println("   TELEGRAM_BOT_TOKEN=... TELEGRAM_CHAT_ID=... jobsleuth -daemon -config config.yaml")

	fmt.Println("\n6. Scrape through a proxy with debug logging of the similarity documents:")
	fmt.Println("   jobsleuth -proxy http://localhost:8080 -debug")
	os.Exit(0)
}

func main() {
	configPath := flag.String("config", "", "Path to the YAML config file")
	maxJobs := flag.Int("max-jobs", 0, "Maximum number of listings to collect (overrides config)")
	profileName := flag.String("profile", "", "Rank against this profile only (default: all profiles)")
	top := flag.Int("top", 0, "Number of matches to show per profile (overrides config)")
	proxyURL := flag.String("proxy", "", "Proxy URL to use")
	fromCSV := flag.String("from-csv", "", "Load listings from a previous CSV export instead of scraping")
	noDetails := flag.Bool("no-details", false, "Skip fetching listing detail pages")
	daemon := flag.Bool("daemon", false, "Run on the configured cron schedule and serve metrics")
	links := flag.Bool("links", false, "Render listing URLs as clickable terminal hyperlinks")
	debug := flag.Bool("debug", false, "Enable debug logging")
	examples := flag.Bool("examples", false, "Show usage examples")

	// Banner control flags (two aliases for the same functionality)
	silence := flag.Bool("silence", false, "Silence the banner")
	noBanner := flag.Bool("nobanner", false, "Silence the banner (alias for -silence)")

	flag.Parse()

	ui.PrintBanner(*silence || *noBanner || *daemon)

	if *examples {
		printExamples()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if *maxJobs > 0 {
		cfg.Scraper.MaxJobs = *maxJobs
	}
	if *top > 0 {
		cfg.Output.TopN = *top
	}
	if *proxyURL != "" {
		cfg.Scraper.ProxyURL = *proxyURL
	}
	if *noDetails {
		cfg.Scraper.FetchDetails = false
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if *daemon && *fromCSV != "" {
		log.Fatal("Cannot use -daemon with -from-csv")
	}

	profiles := cfg.Profiles
	if *profileName != "" {
		p, ok := cfg.Profile(*profileName)
		if !ok {
			log.Fatalf("Unknown profile %q", *profileName)
		}
		profiles = []models.ReferenceProfile{p}
	}

	closer, err := logger.Setup(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Dir:    cfg.Logging.Dir,
	})
	if err != nil {
		log.Fatalf("Error setting up logging: %v", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, profiles, options{
		daemon:  *daemon,
		fromCSV: *fromCSV,
		debug:   *debug,
		links:   *links,
	}); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("jobsleuth failed", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

type options struct {
	daemon  bool
	fromCSV string
	debug   bool
	links   bool
}

func run(ctx context.Context, cfg *config.Config, profiles []models.ReferenceProfile, opts options) error {
	reg := prometheus.NewRegistry()
	deps := pipeline.Deps{
		FetchDetails: cfg.Scraper.FetchDetails,
		Profiles:     profiles,
		Output:       cfg.Output,
		Metrics:      metrics.New(reg),
		ShowProgress: !opts.daemon,
		Logger:       slog.Default(),
	}

	if opts.debug {
		deps.Ranker = similarity.NewRanker(similarity.WithObserver(similarity.NewLogObserver(slog.Default())))
	}

	if opts.fromCSV != "" {
		listings, err := storage.ReadListingsCSV(opts.fromCSV)
		if err != nil {
			return err
		}
		deps.Listings = listings
	} else {
		httpClient, err := client.New(client.Options{
			ProxyURL: cfg.Scraper.ProxyURL,
			Timeout:  cfg.Scraper.Timeout,
		})
		if err != nil {
			return err
		}
		deps.Scraper = scraper.New(cfg.Scraper, httpClient, slog.Default())
	}

	if cfg.Sheets.Enabled() {
		writer, err := storage.NewSheetsWriter(ctx, cfg.Sheets.CredentialsFile)
		if err != nil {
			slog.Warn("sheets export disabled", "error", err)
		} else {
			deps.Sheets = writer
			deps.SpreadsheetID = cfg.Sheets.SpreadsheetID
		}
	}

	if !opts.daemon {
		res, err := pipeline.Run(ctx, deps)
		if err != nil {
			return err
		}
		return render(res, profiles, cfg.Output.TopN, opts.links)
	}

	if cfg.Telegram.Enabled() {
		notifier, err := notify.NewTelegram(cfg.Telegram, nil)
		if err != nil {
			slog.Warn("telegram alerts disabled", "error", err)
		} else {
			deps.Notifier = notifier
		}
	}
	return runDaemon(ctx, cfg, reg, deps)
}

func runDaemon(ctx context.Context, cfg *config.Config, reg *prometheus.Registry, deps pipeline.Deps) error {
	sched, err := schedule.Parse(cfg.Schedule.Cron)
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		shutdown := metrics.StartServer(cfg.Metrics.Addr, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	runOnce := func(ctx context.Context) error {
		res, err := pipeline.Run(ctx, deps)
		if err != nil {
			return err
		}
		slog.Info("run finished",
			"listings", len(res.Listings),
			"new", len(res.NewListings),
			"valid_salaries", res.Stats.ValidCount)
		return nil
	}

	slog.Info("starting daemon", "cron", sched.String())
	if err := runOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Error("initial run failed", "error", err)
	}
	return sched.Run(ctx, runOnce)
}

func render(res pipeline.Result, profiles []models.ReferenceProfile, top int, links bool) error {
	fmt.Printf("\nFound %d listings\n\n", len(res.Listings))

	if err := ui.RenderStats(os.Stdout, res.Stats); err != nil {
		return err
	}
	if err := ui.RenderLocations(os.Stdout, res.ByLocation); err != nil {
		return err
	}
	if err := ui.RenderDistribution(os.Stdout, res.Distribution); err != nil {
		return err
	}
	for _, p := range profiles {
		if err := ui.RenderRanking(os.Stdout, p.Name, res.Rankings[p.Name], top, links); err != nil {
			return err
		}
	}
	return nil
}
