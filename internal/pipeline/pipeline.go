// Package pipeline runs one scrape, analysis and ranking pass and persists
// its results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/analysis"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/config"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/metrics"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/similarity"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/storage"
)

// ErrNoProfiles is returned when there is nothing to rank against
var ErrNoProfiles = errors.New("no reference profiles")

// Scraper collects and enriches listings
type Scraper interface {
	Listings(ctx context.Context, progress *models.ScrapeProgress) ([]models.JobListing, error)
	Enrich(ctx context.Context, listings []models.JobListing, onDone func()) error
}

// SheetWriter replaces the contents of a spreadsheet tab
type SheetWriter interface {
	Write(ctx context.Context, spreadsheetID, sheet string, t storage.Table) error
}

// Notifier announces new matching listings
type Notifier interface {
	Notify(ctx context.Context, profile string, results []models.SimilarityResult) error
}

// Deps are the collaborators of a run. Only Profiles and one of Scraper or
// Listings are required.
type Deps struct {
	Scraper Scraper
	// Listings, when non-nil, replaces scraping (e.g. loaded from CSV)
	Listings     []models.JobListing
	FetchDetails bool
	Profiles     []models.ReferenceProfile
	Output       config.OutputConfig
	Ranker       *similarity.Ranker
	Metrics      *metrics.Metrics

	Sheets        SheetWriter
	SpreadsheetID string
	Notifier      Notifier

	// ShowProgress draws a progress bar on stderr while enriching
	ShowProgress bool
	Logger       *slog.Logger
	Now          func() time.Time
}

// Result is everything a run produced
type Result struct {
	RunID        string
	Listings     []models.JobListing
	Progress     models.ScrapeProgress
	Stats        models.SalaryStats
	ByLocation   models.LocationSalaryMap
	Distribution models.SalaryHistogram
	Rankings     map[string][]models.SimilarityResult
	// NewListings holds URLs not present in the previous run's seen store
	NewListings map[string]bool
}

// Run scrapes (or takes the given listings), enriches, aggregates, ranks the
// listings against every profile concurrently, writes the outputs and updates
// the metrics.
func Run(ctx context.Context, deps Deps) (Result, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	runID := uuid.NewString()
	deps.Logger = deps.Logger.With("component", "pipeline", "run_id", runID)
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Ranker == nil {
		deps.Ranker = similarity.NewRanker()
	}

	started := deps.Now()
	res, err := run(ctx, runID, deps)

	if deps.Metrics != nil {
		summary := metrics.Run{
			Status:       metrics.StatusSuccess,
			Duration:     deps.Now().Sub(started),
			Listings:     res.Progress.FoundJobs,
			EnrichErrors: countEnrichErrors(res.Listings),
			Stats:        res.Stats,
			TopScores:    topScores(res.Rankings),
		}
		if err != nil {
			summary.Status = metrics.StatusFailure
		}
		deps.Metrics.ObserveRun(summary)
	}
	return res, err
}

func run(ctx context.Context, runID string, deps Deps) (Result, error) {
	res := Result{RunID: runID}
	if len(deps.Profiles) == 0 {
		return res, ErrNoProfiles
	}

	listings, err := collect(ctx, deps, &res.Progress)
	res.Listings = listings
	if err != nil {
		return res, err
	}

	res.Stats = analysis.Aggregate(listings)
	res.ByLocation = analysis.AggregateByLocation(listings)
	res.Distribution = analysis.Distribution(listings, deps.Output.Bins)
	deps.Logger.Info("salary statistics",
		"valid", res.Stats.ValidCount, "total", res.Stats.TotalCount,
		"mean", res.Stats.Mean, "median", res.Stats.Median)

	res.Rankings = rankAll(deps, listings)

	if err := writeOutputs(deps, res); err != nil {
		return res, err
	}
	if deps.Sheets != nil && deps.SpreadsheetID != "" {
		exportSheets(ctx, deps, res)
	}

	res.NewListings, err = trackSeen(deps, listings)
	if err != nil {
		return res, err
	}
	if deps.Notifier != nil {
		notifyNew(ctx, deps, res)
	}
	return res, nil
}

func collect(ctx context.Context, deps Deps, progress *models.ScrapeProgress) ([]models.JobListing, error) {
	if deps.Listings != nil {
		listings := make([]models.JobListing, len(deps.Listings))
		copy(listings, deps.Listings)
		deps.Logger.Info("using preloaded listings", "count", len(listings))
		return listings, nil
	}
	if deps.Scraper == nil {
		return nil, errors.New("pipeline needs a scraper or preloaded listings")
	}

	listings, err := deps.Scraper.Listings(ctx, progress)
	if err != nil {
		return nil, fmt.Errorf("collecting listings: %w", err)
	}
	if !deps.FetchDetails {
		return listings, nil
	}

	onDone := func() { progress.EnrichedJobs++ }
	var bar *pb.ProgressBar
	if deps.ShowProgress {
		bar = pb.StartNew(len(listings))
		onDone = func() {
			progress.EnrichedJobs++
			bar.Increment()
		}
	}
	err = deps.Scraper.Enrich(ctx, listings, onDone)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return listings, fmt.Errorf("enriching listings: %w", err)
	}
	return listings, nil
}

func rankAll(deps Deps, listings []models.JobListing) map[string][]models.SimilarityResult {
	ranked := make([][]models.SimilarityResult, len(deps.Profiles))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range deps.Profiles {
		if p.IsEmpty() {
			deps.Logger.Warn("profile has no searchable fields, all scores will be zero", "profile", p.Name)
		}
		g.Go(func() error {
			ranked[i] = deps.Ranker.Rank(similarity.FromProfile(p), listings)
			return nil
		})
	}
	g.Wait()

	rankings := make(map[string][]models.SimilarityResult, len(deps.Profiles))
	for i, p := range deps.Profiles {
		rankings[p.Name] = ranked[i]
		if len(ranked[i]) > 0 {
			deps.Logger.Info("ranked listings", "profile", p.Name,
				"top_score", ranked[i][0].Score, "top_title", ranked[i][0].Listing.Title)
		}
	}
	return rankings
}

func writeOutputs(deps Deps, res Result) error {
	out := deps.Output
	if out.Dir == "" {
		return nil
	}

	if out.ListingsCSV != "" {
		path := filepath.Join(out.Dir, out.ListingsCSV)
		if err := storage.WriteListingsCSV(path, res.Listings); err != nil {
			return err
		}
		deps.Logger.Info("saved listings", "path", path, "count", len(res.Listings))
	}

	if out.ReportJSON != "" {
		path := filepath.Join(out.Dir, out.ReportJSON)
		report := storage.Report{
			RunID:        res.RunID,
			GeneratedAt:  deps.Now(),
			Stats:        res.Stats,
			ByLocation:   res.ByLocation,
			Distribution: res.Distribution,
			Rankings:     res.Rankings,
		}
		if err := storage.WriteReportJSON(path, report); err != nil {
			return err
		}
		deps.Logger.Info("saved report", "path", path)
	}

	for _, p := range deps.Profiles {
		path := filepath.Join(out.Dir, out.RankingPrefix+p.Name+".csv")
		if err := storage.WriteRankingCSV(path, res.Rankings[p.Name]); err != nil {
			return err
		}
	}
	return nil
}

// exportSheets logs and stops at the first failing tab; the run still succeeds
func exportSheets(ctx context.Context, deps Deps, res Result) {
	type tab struct {
		name  string
		table storage.Table
	}
	tabs := []tab{
		{"listings", storage.ListingRows(res.Listings)},
		{"stats", storage.StatsRows(res.Stats)},
		{"locations", storage.LocationRows(res.ByLocation)},
	}
	for _, p := range deps.Profiles {
		tabs = append(tabs, tab{"ranking_" + p.Name, storage.RankingRows(res.Rankings[p.Name], 0)})
	}

	for _, tab := range tabs {
		if err := deps.Sheets.Write(ctx, deps.SpreadsheetID, tab.name, tab.table); err != nil {
			deps.Logger.Error("sheets export failed", "sheet", tab.name, "error", err)
			return
		}
	}
	deps.Logger.Info("exported to sheets", "spreadsheet", deps.SpreadsheetID, "tabs", len(tabs))
}

func trackSeen(deps Deps, listings []models.JobListing) (map[string]bool, error) {
	if deps.Output.Dir == "" || deps.Output.SeenStore == "" {
		return map[string]bool{}, nil
	}
	path := filepath.Join(deps.Output.Dir, deps.Output.SeenStore)

	store, err := storage.LoadSeen(path)
	if err != nil {
		return nil, err
	}
	fresh, store := store.Update(listings, deps.Now())
	if err := storage.SaveSeen(path, store); err != nil {
		return nil, err
	}
	deps.Logger.Info("tracked listings", "new", len(fresh), "total", len(store.Listings))
	return fresh, nil
}

// notifyNew alerts on the best new listings per profile; zero scores are skipped
func notifyNew(ctx context.Context, deps Deps, res Result) {
	for _, p := range deps.Profiles {
		var matches []models.SimilarityResult
		for _, r := range res.Rankings[p.Name] {
			if len(matches) >= deps.Output.TopN {
				break
			}
			if r.Score > 0 && res.NewListings[r.Listing.URL] {
				matches = append(matches, r)
			}
		}
		if len(matches) == 0 {
			continue
		}
		if err := deps.Notifier.Notify(ctx, p.Name, matches); err != nil {
			deps.Logger.Error("notification failed", "profile", p.Name, "error", err)
		}
	}
}

func countEnrichErrors(listings []models.JobListing) int {
	n := 0
	for _, l := range listings {
		if l.Detail(models.SectionError) != "" {
			n++
		}
	}
	return n
}

func topScores(rankings map[string][]models.SimilarityResult) map[string]float64 {
	scores := make(map[string]float64, len(rankings))
	for name, results := range rankings {
		if len(results) > 0 {
			scores[name] = results[0].Score
		} else {
			scores[name] = 0
		}
	}
	return scores
}
