package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/config"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/metrics"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/storage"
)

type fakeScraper struct {
	listings   []models.JobListing
	listErr    error
	details    map[string]map[string]string
	enrichErr  error
	enrichRuns int
}

func (f *fakeScraper) Listings(_ context.Context, progress *models.ScrapeProgress) ([]models.JobListing, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.JobListing, len(f.listings))
	copy(out, f.listings)
	progress.FoundJobs = len(out)
	return out, nil
}

func (f *fakeScraper) Enrich(_ context.Context, listings []models.JobListing, onDone func()) error {
	f.enrichRuns++
	if f.enrichErr != nil {
		return f.enrichErr
	}
	for i := range listings {
		if d, ok := f.details[listings[i].URL]; ok {
			listings[i].MergeDetails(d)
		} else {
			listings[i].MergeDetails(map[string]string{models.SectionError: "unexpected status code: 404"})
		}
		onDone()
	}
	return nil
}

type fakeSheets struct {
	mu   sync.Mutex
	tabs []string
}

func (f *fakeSheets) Write(_ context.Context, _ string, sheet string, _ storage.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tabs = append(f.tabs, sheet)
	return nil
}

type fakeNotifier struct {
	sent map[string][]models.SimilarityResult
}

func (f *fakeNotifier) Notify(_ context.Context, profile string, results []models.SimilarityResult) error {
	if f.sent == nil {
		f.sent = make(map[string][]models.SimilarityResult)
	}
	f.sent[profile] = results
	return nil
}

func board() *fakeScraper {
	return &fakeScraper{
		listings: []models.JobListing{
			{Title: "Programuotojas", Company: "UAB Kodas", Location: "Vilnius", Salary: "2500 - 3500 €", URL: "https://uzt.lt/1"},
			{Title: "Virėjas", Company: "UAB Skonis", Location: "Kaunas", Salary: "1200 €", URL: "https://uzt.lt/2"},
			{Title: "Vairuotojas", Company: "UAB Ratai", Location: "Vilnius", Salary: models.NoValue, URL: "https://uzt.lt/3"},
		},
		details: map[string]map[string]string{
			"https://uzt.lt/1": {models.SectionDescription: "Go programavimas", models.SectionExperience: "3 metai"},
			"https://uzt.lt/2": {models.SectionDescription: "Karšti patiekalai"},
		},
	}
}

func profiles() []models.ReferenceProfile {
	return []models.ReferenceProfile{
		{Name: "dev", Role: "Programuotojas", Location: "Vilnius", Description: "Go programavimas"},
		{Name: "cook", Role: "Virėjas", Location: "Kaunas", Description: "Karšti patiekalai"},
	}
}

func output(dir string) config.OutputConfig {
	out := config.Default().Output
	out.Dir = dir
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sheets := &fakeSheets{}
	now := time.Date(2025, 4, 7, 8, 0, 0, 0, time.UTC)

	res, err := Run(context.Background(), Deps{
		Scraper:       board(),
		FetchDetails:  true,
		Profiles:      profiles(),
		Output:        output(dir),
		Metrics:       m,
		Sheets:        sheets,
		SpreadsheetID: "sheet-id",
		Logger:        quietLogger(),
		Now:           func() time.Time { return now },
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Progress.FoundJobs)
	assert.Equal(t, 3, res.Progress.EnrichedJobs)
	assert.Equal(t, "Go programavimas", res.Listings[0].Detail(models.SectionDescription))

	assert.Equal(t, 2, res.Stats.ValidCount)
	assert.Equal(t, 3, res.Stats.TotalCount)
	assert.InDelta(t, 2100, res.Stats.Mean, 1e-9)
	assert.Equal(t, models.LocationSalaryMap{"Vilnius": 3000, "Kaunas": 1200}, res.ByLocation)
	assert.Len(t, res.Distribution.Counts, 10)

	require.Len(t, res.Rankings, 2)
	assert.Equal(t, "https://uzt.lt/1", res.Rankings["dev"][0].Listing.URL)
	assert.Equal(t, "https://uzt.lt/2", res.Rankings["cook"][0].Listing.URL)
	assert.Len(t, res.NewListings, 3)

	for _, name := range []string{"uzt_adds.csv", "uzt_adds.json", "similar_dev.csv", "similar_cook.csv", "seen.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	saved, err := storage.ReadListingsCSV(filepath.Join(dir, "uzt_adds.csv"))
	require.NoError(t, err)
	assert.Len(t, saved, 3)

	report, err := storage.ReadReportJSON(filepath.Join(dir, "uzt_adds.json"))
	require.NoError(t, err)
	assert.True(t, report.GeneratedAt.Equal(now))
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, res.RunID, report.RunID)
	assert.Len(t, report.Rankings["dev"], 3)

	assert.ElementsMatch(t, []string{"listings", "stats", "locations", "ranking_dev", "ranking_cook"}, sheets.tabs)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ListingsScraped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrichErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(metrics.StatusSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SalaryValidListings))
	assert.Greater(t, testutil.ToFloat64(m.TopScore.WithLabelValues("dev")), 0.0)
}

func TestRunWithoutDetails(t *testing.T) {
	scraper := board()

	res, err := Run(context.Background(), Deps{
		Scraper:  scraper,
		Profiles: profiles(),
		Logger:   quietLogger(),
	})

	require.NoError(t, err)
	assert.Zero(t, scraper.enrichRuns)
	assert.Zero(t, res.Progress.EnrichedJobs)
	assert.Empty(t, res.NewListings)
}

func TestRunPreloadedListings(t *testing.T) {
	listings := board().listings

	res, err := Run(context.Background(), Deps{
		Listings: listings,
		Profiles: profiles(),
		Logger:   quietLogger(),
	})

	require.NoError(t, err)
	assert.Equal(t, listings, res.Listings)
	assert.Equal(t, "https://uzt.lt/1", res.Rankings["dev"][0].Listing.URL)
}

func TestRunErrors(t *testing.T) {
	boom := errors.New("board down")

	tests := []struct {
		name    string
		deps    Deps
		wantErr error
	}{
		{name: "no profiles", deps: Deps{Scraper: board()}, wantErr: ErrNoProfiles},
		{name: "listing failure", deps: Deps{Scraper: &fakeScraper{listErr: boom}, Profiles: profiles()}, wantErr: boom},
		{name: "enrich failure", deps: Deps{Scraper: &fakeScraper{enrichErr: context.Canceled}, FetchDetails: true, Profiles: profiles()}, wantErr: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New(prometheus.NewRegistry())
			tt.deps.Metrics = m
			tt.deps.Logger = quietLogger()

			_, err := Run(context.Background(), tt.deps)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(metrics.StatusFailure)))
		})
	}

	_, err := Run(context.Background(), Deps{Profiles: profiles(), Logger: quietLogger()})
	assert.Error(t, err)
}

func TestRunNotifiesOnlyNewListings(t *testing.T) {
	dir := t.TempDir()
	scraper := board()
	notifier := &fakeNotifier{}
	deps := Deps{
		Scraper:      scraper,
		FetchDetails: true,
		Profiles:     profiles(),
		Output:       output(dir),
		Notifier:     notifier,
		Logger:       quietLogger(),
	}

	_, err := Run(context.Background(), deps)
	require.NoError(t, err)
	require.NotEmpty(t, notifier.sent["dev"])
	assert.Equal(t, "https://uzt.lt/1", notifier.sent["dev"][0].Listing.URL)

	scraper.listings = append(scraper.listings, models.JobListing{
		Title: "Programuotojas", Company: "UAB Naujas", Location: "Vilnius", Salary: "3000", URL: "https://uzt.lt/4",
	})
	scraper.details["https://uzt.lt/4"] = map[string]string{models.SectionDescription: "Go programavimas"}
	notifier.sent = nil

	res, err := Run(context.Background(), deps)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"https://uzt.lt/4": true}, res.NewListings)
	require.Len(t, notifier.sent["dev"], 1)
	assert.Equal(t, "https://uzt.lt/4", notifier.sent["dev"][0].Listing.URL)
	_, cookNotified := notifier.sent["cook"]
	assert.False(t, cookNotified)
}
