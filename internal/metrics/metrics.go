// Package metrics defines the Prometheus collectors updated after every
// scrape run and exposes an HTTP handler for scraping them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
)

const namespace = "jobsleuth"

// Run statuses
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics holds the run collectors.
type Metrics struct {
	ListingsScraped     prometheus.Counter
	EnrichErrors        prometheus.Counter
	RunsTotal           *prometheus.CounterVec
	RunDuration         prometheus.Histogram
	SalaryValidListings prometheus.Gauge
	SalaryMean          prometheus.Gauge
	SalaryMedian        prometheus.Gauge
	TopScore            *prometheus.GaugeVec
}

// Run summarizes one scrape run
type Run struct {
	Status       string
	Duration     time.Duration
	Listings     int
	EnrichErrors int
	Stats        models.SalaryStats
	// TopScores maps a profile name to its best similarity score
	TopScores map[string]float64
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ListingsScraped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_scraped_total",
			Help:      "Total number of job listings collected from the board.",
		}),
		EnrichErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_enrich_errors_total",
			Help:      "Total number of detail pages that failed to load.",
		}),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scrape_runs_total",
				Help:      "Total scrape runs by status (success, failure).",
			},
			[]string{"status"},
		),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scrape_run_duration_seconds",
			Help:      "Duration of a full scrape, enrich and rank run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		SalaryValidListings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "salary_valid_listings",
			Help:      "Listings with a parseable salary in the last run.",
		}),
		SalaryMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "salary_mean",
			Help:      "Mean parsed salary in the last run.",
		}),
		SalaryMedian: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "salary_median",
			Help:      "Median parsed salary in the last run.",
		}),
		TopScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "similarity_top_score",
				Help:      "Best similarity score per reference profile in the last run.",
			},
			[]string{"profile"},
		),
	}

	reg.MustRegister(
		m.ListingsScraped,
		m.EnrichErrors,
		m.RunsTotal,
		m.RunDuration,
		m.SalaryValidListings,
		m.SalaryMean,
		m.SalaryMedian,
		m.TopScore,
	)
	return m
}

// ObserveRun records a finished run. Salary and score gauges are only moved
// by successful runs.
func (m *Metrics) ObserveRun(r Run) {
	status := r.Status
	if status == "" {
		status = StatusSuccess
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(r.Duration.Seconds())
	m.ListingsScraped.Add(float64(r.Listings))
	m.EnrichErrors.Add(float64(r.EnrichErrors))

	if status != StatusSuccess {
		return
	}
	m.SalaryValidListings.Set(float64(r.Stats.ValidCount))
	m.SalaryMean.Set(r.Stats.Mean)
	m.SalaryMedian.Set(r.Stats.Median)
	for profile, score := range r.TopScores {
		m.TopScore.WithLabelValues(profile).Set(score)
	}
}

// Handler returns an HTTP handler that serves the gatherer's metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
