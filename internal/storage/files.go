// Package storage persists listings, rankings and reports to CSV, JSON and
// Google Sheets.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
)

// Report is the JSON summary written after each run
type Report struct {
	RunID        string                               `json:"run_id"`
	GeneratedAt  time.Time                            `json:"generated_at"`
	Stats        models.SalaryStats                   `json:"stats"`
	ByLocation   models.LocationSalaryMap             `json:"by_location"`
	Distribution models.SalaryHistogram               `json:"distribution"`
	Rankings     map[string][]models.SimilarityResult `json:"rankings"`
}

// WriteListingsCSV writes listings as UTF-8 CSV
func WriteListingsCSV(path string, listings []models.JobListing) error {
	return WriteTableCSV(path, ListingRows(listings))
}

// WriteRankingCSV writes ranked results as UTF-8 CSV
func WriteRankingCSV(path string, results []models.SimilarityResult) error {
	return WriteTableCSV(path, RankingRows(results, 0))
}

// WriteTableCSV writes any table as CSV, creating parent directories
func WriteTableCSV(path string, t Table) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// ReadListingsCSV loads listings written by WriteListingsCSV. Empty detail
// cells are dropped since they only pad the column union.
func ReadListingsCSV(path string) ([]models.JobListing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []models.JobListing{}, nil
		}
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	summary := make(map[string]bool, len(models.SummaryColumns))
	for _, c := range models.SummaryColumns {
		summary[c] = true
	}

	listings := []models.JobListing{}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i >= len(rec) {
				break
			}
			if rec[i] == "" && !summary[col] {
				continue
			}
			row[col] = rec[i]
		}
		listings = append(listings, models.FromRow(row))
	}
	return listings, nil
}

// WriteReportJSON writes the run report as indented JSON
func WriteReportJSON(path string, report Report) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadReportJSON loads a report written by WriteReportJSON
func ReadReportJSON(path string) (Report, error) {
	var report Report
	data, err := os.ReadFile(path)
	if err != nil {
		return report, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("parsing %s: %w", path, err)
	}
	return report, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}
