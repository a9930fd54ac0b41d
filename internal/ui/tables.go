package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/analysis"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/storage"
)

// Monthly gross salary thresholds in EUR
const (
	highSalary   = 3000
	goodSalary   = 2000
	medianSalary = 1200
)

// FormatSalary renders a parsed salary with thousands separators
func FormatSalary(v float64) string {
	return "€" + humanize.CommafWithDigits(v, 2)
}

// ColorizeSalary parses a board salary and colors it by monthly amount.
// Unparseable salaries are shown as the placeholder in red.
func ColorizeSalary(salary string) string {
	v, ok := analysis.ParseSalary(salary)
	if !ok {
		return pterm.Red(models.NoValue)
	}

	formatted := FormatSalary(v)
	switch {
	case v >= highSalary:
		return pterm.Green(formatted)
	case v >= goodSalary:
		return pterm.LightGreen(formatted)
	case v >= medianSalary:
		return pterm.Yellow(formatted)
	default:
		return pterm.Red(formatted)
	}
}

// FormatScore colors a similarity score
func FormatScore(score float64) string {
	s := storage.FormatScore(score)
	switch {
	case score >= 0.5:
		return pterm.Green(s)
	case score >= 0.2:
		return pterm.Yellow(s)
	default:
		return pterm.Gray(s)
	}
}

func renderTable(w io.Writer, title string, t storage.Table) error {
	if title != "" {
		fmt.Fprintln(w, pterm.Bold.Sprint(title))
	}
	if len(t.Rows) == 0 {
		_, err := fmt.Fprintln(w, pterm.Gray("(nėra duomenų)"))
		return err
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(t.Records()).Srender()
	if err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// RenderStats prints the salary statistics
func RenderStats(w io.Writer, stats models.SalaryStats) error {
	title := fmt.Sprintf("Atlyginimų statistika (%d iš %d skelbimų)", stats.ValidCount, stats.TotalCount)
	if stats.ValidCount == 0 {
		return renderTable(w, title, storage.Table{})
	}

	t := storage.Table{
		Header: []string{"Rodiklis", "Reikšmė"},
		Rows: [][]string{
			{"Vidurkis", FormatSalary(stats.Mean)},
			{"Mediana", FormatSalary(stats.Median)},
			{"Std. nuokrypis", FormatSalary(stats.Std)},
			{"Min", FormatSalary(stats.Min)},
			{"Max", FormatSalary(stats.Max)},
			{"Q1", FormatSalary(stats.Quartiles[0])},
			{"Q3", FormatSalary(stats.Quartiles[2])},
		},
	}
	return renderTable(w, title, t)
}

// RenderLocations prints the mean salary per location
func RenderLocations(w io.Writer, byLocation models.LocationSalaryMap) error {
	t := storage.Table{Header: []string{models.ColumnLocation, "Vidurkis"}}
	for _, loc := range byLocation.Locations() {
		t.Rows = append(t.Rows, []string{loc, FormatSalary(byLocation[loc])})
	}
	return renderTable(w, "Vidutinis atlyginimas pagal vietą", t)
}

// RenderDistribution prints the salary histogram with a bar per bin
func RenderDistribution(w io.Writer, h models.SalaryHistogram) error {
	t := storage.DistributionRows(h)
	peak := 0
	for _, c := range h.Counts {
		if c > peak {
			peak = c
		}
	}
	t.Header = append(t.Header, "")
	for i := range t.Rows {
		bar := ""
		if peak > 0 {
			bar = strings.Repeat("█", h.Counts[i]*30/peak)
		}
		t.Rows[i] = append(t.Rows[i], pterm.Cyan(bar))
	}
	return renderTable(w, "Atlyginimų pasiskirstymas", t)
}

// RenderRanking prints the top results for a profile
func RenderRanking(w io.Writer, profile string, results []models.SimilarityResult, top int, hyperlinks bool) error {
	t := storage.RankingRows(results, top)
	shown := t.Rows
	for i, row := range shown {
		r := results[i]
		row[1] = FormatScore(r.Score)
		row[2] = truncateString(row[2], 40)
		row[3] = truncateString(row[3], 30)
		row[5] = ColorizeSalary(r.Listing.Salary)
		row[6] = FormatURL(row[6], hyperlinks)
	}
	title := fmt.Sprintf("Panašiausi skelbimai: %s (%d iš %d)", profile, len(shown), len(results))
	return renderTable(w, title, t)
}

// truncateString shortens s to length runes, marking the cut with "..."
func truncateString(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length || length < 4 {
		return s
	}
	return string(runes[:length-3]) + "..."
}
