package storage

import (
	"fmt"
	"strconv"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
)

// Table is a header plus string rows, shared by the CSV writer, the Sheets
// export and the terminal tables.
type Table struct {
	Header []string
	Rows   [][]string
}

// Records returns the header followed by the rows
func (t Table) Records() [][]string {
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, t.Header)
	return append(records, t.Rows...)
}

// Values converts the table into the cell type used by the Sheets API
func (t Table) Values() [][]interface{} {
	records := t.Records()
	values := make([][]interface{}, len(records))
	for i, rec := range records {
		row := make([]interface{}, len(rec))
		for j, cell := range rec {
			row[j] = cell
		}
		values[i] = row
	}
	return values
}

// ListingRows lays out listings with the fixed columns first and the sorted
// union of detail sections after them.
func ListingRows(listings []models.JobListing) Table {
	detailKeys := models.DetailKeys(listings)
	header := append(append([]string{}, models.SummaryColumns...), detailKeys...)

	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		flat := l.ToRow()
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = flat[col]
		}
		rows = append(rows, row)
	}
	return Table{Header: header, Rows: rows}
}

// RankingRows lists the top results; top <= 0 keeps all of them
func RankingRows(results []models.SimilarityResult, top int) Table {
	if top > 0 && top < len(results) {
		results = results[:top]
	}

	t := Table{Header: []string{
		"#", "Panašumas",
		models.ColumnTitle, models.ColumnCompany, models.ColumnLocation,
		models.ColumnSalary, models.ColumnURL,
	}}
	for i, r := range results {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(i + 1),
			FormatScore(r.Score),
			r.Listing.Title,
			r.Listing.Company,
			r.Listing.Location,
			r.Listing.Salary,
			r.Listing.URL,
		})
	}
	return t
}

// FormatScore renders a similarity score with four decimals
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 4, 64)
}

var statsOrder = []string{"mean", "median", "std", "min", "max", "q25", "q50", "q75", "valid_count", "total_count"}

// StatsRows lists the salary statistics in a fixed order
func StatsRows(stats models.SalaryStats) Table {
	flat := stats.ToRow()
	t := Table{Header: []string{"metric", "value"}}
	for _, key := range statsOrder {
		value := flat[key]
		var cell string
		if key == "valid_count" || key == "total_count" {
			cell = strconv.Itoa(int(value))
		} else {
			cell = strconv.FormatFloat(value, 'f', 2, 64)
		}
		t.Rows = append(t.Rows, []string{key, cell})
	}
	return t
}

// LocationRows lists the mean salary per location, sorted by location
func LocationRows(byLocation models.LocationSalaryMap) Table {
	t := Table{Header: []string{models.ColumnLocation, "mean"}}
	for _, loc := range byLocation.Locations() {
		t.Rows = append(t.Rows, []string{loc, strconv.FormatFloat(byLocation[loc], 'f', 2, 64)})
	}
	return t
}

// DistributionRows lists histogram bins as [from, to) ranges with counts
func DistributionRows(h models.SalaryHistogram) Table {
	t := Table{Header: []string{"from", "to", "count"}}
	for i, c := range h.Counts {
		if i+1 >= len(h.Edges) {
			break
		}
		t.Rows = append(t.Rows, []string{
			fmt.Sprintf("%.2f", h.Edges[i]),
			fmt.Sprintf("%.2f", h.Edges[i+1]),
			strconv.Itoa(c),
		})
	}
	return t
}
