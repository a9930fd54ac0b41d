package models

import "sort"

// NoValue is the placeholder the job board uses for an empty field
const NoValue = "–"

// Column names used by the board and by the CSV export
const (
	ColumnTitle      = "Pavadinimas"
	ColumnCompany    = "Įmonė"
	ColumnLocation   = "Vieta"
	ColumnPostedDate = "Paskelbta"
	ColumnSalary     = "Atlyginimas"
	ColumnURL        = "Nuoroda"
)

// Detail page sections that feed the similarity document
const (
	SectionExperience  = "Turima patirtis"
	SectionDescription = "Darbo aprašymas"
	SectionError       = "Klaida"
)

// SummaryColumns lists the fixed listing columns in export order
var SummaryColumns = []string{
	ColumnTitle,
	ColumnCompany,
	ColumnLocation,
	ColumnPostedDate,
	ColumnSalary,
	ColumnURL,
}

// JobListing represents one job posting with its summary and detail sections
type JobListing struct {
	Title      string            `json:"title"`
	Company    string            `json:"company"`
	Location   string            `json:"location"`
	PostedDate string            `json:"posted_date"`
	Salary     string            `json:"salary"`
	URL        string            `json:"url"`
	Details    map[string]string `json:"details"`
}

// FromRow builds a JobListing from a flat board row. Unknown keys become details.
func FromRow(row map[string]string) JobListing {
	get := func(key, def string) string {
		if v, ok := row[key]; ok {
			return v
		}
		return def
	}

	listing := JobListing{
		Title:      get(ColumnTitle, NoValue),
		Company:    get(ColumnCompany, NoValue),
		Location:   get(ColumnLocation, NoValue),
		PostedDate: get(ColumnPostedDate, NoValue),
		Salary:     get(ColumnSalary, NoValue),
		URL:        get(ColumnURL, ""),
		Details:    make(map[string]string),
	}

	for k, v := range row {
		if isSummaryColumn(k) {
			continue
		}
		listing.Details[k] = v
	}
	return listing
}

// ToRow flattens the listing back into a board row
func (j JobListing) ToRow() map[string]string {
	row := map[string]string{
		ColumnTitle:      j.Title,
		ColumnCompany:    j.Company,
		ColumnLocation:   j.Location,
		ColumnPostedDate: j.PostedDate,
		ColumnSalary:     j.Salary,
		ColumnURL:        j.URL,
	}
	for k, v := range j.Details {
		if isSummaryColumn(k) {
			continue
		}
		row[k] = v
	}
	return row
}

// MergeDetails copies enrichment sections into the listing
func (j *JobListing) MergeDetails(details map[string]string) {
	if j.Details == nil {
		j.Details = make(map[string]string, len(details))
	}
	for k, v := range details {
		j.Details[k] = v
	}
}

// Detail returns a detail section or an empty string
func (j JobListing) Detail(section string) string {
	if j.Details == nil {
		return ""
	}
	return j.Details[section]
}

// DetailKeys returns the sorted union of detail keys across listings
func DetailKeys(listings []JobListing) []string {
	seen := make(map[string]struct{})
	for _, l := range listings {
		for k := range l.Details {
			if isSummaryColumn(k) {
				continue
			}
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isSummaryColumn(key string) bool {
	for _, c := range SummaryColumns {
		if c == key {
			return true
		}
	}
	return false
}

// Original field names of the reference profile
const (
	ProfileRole        = "Darbo pobūdis"
	ProfileLocation    = "Darbo vieta (miestas)"
	ProfileSalary      = "Pageidaujamas atlyginimas"
	ProfileExperience  = "Turima patirtis"
	ProfileDescription = "Darbo aprašymas"
)

// ReferenceProfile describes the desired job used as the ranking anchor
type ReferenceProfile struct {
	Name        string `yaml:"name" json:"name,omitempty"`
	Role        string `yaml:"role" json:"role"`
	Location    string `yaml:"location" json:"location"`
	Salary      string `yaml:"salary" json:"salary"`
	Experience  string `yaml:"experience" json:"experience"`
	Description string `yaml:"description" json:"description"`
}

// ProfileFromMap reads a profile keyed by the original Lithuanian field names
func ProfileFromMap(m map[string]string) ReferenceProfile {
	return ReferenceProfile{
		Role:        m[ProfileRole],
		Location:    m[ProfileLocation],
		Salary:      m[ProfileSalary],
		Experience:  m[ProfileExperience],
		Description: m[ProfileDescription],
	}
}

// IsEmpty reports whether no searchable field is set
func (p ReferenceProfile) IsEmpty() bool {
	return p.Role == "" && p.Location == "" && p.Salary == "" &&
		p.Experience == "" && p.Description == ""
}

// SimilarityResult pairs a listing with its similarity to the reference
type SimilarityResult struct {
	Listing JobListing `json:"listing"`
	Score   float64    `json:"score"`
}

// SalaryStats holds descriptive statistics over parsed salaries
type SalaryStats struct {
	Mean       float64    `json:"mean"`
	Median     float64    `json:"median"`
	Std        float64    `json:"std"`
	Min        float64    `json:"min"`
	Max        float64    `json:"max"`
	Quartiles  [3]float64 `json:"quartiles"`
	ValidCount int        `json:"valid_count"`
	TotalCount int        `json:"total_count"`
}

// ToRow flattens the stats for row-oriented writers
func (s SalaryStats) ToRow() map[string]float64 {
	return map[string]float64{
		"mean":        s.Mean,
		"median":      s.Median,
		"std":         s.Std,
		"min":         s.Min,
		"max":         s.Max,
		"q25":         s.Quartiles[0],
		"q50":         s.Quartiles[1],
		"q75":         s.Quartiles[2],
		"valid_count": float64(s.ValidCount),
		"total_count": float64(s.TotalCount),
	}
}

// LocationSalaryMap maps a location to its mean salary
type LocationSalaryMap map[string]float64

// Locations returns the map keys in sorted order
func (m LocationSalaryMap) Locations() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SalaryHistogram is an equal-width histogram of parsed salaries
type SalaryHistogram struct {
	Counts []int     `json:"counts"`
	Edges  []float64 `json:"edges"`
}

// ScrapeProgress represents the progress of a scraping operation
type ScrapeProgress struct {
	FoundJobs    int `json:"found_jobs"`
	EnrichedJobs int `json:"enriched_jobs"`
}
