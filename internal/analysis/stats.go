package analysis

import (
	"math"
	"sort"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
)

// DefaultBins is the histogram bin count used when none is given
const DefaultBins = 10

// Salaries returns the parsed salaries of the listings that have one, in input order
func Salaries(listings []models.JobListing) []float64 {
	values := make([]float64, 0, len(listings))
	for _, l := range listings {
		if v, ok := ParseSalary(l.Salary); ok {
			values = append(values, v)
		}
	}
	return values
}

// Aggregate computes salary statistics over the listings. Listings without a
// parseable salary only count towards TotalCount.
func Aggregate(listings []models.JobListing) models.SalaryStats {
	stats := models.SalaryStats{TotalCount: len(listings)}

	values := Salaries(listings)
	if len(values) == 0 {
		return stats
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	var squares float64
	for _, v := range sorted {
		d := v - mean
		squares += d * d
	}

	stats.Mean = mean
	stats.Std = math.Sqrt(squares / float64(len(sorted)))
	stats.Min = sorted[0]
	stats.Max = sorted[len(sorted)-1]
	stats.Quartiles = [3]float64{
		percentile(sorted, 25),
		percentile(sorted, 50),
		percentile(sorted, 75),
	}
	stats.Median = stats.Quartiles[1]
	stats.ValidCount = len(sorted)
	return stats
}

// AggregateByLocation returns the mean salary per exact location string.
// Locations without any parseable salary are left out.
func AggregateByLocation(listings []models.JobListing) models.LocationSalaryMap {
	type acc struct {
		sum   float64
		count int
	}
	groups := make(map[string]*acc)
	for _, l := range listings {
		v, ok := ParseSalary(l.Salary)
		if !ok {
			continue
		}
		g, exists := groups[l.Location]
		if !exists {
			g = &acc{}
			groups[l.Location] = g
		}
		g.sum += v
		g.count++
	}

	result := make(models.LocationSalaryMap, len(groups))
	for location, g := range groups {
		result[location] = g.sum / float64(g.count)
	}
	return result
}

// Distribution buckets the parsed salaries into equal-width bins spanning
// [min, max]. The last bin includes its right edge.
func Distribution(listings []models.JobListing, bins int) models.SalaryHistogram {
	if bins < 1 {
		bins = DefaultBins
	}
	values := Salaries(listings)
	if len(values) == 0 {
		return models.SalaryHistogram{Counts: []int{}, Edges: []float64{}}
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	counts := make([]int, bins)
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		// guard against rounding placing v one bin too far
		for idx > 0 && v < edges[idx] {
			idx--
		}
		for idx < bins-1 && v >= edges[idx+1] {
			idx++
		}
		counts[idx]++
	}
	return models.SalaryHistogram{Counts: counts, Edges: edges}
}

// percentile interpolates linearly between the closest ranks of sorted
func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := pct / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}
