package similarity

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
)

var reference = models.ReferenceProfile{
	Role:        "Programuotojas",
	Location:    "Vilnius",
	Salary:      "2500",
	Experience:  "3 metai",
	Description: "Go programavimas, duomenų bazės ir debesų paslaugos",
}

func job(url, title, location, salary, experience, description string) models.JobListing {
	return models.JobListing{
		Title:    title,
		Company:  "UAB Pavyzdys",
		Location: location,
		Salary:   salary,
		URL:      url,
		Details: map[string]string{
			models.SectionExperience:  experience,
			models.SectionDescription: description,
		},
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "lower cases and splits", in: "Vyr. Programuotojas (Go)", want: []string{"vyr", "programuotojas", "go"}},
		{name: "drops single runes", in: "C++ a b ir", want: []string{"ir"}},
		{name: "keeps lithuanian letters", in: "Šiaulių RAJONAS", want: []string{"šiaulių", "rajonas"}},
		{name: "keeps digits and underscores", in: "1500-2000 €/mėn snake_case", want: []string{"1500", "2000", "mėn", "snake_case"}},
		{name: "empty", in: "  – ", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestTokenizeNormalisesComposition(t *testing.T) {
	decomposed := "Klaipe\u0307da"
	composed := "Klaip\u0117da"
	assert.Equal(t, Tokenize(composed), Tokenize(decomposed))
}

func TestDocuments(t *testing.T) {
	t.Run("profile", func(t *testing.T) {
		doc := FromProfile(models.ReferenceProfile{
			Role: "Virėjas", Location: "Kaunas", Salary: "1200", Experience: "2 metai", Description: "Karšti patiekalai",
		}).Document()
		assert.Equal(t, "Virėjas Virėjas Virėjas Kaunas 1200 2 metai Karšti patiekalai", doc)
	})

	t.Run("missing fields contribute nothing", func(t *testing.T) {
		doc := FromProfile(models.ReferenceProfile{Role: "Virėjas"}).Document()
		assert.Equal(t, "Virėjas Virėjas Virėjas    ", doc)
	})

	t.Run("listing uses detail sections", func(t *testing.T) {
		doc := FromListing(job("u1", "Virėjas", "Kaunas", "1200", "2 metai", "Karšti patiekalai")).Document()
		assert.Equal(t, "Virėjas Virėjas Virėjas Kaunas 1200 2 metai Karšti patiekalai", doc)
	})

	t.Run("listing without salary", func(t *testing.T) {
		l := models.JobListing{Title: "Virėjas", Location: "Kaunas", Salary: models.NoValue}
		assert.Equal(t, "Virėjas Virėjas Virėjas Kaunas   ", FromListing(l).Document())
	})
}

func TestFit(t *testing.T) {
	space := Fit([]string{"go go java", "go"})

	require.Equal(t, 2, space.Size())
	assert.Equal(t, []string{"go", "java"}, space.Terms())

	vec := space.Transform("go go java")
	require.Len(t, vec, 2)
	assert.InDelta(t, 1, vec.Norm(), 1e-12)

	goWeight := 2 * 1.0
	javaWeight := math.Log(3.0/2.0) + 1
	norm := math.Hypot(goWeight, javaWeight)
	assert.InDelta(t, goWeight/norm, vec[0].Value, 1e-12)
	assert.InDelta(t, javaWeight/norm, vec[1].Value, 1e-12)

	assert.Empty(t, space.Transform("python rust"))
}

func TestCosine(t *testing.T) {
	a := Vector{{Index: 0, Value: 1}, {Index: 2, Value: 1}}
	b := Vector{{Index: 1, Value: 1}}
	assert.Zero(t, Cosine(a, b))
	assert.InDelta(t, 1, Cosine(a, a), 1e-12)
	assert.Zero(t, Cosine(a, nil))
	assert.Zero(t, Cosine(nil, nil))
}

func TestRankIdenticalDocument(t *testing.T) {
	candidate := job("u1", reference.Role, reference.Location, reference.Salary, reference.Experience, reference.Description)

	results := Rank(reference, []models.JobListing{candidate})

	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestRankNoSharedVocabulary(t *testing.T) {
	candidate := job("u1", "Suvirintojas", "Kaunas", "–", "be patirties", "metalo konstrukcijos")

	results := Rank(reference, []models.JobListing{candidate})

	require.Len(t, results, 1)
	assert.Zero(t, results[0].Score)
}

func TestRankEmptyCandidates(t *testing.T) {
	results := Rank(reference, nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRankEmptyDocuments(t *testing.T) {
	candidates := []models.JobListing{
		{URL: "u1", Salary: models.NoValue},
		{URL: "u2"},
	}

	results := Rank(models.ReferenceProfile{}, candidates)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Zero(t, r.Score)
	}
	assert.Equal(t, "u1", results[0].Listing.URL)
	assert.Equal(t, "u2", results[1].Listing.URL)
}

func sampleCandidates() []models.JobListing {
	return []models.JobListing{
		job("u1", "Suvirintojas", "Kaunas", "1400", "be patirties", "metalo konstrukcijos"),
		job("u2", "Programuotojas", "Vilnius", "2500-3500", "3 metai", "Go ir duomenų bazės"),
		job("u3", "Vadybininkas", "Vilnius", "–", "", "pardavimai ir klientų aptarnavimas"),
		job("u4", "Jaunesnysis programuotojas", "Kaunas", "1800", "1 metai", "debesų paslaugos"),
		job("u5", "Suvirintojas", "Kaunas", "1400", "be patirties", "metalo konstrukcijos"),
	}
}

func TestRankOrdering(t *testing.T) {
	candidates := sampleCandidates()

	results := Rank(reference, candidates)

	require.Len(t, results, len(candidates))
	assert.Equal(t, "u2", results[0].Listing.URL)

	seen := make(map[string]bool)
	for i, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
		if i > 0 {
			assert.LessOrEqual(t, r.Score, results[i-1].Score)
		}
		seen[r.Listing.URL] = true
	}
	for _, c := range candidates {
		assert.True(t, seen[c.URL], "missing %s", c.URL)
	}
}

func TestRankStableTies(t *testing.T) {
	results := Rank(reference, sampleCandidates())

	var tied []string
	for _, r := range results {
		if r.Listing.URL == "u1" || r.Listing.URL == "u5" {
			tied = append(tied, r.Listing.URL)
		}
	}
	assert.Equal(t, []string{"u1", "u5"}, tied)
}

func TestRankDeterministic(t *testing.T) {
	candidates := sampleCandidates()
	first := Rank(reference, candidates)

	// an unrelated call in between must not influence the next one
	_ = Rank(models.ReferenceProfile{Role: "Vairuotojas"}, candidates[:2])

	second := Rank(reference, candidates)
	assert.Equal(t, first, second)
}

func TestRankConcurrent(t *testing.T) {
	candidates := sampleCandidates()
	want := Rank(reference, candidates)

	var wg sync.WaitGroup
	got := make([][]models.SimilarityResult, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Rank(reference, candidates)
		}(i)
	}
	wg.Wait()

	for _, g := range got {
		assert.Equal(t, want, g)
	}
}

type recordingObserver struct {
	reference  string
	candidates []string
	scores     []float64
}

func (r *recordingObserver) ObserveDocuments(reference string, candidates []string) {
	r.reference = reference
	r.candidates = candidates
}

func (r *recordingObserver) ObserveScores(scores []float64) {
	r.scores = scores
}

func TestRankerObserver(t *testing.T) {
	obs := &recordingObserver{}
	candidates := sampleCandidates()

	results := NewRanker(WithObserver(obs)).Rank(FromProfile(reference), candidates)

	assert.Equal(t, FromProfile(reference).Document(), obs.reference)
	require.Len(t, obs.candidates, len(candidates))
	assert.Equal(t, FromListing(candidates[2]).Document(), obs.candidates[2])
	require.Len(t, obs.scores, len(candidates))

	byURL := make(map[string]float64)
	for _, r := range results {
		byURL[r.Listing.URL] = r.Score
	}
	for i, c := range candidates {
		assert.Equal(t, obs.scores[i], byURL[c.URL])
	}
}

func TestRankerListingReference(t *testing.T) {
	candidates := sampleCandidates()

	results := NewRanker().Rank(FromListing(candidates[0]), candidates)

	require.Len(t, results, len(candidates))
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, 1.0, results[1].Score, 1e-9)
	assert.Equal(t, "u1", results[0].Listing.URL)
	assert.Equal(t, "u5", results[1].Listing.URL)
}
