package similarity

import (
	"sort"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
)

// Observer receives the intermediate documents and scores of a ranking call.
// Scores are in candidate input order.
type Observer interface {
	ObserveDocuments(reference string, candidates []string)
	ObserveScores(scores []float64)
}

// Ranker orders listings by their similarity to a reference
type Ranker struct {
	observer Observer
}

// Option configures a Ranker
type Option func(*Ranker)

// WithObserver attaches an observer to every ranking call
func WithObserver(o Observer) Option {
	return func(r *Ranker) {
		r.observer = o
	}
}

// NewRanker creates a Ranker
func NewRanker(opts ...Option) *Ranker {
	r := &Ranker{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores each candidate against the reference and returns them ordered
// by descending score. Candidates with equal scores keep their input order.
func (r *Ranker) Rank(reference Source, candidates []models.JobListing) []models.SimilarityResult {
	results := make([]models.SimilarityResult, 0, len(candidates))
	if len(candidates) == 0 {
		return results
	}

	refDoc := reference.Document()
	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = FromListing(c).Document()
	}
	if r.observer != nil {
		r.observer.ObserveDocuments(refDoc, docs)
	}

	scores := Scores(refDoc, docs)
	if r.observer != nil {
		r.observer.ObserveScores(scores)
	}

	for i, c := range candidates {
		results = append(results, models.SimilarityResult{Listing: c, Score: scores[i]})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// Rank ranks candidates against a reference profile without an observer
func Rank(reference models.ReferenceProfile, candidates []models.JobListing) []models.SimilarityResult {
	return NewRanker().Rank(FromProfile(reference), candidates)
}

// Scores fits a space on the reference and candidate documents and returns
// the cosine similarity of each candidate to the reference.
func Scores(reference string, candidates []string) []float64 {
	corpus := make([]string, 0, len(candidates)+1)
	corpus = append(corpus, reference)
	corpus = append(corpus, candidates...)

	scores := make([]float64, len(candidates))
	space := Fit(corpus)
	if space.Size() == 0 {
		return scores
	}

	refVec := space.Transform(reference)
	for i, doc := range candidates {
		scores[i] = Cosine(refVec, space.Transform(doc))
	}
	return scores
}
