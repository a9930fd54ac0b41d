package similarity

import (
	"math"
	"sort"
)

// Vector is a sparse document vector ordered by term index
type Vector []Weight

// Weight is one non-zero component of a Vector
type Weight struct {
	Index int
	Value float64
}

// Norm returns the Euclidean length of v
func (v Vector) Norm() float64 {
	var sum float64
	for _, w := range v {
		sum += w.Value * w.Value
	}
	return math.Sqrt(sum)
}

// Dot returns the inner product of two index-ordered vectors
func Dot(a, b Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Index == b[j].Index:
			sum += a[i].Value * b[j].Value
			i++
			j++
		case a[i].Index < b[j].Index:
			i++
		default:
			j++
		}
	}
	return sum
}

// Cosine returns dot(a,b)/(|a||b|), clamped to [0,1]. A zero vector has
// similarity 0 with everything.
func Cosine(a, b Vector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	score := Dot(a, b) / (na * nb)
	switch {
	case score > 1:
		return 1
	case score < 0:
		return 0
	}
	return score
}

// Space is a TF-IDF vector space fitted on one corpus. It is immutable once
// built.
type Space struct {
	vocabulary map[string]int
	terms      []string
	idf        []float64
}

// Fit builds the vocabulary and smoothed inverse document frequencies
// idf(t) = ln((1+n)/(1+df(t))) + 1 over the given documents.
func Fit(documents []string) *Space {
	df := make(map[string]int)
	for _, doc := range documents {
		seen := make(map[string]struct{})
		for _, tok := range Tokenize(doc) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(documents))
	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		vocabulary[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	return &Space{vocabulary: vocabulary, terms: terms, idf: idf}
}

// Size returns the number of terms in the vocabulary
func (s *Space) Size() int {
	return len(s.terms)
}

// Terms returns the vocabulary in index order
func (s *Space) Terms() []string {
	out := make([]string, len(s.terms))
	copy(out, s.terms)
	return out
}

// Transform projects a document into the space as an L2-normalised TF-IDF
// vector. Terms outside the vocabulary are ignored.
func (s *Space) Transform(document string) Vector {
	counts := make(map[int]int)
	for _, tok := range Tokenize(document) {
		if idx, ok := s.vocabulary[tok]; ok {
			counts[idx]++
		}
	}

	vec := make(Vector, 0, len(counts))
	for idx, c := range counts {
		vec = append(vec, Weight{Index: idx, Value: float64(c) * s.idf[idx]})
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].Index < vec[j].Index })

	norm := vec.Norm()
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i].Value /= norm
	}
	return vec
}
