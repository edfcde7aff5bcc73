// Package vector provides similarity and distance primitives over
// float64 embedding vectors.
package vector

import (
	"fmt"
	"math"
	"sort"
)

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
// Mismatched dimensions or a zero-norm vector yield 0 rather than an error
// so ranking loops never divide by zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize normalizes a vector to unit length. A zero vector is returned
// unchanged.
func Normalize(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)

	if norm == 0 {
		return v
	}

	result := make([]float64, len(v))
	for i, x := range v {
		result[i] = x / norm
	}
	return result
}

// AverageVectors returns the element-wise mean of the given vectors.
// All vectors must share one dimension.
func AverageVectors(vectors [][]float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("cannot average zero vectors")
	}

	dims := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dims)
		}
	}

	result := make([]float64, dims)
	for _, v := range vectors {
		for i, x := range v {
			result[i] += x
		}
	}

	n := float64(len(vectors))
	for i := range result {
		result[i] /= n
	}
	return result, nil
}

// EuclideanDistance returns the L2 distance between two vectors of the
// same dimension.
func EuclideanDistance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Match is a candidate ranked by similarity to a query vector.
type Match struct {
	Index int
	Score float64
}

// FindSimilar ranks candidates by cosine similarity to the query,
// descending. Ties keep the original candidate order. topK <= 0 returns
// all candidates.
func FindSimilar(query []float64, candidates [][]float64, topK int) []Match {
	matches := make([]Match, 0, len(candidates))
	for i, c := range candidates {
		matches = append(matches, Match{Index: i, Score: CosineSimilarity(query, c)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
