// Package similarity scores embedding vectors against each other. The same
// scoring is used by the waiting-queue matcher and by callers interpreting
// remote index results.
package similarity

import "math"

// Score returns the cosine similarity of a and b in [-1, 1]. Vectors of
// different lengths or with zero magnitude score 0: that means "no comparable
// signal", callers must not read it as a strong negative.
func Score(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
