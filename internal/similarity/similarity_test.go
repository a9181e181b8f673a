package similarity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kindredspace/kindred/internal/similarity"
)

func TestScoreIdenticalVectors(t *testing.T) {
	v := []float32{0.5, 0.25, -0.75}
	assert.InDelta(t, 1.0, similarity.Score(v, v), 1e-9)
}

func TestScoreOppositeVectors(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-1, -2, -3}
	assert.InDelta(t, -1.0, similarity.Score(a, b), 1e-9)
}

func TestScoreOrthogonalVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	assert.InDelta(t, 0.0, similarity.Score(a, b), 1e-9)
}

func TestScoreLengthMismatch(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{1, 2}
	assert.Equal(t, 0.0, similarity.Score(a, b))
}

func TestScoreZeroMagnitude(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 2, 3}
	assert.Equal(t, 0.0, similarity.Score(a, b))
	assert.Equal(t, 0.0, similarity.Score(b, a))
	assert.Equal(t, 0.0, similarity.Score(nil, nil))
}

func TestScoreScaleInvariant(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{2, 4, 6}
	assert.InDelta(t, 1.0, similarity.Score(a, b), 1e-9)
}
