package score

import (
	"errors"
	"fmt"
	"math"

	"github.com/arnavam/zylo/internal/align"
)

// ErrNoFrames is returned by [CompareFrameProbabilities] when either matrix
// has no frames.
var ErrNoFrames = errors.New("score: frame probability matrix is empty")

// CompareFrameProbabilities aligns two sequences of per-frame probability
// distributions with DTW under cosine distance and maps the average
// per-step distance to a similarity in [0, 1].
//
// The accumulated cost is normalised by the reconstructed path length — not
// by max(frames) — because repeated-index steps introduced by time warping
// each contribute their own distance and must be counted individually.
//
// Frame counts may differ between the two matrices (different utterance
// durations and speaking rates); the vector width must be identical, since
// both matrices are distributions over the same phoneme vocabulary.
func CompareFrameProbabilities(ref, user [][]float64) (float64, error) {
	if len(ref) == 0 || len(user) == 0 {
		return 0, ErrNoFrames
	}
	if len(ref[0]) != len(user[0]) {
		return 0, fmt.Errorf("score: vocabulary size mismatch: %d vs %d", len(ref[0]), len(user[0]))
	}

	path, cost, err := align.Align(ref, user, cosineDistance)
	if err != nil {
		return 0, fmt.Errorf("score: frame alignment: %w", err)
	}

	avg := cost / float64(len(path))
	sim := 1 - avg
	if sim < 0 {
		sim = 0
	}
	return Round4(sim), nil
}

// cosineDistance is 1 − cos(u, v). For the non-negative probability vectors
// compared here it lies in [0, 1]: 0 means identical distributions. A zero
// vector has no direction; its distance to anything is taken as 1.
func cosineDistance(u, v []float64) float64 {
	var dot, nu, nv float64
	for i := range u {
		dot += u[i] * v[i]
		nu += u[i] * u[i]
		nv += v[i] * v[i]
	}
	if nu == 0 || nv == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(nu)*math.Sqrt(nv))
}
