// Package align implements generic dynamic time warping over arbitrary token
// or vector sequences with a pluggable pairwise distance function.
//
// DTW finds the minimum-cost monotonic correspondence between two ordered
// sequences. Unlike edit distance it forbids skipping: every element of both
// sequences appears on the alignment path at least once, with local
// stretching and compression expressed as repeated indices. This makes it
// suitable both for 0/1 symbol comparison (phoneme sequences) and for
// continuous distances (cosine distance between frame probability vectors).
//
// The dynamic program fills an (m+1)×(n+1) accumulated-cost grid where every
// boundary cell except the origin is infinite — no prefix of either sequence
// may be consumed for free. The path is reconstructed by backtracking through
// the minimal predecessor at each cell; ties are broken deterministically by
// preferring the diagonal move, then the vertical, then the horizontal.
//
// Complexity is O(m·n) in time and space, which is fine for the sequence
// lengths seen here (tens of phonemes, low hundreds of audio frames).
package align

import (
	"errors"
	"math"
)

// ErrEmptySequence is returned by [Align] when either input sequence is
// empty. Alignment over an empty sequence is undefined; callers must handle
// that case before invoking the aligner.
var ErrEmptySequence = errors.New("align: cannot align an empty sequence")

// Step is one point on an alignment path: indexes into the first and second
// sequence respectively.
type Step struct {
	I int
	J int
}

// Path is the ordered list of index pairs visited by a DTW alignment.
// It starts at (0,0), ends at (len(a)-1, len(b)-1), is non-decreasing in both
// components, and visits every index of both sequences at least once.
type Path []Step

// DistanceFunc measures the pairwise dissimilarity of two elements.
// It must return a value >= 0; it need not be symmetric.
type DistanceFunc[T any] func(a, b T) float64

// Align computes the minimum-cost DTW alignment of a against b under dist.
// It returns the reconstructed path and the total accumulated cost along it.
// Returns [ErrEmptySequence] if either sequence is empty.
func Align[T any](a, b []T, dist DistanceFunc[T]) (Path, float64, error) {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return nil, 0, ErrEmptySequence
	}

	inf := math.Inf(1)
	cost := make([][]float64, m+1)
	for i := range cost {
		cost[i] = make([]float64, n+1)
		for j := range cost[i] {
			cost[i][j] = inf
		}
	}
	cost[0][0] = 0

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			d := dist(a[i-1], b[j-1])
			cost[i][j] = d + min3(cost[i-1][j-1], cost[i-1][j], cost[i][j-1])
		}
	}

	return backtrack(cost, m, n), cost[m][n], nil
}

// backtrack walks the accumulated-cost grid from (m,n) back to (1,1),
// choosing the minimal predecessor at each cell. Ties prefer the diagonal
// move, then the vertical, then the horizontal, so the path is deterministic.
func backtrack(cost [][]float64, m, n int) Path {
	// Worst-case path length is m+n-1.
	rev := make(Path, 0, m+n-1)
	i, j := m, n
	for i > 1 || j > 1 {
		rev = append(rev, Step{I: i - 1, J: j - 1})
		switch {
		case i == 1:
			j--
		case j == 1:
			i--
		default:
			diag, up, left := cost[i-1][j-1], cost[i-1][j], cost[i][j-1]
			switch {
			case diag <= up && diag <= left:
				i--
				j--
			case up <= left:
				i--
			default:
				j--
			}
		}
	}
	rev = append(rev, Step{I: 0, J: 0})

	// Reverse in place: the path is built end-to-start.
	for l, r := 0, len(rev)-1; l < r; l, r = l+1, r-1 {
		rev[l], rev[r] = rev[r], rev[l]
	}
	return rev
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
