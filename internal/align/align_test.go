package align_test

import (
	"errors"
	"testing"

	"github.com/arnavam/zylo/internal/align"
)

// symbolDist is the 0/1 discrete distance used for phoneme comparison.
func symbolDist(a, b string) float64 {
	if a == b {
		return 0
	}
	return 1
}

func TestAlign_IdenticalSequences(t *testing.T) {
	t.Parallel()

	seq := []string{"h", "ə", "l", "oʊ"}
	path, cost, err := align.Align(seq, seq, symbolDist)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if cost != 0 {
		t.Errorf("cost = %f, want 0", cost)
	}
	if len(path) != len(seq) {
		t.Fatalf("len(path) = %d, want %d", len(path), len(seq))
	}
	for k, s := range path {
		if s.I != k || s.J != k {
			t.Errorf("path[%d] = (%d,%d), want (%d,%d)", k, s.I, s.J, k, k)
		}
	}
}

func TestAlign_EmptySequence(t *testing.T) {
	t.Parallel()

	if _, _, err := align.Align(nil, []string{"a"}, symbolDist); !errors.Is(err, align.ErrEmptySequence) {
		t.Errorf("Align(nil, [a]): err = %v, want ErrEmptySequence", err)
	}
	if _, _, err := align.Align([]string{"a"}, nil, symbolDist); !errors.Is(err, align.ErrEmptySequence) {
		t.Errorf("Align([a], nil): err = %v, want ErrEmptySequence", err)
	}
}

func TestAlign_PathInvariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []string
	}{
		{"substitution", []string{"a", "b", "c"}, []string{"a", "x", "c"}},
		{"stretch", []string{"a", "b"}, []string{"a", "a", "b", "b", "b"}},
		{"compress", []string{"a", "a", "a", "b"}, []string{"a", "b"}},
		{"disjoint", []string{"x", "y"}, []string{"p", "q", "r"}},
		{"single vs many", []string{"a"}, []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path, _, err := align.Align(tt.a, tt.b, symbolDist)
			if err != nil {
				t.Fatalf("Align: %v", err)
			}

			first, last := path[0], path[len(path)-1]
			if first.I != 0 || first.J != 0 {
				t.Errorf("path starts at (%d,%d), want (0,0)", first.I, first.J)
			}
			if last.I != len(tt.a)-1 || last.J != len(tt.b)-1 {
				t.Errorf("path ends at (%d,%d), want (%d,%d)", last.I, last.J, len(tt.a)-1, len(tt.b)-1)
			}

			seenI := make(map[int]bool)
			seenJ := make(map[int]bool)
			for k := 1; k < len(path); k++ {
				prev, cur := path[k-1], path[k]
				if cur.I < prev.I || cur.J < prev.J {
					t.Fatalf("path not monotonic at step %d: (%d,%d) → (%d,%d)", k, prev.I, prev.J, cur.I, cur.J)
				}
				if cur.I-prev.I > 1 || cur.J-prev.J > 1 {
					t.Fatalf("path skips at step %d: (%d,%d) → (%d,%d)", k, prev.I, prev.J, cur.I, cur.J)
				}
			}
			for _, s := range path {
				seenI[s.I] = true
				seenJ[s.J] = true
			}
			if len(seenI) != len(tt.a) {
				t.Errorf("path visits %d indices of a, want %d", len(seenI), len(tt.a))
			}
			if len(seenJ) != len(tt.b) {
				t.Errorf("path visits %d indices of b, want %d", len(seenJ), len(tt.b))
			}
		})
	}
}

func TestAlign_SubstitutionCost(t *testing.T) {
	t.Parallel()

	// One mismatched symbol in otherwise identical sequences costs exactly 1.
	_, cost, err := align.Align([]string{"a", "b", "c"}, []string{"a", "x", "c"}, symbolDist)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if cost != 1 {
		t.Errorf("cost = %f, want 1", cost)
	}
}

func TestAlign_VectorDistance(t *testing.T) {
	t.Parallel()

	// DTW also works over float vectors with a continuous distance.
	a := [][]float64{{1, 0}, {0, 1}}
	b := [][]float64{{1, 0}, {1, 0}, {0, 1}}
	dist := func(u, v []float64) float64 {
		var d float64
		for i := range u {
			diff := u[i] - v[i]
			d += diff * diff
		}
		return d
	}
	path, cost, err := align.Align(a, b, dist)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if cost != 0 {
		t.Errorf("cost = %f, want 0 (b only repeats frames of a)", cost)
	}
	if len(path) != 3 {
		t.Errorf("len(path) = %d, want 3", len(path))
	}
}
