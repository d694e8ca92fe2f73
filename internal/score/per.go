// Package score implements the pronunciation scoring metrics: phoneme error
// rate, symbolic DTW similarity, probabilistic frame comparison, and the
// fusion + classification policy that turns them into a verdict.
//
// Two different comparisons of the same phoneme sequences are computed and
// blended rather than using either alone. DTW with a 0/1 distance rewards
// overall shape match even under minor local misalignment because it must
// visit every element; edit-distance PER penalises the absolute edit count
// and is allowed to skip. Their disagreement is informative, which is why the
// symbol score is the DTW similarity mildly penalised by PER.
//
// All functions are pure and safe for concurrent use. Scores are rounded to
// four decimal places as they are surfaced to callers.
package score

// PhonemeErrorRate computes the Levenshtein edit distance between the
// expected and hypothesis phoneme sequences (unit cost for substitution,
// insertion, and deletion) normalised by the expected length, capped at 1.0.
//
// An empty expected sequence yields 1.0 when the hypothesis is non-empty and
// 0.0 when both are empty.
func PhonemeErrorRate(expected, hypothesis []string) float64 {
	if len(expected) == 0 {
		if len(hypothesis) == 0 {
			return 0.0
		}
		return 1.0
	}

	m, n := len(expected), len(hypothesis)
	// Two-row rolling edit-distance table.
	prev := make([]int, n+1)
	cur := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}
	for i := 1; i <= m; i++ {
		cur[0] = i
		for j := 1; j <= n; j++ {
			if expected[i-1] == hypothesis[j-1] {
				cur[j] = prev[j-1]
			} else {
				cur[j] = 1 + minInt3(prev[j-1], prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}

	per := float64(prev[n]) / float64(m)
	if per > 1.0 {
		return 1.0
	}
	return per
}

func minInt3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
