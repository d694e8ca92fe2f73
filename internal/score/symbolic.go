package score

import (
	"math"

	"github.com/arnavam/zylo/internal/align"
)

// perPenaltyWeight is how strongly the phoneme error rate discounts the DTW
// similarity in the symbol score. Both signals derive from the same symbol
// comparison, so PER contributes a mild penalty rather than a second full
// error count.
const perPenaltyWeight = 0.3

// SymbolComparison holds the three symbolic metrics for one pair of phoneme
// sequences. All values are in [0, 1] and rounded to four decimals.
type SymbolComparison struct {
	// DTWSimilarity is the raw DTW-based similarity of the two sequences.
	DTWSimilarity float64

	// PER is the phoneme error rate of the spoken sequence against the
	// expected one.
	PER float64

	// SymbolScore is the fused symbolic score: DTWSimilarity discounted by
	// PER at [perPenaltyWeight].
	SymbolScore float64
}

// DTWSimilarity aligns the two phoneme sequences under the 0/1 discrete
// distance and maps the total cost to a similarity in [0, 1], normalised by
// the expected length. If either sequence is empty the similarity is 0.0 and
// the aligner is never invoked.
func DTWSimilarity(expected, spoken []string) float64 {
	if len(expected) == 0 || len(spoken) == 0 {
		return 0.0
	}
	_, cost, err := align.Align(expected, spoken, func(a, b string) float64 {
		if a == b {
			return 0
		}
		return 1
	})
	if err != nil {
		// Unreachable: empty inputs are handled above.
		return 0.0
	}
	sim := 1 - cost/math.Max(float64(len(expected)), 1)
	if sim < 0 {
		sim = 0
	}
	return Round4(sim)
}

// CompareSymbols computes the full symbolic comparison of the spoken phoneme
// sequence against the expected one.
func CompareSymbols(expected, spoken []string) SymbolComparison {
	dtwSim := DTWSimilarity(expected, spoken)
	per := PhonemeErrorRate(expected, spoken)
	symbol := Round4(dtwSim * (1 - per*perPenaltyWeight))
	if symbol < 0 {
		symbol = 0
	} else if symbol > 1 {
		symbol = 1
	}
	return SymbolComparison{
		DTWSimilarity: dtwSim,
		PER:           Round4(per),
		SymbolScore:   symbol,
	}
}

// Round4 rounds v to four decimal places, the precision at which all scores
// are reported.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
