package score

// Status is the qualitative verdict assigned to an evaluation.
type Status string

const (
	StatusCorrect       Status = "correct"
	StatusAlmost        Status = "almost"
	StatusMispronounced Status = "mispronounced"
)

// FusionWeights controls how the probabilistic and symbolic scores combine
// when both are available. The probabilistic signal is weighted higher by
// default because it is more discriminative when present, but the symbolic
// score remains a complete fallback on its own.
type FusionWeights struct {
	Probability float64
	Symbol      float64
}

// DefaultFusionWeights is the canonical 60/40 probability/symbol weighting.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{Probability: 0.6, Symbol: 0.4}
}

// Thresholds maps a combined score to a [Status]. Scores >= Correct classify
// as "correct"; scores in [Almost, Correct) as "almost"; anything below as
// "mispronounced".
type Thresholds struct {
	Correct float64
	Almost  float64
}

// DefaultThresholds returns the canonical 0.75/0.50 classifier boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Correct: 0.75, Almost: 0.50}
}

// Fuse combines the symbolic score with an optional probabilistic score.
// When probability is nil (the probabilistic path was unavailable) the
// symbolic score passes through exactly, with no re-rounding.
func Fuse(symbol float64, probability *float64, w FusionWeights) float64 {
	if probability == nil {
		return symbol
	}
	return Round4(w.Probability**probability + w.Symbol*symbol)
}

// Classify maps a combined score to its verdict under t.
func Classify(combined float64, t Thresholds) Status {
	switch {
	case combined >= t.Correct:
		return StatusCorrect
	case combined >= t.Almost:
		return StatusAlmost
	default:
		return StatusMispronounced
	}
}
