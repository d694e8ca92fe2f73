// Package pronounce orchestrates the pronunciation evaluation pipeline.
//
// One evaluation runs the learner's audio and the reference text through
// three providers and two scoring paths:
//
//  1. Symbolic: the acoustic model transcribes the audio to phonemes while a
//     G2P provider derives the expected phonemes from the text; the two
//     sequences are compared by alignment cost and phoneme error rate.
//  2. Probabilistic: reference audio is synthesised for the text and both
//     recordings are reduced to frame probability matrices, compared frame
//     by frame. This path is best-effort — any failure downgrades the
//     result to symbolic-only rather than failing the evaluation.
//
// The two scores are fused and classified into a learner-facing status.
package pronounce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/arnavam/zylo/internal/observe"
	"github.com/arnavam/zylo/internal/score"
	"github.com/arnavam/zylo/pkg/audio"
	"github.com/arnavam/zylo/pkg/provider/acoustic"
	"github.com/arnavam/zylo/pkg/provider/g2p"
	"github.com/arnavam/zylo/pkg/provider/tts"
)

var (
	// ErrEmptyReference is returned when the reference text is blank.
	ErrEmptyReference = errors.New("pronounce: reference text is empty")

	// ErrEmptyAudio is returned when the learner recording holds no samples.
	ErrEmptyAudio = errors.New("pronounce: audio is empty")
)

// defaultMaxConcurrent bounds simultaneous evaluations. Acoustic inference
// is memory-hungry, so unbounded parallelism can take the model server down.
const defaultMaxConcurrent = 4

// Result is the complete outcome of one evaluation.
type Result struct {
	// ReferenceText is the text the learner was asked to read.
	ReferenceText string `json:"reference_text"`

	// ExpectedPhonemes is the phoneme sequence derived from ReferenceText.
	ExpectedPhonemes []string `json:"expected_phonemes"`

	// SpokenPhonemes is the phoneme sequence recognised from the learner.
	SpokenPhonemes []string `json:"spoken_phonemes"`

	// DTWScore is the alignment-based similarity of the phoneme sequences.
	DTWScore float64 `json:"dtw_score"`

	// PhonemeErrorRate is the normalised edit distance between the
	// sequences, in [0, 1].
	PhonemeErrorRate float64 `json:"phoneme_error_rate"`

	// SymbolScore is the symbolic similarity component.
	SymbolScore float64 `json:"symbol_score"`

	// ProbabilityScore is the probabilistic component. Nil when the
	// probabilistic path was unavailable.
	ProbabilityScore *float64 `json:"probability_score,omitempty"`

	// SimilarityScore is the fused overall score.
	SimilarityScore float64 `json:"similarity_score"`

	// Status classifies SimilarityScore for the learner.
	Status score.Status `json:"status"`

	// Profile is the mean frame-probability vector of the learner's
	// recording, one component per vocabulary phoneme. Nil when frame
	// probabilities were unavailable.
	Profile []float32 `json:"-"`
}

// Evaluator runs the evaluation pipeline. Construct with [NewEvaluator];
// safe for concurrent use.
type Evaluator struct {
	acoustic acoustic.Provider
	g2p      g2p.Provider
	tts      tts.Provider

	weights    score.FusionWeights
	thresholds score.Thresholds
	metrics    *observe.Metrics
	sem        *semaphore.Weighted
}

// Option configures an [Evaluator].
type Option func(*Evaluator)

// WithFusionWeights overrides the default 0.6/0.4 fusion weights.
func WithFusionWeights(w score.FusionWeights) Option {
	return func(e *Evaluator) { e.weights = w }
}

// WithThresholds overrides the default classification thresholds.
func WithThresholds(t score.Thresholds) Option {
	return func(e *Evaluator) { e.thresholds = t }
}

// WithMetrics sets the metrics instance used for instrumentation.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

// WithMaxConcurrent bounds the number of simultaneous evaluations.
func WithMaxConcurrent(n int64) Option {
	return func(e *Evaluator) { e.sem = semaphore.NewWeighted(n) }
}

// NewEvaluator creates an Evaluator. The acoustic and G2P providers are
// required; synth may be nil, in which case the probabilistic path is
// disabled and every result is symbolic-only.
func NewEvaluator(ac acoustic.Provider, gp g2p.Provider, synth tts.Provider, opts ...Option) *Evaluator {
	e := &Evaluator{
		acoustic:   ac,
		g2p:        gp,
		tts:        synth,
		weights:    score.DefaultFusionWeights(),
		thresholds: score.DefaultThresholds(),
		metrics:    observe.DefaultMetrics(),
		sem:        semaphore.NewWeighted(defaultMaxConcurrent),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate scores how closely the recording in wave matches a reading of
// referenceText. The recording should already be conditioned to the model
// sample rate (see [audio.Condition]).
//
// Symbolic-path failures are fatal; probabilistic-path failures degrade the
// result to symbolic-only.
func (e *Evaluator) Evaluate(ctx context.Context, referenceText string, wave audio.Waveform) (*Result, error) {
	if referenceText == "" {
		return nil, ErrEmptyReference
	}
	if wave.Empty() {
		return nil, ErrEmptyAudio
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("pronounce: acquire slot: %w", err)
	}
	defer e.sem.Release(1)

	ctx, span := observe.StartSpan(ctx, "pronounce.Evaluate")
	defer span.End()

	e.metrics.ActiveEvaluations.Add(ctx, 1)
	defer e.metrics.ActiveEvaluations.Add(ctx, -1)
	start := time.Now()

	// Symbolic path: transcribe the recording and derive the expected
	// phonemes in parallel. Either failure is fatal.
	var spoken, expected []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t0 := time.Now()
		var err error
		spoken, err = e.acoustic.Phonemes(gctx, wave)
		e.metrics.AcousticDuration.Record(gctx, time.Since(t0).Seconds())
		if err != nil {
			e.metrics.RecordProviderError(gctx, "acoustic", "phonemes")
			return fmt.Errorf("pronounce: recognise phonemes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		t0 := time.Now()
		var err error
		expected, err = e.g2p.Phonemes(gctx, referenceText)
		e.metrics.G2PDuration.Record(gctx, time.Since(t0).Seconds())
		if err != nil {
			e.metrics.RecordProviderError(gctx, "g2p", "phonemes")
			return fmt.Errorf("pronounce: expected phonemes: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cmp := score.CompareSymbols(expected, spoken)

	result := &Result{
		ReferenceText:    referenceText,
		ExpectedPhonemes: expected,
		SpokenPhonemes:   spoken,
		DTWScore:         cmp.DTWSimilarity,
		PhonemeErrorRate: cmp.PER,
		SymbolScore:      cmp.SymbolScore,
	}

	// Probabilistic path, best-effort.
	prob, profile := e.probabilityScore(ctx, referenceText, wave)
	result.ProbabilityScore = prob
	result.Profile = profile

	result.SimilarityScore = score.Fuse(result.SymbolScore, result.ProbabilityScore, e.weights)
	result.Status = score.Classify(result.SimilarityScore, e.thresholds)

	e.metrics.RecordEvaluation(ctx, string(result.Status), time.Since(start).Seconds())
	return result, nil
}

// probabilityScore runs the probabilistic path: synthesise reference audio,
// extract frame probabilities for both recordings in parallel, and compare
// them. Any failure returns a nil score; the learner still gets a symbolic
// result.
func (e *Evaluator) probabilityScore(ctx context.Context, referenceText string, wave audio.Waveform) (*float64, []float32) {
	if e.tts == nil {
		return nil, nil
	}
	log := observe.Logger(ctx)

	t0 := time.Now()
	ref, err := e.tts.Synthesize(ctx, referenceText)
	e.metrics.TTSDuration.Record(ctx, time.Since(t0).Seconds())
	if err != nil {
		e.metrics.RecordProviderError(ctx, "tts", "synthesize")
		log.Warn("reference synthesis failed; using symbolic score only", "error", err)
		return nil, nil
	}

	var refProbs, userProbs acoustic.FrameProbabilities
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		refProbs, err = e.acoustic.FrameProbabilities(gctx, ref)
		return err
	})
	g.Go(func() error {
		var err error
		userProbs, err = e.acoustic.FrameProbabilities(gctx, wave)
		return err
	})
	if err := g.Wait(); err != nil {
		e.metrics.RecordProviderError(ctx, "acoustic", "frame_probabilities")
		log.Warn("frame probability extraction failed; using symbolic score only", "error", err)
		return nil, nil
	}

	profile := meanProfile(userProbs)

	s, err := score.CompareFrameProbabilities(refProbs, userProbs)
	if err != nil {
		log.Warn("frame probability comparison failed; using symbolic score only", "error", err)
		return nil, profile
	}
	return &s, profile
}

// meanProfile averages a frame probability matrix over time, producing one
// value per vocabulary phoneme. Returns nil for an empty matrix.
func meanProfile(probs acoustic.FrameProbabilities) []float32 {
	if len(probs) == 0 || len(probs[0]) == 0 {
		return nil
	}
	profile := make([]float32, len(probs[0]))
	for _, frame := range probs {
		for i, p := range frame {
			profile[i] += float32(p)
		}
	}
	n := float32(len(probs))
	for i := range profile {
		profile[i] /= n
	}
	return profile
}
