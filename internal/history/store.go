// Package history defines persistence for pronunciation attempts.
//
// An [Attempt] records the full outcome of one evaluation: the reference
// text, both phoneme sequences, every score component, and a pronunciation
// profile vector derived from the acoustic model's frame probabilities. The
// profile makes attempts searchable by acoustic similarity, so a learner's
// recurring trouble sounds surface across different reference texts.
//
// Implementations must be safe for concurrent use.
package history

import (
	"context"
	"time"

	"github.com/arnavam/zylo/internal/score"
)

// Attempt is one evaluated pronunciation attempt.
type Attempt struct {
	// ID is assigned by the store on save.
	ID int64 `json:"id"`

	// LearnerID identifies the learner. May be empty for anonymous use.
	LearnerID string `json:"learner_id,omitempty"`

	// ReferenceText is the text the learner was asked to read.
	ReferenceText string `json:"reference_text"`

	// ExpectedPhonemes is the phoneme sequence derived from ReferenceText.
	ExpectedPhonemes []string `json:"expected_phonemes"`

	// SpokenPhonemes is the phoneme sequence recognised from the learner.
	SpokenPhonemes []string `json:"spoken_phonemes"`

	// SymbolScore is the symbolic similarity component.
	SymbolScore float64 `json:"symbol_score"`

	// ProbabilityScore is the probabilistic component. Nil when the
	// probabilistic path was unavailable for this attempt.
	ProbabilityScore *float64 `json:"probability_score,omitempty"`

	// SimilarityScore is the fused overall score.
	SimilarityScore float64 `json:"similarity_score"`

	// Status is the classification of SimilarityScore.
	Status score.Status `json:"status"`

	// Profile is the mean frame-probability vector for this attempt, with
	// one component per phoneme in the acoustic model's vocabulary. Nil
	// when frame probabilities were unavailable.
	Profile []float32 `json:"-"`

	// CreatedAt is when the attempt was evaluated.
	CreatedAt time.Time `json:"created_at"`
}

// SimilarAttempt pairs a retrieved attempt with its vector-space distance
// from the query profile. Lower Distance means closer pronunciation.
type SimilarAttempt struct {
	Attempt  Attempt `json:"attempt"`
	Distance float64 `json:"distance"`
}

// Store persists and retrieves pronunciation attempts.
type Store interface {
	// Save inserts the attempt and fills in its ID and CreatedAt.
	Save(ctx context.Context, attempt *Attempt) error

	// Recent returns up to limit attempts for learnerID, most recent
	// first. An empty learnerID returns attempts across all learners.
	// Returns an empty (non-nil) slice when nothing matches.
	Recent(ctx context.Context, learnerID string, limit int) ([]Attempt, error)

	// SimilarAttempts finds the topK stored attempts whose pronunciation
	// profiles are closest (cosine distance) to profile. Attempts saved
	// without a profile are excluded.
	SimilarAttempts(ctx context.Context, profile []float32, topK int) ([]SimilarAttempt, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close()
}
