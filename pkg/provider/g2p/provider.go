// Package g2p defines the Provider interface for grapheme-to-phoneme
// conversion backends.
//
// A G2P provider deterministically maps reference text to the phoneme
// sequence a fluent speaker of the configured language would produce. The
// phoneme inventory must match the acoustic model's vocabulary for
// symbol-level comparison to be meaningful (e.g., both espeak IPA).
//
// Implementations must be safe for concurrent use.
package g2p

import "context"

// Provider is the abstraction over any grapheme-to-phoneme backend.
type Provider interface {
	// Phonemes converts text to its expected phoneme sequence. Conversion is
	// deterministic for a fixed language/locale: the same text always yields
	// the same sequence. An empty or whitespace-only text yields an empty
	// sequence, not an error.
	Phonemes(ctx context.Context, text string) ([]string, error)
}
