// Package practice implements the word-level feedback aligner used by the
// sentence-practice flow. It aligns the words of a reference sentence against
// the words the learner actually spoke and labels each reference word as
// correct, mispronounced, or missed.
//
// The algorithm is a greedy bounded-lookahead match rather than a full
// sequence alignment: a cursor walks the spoken words, and each reference
// word searches a short forward window for an exact normalised match, then a
// smaller window for a fuzzy match. Bounded lookahead tolerates small
// insertions, omissions, and reorderings without the cost of dynamic
// programming, which is the right trade-off for short sentences.
//
// Fuzzy matching uses a Levenshtein-based similarity ratio. An optional
// phonetic mode additionally accepts Double Metaphone equality, so that
// phonetically faithful misspellings from the transcriber still attach to
// the right word; it is off by default.
package practice

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// WordStatus labels one reference word in the feedback sequence.
type WordStatus string

const (
	// WordCorrect means an exact normalised match was found in the window.
	WordCorrect WordStatus = "correct"

	// WordMispronounced means a fuzzy match was found; the matched spoken
	// word is attached to the entry.
	WordMispronounced WordStatus = "mispronounced"

	// WordMissed means no spoken word in the window matched; the cursor does
	// not advance past unmatched spoken words.
	WordMissed WordStatus = "missed"
)

// WordFeedback is the per-reference-word result of [Aligner.AlignWords].
type WordFeedback struct {
	// Word is the reference word with its original casing and punctuation.
	Word string `json:"word"`

	// Status is the verdict for this word.
	Status WordStatus `json:"status"`

	// Spoken is the spoken word matched to this reference word. Empty unless
	// Status is [WordMispronounced].
	Spoken string `json:"spoken,omitempty"`
}

const (
	defaultExactWindow    = 3
	defaultFuzzyWindow    = 2
	defaultFuzzyThreshold = 0.7
)

// Option is a functional option for configuring an [Aligner].
type Option func(*Aligner)

// WithExactWindow sets how many unconsumed spoken words are searched for an
// exact match. Default: 3.
func WithExactWindow(n int) Option {
	return func(a *Aligner) { a.exactWindow = n }
}

// WithFuzzyWindow sets how many unconsumed spoken words are searched for a
// fuzzy match after the exact search fails. Default: 2.
func WithFuzzyWindow(n int) Option {
	return func(a *Aligner) { a.fuzzyWindow = n }
}

// WithFuzzyThreshold sets the minimum similarity ratio for a fuzzy match.
// The ratio is strictly greater-than. Default: 0.7.
func WithFuzzyThreshold(t float64) Option {
	return func(a *Aligner) { a.fuzzyThreshold = t }
}

// WithPhoneticMatching enables Double Metaphone equality as a secondary
// fuzzy acceptor for words that sound alike but sit below the similarity
// threshold. Default: disabled.
func WithPhoneticMatching(enabled bool) Option {
	return func(a *Aligner) { a.phonetic = enabled }
}

// Aligner aligns reference words against spoken words. It is read-only after
// construction and safe for concurrent use.
type Aligner struct {
	exactWindow    int
	fuzzyWindow    int
	fuzzyThreshold float64
	phonetic       bool
}

// New returns an [Aligner] configured with the supplied options.
func New(opts ...Option) *Aligner {
	a := &Aligner{
		exactWindow:    defaultExactWindow,
		fuzzyWindow:    defaultFuzzyWindow,
		fuzzyThreshold: defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// AlignWords produces one [WordFeedback] per word of original, in original
// order. spoken may be empty, in which case every word is missed.
func (a *Aligner) AlignWords(original, spoken string) []WordFeedback {
	origWords := strings.Fields(original)
	spokenWords := strings.Fields(spoken)

	feedback := make([]WordFeedback, 0, len(origWords))
	cursor := 0

	for _, orig := range origWords {
		cleanOrig := normalizeWord(orig)

		// Exact match within the lookahead window.
		if idx, ok := a.findExact(cleanOrig, spokenWords, cursor); ok {
			feedback = append(feedback, WordFeedback{Word: orig, Status: WordCorrect})
			cursor = idx + 1
			continue
		}

		// Fuzzy match within the smaller window.
		if idx, ok := a.findFuzzy(cleanOrig, spokenWords, cursor); ok {
			feedback = append(feedback, WordFeedback{
				Word:   orig,
				Status: WordMispronounced,
				Spoken: spokenWords[idx],
			})
			cursor = idx + 1
			continue
		}

		// Missed words do not consume spoken words: the next reference word
		// searches from the same cursor position.
		feedback = append(feedback, WordFeedback{Word: orig, Status: WordMissed})
	}

	return feedback
}

func (a *Aligner) findExact(cleanOrig string, spoken []string, cursor int) (int, bool) {
	end := min(cursor+a.exactWindow, len(spoken))
	for i := cursor; i < end; i++ {
		if cleanOrig == normalizeWord(spoken[i]) {
			return i, true
		}
	}
	return 0, false
}

func (a *Aligner) findFuzzy(cleanOrig string, spoken []string, cursor int) (int, bool) {
	end := min(cursor+a.fuzzyWindow, len(spoken))
	for i := cursor; i < end; i++ {
		cleanSpoken := normalizeWord(spoken[i])
		if cleanSpoken == "" {
			continue
		}
		ratio := similarityRatio(cleanOrig, cleanSpoken)
		if ratio > a.fuzzyThreshold {
			return i, true
		}
		// In phonetic mode, metaphone equality rescues phonetically faithful
		// spellings that an edit-distance ratio undervalues, but only when at
		// least half the letters agree, so unrelated consonant skeletons
		// don't attach.
		if a.phonetic && ratio > 0.5 && metaphoneEqual(cleanOrig, cleanSpoken) {
			return i, true
		}
	}
	return 0, false
}

// normalizeWord lowercases the word and strips everything that is not a
// letter or digit, so punctuation never defeats a match.
func normalizeWord(w string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(w) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// similarityRatio is a normalised Levenshtein similarity: 1 minus the edit
// distance divided by the longer length. 1.0 means identical.
func similarityRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0.0
	}
	d := matchr.Levenshtein(a, b)
	return 1.0 - float64(d)/float64(longest)
}

// metaphoneEqual reports whether the two words share a Double Metaphone code,
// i.e. they are plausibly the same sound spelled differently.
func metaphoneEqual(a, b string) bool {
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	if ap == "" && as == "" {
		return false
	}
	return ap == bp || (as != "" && as == bs) || ap == bs || (as != "" && as == bp)
}
