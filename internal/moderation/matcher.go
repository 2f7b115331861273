package moderation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/whisper/modbot/internal/normalize"
)

// DefaultThreshold is the similarity ratio at or above which a token is
// treated as a spelling of a lexicon entry.
const DefaultThreshold = 0.8

// Match reasons reported in Result.Reason.
const (
	ReasonAllowListed = "allow_listed"
	ReasonSubstring   = "substring"
	ReasonSimilar     = "similar"
)

// Entry is a lexicon or allow-list term with its precomputed normalized form.
type Entry struct {
	Term       string
	Normalized string

	// Words is the word count of a term written in Arabic script, zero
	// otherwise. Latin consonants normalize to Arabic letters, so in a
	// message holding Latin letters or digits such a term only matches
	// within that many adjacent words.
	Words int
}

// Result describes the outcome of Matcher.Check.
type Result struct {
	Offensive bool
	Reason    string  // one of the Reason* constants, empty when nothing matched
	Term      string  // the lexicon or allow-list term that decided the result
	Score     float64 // similarity ratio for ReasonSimilar, 1 for ReasonSubstring
}

// Matcher decides whether a message contains a banned term, either verbatim
// after normalization or as a close misspelling. It is immutable after
// construction and safe for concurrent use.
type Matcher struct {
	lexicon   []Entry
	allow     map[string]string // normalized form -> original term
	threshold float64
}

// NewMatcher creates a Matcher with the built-in lexicon, allow-list and
// DefaultThreshold.
func NewMatcher() *Matcher {
	return NewMatcherWithTerms(DefaultLexicon(), DefaultAllowList(), DefaultThreshold)
}

// NewMatcherWithTerms creates a Matcher from the given lexicon and allow-list.
// A non-positive threshold falls back to DefaultThreshold.
// Lexicon terms that normalize to the empty string are dropped since they
// would match everything. Allow-list terms are kept as is: one that
// normalizes to empty exempts messages that normalize to empty.
func NewMatcherWithTerms(terms, allow []string, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	m := &Matcher{
		lexicon:   make([]Entry, 0, len(terms)),
		allow:     make(map[string]string, len(allow)),
		threshold: threshold,
	}

	for _, term := range terms {
		n := normalize.Normalize(term)
		if n == "" {
			continue
		}
		e := Entry{Term: term, Normalized: n}
		if arabicScript(term) {
			e.Words = len(strings.Fields(term))
		}
		m.lexicon = append(m.lexicon, e)
	}

	for _, term := range allow {
		n := normalize.Normalize(term)
		if _, ok := m.allow[n]; !ok {
			m.allow[n] = term
		}
	}

	return m
}

// Lexicon returns a copy of the normalized lexicon.
func (m *Matcher) Lexicon() []Entry {
	out := make([]Entry, len(m.lexicon))
	copy(out, m.lexicon)
	return out
}

// Threshold returns the similarity ratio the matcher accepts.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// IsOffensive reports whether raw violates the offensive-language policy.
func (m *Matcher) IsOffensive(raw string) bool {
	return m.Check(raw).Offensive
}

// Check classifies raw. The allow-list is consulted against the whole
// normalized message first, then every lexicon entry is tried as a substring,
// then every token is compared against every entry by similarity ratio.
// Arabic-script entries in a mixed-script message are tried per word window
// so adjacent English words cannot spell them.
func (m *Matcher) Check(raw string) Result {
	text := normalize.Normalize(raw)

	if term, ok := m.allow[text]; ok {
		return Result{Reason: ReasonAllowListed, Term: term}
	}
	if text == "" {
		return Result{}
	}

	mixed := mixedScript(raw)
	var (
		words   []string
		windows map[int][]string
	)
	for _, e := range m.lexicon {
		if e.Words == 0 || !mixed {
			if strings.Contains(text, e.Normalized) {
				return Result{Offensive: true, Reason: ReasonSubstring, Term: e.Term, Score: 1}
			}
			continue
		}
		if words == nil {
			words = strings.Fields(raw)
			windows = make(map[int][]string)
		}
		if _, ok := windows[e.Words]; !ok {
			windows[e.Words] = wordWindows(words, e.Words)
		}
		if containsAny(windows[e.Words], e.Normalized) {
			return Result{Offensive: true, Reason: ReasonSubstring, Term: e.Term, Score: 1}
		}
	}

	for _, tok := range tokenize(text) {
		for _, e := range m.lexicon {
			if score := Similarity(tok, e.Normalized); score >= m.threshold {
				return Result{Offensive: true, Reason: ReasonSimilar, Term: e.Term, Score: score}
			}
		}
	}

	return Result{}
}

// Similarity returns 1 - distance/longest, where distance is the Levenshtein
// distance between a and b in runes and longest is the rune length of the
// longer string. Two empty strings are identical.
func Similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// wordWindows normalizes every run of n adjacent words. A message shorter
// than n words is a single window.
func wordWindows(words []string, n int) []string {
	if len(words) <= n {
		return []string{normalize.Normalize(strings.Join(words, " "))}
	}
	out := make([]string, 0, len(words)-n+1)
	for i := 0; i+n <= len(words); i++ {
		out = append(out, normalize.Normalize(strings.Join(words[i:i+n], " ")))
	}
	return out
}

func containsAny(windows []string, term string) bool {
	for _, w := range windows {
		if strings.Contains(w, term) {
			return true
		}
	}
	return false
}

func arabicScript(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Arabic, r) {
			return true
		}
	}
	return false
}

// mixedScript reports whether s holds Latin letters or ASCII digits, the
// runes the normalizer maps onto Arabic letters.
func mixedScript(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Latin, r) || (r >= '0' && r <= '9') {
			return true
		}
	}
	return false
}

// tokenize splits text into maximal runs of letters and digits. Normalized
// text holds nothing else, so it usually comes back as a single token.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
