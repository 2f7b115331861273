// Package normalize canonicalizes chat text into a form that can be compared
// against a lexicon. It folds case, strips marks and the Arabic tatweel,
// transliterates Arabizi and mixed-script spellings into Arabic, maps
// look-alike symbols to plain Latin letters, drops everything outside the two
// alphabets and collapses stretched letters.
//
// Normalize is pure and total, and its output is a fixed point:
//
//	Normalize(Normalize(s)) == Normalize(s)
//
// The tables below are built so that no rune emitted by a later step is a key
// of an earlier one. Keep that property when editing them.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

const (
	// Tatweel is the Arabic elongation character used to stretch words
	// visually ("مـــرحبا").
	Tatweel = 'ـ'

	// arabicFirst and arabicLast bound the Arabic letters kept by the
	// alphabet filter (hamza through yeh).
	arabicFirst = 'ء'
	arabicLast  = 'ي'

	// runThreshold is the shortest run of identical runes that gets
	// collapsed to a single rune.
	runThreshold = 3
)

// arabizi maps Latin consonants, Arabizi digits and "$" onto Arabic letters.
// strings.Replacer tries keys in argument order, so digraphs are listed
// before the single letters they start with.
//
// s, t, d and h each have an emphatic counterpart (ص ط ض ح). The plain
// consonant wins; the emphatic letters are reached through the digits.
var arabizi = strings.NewReplacer(
	// digraphs
	"sh", "ش",
	"kh", "خ",
	"gh", "غ",
	"th", "ث",
	"dh", "ذ",

	// digits
	"2", "ء",
	"3", "ع",
	"5", "خ",
	"6", "ط",
	"7", "ح",
	"8", "غ",
	"9", "ق",

	// consonants
	"b", "ب",
	"t", "ت",
	"j", "ج",
	"g", "ج",
	"h", "ه",
	"d", "د",
	"r", "ر",
	"z", "ز",
	"s", "س",
	"$", "س",
	"f", "ف",
	"q", "ق",
	"k", "ك",
	"l", "ل",
	"m", "م",
	"n", "ن",
	"w", "و",
	"y", "ي",
)

// lookalikes maps decorative symbols and foreign look-alike letters onto the
// Latin letters arabizi leaves alone (a e i o u c p v x), and punctuation onto
// nothing.
var lookalikes = strings.NewReplacer(
	// leetspeak
	"@", "a",
	"4", "a",
	"0", "o",
	"1", "i",
	"!", "i",
	"|", "i",
	"€", "e",
	"¢", "c",
	"©", "c",
	"×", "x",

	// letters NFD does not decompose
	"ø", "o",
	"æ", "ae",
	"œ", "oe",
	"ı", "i",

	// Cyrillic and Greek homoglyphs
	"а", "a",
	"е", "e",
	"о", "o",
	"с", "c",
	"р", "p",
	"х", "x",
	"і", "i",
	"α", "a",
	"ε", "e",
	"ι", "i",
	"ο", "o",
	"υ", "u",

	// punctuation and noise
	".", "",
	",", "",
	"-", "",
	"_", "",
	"*", "",
	"#", "",
	"~", "",
	"^", "",
	"'", "",
	"\"", "",
	"`", "",
	"?", "",
	";", "",
	":", "",
	"/", "",
	"\\", "",
	"+", "",
	"=", "",
	"(", "",
	")", "",
	"[", "",
	"]", "",
	"{", "",
	"}", "",
	"<", "",
	">", "",
	"%", "",
	"&", "",
	"،", "",
	"؛", "",
	"؟", "",
)

// newFolder returns the mark-stripping chain. Transformers carry state, so a
// fresh chain is built per call.
func newFolder() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		width.Fold,
		norm.NFC,
	)
}

// Normalize returns the canonical form of raw. The steps run in a fixed
// order; each assumes the canonicalization done by the ones before it.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	s := strings.ToLower(raw)
	s = stripMarks(s)
	s = arabizi.Replace(s)
	s = lookalikes.Replace(s)
	s = keepAlphabet(s)
	return collapseRuns(s)
}

// stripMarks removes the tatweel and every combining mark. Arabic harakat,
// Latin accents and the hamza carried by alef forms all go.
func stripMarks(s string) string {
	s = strings.ReplaceAll(s, string(Tatweel), "")
	out, _, err := transform.String(newFolder(), s)
	if err != nil {
		return s
	}
	return out
}

// IsAlphabet reports whether r survives the alphabet filter: a lowercase
// Latin letter or an Arabic letter.
func IsAlphabet(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= arabicFirst && r <= arabicLast)
}

func keepAlphabet(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if IsAlphabet(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// collapseRuns replaces every run of runThreshold or more identical runes
// with a single rune. Shorter runs are copied through.
func collapseRuns(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(rs); {
		j := i + 1
		for j < len(rs) && rs[j] == rs[i] {
			j++
		}
		if j-i >= runThreshold {
			b.WriteRune(rs[i])
		} else {
			for k := i; k < j; k++ {
				b.WriteRune(rs[k])
			}
		}
		i = j
	}
	return b.String()
}
