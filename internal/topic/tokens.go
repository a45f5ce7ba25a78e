package topic

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// minStem is the shortest stem (in runes) the suffix stripper may produce.
const minStem = 3

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a an the and or but of to in on at for with about from by as is are was were be been
		am i me my mine you your we our they their it its this that these those again still
		so very really just some any more much too not no do does did have has had feel feeling
		how what why when
		и в во на с со к ко о об от до по за из у а но или не ни же ли бы я мне меня мой моя
		ты твой мы наш они их он она оно это этот эта эти то как что снова опять очень
	`) {
		stopwords[w] = struct{}{}
	}
}

// englishSuffixes is ordered longest first; the first match wins.
var englishSuffixes = []string{
	"fulness", "iveness", "ational", "ization",
	"ation", "ement", "ments", "ingly", "ously",
	"ness", "ment", "ings", "less", "ship",
	"ful", "ous", "ive", "ety", "ity", "ies", "ing", "est", "ers",
	"ed", "ly", "es", "er",
	"s", "y",
}

var russianSuffixes = []string{
	"остью", "ость", "ости", "иями", "ями", "ами", "ого", "его", "ому", "ему",
	"ыми", "ими", "ией", "ах", "ях", "ой", "ей", "ий", "ый", "ая", "яя",
	"ое", "ее", "ые", "ие", "ов", "ев", "ам", "ям", "ом", "ем", "ию", "ия",
	"а", "я", "о", "е", "ы", "и", "у", "ю", "ь",
}

// Fold applies NFKC normalization and Unicode case folding and collapses whitespace.
func Fold(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Key is the canonical topic key used in store keys and durable rows.
func Key(label string) string {
	return strings.Join(strings.FieldsFunc(Fold(label), isSeparator), "-")
}

// LabelFromKey turns a topic key back into a readable label. Key(LabelFromKey(k)) == k.
func LabelFromKey(key string) string { return strings.ReplaceAll(key, "-", " ") }

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// Tokens returns the distinct stems of label with stop words removed.
func Tokens(label string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.FieldsFunc(Fold(label), isSeparator) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		out[Stem(w)] = struct{}{}
	}
	return out
}

// Stem strips suffixes from a folded word until none applies, so that chained
// derivations ("relationships", "relationship") reach the same stem.
func Stem(word string) string {
	suffixes := englishSuffixes
	if isCyrillic(word) {
		suffixes = russianSuffixes
	}
	for pass := 0; pass < 3; pass++ {
		next := stripOnce(word, suffixes)
		if next == word {
			break
		}
		word = next
	}
	return word
}

func stripOnce(word string, suffixes []string) string {
	n := utf8.RuneCountInString(word)
	for _, suf := range suffixes {
		if !strings.HasSuffix(word, suf) {
			continue
		}
		if n-utf8.RuneCountInString(suf) < minStem {
			continue
		}
		if suf == "s" && (strings.HasSuffix(word, "ss") || strings.HasSuffix(word, "us")) {
			continue
		}
		return strings.TrimSuffix(word, suf)
	}
	return word
}

func isCyrillic(word string) bool {
	for _, r := range word {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}
