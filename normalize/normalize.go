// Package normalize canonicalizes stop display text for fuzzy
// matching. Japanese operator feeds mix full-width and half-width
// forms, and stop names vary between ケ and ヶ (e.g. 市ケ尾 vs 市ヶ尾
// signage), so both sides of a lookup must be folded the same way.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Text lowercases s and applies NFKC compatibility folding
// (full-width to half-width, compatibility forms composed), then
// unifies the possessive-particle kana ケ/ヶ. Empty input yields "".
// Text is idempotent: Text(Text(s)) == Text(s).
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if r == 'ケ' {
			return 'ヶ'
		}
		return r
	}, s)
	return strings.ToLower(s)
}

// HiraToKata converts hiragana runes to their katakana counterparts,
// leaving everything else untouched. Phonetic (kana) readings in
// translations.txt are katakana, while users type queries in
// hiragana.
func HiraToKata(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ぁ' && r <= 'ゖ' {
			return r + ('ァ' - 'ぁ')
		}
		return r
	}, s)
}
