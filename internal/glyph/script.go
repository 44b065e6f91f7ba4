// Package glyph classifies practice characters by Japanese script.
package glyph

import "unicode/utf8"

// Script identifies the writing system a practice glyph belongs to.
type Script string

const (
	Hiragana Script = "hiragana"
	Katakana Script = "katakana"
	Kanji    Script = "kanji"
	Other    Script = "other"
)

// Unicode block ranges used for classification.
const (
	hiraganaFirst = 0x3040
	hiraganaLast  = 0x309F
	katakanaFirst = 0x30A0
	katakanaLast  = 0x30FF
	kanjiFirst    = 0x4E00
	kanjiLast     = 0x9FAF
)

// Classify returns the script of the first rune in s.
// An empty or invalid string is Other.
func Classify(s string) Script {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return Other
	}
	switch {
	case r >= hiraganaFirst && r <= hiraganaLast:
		return Hiragana
	case r >= katakanaFirst && r <= katakanaLast:
		return Katakana
	case r >= kanjiFirst && r <= kanjiLast:
		return Kanji
	default:
		return Other
	}
}

// Difficulty is a coarse 0..3 rating used for labelling: kana are easier
// than kanji, and anything outside the three scripts is unrated.
func Difficulty(s string) int {
	switch Classify(s) {
	case Hiragana:
		return 1
	case Katakana:
		return 2
	case Kanji:
		return 3
	default:
		return 0
	}
}

// IsSingle reports whether s is exactly one rune, which is what a
// practice target is expected to be.
func IsSingle(s string) bool {
	return utf8.RuneCountInString(s) == 1
}
