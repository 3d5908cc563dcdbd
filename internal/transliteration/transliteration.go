// Package transliteration renders Hangul in the Revised Romanization of Korean.
package transliteration

import (
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/samber/lo"
)

// Romanize romanizes every Hangul syllable in text and copies everything else
// through. It returns "" when text has no Hangul syllables.
func Romanize(text string) string {
	runes := []rune(text)
	if !lo.SomeBy(runes, hanja.IsHangul) {
		return ""
	}
	return romanizeKorean(runes)
}
