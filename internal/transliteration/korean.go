package transliteration

import "strings"

const (
	hangulBase = 0xAC00
	jongN      = 28
	jungN      = 21
	// index of the silent initial ㅇ
	choSilent = 11
)

var (
	choseong = []string{
		"g", "kk", "n", "d", "tt", "r", "m", "b", "pp",
		"s", "ss", "", "j", "jj", "ch", "k", "t", "p", "h",
	}
	jungseong = []string{
		"a", "ae", "ya", "yae", "eo", "e", "yeo", "ye", "o",
		"wa", "wae", "oe", "yo", "u", "wo", "we", "wi", "yu",
		"eu", "ui", "i",
	}
	// final consonant carried into a following vowel (꿈을 → kkumeul)
	jongLinked = []string{
		"", "g", "kk", "ks", "n", "nj", "nh", "d", "l", "lg",
		"lm", "lb", "ls", "lt", "lp", "lh", "m", "b", "ps",
		"s", "ss", "ng", "j", "ch", "k", "t", "p", "h",
	}
	// final consonant before another consonant or at the end (국 → guk)
	jongCoda = []string{
		"", "k", "k", "k", "n", "n", "n", "t", "l", "k",
		"m", "l", "l", "l", "p", "l", "m", "p", "p",
		"t", "t", "ng", "t", "t", "k", "t", "p", "t",
	}
)

type syllable struct {
	cho, jung, jong int
}

func decompose(r rune) (syllable, bool) {
	code := int(r) - hangulBase
	if code < 0 || code >= jongN*jungN*19 {
		return syllable{}, false
	}
	return syllable{
		cho:  code / (jongN * jungN),
		jung: (code / jongN) % jungN,
		jong: code % jongN,
	}, true
}

func romanizeKorean(runes []rune) string {
	var b strings.Builder
	for i, r := range runes {
		s, ok := decompose(r)
		if !ok {
			b.WriteRune(r)
			continue
		}
		b.WriteString(choseong[s.cho])
		b.WriteString(jungseong[s.jung])
		if s.jong == 0 {
			continue
		}
		next, nextOK := syllable{}, false
		if i+1 < len(runes) {
			next, nextOK = decompose(runes[i+1])
		}
		if nextOK && next.cho == choSilent {
			b.WriteString(jongLinked[s.jong])
		} else {
			b.WriteString(jongCoda[s.jong])
		}
	}
	return b.String()
}
