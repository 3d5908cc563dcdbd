package hanja

// Inclusive code point ranges.
const (
	hangulStart = 0xAC00 // 44032
	hangulEnd   = 0xD7A3 // 55203

	extAStart      = 0x3400 // CJK Unified Ideographs Extension A
	extAEnd        = 0x4DBF
	unifiedStart   = 0x4E00 // CJK Unified Ideographs
	unifiedEnd     = 0x9FFF
	compatStart    = 0xF900 // CJK Compatibility Ideographs
	compatEnd      = 0xFA2D
	compatSupStart = 0xFA30
	compatSupEnd   = 0xFA6D
)

// IsLogographic reports whether r is a Hanja code point.
func IsLogographic(r rune) bool {
	switch {
	case r >= extAStart && r <= extAEnd:
		return true
	case r >= unifiedStart && r <= unifiedEnd:
		return true
	case r >= compatStart && r <= compatEnd:
		return true
	case r >= compatSupStart && r <= compatSupEnd:
		return true
	}
	return false
}

// IsHangul reports whether r is a precomposed Hangul syllable.
func IsHangul(r rune) bool {
	return r >= hangulStart && r <= hangulEnd
}

// IsHangulOrLogographic is the lookahead predicate for the initial-sound
// adjustment.
func IsHangulOrLogographic(r rune) bool {
	return IsHangul(r) || IsLogographic(r)
}
