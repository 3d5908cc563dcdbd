package hanja

import "strings"

// Convert replaces Hanja in input with their Hangul readings.
//
// At each position the longest run of consecutive Hanja is looked up as a
// whole in the word table. On a miss exactly one rune is consumed through the
// character table, so later iterations only ever offer suffixes of the run to
// the word table. A substituted character is passed through the initial-sound
// table when the rune after it is Hangul or Hanja.
//
// The result reports unchanged when no substitution happened anywhere, even
// if input contained Hanja.
func (d *Dictionary) Convert(input string) Result {
	if d == nil {
		return Unchanged()
	}

	runes := []rune(input)
	var out strings.Builder
	out.Grow(len(input))
	converted := false

	// end of the current maximal run; every suffix of a run ends at the same
	// place so it only needs recomputing once the cursor leaves the run
	runEnd := 0
	for i := 0; i < len(runes); {
		if i >= runEnd {
			runEnd = i
			for runEnd < len(runes) && IsLogographic(runes[runEnd]) {
				runEnd++
			}
		}

		if n := runEnd - i; n > 0 && n <= d.maxWordLen {
			if word, ok := d.words[string(runes[i:runEnd])]; ok {
				out.WriteString(word)
				converted = true
				i = runEnd
				continue
			}
		}

		c := runes[i]
		i++
		if !IsLogographic(c) {
			out.WriteRune(c)
			continue
		}

		if v, ok := d.chars[c]; ok {
			c = v
			converted = true
		}
		if i < len(runes) && IsHangulOrLogographic(runes[i]) {
			if v, ok := d.initials[c]; ok {
				c = v
			}
		}
		out.WriteRune(c)
	}

	if !converted {
		return Unchanged()
	}
	return Converted(out.String())
}
