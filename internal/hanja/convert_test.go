package hanja

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDictionary(chars, initials, words map[string]string) *Dictionary {
	toEntries := func(m map[string]string) []Entry {
		var entries []Entry
		for k, v := range m {
			entries = append(entries, Entry{Key: k, Value: v})
		}
		return entries
	}
	return Build(toEntries(chars), toEntries(initials), toEntries(words))
}

func requireConverted(t *testing.T, r Result) string {
	t.Helper()
	got, ok := r.Value()
	require.True(t, ok, "expected a conversion")
	return got
}

func TestConvertWordMatch(t *testing.T) {
	d := newTestDictionary(nil, nil, map[string]string{"女子": "여자"})

	assert.Equal(t, "여자", requireConverted(t, d.Convert("女子")))
}

func TestConvertSingleCharacterWithoutFollowingRune(t *testing.T) {
	d := newTestDictionary(map[string]string{"李": "리"}, map[string]string{"리": "이"}, nil)

	assert.Equal(t, "리", requireConverted(t, d.Convert("李")))
}

func TestConvertSingleCharacterWithInitialSoundAdjustment(t *testing.T) {
	d := newTestDictionary(map[string]string{"李": "리"}, map[string]string{"리": "이"}, nil)

	assert.Equal(t, "이씨", requireConverted(t, d.Convert("李씨")))
}

func TestConvertInitialSoundAdjustmentContexts(t *testing.T) {
	d := newTestDictionary(
		map[string]string{"李": "리", "女": "녀", "子": "자"},
		map[string]string{"리": "이", "녀": "여"},
		nil,
	)

	tests := []struct {
		input string
		want  string
	}{
		{"李 씨", "리 씨"}, // space blocks the adjustment
		{"李a", "리a"},   // so does latin
		{"李.", "리."},
		{"李女", "이녀"}, // next rune is Hanja
		{"女子", "여자"}, // run miss, char path, next is Hanja
		{"씨李", "씨리"},
		{"李李李", "이이리"},
	}
	for _, tt := range tests {
		got := requireConverted(t, d.Convert(tt.input))
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestConvertRunMissFallsBackToSuffixes(t *testing.T) {
	d := newTestDictionary(
		map[string]string{"女": "여"},
		nil,
		map[string]string{"子李": "자리"},
	)

	// the full run misses, 女 goes through the character table and the
	// remaining suffix is matched as a word on the next pass
	assert.Equal(t, "여자리", requireConverted(t, d.Convert("女子李")))
}

func TestConvertNeverRetriesPrefixes(t *testing.T) {
	d := newTestDictionary(nil, nil, map[string]string{"女子": "여자"})

	// 女子 is a prefix of the run 女子李 and is never offered to the word table
	assert.False(t, d.Convert("女子李").Converted())
	// separated by a non-Hanja rune it is its own run
	assert.Equal(t, "여자 李", requireConverted(t, d.Convert("女子 李")))
}

func TestConvertKeepsUnknownHanja(t *testing.T) {
	d := newTestDictionary(map[string]string{"李": "리"}, nil, nil)

	assert.Equal(t, "리漢 abc", requireConverted(t, d.Convert("李漢 abc")))
}

func TestConvertWordMatchSkipsAdjustment(t *testing.T) {
	d := newTestDictionary(
		map[string]string{"五": "오", "六": "륙", "月": "월"},
		map[string]string{"륙": "육"},
		map[string]string{"六月": "유월"},
	)

	assert.Equal(t, "유월에", requireConverted(t, d.Convert("六月에")))
	assert.Equal(t, "오유월", requireConverted(t, d.Convert("五六月")))
}

func TestConvertUnchanged(t *testing.T) {
	d := newTestDictionary(
		map[string]string{"李": "리"},
		map[string]string{"리": "이"},
		map[string]string{"女子": "여자"},
	)

	for _, input := range []string{"", "hello, world", "한국어 문장입니다", "漢字"} {
		r := d.Convert(input)
		assert.False(t, r.Converted(), "input %q", input)
		got, ok := r.Value()
		assert.False(t, ok)
		assert.Empty(t, got)
	}
}

func TestConvertEmptyDictionary(t *testing.T) {
	d := Build(nil, nil, nil)
	for _, input := range []string{"女子", "李씨", "abc", "한글"} {
		assert.False(t, d.Convert(input).Converted(), "input %q", input)
	}

	var nilDict *Dictionary
	assert.False(t, nilDict.Convert("女子").Converted())
	assert.Equal(t, Stats{}, nilDict.Stats())
}

func TestConvertOutputIsStable(t *testing.T) {
	d, err := LoadEmbedded()
	require.NoError(t, err)

	for _, input := range []string{"女子", "李씨", "大韓民國", "男女가 學校에 간다", "五六月"} {
		out := requireConverted(t, d.Convert(input))
		for _, r := range out {
			require.False(t, IsLogographic(r), "leftover Hanja in %q", out)
		}
		assert.False(t, d.Convert(out).Converted(), "re-converting %q", out)
	}
}

func TestConvertEmbeddedDictionary(t *testing.T) {
	d, err := LoadEmbedded()
	require.NoError(t, err)

	tests := []struct {
		input string
		want  string
	}{
		{"女子", "여자"},
		{"李", "리"},
		{"李씨", "이씨"},
		{"大韓民國", "대한민국"},
		{"男女", "남녀"},
		{"六月", "유월"},
		{"\uf9e1", "리"}, // compatibility ideograph
		{"學校에 간다", "학교에 간다"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, requireConverted(t, d.Convert(tt.input)), "input %q", tt.input)
	}
}

func TestConvertConcurrentCallers(t *testing.T) {
	d, err := LoadEmbedded()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				got, ok := d.Convert("大韓民國 女子").Value()
				assert.True(t, ok)
				assert.Equal(t, "대한민국 여자", got)
			}
		}()
	}
	wg.Wait()
}

func TestResultOr(t *testing.T) {
	assert.Equal(t, "fallback", Unchanged().Or("fallback"))
	assert.Equal(t, "", Converted("").Or("fallback"))
	assert.Equal(t, "여자", Converted("여자").Or("fallback"))

	var zero Result
	assert.False(t, zero.Converted())
}
