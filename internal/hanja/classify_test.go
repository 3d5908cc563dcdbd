package hanja

import "testing"

func TestIsLogographic(t *testing.T) {
	tests := []struct {
		r    rune
		want bool
	}{
		{13311, false},
		{13312, true},
		{19903, true},
		{19904, false},
		{19967, false},
		{19968, true},
		{'漢', true},
		{40959, true},
		{40960, false},
		{63743, false},
		{63744, true},
		{64045, true},
		{64046, false},
		{64047, false},
		{64048, true},
		{64109, true},
		{64110, false},
		{'한', false},
		{'a', false},
		{'あ', false},
	}
	for _, tt := range tests {
		if got := IsLogographic(tt.r); got != tt.want {
			t.Errorf("IsLogographic(%U) = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestIsHangulOrLogographic(t *testing.T) {
	tests := []struct {
		r    rune
		want bool
	}{
		{44031, false},
		{44032, true},
		{'씨', true},
		{55203, true},
		{55204, false},
		{'ㄱ', false}, // compatibility jamo is not a syllable
		{'李', true},
		{' ', false},
		{'.', false},
	}
	for _, tt := range tests {
		if got := IsHangulOrLogographic(tt.r); got != tt.want {
			t.Errorf("IsHangulOrLogographic(%U) = %v, want %v", tt.r, got, tt.want)
		}
	}
}
