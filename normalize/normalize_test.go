package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	for _, tc := range []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"ascii_lowercased", "Yokohama STATION", "yokohama station"},
		{"fullwidth_ascii_folded", "ＡＢＣ１２３", "abc123"},
		{"halfwidth_katakana_folded", "ｼﾔｸｼﾖﾏｴ", "シヤクシヨマエ"},
		{"small_ke_unified", "市ケ尾", "市ヶ尾"},
		{"kana_untouched", "みなとみらい", "みなとみらい"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Text(tc.input))
		})
	}
}

func TestTextIdempotent(t *testing.T) {
	for _, s := range []string{"市ケ尾駅前", "ＹＯＫＯＨＡＭＡ", "ｾﾝﾀｰ北", "centre"} {
		once := Text(s)
		assert.Equal(t, once, Text(once), "normalizing %q twice changed it", s)
	}
}

func TestHiraToKata(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected string
	}{
		{"みなとみらい", "ミナトミライ"},
		{"しやくしよまえ", "シヤクシヨマエ"},
		{"ヶ丘", "ヶ丘"},
		{"mixed あcd", "mixed アcd"},
		{"", ""},
	} {
		assert.Equal(t, tc.expected, HiraToKata(tc.input))
	}
}
