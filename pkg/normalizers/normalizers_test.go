package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBuildingName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "latin name with spaces",
			input:    "Park Tower Minato",
			expected: "parktowerminato",
		},
		{
			name:     "full-width latin folds to half-width",
			input:    "ＰａｒｋＴｏｗｅｒ",
			expected: "parktower",
		},
		{
			name:     "ideographic space removed",
			input:    "ParkTower　Minato",
			expected: "parktowerminato",
		},
		{
			name:     "half-width katakana folds to full-width",
			input:    "ﾀﾜｰ",
			expected: "タワー",
		},
		{
			name:     "prolonged sound mark survives",
			input:    "パークタワー芝浦",
			expected: "パークタワー芝浦",
		},
		{
			name:     "middle dot removed",
			input:    "メゾン・ド・パリ",
			expected: "メゾンドパリ",
		},
		{
			name:     "hyphens and punctuation removed",
			input:    "Sun-Heights (East)",
			expected: "sunheightseast",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeBuildingName(tt.input))
		})
	}
}

func TestNormalizeBuildingName_VariantsCollide(t *testing.T) {
	// Every scraper writes this building differently; all of them must land on
	// the same identity key.
	variants := []string{
		"Park Tower Minato",
		"ParkTower　Minato",
		"ＰａｒｋＴｏｗｅｒ Ｍｉｎａｔｏ",
		"park tower minato",
	}

	want := NormalizeBuildingName(variants[0])
	for _, v := range variants {
		assert.Equal(t, want, NormalizeBuildingName(v), "variant %q", v)
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "chome banchi gou converts to hyphenated",
			input:    "東京都港区芝浦4丁目2番3号",
			expected: "東京都港区芝浦4-2-3",
		},
		{
			name:     "already hyphenated stays put",
			input:    "東京都港区芝浦4-2-3",
			expected: "東京都港区芝浦4-2-3",
		},
		{
			name:     "full-width digits fold",
			input:    "東京都港区芝浦４丁目２番３号",
			expected: "東京都港区芝浦4-2-3",
		},
		{
			name:     "banchi without gou",
			input:    "港区芝浦1番地3",
			expected: "港区芝浦1-3",
		},
		{
			name:     "en dash unified to hyphen",
			input:    "芝浦4–2–3",
			expected: "芝浦4-2-3",
		},
		{
			name:     "whitespace removed",
			input:    "東京都 港区 芝浦 4-2-3",
			expected: "東京都港区芝浦4-2-3",
		},
		{
			name:     "trailing hyphen trimmed",
			input:    "芝浦4丁目",
			expected: "芝浦4",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAddress(tt.input))
		})
	}
}

func TestNormalizeAddress_NumberingStylesCollide(t *testing.T) {
	variants := []string{
		"東京都港区芝浦4丁目2番3号",
		"東京都港区芝浦４丁目２番３号",
		"東京都港区芝浦4-2-3",
		"東京都港区芝浦 4-2-3",
	}

	want := NormalizeAddress(variants[0])
	for _, v := range variants {
		assert.Equal(t, want, NormalizeAddress(v), "variant %q", v)
	}
}

func TestNormalizeRoomNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "goushitsu suffix stripped",
			input:    "101号室",
			expected: "101",
		},
		{
			name:     "gou suffix stripped",
			input:    "101号",
			expected: "101",
		},
		{
			name:     "full-width digits with suffix",
			input:    "１０１号室",
			expected: "101",
		},
		{
			name:     "plain number unchanged",
			input:    "101",
			expected: "101",
		},
		{
			name:     "wing prefix with hyphen",
			input:    "B-201",
			expected: "b-201",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    " 305 ",
			expected: "305",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeRoomNumber(tt.input))
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Run("known normalizer applies", func(t *testing.T) {
		assert.Equal(t, "abc", Apply("ABC", "lowercase"))
	})

	t.Run("unknown normalizer passes value through", func(t *testing.T) {
		assert.Equal(t, "ABC", Apply("ABC", "does_not_exist"))
	})

	t.Run("get reports registration", func(t *testing.T) {
		_, ok := Get("building_name")
		assert.True(t, ok)
		_, ok = Get("nope")
		assert.False(t, ok)
	})

	t.Run("chain applies in order", func(t *testing.T) {
		got := ApplyChain("　Ｐａｒｋ　", "width_fold", "trim", "lowercase")
		assert.Equal(t, "park", got)
	})
}

func TestHelperNormalizers(t *testing.T) {
	assert.Equal(t, "ab1", Alphanumeric("a-b 1!"))
	assert.Equal(t, "ab", RemoveWhitespace("a　 b"))
	assert.Equal(t, "abc", WidthFold("ａｂｃ"))
}
