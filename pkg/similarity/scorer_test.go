package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/wisteria/pkg/models"
)

func intPtr(v int) *int { return &v }

func TestNameSimilarity(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name string
		a    string
		b    string
		min  float64
		max  float64
	}{
		{
			name: "identical names score 1",
			a:    "パークタワー芝浦",
			b:    "パークタワー芝浦",
			min:  1.0,
			max:  1.0,
		},
		{
			name: "both empty score 0",
			a:    "",
			b:    "",
			min:  0.0,
			max:  0.0,
		},
		{
			name: "trailing wing suffix stays high",
			a:    "パークタワー芝浦",
			b:    "パークタワー芝浦ウエスト",
			min:  0.8,
			max:  1.0,
		},
		{
			name: "single edit stays high",
			a:    "parktowerminato",
			b:    "parktoverminato",
			min:  0.85,
			max:  1.0,
		},
		{
			name: "unrelated names score low",
			a:    "グランメゾン芝浦",
			b:    "sunheights",
			min:  0.0,
			max:  0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.NameSimilarity(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)

			// Metric must be symmetric
			assert.InDelta(t, got, s.NameSimilarity(tt.b, tt.a), 1e-9)
		})
	}
}

func TestCompare_Renormalization(t *testing.T) {
	s := NewScorer()

	t.Run("name only when address and floors unknown", func(t *testing.T) {
		a := &models.Building{NormalizedName: "パークタワー芝浦"}
		b := &models.Building{NormalizedName: "パークタワー芝浦"}

		score, breakdown := s.Compare(a, b)
		assert.InDelta(t, 1.0, score, 1e-9)
		assert.InDelta(t, 1.0, breakdown.NameSimilarity, 1e-9)
		assert.Nil(t, breakdown.FloorsMatch)
	})

	t.Run("missing address is not penalized", func(t *testing.T) {
		withAddr := &models.Building{NormalizedName: "グランメゾン", NormalizedAddress: "港区芝浦4-2-3"}
		noAddr := &models.Building{NormalizedName: "グランメゾン"}

		score, breakdown := s.Compare(withAddr, noAddr)
		assert.InDelta(t, 1.0, score, 1e-9)
		assert.Zero(t, breakdown.AddressSimilarity)
	})

	t.Run("matching floors lift the composite", func(t *testing.T) {
		a := &models.Building{NormalizedName: "グランメゾン", TotalFloors: intPtr(14)}
		b := &models.Building{NormalizedName: "グランメゾソ", TotalFloors: intPtr(14)}

		withFloors, breakdown := s.Compare(a, b)
		assert.NotNil(t, breakdown.FloorsMatch)
		assert.True(t, *breakdown.FloorsMatch)

		a.TotalFloors = nil
		nameOnly, _ := s.Compare(a, b)
		assert.Greater(t, withFloors, nameOnly)
	})

	t.Run("mismatched floors drag the composite down", func(t *testing.T) {
		a := &models.Building{NormalizedName: "グランメゾン", TotalFloors: intPtr(14)}
		b := &models.Building{NormalizedName: "グランメゾン", TotalFloors: intPtr(3)}

		score, breakdown := s.Compare(a, b)
		assert.NotNil(t, breakdown.FloorsMatch)
		assert.False(t, *breakdown.FloorsMatch)
		assert.Less(t, score, 1.0)
		// Name weight 0.6 of 0.7 total: 0.6/0.7
		assert.InDelta(t, 0.857, score, 0.01)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := &models.Building{NormalizedName: "パークタワー芝浦", NormalizedAddress: "港区芝浦4-2-3", TotalFloors: intPtr(30)}
		b := &models.Building{NormalizedName: "パークタワー芝浦ウエスト", NormalizedAddress: "港区芝浦4-2", TotalFloors: intPtr(30)}

		ab, _ := s.Compare(a, b)
		ba, _ := s.Compare(b, a)
		assert.InDelta(t, ab, ba, 1e-9)
	})
}

func TestAddressSimilarity(t *testing.T) {
	s := NewScorer()

	t.Run("identical addresses score 1", func(t *testing.T) {
		assert.InDelta(t, 1.0, s.AddressSimilarity("港区芝浦4-2-3", "港区芝浦4-2-3"), 1e-9)
	})

	t.Run("containment floors the score", func(t *testing.T) {
		// One side missing the block suffix
		got := s.AddressSimilarity("港区芝浦4-2-3", "港区芝浦4-2")
		assert.GreaterOrEqual(t, got, 0.9)
	})

	t.Run("empty side scores 0", func(t *testing.T) {
		assert.Zero(t, s.AddressSimilarity("港区芝浦4-2-3", ""))
	})
}

func TestFloorsMatch(t *testing.T) {
	assert.Nil(t, FloorsMatch(nil, intPtr(10)))
	assert.Nil(t, FloorsMatch(intPtr(10), nil))
	assert.Nil(t, FloorsMatch(nil, nil))

	match := FloorsMatch(intPtr(10), intPtr(10))
	assert.NotNil(t, match)
	assert.True(t, *match)

	match = FloorsMatch(intPtr(10), intPtr(11))
	assert.NotNil(t, match)
	assert.False(t, *match)
}

func TestWeightedScore(t *testing.T) {
	t.Run("empty scores", func(t *testing.T) {
		assert.Zero(t, WeightedScore(nil, nil))
	})

	t.Run("single component renormalizes to itself", func(t *testing.T) {
		got := WeightedScore(map[string]float64{"name": 0.9}, map[string]float64{"name": 0.6})
		assert.InDelta(t, 0.9, got, 1e-9)
	})

	t.Run("weights bias the average", func(t *testing.T) {
		scores := map[string]float64{"name": 1.0, "address": 0.0}
		weights := map[string]float64{"name": 0.6, "address": 0.3}
		got := WeightedScore(scores, weights)
		assert.InDelta(t, 0.6/0.9, got, 1e-9)
	})

	t.Run("missing weight defaults to 1", func(t *testing.T) {
		got := WeightedScore(map[string]float64{"x": 0.5}, nil)
		assert.InDelta(t, 0.5, got, 1e-9)
	})
}

func TestJaroWinkler(t *testing.T) {
	assert.InDelta(t, 1.0, JaroWinkler("abc", "abc"), 1e-9)
	assert.Zero(t, JaroWinkler("", ""))
	assert.Zero(t, JaroWinkler("abc", ""))

	// Shared prefix boosts above plain Jaro
	jw := JaroWinkler("parktower", "parktowers")
	j := Jaro("parktower", "parktowers")
	assert.Greater(t, jw, j)
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, LevenshteinDistance("abc", "abc"))
	assert.Equal(t, 1, LevenshteinDistance("abc", "abd"))
	assert.Equal(t, 3, LevenshteinDistance("abc", ""))
	assert.Equal(t, 2, LevenshteinDistance("kitten", "sitteng"))

	assert.InDelta(t, 1.0-1.0/3.0, Levenshtein("abc", "abd"), 1e-9)
	assert.InDelta(t, 1.0, Levenshtein("", ""), 1e-9)

	// Multibyte names count runes, not bytes
	assert.Equal(t, 1, LevenshteinDistance("タワー", "タワ"))
}

func TestBigramJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, BigramJaccard("芝浦4-2-3", "芝浦4-2-3"), 1e-9)
	assert.Zero(t, BigramJaccard("", ""))
	assert.Zero(t, BigramJaccard("ab", "xy"))

	// {ab,bc,cd} vs {ab,bc,ce}: 2 shared of 4 total
	assert.InDelta(t, 0.5, BigramJaccard("abcd", "abce"), 1e-9)

	// Single-rune fallback compares the runes themselves
	assert.InDelta(t, 1.0, BigramJaccard("a", "a"), 1e-9)
	assert.Zero(t, BigramJaccard("a", "b"))
}
