// Package similarity scores how likely two building records describe the same
// physical structure. All metrics operate on normalized strings and are
// symmetric: Compare(a, b) always equals Compare(b, a).
package similarity

import (
	"strings"

	"github.com/Ramsey-B/wisteria/pkg/models"
)

// Component weights for the composite score. Components that are undefined for
// a pair (unknown floors, missing address) are excluded and the remaining
// weights renormalized, so absence is never penalized.
const (
	defaultNameWeight    = 0.6
	defaultAddressWeight = 0.3
	defaultFloorsWeight  = 0.1
)

// Scorer computes building similarity scores
type Scorer struct {
	NameWeight    float64
	AddressWeight float64
	FloorsWeight  float64
}

// NewScorer creates a Scorer with the default component weights
func NewScorer() *Scorer {
	return &Scorer{
		NameWeight:    defaultNameWeight,
		AddressWeight: defaultAddressWeight,
		FloorsWeight:  defaultFloorsWeight,
	}
}

// Compare returns the composite similarity for two buildings in [0, 1] plus
// the per-component breakdown
func (s *Scorer) Compare(a, b *models.Building) (float64, models.SimilarityBreakdown) {
	breakdown := models.SimilarityBreakdown{
		NameSimilarity: s.NameSimilarity(a.NormalizedName, b.NormalizedName),
	}

	scores := map[string]float64{"name": breakdown.NameSimilarity}
	weights := map[string]float64{"name": s.NameWeight}

	if a.NormalizedAddress != "" && b.NormalizedAddress != "" {
		breakdown.AddressSimilarity = s.AddressSimilarity(a.NormalizedAddress, b.NormalizedAddress)
		scores["address"] = breakdown.AddressSimilarity
		weights["address"] = s.AddressWeight
	}

	if match := FloorsMatch(a.TotalFloors, b.TotalFloors); match != nil {
		breakdown.FloorsMatch = match
		floorsScore := 0.0
		if *match {
			floorsScore = 1.0
		}
		scores["floors"] = floorsScore
		weights["floors"] = s.FloorsWeight
	}

	return WeightedScore(scores, weights), breakdown
}

// NameSimilarity scores two normalized building names. Jaro-Winkler favors
// shared prefixes, which suits building names that differ in a trailing tower
// or wing suffix; the Levenshtein ratio catches edits Jaro-Winkler undervalues
// on short strings. The higher of the two wins.
func (s *Scorer) NameSimilarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0.0
		}
		return 1.0
	}
	jw := JaroWinkler(a, b)
	lev := Levenshtein(a, b)
	if lev > jw {
		return lev
	}
	return jw
}

// AddressSimilarity scores two normalized addresses by substring containment
// and character bigram overlap. Bigrams keep the metric useful for Japanese
// addresses, which carry no token separators.
func (s *Scorer) AddressSimilarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0.0
		}
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	score := BigramJaccard(a, b)

	// One address extending the other (missing block or room suffix) is a
	// strong signal that bigram overlap alone understates
	if strings.Contains(a, b) || strings.Contains(b, a) {
		if score < 0.9 {
			score = 0.9
		}
	}

	return score
}

// FloorsMatch reports exact floor-count equality, or nil when either side is
// unknown and the comparison is undefined
func FloorsMatch(a, b *int) *bool {
	if a == nil || b == nil {
		return nil
	}
	match := *a == *b
	return &match
}

// WeightedScore calculates a weighted average of scores
func WeightedScore(scores map[string]float64, weights map[string]float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}

	var totalWeight float64
	var weightedSum float64

	for field, score := range scores {
		weight := 1.0
		if w, ok := weights[field]; ok {
			weight = w
		}
		weightedSum += score * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0.0
	}

	return weightedSum / totalWeight
}

// JaroWinkler calculates the Jaro-Winkler similarity between two strings.
// Operates on runes so multibyte names score correctly.
func JaroWinkler(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0.0
		}
		return 1.0
	}

	ra := []rune(a)
	rb := []rune(b)

	jaro := jaroRunes(ra, rb)

	// Winkler modification: boost for common prefix
	prefixLen := 0
	maxPrefix := 4
	for i := 0; i < len(ra) && i < len(rb) && i < maxPrefix; i++ {
		if ra[i] == rb[i] {
			prefixLen++
		} else {
			break
		}
	}

	scalingFactor := 0.1
	return jaro + float64(prefixLen)*scalingFactor*(1.0-jaro)
}

// Jaro calculates the Jaro similarity between two strings
func Jaro(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0.0
		}
		return 1.0
	}
	return jaroRunes([]rune(a), []rune(b))
}

func jaroRunes(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	matchDist := max(len(a), len(b))/2 - 1
	if matchDist < 0 {
		matchDist = 0
	}

	aMatches := make([]bool, len(a))
	bMatches := make([]bool, len(b))

	matches := 0
	transpositions := 0

	for i := 0; i < len(a); i++ {
		start := max(0, i-matchDist)
		end := min(len(b), i+matchDist+1)

		for j := start; j < end; j++ {
			if bMatches[j] || a[i] != b[j] {
				continue
			}
			aMatches[i] = true
			bMatches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	k := 0
	for i := 0; i < len(a); i++ {
		if !aMatches[i] {
			continue
		}
		for !bMatches[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2

	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3
}

// Levenshtein calculates the edit distance between two strings as a similarity
// score between 0.0 and 1.0
func Levenshtein(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)

	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(ra, rb))/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two strings
func LevenshteinDistance(a, b string) int {
	return levenshteinDistance([]rune(a), []rune(b))
}

func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

// BigramJaccard calculates the Jaccard overlap of character bigram sets.
// Single-rune strings fall back to comparing the runes themselves.
func BigramJaccard(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0.0
		}
		return 1.0
	}

	setA := bigramSet(a)
	setB := bigramSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for gram := range setA {
		if setB[gram] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

func bigramSet(s string) map[string]bool {
	runes := []rune(s)
	set := make(map[string]bool)
	if len(runes) == 1 {
		set[string(runes)] = true
		return set
	}
	for i := 0; i+1 < len(runes); i++ {
		set[string(runes[i:i+2])] = true
	}
	return set
}
