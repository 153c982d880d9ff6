// Package normalizers provides string normalization for building and property
// identity keys. Scraped sources mix full-width and half-width characters,
// ideographic spaces, and several address numbering styles for the same
// physical place, so everything is folded to one canonical form before
// comparison or storage.
package normalizers

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

var (
	chomeRe     = regexp.MustCompile(`(\d+)丁目`)
	banchiRe    = regexp.MustCompile(`(\d+)番地?`)
	gouRe       = regexp.MustCompile(`(\d+)号`)
	roomRe      = regexp.MustCompile(`(号室|号)$`)
	hyphenRunRe = regexp.MustCompile(`-{2,}`)
)

// dashes maps the dash variants scrapers produce onto ASCII hyphen
var dashes = map[rune]bool{
	'‐': true, // hyphen
	'‒': true, // figure dash
	'–': true, // en dash
	'—': true, // em dash
	'−': true, // minus sign
}

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("building_name", NormalizeBuildingName)
	Register("address", NormalizeAddress)
	Register("room_number", NormalizeRoomNumber)
	Register("width_fold", WidthFold)
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("whitespace", RemoveWhitespace)
	Register("alphanumeric", Alphanumeric)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value. Unknown names return the
// value unchanged.
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// WidthFold folds full-width Latin and half-width katakana to canonical widths
func WidthFold(s string) string {
	return width.Fold.String(s)
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// RemoveWhitespace removes all whitespace, including ideographic spaces
func RemoveWhitespace(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Alphanumeric keeps only letters and digits
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizeBuildingName produces the deduplication key for a building name:
// width-folded, lowercased, with whitespace, punctuation, and symbols removed.
// "Park Tower Minato" and "ParkTower　Minato" normalize identically; the
// prolonged sound mark in katakana names like タワー survives.
func NormalizeBuildingName(s string) string {
	s = width.Fold.String(s)
	s = strings.ToLower(s)

	var result strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

// NormalizeAddress produces the deduplication key for an address: width-folded,
// lowercased, whitespace removed, with 丁目/番地/号 numbering converted to the
// hyphenated form so "1丁目2番3号" and "1-2-3" normalize identically.
func NormalizeAddress(s string) string {
	s = width.Fold.String(s)
	s = strings.ToLower(s)
	s = RemoveWhitespace(s)

	s = chomeRe.ReplaceAllString(s, "$1-")
	s = banchiRe.ReplaceAllString(s, "$1-")
	s = gouRe.ReplaceAllString(s, "$1")

	var result strings.Builder
	for _, r := range s {
		switch {
		case r == '-' || dashes[r]:
			result.WriteRune('-')
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			result.WriteRune(r)
		}
	}

	out := hyphenRunRe.ReplaceAllString(result.String(), "-")
	return strings.Trim(out, "-")
}

// NormalizeRoomNumber canonicalizes a room label for property matching:
// width-folded, lowercased, 号室/号 suffix stripped, keeping letters, digits,
// and hyphens. "１０１号室" and "101" normalize identically.
func NormalizeRoomNumber(s string) string {
	s = width.Fold.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	s = roomRe.ReplaceAllString(s, "")

	var result strings.Builder
	for _, r := range s {
		switch {
		case r == '-' || dashes[r]:
			result.WriteRune('-')
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			result.WriteRune(r)
		}
	}
	return result.String()
}
