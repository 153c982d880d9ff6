// Package fingerprint produces deterministic content hashes for scraped
// listing payloads so unchanged re-scrapes can be skipped.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Generate hashes a payload's canonical JSON form: keys sorted, excluded
// fields dropped. Exclusions use dot notation for nested fields so volatile
// source fields (scrape timestamps, result positions) never force a rewrite.
func Generate(data map[string]any, exclude ...string) string {
	excluded := make(map[string]bool, len(exclude))
	for _, f := range exclude {
		excluded[f] = true
	}

	var b strings.Builder
	canonicalize(&b, data, excluded, "")

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

// FromJSON hashes a raw JSON document
func FromJSON(data json.RawMessage, exclude ...string) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return "", err
	}
	return Generate(m, exclude...), nil
}

func canonicalize(b *strings.Builder, data any, excluded map[string]bool, path string) {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		first := true
		for _, k := range keys {
			fieldPath := k
			if path != "" {
				fieldPath = path + "." + k
			}
			if isExcluded(fieldPath, excluded) {
				continue
			}
			if !first {
				b.WriteByte(',')
			}
			first = false
			keyJSON, _ := json.Marshal(k)
			b.Write(keyJSON)
			b.WriteByte(':')
			canonicalize(b, v[k], excluded, fieldPath)
		}
		b.WriteByte('}')
	case []any:
		// Array elements share the array's path; individual indices cannot be excluded
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			canonicalize(b, item, excluded, path)
		}
		b.WriteByte(']')
	default:
		enc, _ := json.Marshal(v)
		b.Write(enc)
	}
}

// isExcluded matches exact paths and any child of an excluded parent
func isExcluded(fieldPath string, excluded map[string]bool) bool {
	if len(excluded) == 0 {
		return false
	}
	if excluded[fieldPath] {
		return true
	}
	for parent := range excluded {
		if strings.HasPrefix(fieldPath, parent+".") {
			return true
		}
	}
	return false
}

// HasChanged compares two fingerprints to detect changes
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}
