package fingerprint

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSON_KeyOrderIndependent(t *testing.T) {
	a, err := FromJSON(json.RawMessage(`{"title": "3LDK 芝浦", "price": 50000000, "building": {"name": "パークタワー", "floors": 30}}`))
	require.NoError(t, err)

	b, err := FromJSON(json.RawMessage(`{"building": {"floors": 30, "name": "パークタワー"}, "price": 50000000, "title": "3LDK 芝浦"}`))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // hex-encoded sha256
}

func TestFromJSON_ValueChangesHash(t *testing.T) {
	a, err := FromJSON(json.RawMessage(`{"price": 50000000}`))
	require.NoError(t, err)

	b, err := FromJSON(json.RawMessage(`{"price": 49800000}`))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestFromJSON_InvalidJSON(t *testing.T) {
	_, err := FromJSON(json.RawMessage(`{not json`))
	assert.Error(t, err)
}

func TestGenerate_Exclusions(t *testing.T) {
	t.Run("excluded field does not affect the hash", func(t *testing.T) {
		a := Generate(map[string]any{"price": 1, "scraped_at": "2026-08-01T00:00:00Z"}, "scraped_at")
		b := Generate(map[string]any{"price": 1, "scraped_at": "2026-08-02T12:30:00Z"}, "scraped_at")
		assert.Equal(t, a, b)
	})

	t.Run("nested field excluded by dot path", func(t *testing.T) {
		a := Generate(map[string]any{
			"building": map[string]any{"name": "タワー", "observed_at": "a"},
		}, "building.observed_at")
		b := Generate(map[string]any{
			"building": map[string]any{"name": "タワー", "observed_at": "b"},
		}, "building.observed_at")
		assert.Equal(t, a, b)
	})

	t.Run("excluding a parent drops its children", func(t *testing.T) {
		a := Generate(map[string]any{
			"price": 1,
			"meta":  map[string]any{"position": 3, "page": 1},
		}, "meta")
		b := Generate(map[string]any{
			"price": 1,
			"meta":  map[string]any{"position": 9, "page": 4},
		}, "meta")
		assert.Equal(t, a, b)
	})

	t.Run("non-excluded field still changes the hash", func(t *testing.T) {
		a := Generate(map[string]any{"price": 1, "scraped_at": "x"}, "scraped_at")
		b := Generate(map[string]any{"price": 2, "scraped_at": "x"}, "scraped_at")
		assert.NotEqual(t, a, b)
	})
}

func TestGenerate_ArrayOrderMatters(t *testing.T) {
	a := Generate(map[string]any{"photos": []any{"1.jpg", "2.jpg"}})
	b := Generate(map[string]any{"photos": []any{"2.jpg", "1.jpg"}})
	assert.NotEqual(t, a, b)
}

func TestHasChanged(t *testing.T) {
	assert.False(t, HasChanged("abc", "abc"))
	assert.True(t, HasChanged("abc", "abd"))
	assert.True(t, HasChanged("", "abc"))
}
