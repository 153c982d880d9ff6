package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/wisteria/pkg/dedup"
)

func newTestFinder(env *testEnv) *dedup.Finder {
	return dedup.NewFinder(env.logger, env.buildings, env.exclusions, nil, dedup.DefaultConfig())
}

func TestDuplicateScanWithExclusions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	finder := newTestFinder(env)
	ctx := context.Background()

	// Same building scraped twice with cosmetic differences
	towerA := env.createBuilding(t, "パークタワー芝浦", "東京都港区芝浦4-2-3", intPtr(30))
	env.createProperty(t, towerA.ID, strPtr("101"), intPtr(1))
	env.createProperty(t, towerA.ID, strPtr("202"), intPtr(2))

	towerB := env.createBuilding(t, "パーク・タワー芝浦", "東京都港区芝浦4丁目2番3号", intPtr(30))
	env.createProperty(t, towerB.ID, strPtr("301"), intPtr(3))

	// Unrelated building with no duplicate
	env.createBuilding(t, "メゾン青山", "港区南青山1-2-3", nil)

	resp, err := finder.FindGroups(ctx, "", 0.8, 50)
	require.NoError(t, err)
	require.Len(t, resp.DuplicateGroups, 1)
	assert.Equal(t, 1, resp.TotalGroups)

	group := resp.DuplicateGroups[0]
	assert.Equal(t, towerA.ID, group.Primary.ID, "building with more properties leads the group")
	assert.Equal(t, 2, group.Primary.PropertyCount)
	require.Len(t, group.Candidates, 1)
	assert.Equal(t, towerB.ID, group.Candidates[0].Building.ID)
	assert.InDelta(t, 1.0, group.Candidates[0].Similarity, 0.001)
	assert.InDelta(t, 1.0, group.Candidates[0].Breakdown.NameSimilarity, 0.001)
	require.NotNil(t, group.Candidates[0].Breakdown.FloorsMatch)
	assert.True(t, *group.Candidates[0].Breakdown.FloorsMatch)

	var exclusionID int64
	t.Run("exclusion suppresses the pair", func(t *testing.T) {
		// Created with the ids reversed; stored normalized
		excl, err := env.exclusions.Create(ctx, towerB.ID, towerA.ID, strPtr("別棟と確認済み"), strPtr("admin@example.com"))
		require.NoError(t, err)
		assert.Less(t, excl.Building1ID, excl.Building2ID)
		exclusionID = excl.ID

		// Excluding the same pair again returns the existing row
		again, err := env.exclusions.Create(ctx, towerA.ID, towerB.ID, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, excl.ID, again.ID)

		excluded, err := env.exclusions.IsExcluded(ctx, towerB.ID, towerA.ID)
		require.NoError(t, err)
		assert.True(t, excluded)

		resp, err := finder.FindGroups(ctx, "", 0.8, 50)
		require.NoError(t, err)
		assert.Empty(t, resp.DuplicateGroups)
		assert.Equal(t, 0, resp.TotalGroups)
	})

	t.Run("deleting the exclusion restores the pair", func(t *testing.T) {
		require.NoError(t, env.exclusions.Delete(ctx, exclusionID))

		resp, err := finder.FindGroups(ctx, "", 0.8, 50)
		require.NoError(t, err)
		require.Len(t, resp.DuplicateGroups, 1)

		assertNotFound(t, env.exclusions.Delete(ctx, exclusionID))
	})
}

func TestDuplicateScanOrderingAndSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	finder := newTestFinder(env)
	ctx := context.Background()

	towerA := env.createBuilding(t, "パークタワー芝浦", "東京都港区芝浦4-2-3", nil)
	env.createProperty(t, towerA.ID, strPtr("101"), intPtr(1))
	towerB := env.createBuilding(t, "パークタワー 芝浦", "東京都港区芝浦4-2-3", nil)
	env.createProperty(t, towerB.ID, strPtr("201"), intPtr(2))

	mezonA := env.createBuilding(t, "メゾン青山", "港区南青山1-2-3", nil)
	for _, room := range []string{"101", "102", "103", "201", "202"} {
		env.createProperty(t, mezonA.ID, strPtr(room), nil)
	}
	mezonB := env.createBuilding(t, "メゾン　青山", "港区南青山1-2-3", nil)
	env.createProperty(t, mezonB.ID, strPtr("301"), nil)

	resp, err := finder.FindGroups(ctx, "", 0.8, 50)
	require.NoError(t, err)
	require.Len(t, resp.DuplicateGroups, 2)
	assert.Equal(t, 2, resp.TotalGroups)
	assert.Equal(t, mezonA.ID, resp.DuplicateGroups[0].Primary.ID, "groups ordered by primary property count")

	t.Run("limit truncates but reports the full count", func(t *testing.T) {
		resp, err := finder.FindGroups(ctx, "", 0.8, 1)
		require.NoError(t, err)
		require.Len(t, resp.DuplicateGroups, 1)
		assert.Equal(t, 2, resp.TotalGroups)
		assert.Equal(t, mezonA.ID, resp.DuplicateGroups[0].Primary.ID)
	})

	t.Run("search narrows the scan", func(t *testing.T) {
		resp, err := finder.FindGroups(ctx, "タワー", 0.8, 50)
		require.NoError(t, err)
		require.Len(t, resp.DuplicateGroups, 1)
		assert.Equal(t, towerB.ID, resp.DuplicateGroups[0].Primary.ID)
	})
}
