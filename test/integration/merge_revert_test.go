package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/wisteria/pkg/models"
)

func TestMergeBuildings(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	ctx := context.Background()

	primary := env.createBuilding(t, "パークタワー芝浦", "", nil)
	env.createProperty(t, primary.ID, strPtr("101"), intPtr(1))
	env.createProperty(t, primary.ID, strPtr("202"), intPtr(2))

	secondary := env.createBuilding(t, "ﾊﾟｰｸﾀﾜｰ芝浦", "東京都港区芝浦4-2-3", intPtr(30))
	movedProp := env.createProperty(t, secondary.ID, strPtr("301"), intPtr(3))

	result, err := env.engine.MergeBuildings(ctx, &models.MergeBuildingsRequest{
		PrimaryID:    primary.ID,
		SecondaryIDs: []int64{secondary.ID},
	}, strPtr("admin@example.com"))
	require.NoError(t, err)

	assert.Equal(t, 1, result.MergedCount)
	assert.Equal(t, 1, result.MovedProperties)
	assert.Greater(t, result.HistoryID, int64(0))
	assert.Equal(t, 3, result.PrimaryBuilding.PropertyCount, "primary owns all three properties after the merge")

	// Secondary is tombstoned, pointing at the primary and the history entry
	absorbed, err := env.buildings.Get(ctx, secondary.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BuildingStatusAbsorbed, absorbed.Status)
	require.NotNil(t, absorbed.AbsorbedIntoID)
	assert.Equal(t, primary.ID, *absorbed.AbsorbedIntoID)
	require.NotNil(t, absorbed.AbsorbedHistoryID)
	assert.Equal(t, result.HistoryID, *absorbed.AbsorbedHistoryID)

	// The secondary's property now belongs to the primary and stays active
	moved, err := env.properties.Get(ctx, movedProp.ID)
	require.NoError(t, err)
	assert.Equal(t, primary.ID, moved.BuildingID)
	assert.Equal(t, models.PropertyStatusActive, moved.Status)

	// Attributes the primary was missing were filled from the secondary
	refreshed, err := env.buildings.Get(ctx, primary.ID)
	require.NoError(t, err)
	assert.Equal(t, "東京都港区芝浦4-2-3", refreshed.Address)
	require.NotNil(t, refreshed.TotalFloors)
	assert.Equal(t, 30, *refreshed.TotalFloors)

	history, err := env.buildingHistories.Get(ctx, result.HistoryID)
	require.NoError(t, err)
	assert.Equal(t, primary.ID, history.PrimaryBuildingID)
	assert.Equal(t, []int64{secondary.ID}, history.SecondaryBuildingIDs)
	assert.Equal(t, 1, history.MovedPropertiesCount)
	assert.Equal(t, []models.MovedProperty{{PropertyID: movedProp.ID, PreviousBuildingID: secondary.ID}}, history.MergeDetails.MovedProperties)
	assert.Equal(t, models.PrimaryFilledFields{Address: true, TotalFloors: true}, history.MergeDetails.PrimaryFilled)
	require.NotNil(t, history.MergedBy)
	assert.Equal(t, "admin@example.com", *history.MergedBy)
	assert.False(t, history.IsReverted())
}

func TestMergeBuildings_Rejections(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	ctx := context.Background()

	b1 := env.createBuilding(t, "メゾン青山", "港区南青山1-2-3", nil)
	b2 := env.createBuilding(t, "メゾン青山", "港区南青山1-2-3", nil)
	b3 := env.createBuilding(t, "メゾン青山アネックス", "港区南青山1-2-4", nil)

	t.Run("merging into itself", func(t *testing.T) {
		_, err := env.engine.MergeBuildings(ctx, &models.MergeBuildingsRequest{
			PrimaryID:    b1.ID,
			SecondaryIDs: []int64{b1.ID},
		}, nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("unknown secondary", func(t *testing.T) {
		_, err := env.engine.MergeBuildings(ctx, &models.MergeBuildingsRequest{
			PrimaryID:    b1.ID,
			SecondaryIDs: []int64{999999999},
		}, nil)
		assertNotFound(t, err)
	})

	t.Run("excluded pair", func(t *testing.T) {
		_, err := env.exclusions.Create(ctx, b1.ID, b2.ID, strPtr("別棟と確認済み"), strPtr("admin"))
		require.NoError(t, err)

		_, err = env.engine.MergeBuildings(ctx, &models.MergeBuildingsRequest{
			PrimaryID:    b1.ID,
			SecondaryIDs: []int64{b2.ID},
		}, nil)
		assertConflict(t, err)
	})

	t.Run("absorbed secondary", func(t *testing.T) {
		_, err := env.engine.MergeBuildings(ctx, &models.MergeBuildingsRequest{
			PrimaryID:    b1.ID,
			SecondaryIDs: []int64{b3.ID},
		}, nil)
		require.NoError(t, err)

		// b3 was just absorbed; merging it again must fail
		_, err = env.engine.MergeBuildings(ctx, &models.MergeBuildingsRequest{
			PrimaryID:    b2.ID,
			SecondaryIDs: []int64{b3.ID},
		}, nil)
		assertConflict(t, err)

		// And an absorbed building cannot be a primary either
		_, err = env.engine.MergeBuildings(ctx, &models.MergeBuildingsRequest{
			PrimaryID:    b3.ID,
			SecondaryIDs: []int64{b2.ID},
		}, nil)
		assertConflict(t, err)
	})
}

func TestRevertBuildingMerge(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	ctx := context.Background()

	primary := env.createBuilding(t, "パークタワー芝浦", "", nil)
	env.createProperty(t, primary.ID, strPtr("101"), intPtr(1))

	secondary := env.createBuilding(t, "パークタワー芝浦", "東京都港区芝浦4-2-3", intPtr(30))
	movedProp := env.createProperty(t, secondary.ID, strPtr("301"), intPtr(3))

	result, err := env.engine.MergeBuildings(ctx, &models.MergeBuildingsRequest{
		PrimaryID:    primary.ID,
		SecondaryIDs: []int64{secondary.ID},
	}, strPtr("admin@example.com"))
	require.NoError(t, err)

	history, err := env.engine.RevertBuildingMerge(ctx, result.HistoryID, strPtr("ops@example.com"))
	require.NoError(t, err)
	assert.True(t, history.IsReverted())
	require.NotNil(t, history.RevertedBy)
	assert.Equal(t, "ops@example.com", *history.RevertedBy)

	// The secondary is active again with its tombstone cleared
	restored, err := env.buildings.Get(ctx, secondary.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BuildingStatusActive, restored.Status)
	assert.Nil(t, restored.AbsorbedIntoID)
	assert.Nil(t, restored.AbsorbedHistoryID)
	assert.Equal(t, 1, restored.PropertyCount)

	// The moved property went back to its previous owner
	prop, err := env.properties.Get(ctx, movedProp.ID)
	require.NoError(t, err)
	assert.Equal(t, secondary.ID, prop.BuildingID)

	// Attributes the merge filled onto the primary are cleared again
	cleared, err := env.buildings.Get(ctx, primary.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.Address)
	assert.Nil(t, cleared.TotalFloors)
	assert.Equal(t, 1, cleared.PropertyCount)

	t.Run("second revert", func(t *testing.T) {
		_, err := env.engine.RevertBuildingMerge(ctx, result.HistoryID, nil)
		assertConflict(t, err)
	})

	t.Run("unknown history", func(t *testing.T) {
		_, err := env.engine.RevertBuildingMerge(ctx, 999999999, nil)
		assertNotFound(t, err)
	})

	t.Run("re-merge after revert", func(t *testing.T) {
		result, err := env.engine.MergeBuildings(ctx, &models.MergeBuildingsRequest{
			PrimaryID:    primary.ID,
			SecondaryIDs: []int64{secondary.ID},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.MovedProperties, "reverted buildings can merge again")
	})
}

func TestDeleteBuildingMergeHistory(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	ctx := context.Background()

	primary := env.createBuilding(t, "リバーサイド品川", "品川区東品川2-1-1", nil)
	secondary := env.createBuilding(t, "リバーサイド品川", "", nil)
	movedProp := env.createProperty(t, secondary.ID, strPtr("405"), intPtr(4))

	result, err := env.engine.MergeBuildings(ctx, &models.MergeBuildingsRequest{
		PrimaryID:    primary.ID,
		SecondaryIDs: []int64{secondary.ID},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, env.buildingHistories.Delete(ctx, result.HistoryID))

	// Deleting the audit row does not undo the merge
	absorbed, err := env.buildings.Get(ctx, secondary.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BuildingStatusAbsorbed, absorbed.Status)

	moved, err := env.properties.Get(ctx, movedProp.ID)
	require.NoError(t, err)
	assert.Equal(t, primary.ID, moved.BuildingID)

	t.Run("deleted entry can no longer be reverted", func(t *testing.T) {
		_, err := env.engine.RevertBuildingMerge(ctx, result.HistoryID, nil)
		assertNotFound(t, err)
	})

	t.Run("second delete", func(t *testing.T) {
		assertNotFound(t, env.buildingHistories.Delete(ctx, result.HistoryID))
	})
}

func TestMergeProperties(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	ctx := context.Background()

	bld := env.createBuilding(t, "コーポ桜", "世田谷区桜1-2-3", nil)
	primary := env.createProperty(t, bld.ID, strPtr("101"), nil)
	secondary := env.createProperty(t, bld.ID, strPtr("101"), intPtr(1))

	env.createListing(t, primary.ID, "suumo", "a-1", int64Ptr(95000))
	env.createListing(t, secondary.ID, "homes", "b-1", int64Ptr(98000))
	env.createListing(t, secondary.ID, "athome", "c-1", nil)

	result, err := env.engine.MergeProperties(ctx, &models.MergePropertiesRequest{
		PrimaryPropertyID:   primary.ID,
		SecondaryPropertyID: secondary.ID,
	}, strPtr("admin@example.com"))
	require.NoError(t, err)

	assert.Equal(t, 2, result.MovedListings)
	assert.Equal(t, 3, result.PrimaryProperty.ListingCount)
	require.NotNil(t, result.PrimaryProperty.FloorNumber)
	assert.Equal(t, 1, *result.PrimaryProperty.FloorNumber, "floor filled from the secondary")

	owned, err := env.listings.ListByProperty(ctx, primary.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 3)

	absorbed, err := env.properties.Get(ctx, secondary.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyStatusAbsorbed, absorbed.Status)
	require.NotNil(t, absorbed.AbsorbedIntoID)
	assert.Equal(t, primary.ID, *absorbed.AbsorbedIntoID)

	t.Run("merging into itself", func(t *testing.T) {
		_, err := env.engine.MergeProperties(ctx, &models.MergePropertiesRequest{
			PrimaryPropertyID:   primary.ID,
			SecondaryPropertyID: primary.ID,
		}, nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("absorbed secondary", func(t *testing.T) {
		third := env.createProperty(t, bld.ID, strPtr("102"), intPtr(1))
		_, err := env.engine.MergeProperties(ctx, &models.MergePropertiesRequest{
			PrimaryPropertyID:   third.ID,
			SecondaryPropertyID: secondary.ID,
		}, nil)
		assertConflict(t, err)
	})

	t.Run("revert", func(t *testing.T) {
		history, err := env.engine.RevertPropertyMerge(ctx, result.HistoryID, strPtr("ops@example.com"))
		require.NoError(t, err)
		assert.True(t, history.IsReverted())

		// Listings are back on the secondary, which is active again
		back, err := env.listings.ListByProperty(ctx, secondary.ID)
		require.NoError(t, err)
		assert.Len(t, back, 2)

		restored, err := env.properties.Get(ctx, secondary.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PropertyStatusActive, restored.Status)
		assert.Nil(t, restored.AbsorbedIntoID)

		// The filled floor number is cleared off the primary
		cleared, err := env.properties.Get(ctx, primary.ID)
		require.NoError(t, err)
		assert.Nil(t, cleared.FloorNumber)
		assert.Equal(t, 1, cleared.ListingCount)

		_, err = env.engine.RevertPropertyMerge(ctx, result.HistoryID, nil)
		assertConflict(t, err)
	})
}
