package merging

import (
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/wisteria/pkg/models"
)

func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func TestValidateMergeSet(t *testing.T) {
	tests := []struct {
		name         string
		primaryID    int64
		secondaryIDs []int64
		wantStatus   int
	}{
		{
			name:         "single secondary",
			primaryID:    1,
			secondaryIDs: []int64{2},
		},
		{
			name:         "multiple secondaries",
			primaryID:    1,
			secondaryIDs: []int64{2, 3, 4},
		},
		{
			name:         "primary merged into itself",
			primaryID:    1,
			secondaryIDs: []int64{2, 1},
			wantStatus:   http.StatusBadRequest,
		},
		{
			name:         "duplicate secondary",
			primaryID:    1,
			secondaryIDs: []int64{2, 3, 2},
			wantStatus:   http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateMergeSet(tt.primaryID, tt.secondaryIDs)
			if tt.wantStatus == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, httperror.IsHTTPError(err), "expected HTTP error, got: %v", err)
			assert.Equal(t, tt.wantStatus, httperror.GetStatusCode(err))
		})
	}
}

func TestFillPrimaryBuilding(t *testing.T) {
	t.Run("fills missing fields in request order", func(t *testing.T) {
		primary := &models.Building{ID: 1, Name: "パークタワー"}
		byID := map[int64]*models.Building{
			2: {ID: 2, Address: "港区芝浦4-2-3", NormalizedAddress: "港区芝浦4-2-3"},
			3: {ID: 3, Address: "港区芝浦9-9-9", NormalizedAddress: "港区芝浦9-9-9", TotalFloors: intPtr(30)},
		}

		filled := fillPrimaryBuilding(primary, byID, []int64{2, 3})

		// Address comes from building 2, the first secondary that has one
		assert.Equal(t, "港区芝浦4-2-3", primary.Address)
		assert.Equal(t, "港区芝浦4-2-3", primary.NormalizedAddress)
		require.NotNil(t, primary.TotalFloors)
		assert.Equal(t, 30, *primary.TotalFloors)
		assert.True(t, filled.Address)
		assert.True(t, filled.TotalFloors)
	})

	t.Run("never overwrites present fields", func(t *testing.T) {
		primary := &models.Building{ID: 1, Address: "既存住所", NormalizedAddress: "既存住所", TotalFloors: intPtr(10)}
		byID := map[int64]*models.Building{
			2: {ID: 2, Address: "別住所", TotalFloors: intPtr(99)},
		}

		filled := fillPrimaryBuilding(primary, byID, []int64{2})

		assert.Equal(t, "既存住所", primary.Address)
		assert.Equal(t, 10, *primary.TotalFloors)
		assert.Equal(t, models.PrimaryFilledFields{}, filled)
	})

	t.Run("nothing to fill from empty secondaries", func(t *testing.T) {
		primary := &models.Building{ID: 1}
		byID := map[int64]*models.Building{2: {ID: 2}}

		filled := fillPrimaryBuilding(primary, byID, []int64{2})

		assert.Empty(t, primary.Address)
		assert.Nil(t, primary.TotalFloors)
		assert.Equal(t, models.PrimaryFilledFields{}, filled)
	})
}

func TestFillPrimaryProperty(t *testing.T) {
	t.Run("fills every missing field", func(t *testing.T) {
		primary := &models.Property{ID: 1, BuildingID: 10}
		secondary := &models.Property{
			ID:          2,
			BuildingID:  10,
			RoomNumber:  strPtr("101"),
			FloorNumber: intPtr(1),
			Area:        floatPtr(25.5),
			Layout:      strPtr("1LDK"),
			Direction:   strPtr("南"),
		}

		filled := fillPrimaryProperty(primary, secondary)

		assert.Equal(t, "101", *primary.RoomNumber)
		assert.Equal(t, 1, *primary.FloorNumber)
		assert.Equal(t, 25.5, *primary.Area)
		assert.Equal(t, "1LDK", *primary.Layout)
		assert.Equal(t, "南", *primary.Direction)
		assert.Equal(t, models.PropertyFilledFields{
			RoomNumber:  true,
			FloorNumber: true,
			Area:        true,
			Layout:      true,
			Direction:   true,
		}, filled)
	})

	t.Run("fills only the gaps", func(t *testing.T) {
		primary := &models.Property{ID: 1, RoomNumber: strPtr("201"), Layout: strPtr("2DK")}
		secondary := &models.Property{ID: 2, RoomNumber: strPtr("999"), FloorNumber: intPtr(2)}

		filled := fillPrimaryProperty(primary, secondary)

		assert.Equal(t, "201", *primary.RoomNumber)
		assert.Equal(t, 2, *primary.FloorNumber)
		assert.Equal(t, "2DK", *primary.Layout)
		assert.Equal(t, models.PropertyFilledFields{FloorNumber: true}, filled)
	})
}

func TestAnyPropertyFieldFilled(t *testing.T) {
	assert.False(t, anyPropertyFieldFilled(models.PropertyFilledFields{}))
	assert.True(t, anyPropertyFieldFilled(models.PropertyFilledFields{Area: true}))
	assert.True(t, anyPropertyFieldFilled(models.PropertyFilledFields{RoomNumber: true, Direction: true}))
}

func TestAbsorbedBuildingSnapshots(t *testing.T) {
	byID := map[int64]*models.Building{
		2: {ID: 2, Name: "メゾン青山"},
		3: {ID: 3, Name: "メゾン青山アネックス"},
	}
	moved := []models.MovedProperty{
		{PropertyID: 100, PreviousBuildingID: 2},
		{PropertyID: 101, PreviousBuildingID: 2},
		{PropertyID: 102, PreviousBuildingID: 3},
	}

	snapshots := absorbedBuildingSnapshots(byID, []int64{2, 3}, moved)

	require.Len(t, snapshots, 2)
	assert.Equal(t, models.AbsorbedBuildingSnapshot{BuildingID: 2, Name: "メゾン青山", PropertyCount: 2}, snapshots[0])
	assert.Equal(t, models.AbsorbedBuildingSnapshot{BuildingID: 3, Name: "メゾン青山アネックス", PropertyCount: 1}, snapshots[1])

	t.Run("building with nothing moved counts zero", func(t *testing.T) {
		snapshots := absorbedBuildingSnapshots(byID, []int64{3}, nil)
		require.Len(t, snapshots, 1)
		assert.Equal(t, 0, snapshots[0].PropertyCount)
	})
}
