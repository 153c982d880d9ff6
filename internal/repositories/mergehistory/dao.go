package mergehistory

import (
	"time"

	"github.com/Ramsey-B/wisteria/pkg/database"
	"github.com/Ramsey-B/wisteria/pkg/models"
)

const (
	buildingHistoriesTable = "building_merge_histories"
	propertyHistoriesTable = "property_merge_histories"
)

// BuildingHistoryRow is the database row for a building merge history entry
type BuildingHistoryRow struct {
	ID                   int64                                       `db:"id"`
	PrimaryBuildingID    int64                                       `db:"primary_building_id"`
	SecondaryBuildingIDs database.JSONB[[]int64]                     `db:"secondary_building_ids"`
	MovedPropertiesCount int                                         `db:"moved_properties_count"`
	MergeDetails         database.JSONB[models.BuildingMergeDetails] `db:"merge_details"`
	MergedBy             *string                                     `db:"merged_by"`
	CreatedAt            time.Time                                   `db:"created_at"`
	RevertedAt           *time.Time                                  `db:"reverted_at"`
	RevertedBy           *string                                     `db:"reverted_by"`
}

var buildingHistoryStruct = database.NewStruct(new(BuildingHistoryRow))

// ToBuildingHistory converts a database row to a domain model
func ToBuildingHistory(row *BuildingHistoryRow) *models.BuildingMergeHistory {
	return &models.BuildingMergeHistory{
		ID:                   row.ID,
		PrimaryBuildingID:    row.PrimaryBuildingID,
		SecondaryBuildingIDs: row.SecondaryBuildingIDs.Data,
		MovedPropertiesCount: row.MovedPropertiesCount,
		MergeDetails:         row.MergeDetails.Data,
		MergedBy:             row.MergedBy,
		CreatedAt:            row.CreatedAt,
		RevertedAt:           row.RevertedAt,
		RevertedBy:           row.RevertedBy,
	}
}

// ToBuildingHistories converts a slice of database rows to domain models
func ToBuildingHistories(rows []BuildingHistoryRow) []models.BuildingMergeHistory {
	histories := make([]models.BuildingMergeHistory, len(rows))
	for i := range rows {
		histories[i] = *ToBuildingHistory(&rows[i])
	}
	return histories
}

// PropertyHistoryRow is the database row for a property merge history entry
type PropertyHistoryRow struct {
	ID                  int64                                       `db:"id"`
	PrimaryPropertyID   int64                                       `db:"primary_property_id"`
	SecondaryPropertyID int64                                       `db:"secondary_property_id"`
	MovedListingsCount  int                                         `db:"moved_listings_count"`
	MergeDetails        database.JSONB[models.PropertyMergeDetails] `db:"merge_details"`
	MergedBy            *string                                     `db:"merged_by"`
	CreatedAt           time.Time                                   `db:"created_at"`
	RevertedAt          *time.Time                                  `db:"reverted_at"`
	RevertedBy          *string                                     `db:"reverted_by"`
}

var propertyHistoryStruct = database.NewStruct(new(PropertyHistoryRow))

// ToPropertyHistory converts a database row to a domain model
func ToPropertyHistory(row *PropertyHistoryRow) *models.PropertyMergeHistory {
	return &models.PropertyMergeHistory{
		ID:                  row.ID,
		PrimaryPropertyID:   row.PrimaryPropertyID,
		SecondaryPropertyID: row.SecondaryPropertyID,
		MovedListingsCount:  row.MovedListingsCount,
		MergeDetails:        row.MergeDetails.Data,
		MergedBy:            row.MergedBy,
		CreatedAt:           row.CreatedAt,
		RevertedAt:          row.RevertedAt,
		RevertedBy:          row.RevertedBy,
	}
}

// ToPropertyHistories converts a slice of database rows to domain models
func ToPropertyHistories(rows []PropertyHistoryRow) []models.PropertyMergeHistory {
	histories := make([]models.PropertyMergeHistory, len(rows))
	for i := range rows {
		histories[i] = *ToPropertyHistory(&rows[i])
	}
	return histories
}
