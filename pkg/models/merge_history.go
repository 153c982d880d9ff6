package models

import "time"

// MovedProperty records a property's pre-merge owner so a revert can restore it exactly
type MovedProperty struct {
	PropertyID         int64 `json:"property_id"`
	PreviousBuildingID int64 `json:"previous_building_id"`
}

// MovedListing records a listing's pre-merge owner for property merges
type MovedListing struct {
	ListingID          int64 `json:"listing_id"`
	PreviousPropertyID int64 `json:"previous_property_id"`
}

// AbsorbedBuildingSnapshot captures a secondary building at merge time for the audit trail
type AbsorbedBuildingSnapshot struct {
	BuildingID    int64  `json:"building_id"`
	Name          string `json:"name"`
	PropertyCount int    `json:"property_count"`
}

// AbsorbedPropertySnapshot captures the secondary property at merge time
type AbsorbedPropertySnapshot struct {
	PropertyID   int64 `json:"property_id"`
	BuildingID   int64 `json:"building_id"`
	ListingCount int   `json:"listing_count"`
}

// PrimaryFilledFields lists the primary's fields a merge filled from a secondary.
// Merges only fill fields the primary was missing, so a revert clears them back.
type PrimaryFilledFields struct {
	Address     bool `json:"address,omitempty"`
	TotalFloors bool `json:"total_floors,omitempty"`
}

// PropertyFilledFields is the property-merge analogue of PrimaryFilledFields
type PropertyFilledFields struct {
	RoomNumber  bool `json:"room_number,omitempty"`
	FloorNumber bool `json:"floor_number,omitempty"`
	Area        bool `json:"area,omitempty"`
	Layout      bool `json:"layout,omitempty"`
	Direction   bool `json:"direction,omitempty"`
}

// BuildingMergeDetails is the snapshot stored with each building merge,
// sufficient for exact reversal
type BuildingMergeDetails struct {
	MovedProperties   []MovedProperty            `json:"moved_properties"`
	AbsorbedBuildings []AbsorbedBuildingSnapshot `json:"absorbed_buildings"`
	PrimaryFilled     PrimaryFilledFields        `json:"primary_filled"`
}

// PropertyMergeDetails is the snapshot stored with each property merge
type PropertyMergeDetails struct {
	MovedListings    []MovedListing           `json:"moved_listings"`
	AbsorbedProperty AbsorbedPropertySnapshot `json:"absorbed_property"`
	PrimaryFilled    PropertyFilledFields     `json:"primary_filled"`
}

// BuildingMergeHistory is the append-only record of one building merge.
// RevertedAt is set at most once; a reverted entry cannot be reverted again.
type BuildingMergeHistory struct {
	ID                   int64                `json:"id" db:"id"`
	PrimaryBuildingID    int64                `json:"primary_building_id" db:"primary_building_id"`
	SecondaryBuildingIDs []int64              `json:"secondary_building_ids" db:"secondary_building_ids"`
	MovedPropertiesCount int                  `json:"moved_properties_count" db:"moved_properties_count"`
	MergeDetails         BuildingMergeDetails `json:"merge_details" db:"merge_details"`
	MergedBy             *string              `json:"merged_by,omitempty" db:"merged_by"`
	CreatedAt            time.Time            `json:"created_at" db:"created_at"`
	RevertedAt           *time.Time           `json:"reverted_at,omitempty" db:"reverted_at"`
	RevertedBy           *string              `json:"reverted_by,omitempty" db:"reverted_by"`
}

// IsReverted returns true if this merge has already been undone
func (h *BuildingMergeHistory) IsReverted() bool {
	return h.RevertedAt != nil
}

// PropertyMergeHistory is the append-only record of one property merge
type PropertyMergeHistory struct {
	ID                  int64                `json:"id" db:"id"`
	PrimaryPropertyID   int64                `json:"primary_property_id" db:"primary_property_id"`
	SecondaryPropertyID int64                `json:"secondary_property_id" db:"secondary_property_id"`
	MovedListingsCount  int                  `json:"moved_listings_count" db:"moved_listings_count"`
	MergeDetails        PropertyMergeDetails `json:"merge_details" db:"merge_details"`
	MergedBy            *string              `json:"merged_by,omitempty" db:"merged_by"`
	CreatedAt           time.Time            `json:"created_at" db:"created_at"`
	RevertedAt          *time.Time           `json:"reverted_at,omitempty" db:"reverted_at"`
	RevertedBy          *string              `json:"reverted_by,omitempty" db:"reverted_by"`
}

// IsReverted returns true if this merge has already been undone
func (h *PropertyMergeHistory) IsReverted() bool {
	return h.RevertedAt != nil
}

// MergeBuildingsRequest is the request for merging secondary buildings into a primary
type MergeBuildingsRequest struct {
	PrimaryID    int64   `json:"primary_id" validate:"required,gt=0"`
	SecondaryIDs []int64 `json:"secondary_ids" validate:"required,min=1,dive,gt=0"`
}

// MergeBuildingsResponse is the response for a successful building merge
type MergeBuildingsResponse struct {
	Success         bool     `json:"success"`
	MergedCount     int      `json:"merged_count"`
	MovedProperties int      `json:"moved_properties"`
	PrimaryBuilding Building `json:"primary_building"`
}

// MergePropertiesRequest is the request for merging one property into another
type MergePropertiesRequest struct {
	PrimaryPropertyID   int64 `json:"primary_property_id" validate:"required,gt=0"`
	SecondaryPropertyID int64 `json:"secondary_property_id" validate:"required,gt=0"`
}

// BuildingMergeResult is returned by the merge engine before the HTTP envelope is applied
type BuildingMergeResult struct {
	HistoryID       int64    `json:"history_id"`
	MergedCount     int      `json:"merged_count"`
	MovedProperties int      `json:"moved_properties"`
	PrimaryBuilding Building `json:"primary_building"`
}

// PropertyMergeResult is the property analogue of BuildingMergeResult
type PropertyMergeResult struct {
	HistoryID       int64    `json:"history_id"`
	MovedListings   int      `json:"moved_listings"`
	PrimaryProperty Property `json:"primary_property"`
}

// MessageResponse is the generic {success, message} envelope used by merges,
// reverts, and history deletions
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BuildingMergeHistoryListResponse is the response for listing building merge history
type BuildingMergeHistoryListResponse struct {
	Histories []BuildingMergeHistory `json:"histories"`
	Total     int                    `json:"total"`
}

// PropertyMergeHistoryListResponse is the response for listing property merge history
type PropertyMergeHistoryListResponse struct {
	Histories []PropertyMergeHistory `json:"histories"`
	Total     int                    `json:"total"`
}
