package models

import "time"

// BuildingStatus tracks whether a building currently owns its properties
type BuildingStatus string

const (
	// BuildingStatusActive building owns its properties and participates in duplicate scans
	BuildingStatusActive BuildingStatus = "active"
	// BuildingStatusAbsorbed building's properties were moved into another building by a merge.
	// AbsorbedIntoID points at the primary and AbsorbedHistoryID at the history entry
	// that can restore it.
	BuildingStatusAbsorbed BuildingStatus = "absorbed"
)

// Building represents one physical condominium structure, the unit of deduplication
// Field order matches schema: id, name, normalized_name, address, normalized_address, ...
type Building struct {
	ID                int64          `json:"id" db:"id"`
	Name              string         `json:"name" db:"name"`
	NormalizedName    string         `json:"normalized_name" db:"normalized_name"`
	Address           string         `json:"address" db:"address"`
	NormalizedAddress string         `json:"normalized_address" db:"normalized_address"`
	TotalFloors       *int           `json:"total_floors,omitempty" db:"total_floors"`
	Status            BuildingStatus `json:"status" db:"status"`
	AbsorbedIntoID    *int64         `json:"absorbed_into_id,omitempty" db:"absorbed_into_id"`
	AbsorbedHistoryID *int64         `json:"absorbed_history_id,omitempty" db:"absorbed_history_id"`
	PropertyCount     int            `json:"property_count" db:"property_count"` // derived, owned property rows
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// IsActive returns true if the building has not been absorbed by a merge
func (b *Building) IsActive() bool {
	return b.Status == BuildingStatusActive
}

// BuildingListResponse is the response for listing buildings
type BuildingListResponse struct {
	Buildings []Building `json:"buildings"`
	Total     int        `json:"total"`
}

// BuildingDetailResponse is a building together with the properties it owns
type BuildingDetailResponse struct {
	Building   Building   `json:"building"`
	Properties []Property `json:"properties"`
}
