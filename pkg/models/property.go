package models

import "time"

// PropertyStatus tracks whether a property currently owns its listings
type PropertyStatus string

const (
	// PropertyStatusActive property owns its listings
	PropertyStatusActive PropertyStatus = "active"
	// PropertyStatusAbsorbed property's listings were moved into another property by a merge
	PropertyStatusAbsorbed PropertyStatus = "absorbed"
)

// Property represents a unit/room within a building, aggregating one or more listings.
// Every property belongs to exactly one building at any time; merges reassign building_id.
type Property struct {
	ID                int64          `json:"id" db:"id"`
	BuildingID        int64          `json:"building_id" db:"building_id"`
	RoomNumber        *string        `json:"room_number,omitempty" db:"room_number"`
	FloorNumber       *int           `json:"floor_number,omitempty" db:"floor_number"`
	Area              *float64       `json:"area,omitempty" db:"area_sqm"`
	Layout            *string        `json:"layout,omitempty" db:"layout"`
	Direction         *string        `json:"direction,omitempty" db:"direction"`
	MinPrice          *int64         `json:"min_price,omitempty" db:"min_price"`
	MaxPrice          *int64         `json:"max_price,omitempty" db:"max_price"`
	Status            PropertyStatus `json:"status" db:"status"`
	AbsorbedIntoID    *int64         `json:"absorbed_into_id,omitempty" db:"absorbed_into_id"`
	AbsorbedHistoryID *int64         `json:"absorbed_history_id,omitempty" db:"absorbed_history_id"`
	ListingCount      int            `json:"listing_count" db:"listing_count"` // derived, owned listing rows
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// IsActive returns true if the property has not been absorbed by a merge
func (p *Property) IsActive() bool {
	return p.Status == PropertyStatusActive
}
