package models

import "errors"

// ListingScrapedEvent is the payload scrapers publish for every listing they
// collect. Building and property attributes ride along so ingestion can
// resolve or create the owning records without a second lookup.
type ListingScrapedEvent struct {
	SourceSite string          `json:"source_site"`
	ExternalID string          `json:"external_id"`
	Title      string          `json:"title"`
	URL        string          `json:"url"`
	Price      *int64          `json:"price,omitempty"`
	Building   ScrapedBuilding `json:"building"`
	Property   ScrapedProperty `json:"property"`
}

// ScrapedBuilding carries the building attributes observed on the listing page
type ScrapedBuilding struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	TotalFloors *int   `json:"total_floors,omitempty"`
}

// ScrapedProperty carries the unit attributes observed on the listing page
type ScrapedProperty struct {
	RoomNumber  *string  `json:"room_number,omitempty"`
	FloorNumber *int     `json:"floor_number,omitempty"`
	AreaSqm     *float64 `json:"area_sqm,omitempty"`
	Layout      *string  `json:"layout,omitempty"`
	Direction   *string  `json:"direction,omitempty"`
}

// Validate checks that the event carries the identity fields ingestion keys on.
// Events failing validation are logged and skipped, never retried.
func (e *ListingScrapedEvent) Validate() error {
	if e.SourceSite == "" {
		return errors.New("source_site is required")
	}
	if e.ExternalID == "" {
		return errors.New("external_id is required")
	}
	if e.Building.Name == "" {
		return errors.New("building.name is required")
	}
	return nil
}
