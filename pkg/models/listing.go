package models

import "time"

// Listing represents one external site's scraped advertisement for a property.
// Uniqueness is (source_site, external_id); re-scrapes update the existing row.
type Listing struct {
	ID           int64     `json:"id" db:"id"`
	PropertyID   int64     `json:"property_id" db:"property_id"`
	SourceSite   string    `json:"source_site" db:"source_site"`
	ExternalID   string    `json:"external_id" db:"external_id"`
	Title        string    `json:"title" db:"title"`
	URL          string    `json:"url" db:"url"`
	CurrentPrice *int64    `json:"current_price,omitempty" db:"current_price"`
	Fingerprint  string    `json:"fingerprint" db:"fingerprint"`
	FirstSeenAt  time.Time `json:"first_seen_at" db:"first_seen_at"`
	LastSeenAt   time.Time `json:"last_seen_at" db:"last_seen_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
