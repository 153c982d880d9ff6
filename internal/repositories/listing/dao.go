package listing

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/wisteria/pkg/database"
	"github.com/Ramsey-B/wisteria/pkg/models"
)

const listingsTable = "listings"

// ListingRow represents the database row for a listing
type ListingRow struct {
	ID           int64          `db:"id"`
	PropertyID   int64          `db:"property_id"`
	SourceSite   string         `db:"source_site"`
	ExternalID   string         `db:"external_id"`
	Title        sql.NullString `db:"title"`
	URL          sql.NullString `db:"url"`
	CurrentPrice sql.NullInt64  `db:"current_price"`
	Fingerprint  sql.NullString `db:"fingerprint"`
	FirstSeenAt  sql.NullTime   `db:"first_seen_at"`
	LastSeenAt   sql.NullTime   `db:"last_seen_at"`
	CreatedAt    sql.NullTime   `db:"created_at"`
	UpdatedAt    sql.NullTime   `db:"updated_at"`
}

var listingStruct = database.NewStruct(new(ListingRow))

// FromListing converts a domain model to a database row
func FromListing(l *models.Listing) *ListingRow {
	row := &ListingRow{
		ID:          l.ID,
		PropertyID:  l.PropertyID,
		SourceSite:  l.SourceSite,
		ExternalID:  l.ExternalID,
		Title:       sql.NullString{String: l.Title, Valid: l.Title != ""},
		URL:         sql.NullString{String: l.URL, Valid: l.URL != ""},
		Fingerprint: sql.NullString{String: l.Fingerprint, Valid: l.Fingerprint != ""},
		FirstSeenAt: sql.NullTime{Time: l.FirstSeenAt, Valid: !l.FirstSeenAt.IsZero()},
		LastSeenAt:  sql.NullTime{Time: l.LastSeenAt, Valid: !l.LastSeenAt.IsZero()},
		CreatedAt:   sql.NullTime{Time: l.CreatedAt, Valid: !l.CreatedAt.IsZero()},
		UpdatedAt:   sql.NullTime{Time: l.UpdatedAt, Valid: !l.UpdatedAt.IsZero()},
	}
	if l.CurrentPrice != nil {
		row.CurrentPrice = sql.NullInt64{Int64: *l.CurrentPrice, Valid: true}
	}
	return row
}

// ToListing converts a database row to a domain model
func ToListing(row *ListingRow) *models.Listing {
	l := &models.Listing{
		ID:          row.ID,
		PropertyID:  row.PropertyID,
		SourceSite:  row.SourceSite,
		ExternalID:  row.ExternalID,
		Title:       row.Title.String,
		URL:         row.URL.String,
		Fingerprint: row.Fingerprint.String,
		FirstSeenAt: row.FirstSeenAt.Time,
		LastSeenAt:  row.LastSeenAt.Time,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
	if row.CurrentPrice.Valid {
		price := row.CurrentPrice.Int64
		l.CurrentPrice = &price
	}
	return l
}

// ToListings converts a slice of database rows to domain models
func ToListings(rows []ListingRow) []models.Listing {
	listings := make([]models.Listing, len(rows))
	for i := range rows {
		listings[i] = *ToListing(&rows[i])
	}
	return listings
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}
