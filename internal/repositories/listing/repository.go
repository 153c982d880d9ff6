package listing

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/wisteria/pkg/database"
	"github.com/Ramsey-B/wisteria/pkg/tracing"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/wisteria/pkg/models"
)

// ListingRepository defines the interface for listing data access
type ListingRepository interface {
	GetBySource(ctx context.Context, sourceSite, externalID string) (*models.Listing, error)
	Create(ctx context.Context, listing *models.Listing) (*models.Listing, error)
	Update(ctx context.Context, listing *models.Listing) error
	Touch(ctx context.Context, id int64, seenAt time.Time) error
	ListByProperty(ctx context.Context, propertyID int64) ([]models.Listing, error)
	LockByProperty(ctx context.Context, propertyID int64) ([]models.Listing, error)
	ReassignProperty(ctx context.Context, listingIDs []int64, propertyID int64) (int64, error)
	RestoreOwners(ctx context.Context, moves []models.MovedListing) error
}

// Repository implements ListingRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new listing repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// q resolves the querier for ctx so statements join an open transaction.
func (r *Repository) q(ctx context.Context) database.Querier {
	return database.QuerierFromContext(ctx, r.db)
}

// GetBySource retrieves a listing by its source identity, or nil when none exists
func (r *Repository) GetBySource(ctx context.Context, sourceSite, externalID string) (*models.Listing, error) {
	ctx, span := tracing.StartSpan(ctx, "ListingRepository.GetBySource")
	defer span.End()

	sb := listingStruct.SelectFrom(listingsTable)
	sb.Where(
		sb.Equal("source_site", sourceSite),
		sb.Equal("external_id", externalID),
	)

	query, args := sb.Build()
	var row ListingRow
	if err := r.q(ctx).GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get listing by source")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get listing")
	}

	return ToListing(&row), nil
}

// Create inserts a new listing and fills in its generated ID
func (r *Repository) Create(ctx context.Context, listing *models.Listing) (*models.Listing, error) {
	ctx, span := tracing.StartSpan(ctx, "ListingRepository.Create")
	defer span.End()

	now := Now()
	listing.FirstSeenAt = now
	listing.LastSeenAt = now
	listing.CreatedAt = now
	listing.UpdatedAt = now

	ib := database.NewInsertBuilder()
	ib.InsertInto(listingsTable)
	ib.Cols("property_id", "source_site", "external_id", "title", "url", "current_price", "fingerprint", "first_seen_at", "last_seen_at", "created_at", "updated_at")
	ib.Values(listing.PropertyID, listing.SourceSite, listing.ExternalID, listing.Title, listing.URL, listing.CurrentPrice, listing.Fingerprint, listing.FirstSeenAt, listing.LastSeenAt, listing.CreatedAt, listing.UpdatedAt)
	ib.Returning("id")

	query, args := ib.Build()
	if err := r.q(ctx).GetContext(ctx, &listing.ID, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source_site": listing.SourceSite,
			"external_id": listing.ExternalID,
		}).Error("Failed to create listing")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create listing")
	}

	return listing, nil
}

// Update rewrites a listing's scraped attributes after its fingerprint changed
func (r *Repository) Update(ctx context.Context, listing *models.Listing) error {
	ctx, span := tracing.StartSpan(ctx, "ListingRepository.Update")
	defer span.End()

	now := Now()
	listing.LastSeenAt = now
	listing.UpdatedAt = now

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(listingsTable)
	sb.Set(
		sb.Assign("title", listing.Title),
		sb.Assign("url", listing.URL),
		sb.Assign("current_price", listing.CurrentPrice),
		sb.Assign("fingerprint", listing.Fingerprint),
		sb.Assign("last_seen_at", listing.LastSeenAt),
		sb.Assign("updated_at", listing.UpdatedAt),
	)
	sb.Where(sb.Equal("id", listing.ID))

	query, args := sb.Build()
	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update listing")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update listing")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("listing %d not found", listing.ID))
	}

	return nil
}

// Touch bumps last_seen_at for an unchanged listing
func (r *Repository) Touch(ctx context.Context, id int64, seenAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "ListingRepository.Touch")
	defer span.End()

	query := "UPDATE listings SET last_seen_at = $1 WHERE id = $2"
	if _, err := r.q(ctx).ExecContext(ctx, query, seenAt, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to touch listing")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to touch listing")
	}

	return nil
}

// ListByProperty retrieves a property's listings in ascending id order
func (r *Repository) ListByProperty(ctx context.Context, propertyID int64) ([]models.Listing, error) {
	ctx, span := tracing.StartSpan(ctx, "ListingRepository.ListByProperty")
	defer span.End()

	sb := listingStruct.SelectFrom(listingsTable)
	sb.Where(sb.Equal("property_id", propertyID))
	sb.OrderBy("id")

	query, args := sb.Build()
	var rows []ListingRow
	if err := r.q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list listings by property")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list listings")
	}

	return ToListings(rows), nil
}

// LockByProperty locks and returns a property's listings inside the current transaction
func (r *Repository) LockByProperty(ctx context.Context, propertyID int64) ([]models.Listing, error) {
	ctx, span := tracing.StartSpan(ctx, "ListingRepository.LockByProperty")
	defer span.End()

	sb := listingStruct.SelectFrom(listingsTable)
	sb.Where(sb.Equal("property_id", propertyID))
	sb.OrderBy("id")
	sb.SQL("FOR UPDATE")

	query, args := sb.Build()
	var rows []ListingRow
	if err := r.q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to lock listings by property")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to lock listings")
	}

	return ToListings(rows), nil
}

// ReassignProperty moves the given listings to a new owning property.
// Returns the number of rows moved.
func (r *Repository) ReassignProperty(ctx context.Context, listingIDs []int64, propertyID int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "ListingRepository.ReassignProperty")
	defer span.End()

	if len(listingIDs) == 0 {
		return 0, nil
	}

	now := Now()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(listingsTable)
	sb.Set(
		sb.Assign("property_id", propertyID),
		sb.Assign("updated_at", now),
	)
	sb.Where(sb.In("id", int64sToAny(listingIDs)...))

	query, args := sb.Build()
	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to reassign listings")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reassign listings")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// RestoreOwners moves listings back to their recorded pre-merge properties in
// one statement
func (r *Repository) RestoreOwners(ctx context.Context, moves []models.MovedListing) error {
	ctx, span := tracing.StartSpan(ctx, "ListingRepository.RestoreOwners")
	defer span.End()

	if len(moves) == 0 {
		return nil
	}

	values := make([]string, 0, len(moves))
	args := make([]any, 0, len(moves)*2+1)
	args = append(args, Now())
	for i, move := range moves {
		values = append(values, fmt.Sprintf("($%d::bigint, $%d::bigint)", i*2+2, i*2+3))
		args = append(args, move.ListingID, move.PreviousPropertyID)
	}

	query := fmt.Sprintf(`
		UPDATE listings l
		SET property_id = v.property_id, updated_at = $1
		FROM (VALUES %s) AS v(id, property_id)
		WHERE l.id = v.id
	`, strings.Join(values, ", "))

	if _, err := r.q(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to restore listing owners")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to restore listing owners")
	}

	return nil
}

func int64sToAny(ids []int64) []any {
	result := make([]any, len(ids))
	for i, id := range ids {
		result[i] = id
	}
	return result
}
