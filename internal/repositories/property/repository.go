package property

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

const propertyColumns = "pr.id, pr.building_id, pr.room_number, pr.floor_number, pr.area_sqm, pr.layout, pr.direction, pr.status, pr.absorbed_into_id, pr.absorbed_history_id, pr.created_at, pr.updated_at"

// listingAggregates derives listing_count and the price range from owned listings
const listingAggregates = "COUNT(l.id) AS listing_count, MIN(l.current_price) AS min_price, MAX(l.current_price) AS max_price"

// Repository handles property persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new property repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DB exposes the underlying database handle for transactional operations.
func (r *Repository) DB() database.DB {
	return r.db
}

// q resolves the querier for ctx so statements join an open transaction.
func (r *Repository) q(ctx context.Context) database.Querier {
	return database.QuerierFromContext(ctx, r.db)
}

// Get retrieves a property by ID with its derived listing count and price range
func (r *Repository) Get(ctx context.Context, id int64) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Get")
	defer span.End()

	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM properties pr
		LEFT JOIN listings l ON l.property_id = pr.id
		WHERE pr.id = $1
		GROUP BY pr.id
	`, propertyColumns, listingAggregates)

	var property models.Property
	if err := r.q(ctx).GetContext(ctx, &property, query, id); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("property %d not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get property")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get property")
	}

	return &property, nil
}

// GetForUpdate locks and returns a property row inside the current transaction.
// Derived listing fields are not populated.
func (r *Repository) GetForUpdate(ctx context.Context, id int64) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.GetForUpdate")
	defer span.End()

	query := `
		SELECT id, building_id, room_number, floor_number, area_sqm, layout, direction, status, absorbed_into_id, absorbed_history_id, created_at, updated_at
		FROM properties
		WHERE id = $1
		FOR UPDATE
	`

	var property models.Property
	if err := r.q(ctx).GetContext(ctx, &property, query, id); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("property %d not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to lock property")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to lock property")
	}

	return &property, nil
}

// ListByBuilding retrieves a building's properties with listing aggregates
func (r *Repository) ListByBuilding(ctx context.Context, buildingID int64, includeAbsorbed bool) ([]models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.ListByBuilding")
	defer span.End()

	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM properties pr
		LEFT JOIN listings l ON l.property_id = pr.id
		WHERE pr.building_id = $1
		AND ($2 OR pr.status = 'active')
		GROUP BY pr.id
		ORDER BY pr.floor_number NULLS LAST, pr.room_number NULLS LAST, pr.id
	`, propertyColumns, listingAggregates)

	var properties []models.Property
	if err := r.q(ctx).SelectContext(ctx, &properties, query, buildingID, includeAbsorbed); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list properties by building")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list properties")
	}

	return properties, nil
}

// LockActiveByBuildings locks and returns all active properties owned by the
// given buildings, in ascending id order
func (r *Repository) LockActiveByBuildings(ctx context.Context, buildingIDs []int64) ([]models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.LockActiveByBuildings")
	defer span.End()

	if len(buildingIDs) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "building_id", "room_number", "floor_number", "area_sqm", "layout", "direction", "status", "absorbed_into_id", "absorbed_history_id", "created_at", "updated_at")
	sb.From("properties")
	sb.Where(
		sb.In("building_id", int64sToAny(buildingIDs)...),
		sb.Equal("status", models.PropertyStatusActive),
	)
	sb.OrderBy("id")
	sb.SQL("FOR UPDATE")

	query, args := sb.Build()
	var properties []models.Property
	if err := r.q(ctx).SelectContext(ctx, &properties, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to lock properties by building")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to lock properties")
	}

	return properties, nil
}

// ReassignBuilding moves the given properties to a new owning building.
// Returns the number of rows moved.
func (r *Repository) ReassignBuilding(ctx context.Context, propertyIDs []int64, buildingID int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.ReassignBuilding")
	defer span.End()

	if len(propertyIDs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("properties")
	sb.Set(
		sb.Assign("building_id", buildingID),
		sb.Assign("updated_at", now),
	)
	sb.Where(sb.In("id", int64sToAny(propertyIDs)...))

	query, args := sb.Build()
	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to reassign properties")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reassign properties")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// RestoreOwners moves properties back to their recorded pre-merge buildings in
// one statement
func (r *Repository) RestoreOwners(ctx context.Context, moves []models.MovedProperty) error {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.RestoreOwners")
	defer span.End()

	if len(moves) == 0 {
		return nil
	}

	values := make([]string, 0, len(moves))
	args := make([]any, 0, len(moves)*2+1)
	args = append(args, time.Now().UTC())
	for i, move := range moves {
		values = append(values, fmt.Sprintf("($%d::bigint, $%d::bigint)", i*2+2, i*2+3))
		args = append(args, move.PropertyID, move.PreviousBuildingID)
	}

	query := fmt.Sprintf(`
		UPDATE properties pr
		SET building_id = v.building_id, updated_at = $1
		FROM (VALUES %s) AS v(id, building_id)
		WHERE pr.id = v.id
	`, strings.Join(values, ", "))

	if _, err := r.q(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to restore property owners")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to restore property owners")
	}

	return nil
}

// FindActiveByBuilding returns the building's active properties without
// listing aggregates, for ingest matching
func (r *Repository) FindActiveByBuilding(ctx context.Context, buildingID int64) ([]models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.FindActiveByBuilding")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "building_id", "room_number", "floor_number", "area_sqm", "layout", "direction", "status", "absorbed_into_id", "absorbed_history_id", "created_at", "updated_at")
	sb.From("properties")
	sb.Where(
		sb.Equal("building_id", buildingID),
		sb.Equal("status", models.PropertyStatusActive),
	)
	sb.OrderBy("id")

	query, args := sb.Build()
	var properties []models.Property
	if err := r.q(ctx).SelectContext(ctx, &properties, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find properties by building")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find properties")
	}

	return properties, nil
}

// Create inserts a new active property and fills in its generated ID
func (r *Repository) Create(ctx context.Context, property *models.Property) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	property.Status = models.PropertyStatusActive
	property.CreatedAt = now
	property.UpdatedAt = now

	ib := database.NewInsertBuilder()
	ib.InsertInto("properties")
	ib.Cols("building_id", "room_number", "floor_number", "area_sqm", "layout", "direction", "status", "created_at", "updated_at")
	ib.Values(property.BuildingID, property.RoomNumber, property.FloorNumber, property.Area, property.Layout, property.Direction, property.Status, property.CreatedAt, property.UpdatedAt)
	ib.Returning("id")

	query, args := ib.Build()
	if err := r.q(ctx).GetContext(ctx, &property.ID, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"building_id": property.BuildingID}).Error("Failed to create property")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create property")
	}

	return property, nil
}

// Update writes the property's mutable attributes back to its row
func (r *Repository) Update(ctx context.Context, property *models.Property) error {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Update")
	defer span.End()

	property.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("properties")
	sb.Set(
		sb.Assign("room_number", property.RoomNumber),
		sb.Assign("floor_number", property.FloorNumber),
		sb.Assign("area_sqm", property.Area),
		sb.Assign("layout", property.Layout),
		sb.Assign("direction", property.Direction),
		sb.Assign("updated_at", property.UpdatedAt),
	)
	sb.Where(sb.Equal("id", property.ID))

	query, args := sb.Build()
	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update property")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update property")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("property %d not found", property.ID))
	}

	return nil
}

// MarkAbsorbed tombstones an active property as absorbed into the primary
func (r *Repository) MarkAbsorbed(ctx context.Context, id, primaryID, historyID int64) error {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.MarkAbsorbed")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("properties")
	sb.Set(
		sb.Assign("status", models.PropertyStatusAbsorbed),
		sb.Assign("absorbed_into_id", primaryID),
		sb.Assign("absorbed_history_id", historyID),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("status", models.PropertyStatusActive),
	)

	query, args := sb.Build()
	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark property absorbed")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark property absorbed")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("property %d is not active", id))
	}

	return nil
}

// MarkActive restores an absorbed property, clearing its tombstone columns
func (r *Repository) MarkActive(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.MarkActive")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("properties")
	sb.Set(
		sb.Assign("status", models.PropertyStatusActive),
		sb.Assign("absorbed_into_id", nil),
		sb.Assign("absorbed_history_id", nil),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("status", models.PropertyStatusAbsorbed),
	)

	query, args := sb.Build()
	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to restore property")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to restore property")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("property %d is not absorbed", id))
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
