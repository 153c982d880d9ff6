package building

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/wisteria/pkg/database"
	"github.com/Ramsey-B/wisteria/pkg/tracing"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/wisteria/pkg/models"
)

const buildingColumns = "b.id, b.name, b.normalized_name, b.address, b.normalized_address, b.total_floors, b.status, b.absorbed_into_id, b.absorbed_history_id, b.created_at, b.updated_at"

// propertyCountJoin counts only active properties so absorbed ones never inflate totals
const propertyCountJoin = "COUNT(p.id) FILTER (WHERE p.status = 'active') AS property_count"

// Repository handles building persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new building repository
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

// Get retrieves a building by ID with its derived property count
func (r *Repository) Get(ctx context.Context, id int64) (*models.Building, error) {
	ctx, span := tracing.StartSpan(ctx, "building.Repository.Get")
	defer span.End()

	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM buildings b
		LEFT JOIN properties p ON p.building_id = b.id
		WHERE b.id = $1
		GROUP BY b.id
	`, buildingColumns, propertyCountJoin)

	var building models.Building
	if err := r.q(ctx).GetContext(ctx, &building, query, id); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("building %d not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get building")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get building")
	}

	return &building, nil
}

// GetManyForUpdate locks and returns the given buildings inside the current
// transaction. Rows are locked in ascending id order to keep lock acquisition
// deterministic across concurrent merges.
func (r *Repository) GetManyForUpdate(ctx context.Context, ids []int64) ([]models.Building, error) {
	ctx, span := tracing.StartSpan(ctx, "building.Repository.GetManyForUpdate")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "normalized_name", "address", "normalized_address", "total_floors", "status", "absorbed_into_id", "absorbed_history_id", "created_at", "updated_at")
	sb.From("buildings")
	sb.Where(sb.In("id", int64sToAny(ids)...))
	sb.OrderBy("id")
	sb.SQL("FOR UPDATE")

	query, args := sb.Build()
	var buildings []models.Building
	if err := r.q(ctx).SelectContext(ctx, &buildings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to lock buildings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to lock buildings")
	}

	return buildings, nil
}

// List retrieves buildings with property counts, newest first, optionally
// filtered by a substring match against the normalized name
func (r *Repository) List(ctx context.Context, search string, includeAbsorbed bool, limit, offset int) ([]models.Building, error) {
	ctx, span := tracing.StartSpan(ctx, "building.Repository.List")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM buildings b
		LEFT JOIN properties p ON p.building_id = b.id
		WHERE ($1 = '' OR b.normalized_name LIKE '%%' || $1 || '%%')
		AND ($2 OR b.status = 'active')
		GROUP BY b.id
		ORDER BY b.created_at DESC, b.id DESC
		LIMIT $3 OFFSET $4
	`, buildingColumns, propertyCountJoin)

	var buildings []models.Building
	if err := r.q(ctx).SelectContext(ctx, &buildings, query, search, includeAbsorbed, limit, offset); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list buildings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list buildings")
	}

	return buildings, nil
}

// Count returns the number of buildings matching the List filters
func (r *Repository) Count(ctx context.Context, search string, includeAbsorbed bool) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "building.Repository.Count")
	defer span.End()

	query := `
		SELECT COUNT(*)
		FROM buildings
		WHERE ($1 = '' OR normalized_name LIKE '%' || $1 || '%')
		AND ($2 OR status = 'active')
	`

	var count int
	if err := r.q(ctx).GetContext(ctx, &count, query, search, includeAbsorbed); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count buildings")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count buildings")
	}

	return count, nil
}

// ListActiveForScan retrieves active buildings with property counts for the
// duplicate scan, capped at limit rows in ascending id order
func (r *Repository) ListActiveForScan(ctx context.Context, search string, limit int) ([]models.Building, error) {
	ctx, span := tracing.StartSpan(ctx, "building.Repository.ListActiveForScan")
	defer span.End()

	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM buildings b
		LEFT JOIN properties p ON p.building_id = b.id
		WHERE b.status = 'active'
		AND ($1 = '' OR b.normalized_name LIKE '%%' || $1 || '%%')
		GROUP BY b.id
		ORDER BY b.id
		LIMIT $2
	`, buildingColumns, propertyCountJoin)

	var buildings []models.Building
	if err := r.q(ctx).SelectContext(ctx, &buildings, query, search, limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list buildings for duplicate scan")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list buildings for duplicate scan")
	}

	return buildings, nil
}

// FindActiveByIdentity returns the oldest active building with the given
// normalized identity, or nil when none exists
func (r *Repository) FindActiveByIdentity(ctx context.Context, normalizedName, normalizedAddress string) (*models.Building, error) {
	ctx, span := tracing.StartSpan(ctx, "building.Repository.FindActiveByIdentity")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "normalized_name", "address", "normalized_address", "total_floors", "status", "absorbed_into_id", "absorbed_history_id", "created_at", "updated_at")
	sb.From("buildings")
	sb.Where(
		sb.Equal("status", models.BuildingStatusActive),
		sb.Equal("normalized_name", normalizedName),
		sb.Equal("normalized_address", normalizedAddress),
	)
	sb.OrderBy("id")
	sb.Limit(1)

	query, args := sb.Build()
	var building models.Building
	if err := r.q(ctx).GetContext(ctx, &building, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find building by identity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find building by identity")
	}

	return &building, nil
}

// Create inserts a new active building and fills in its generated ID
func (r *Repository) Create(ctx context.Context, building *models.Building) (*models.Building, error) {
	ctx, span := tracing.StartSpan(ctx, "building.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	building.Status = models.BuildingStatusActive
	building.CreatedAt = now
	building.UpdatedAt = now

	ib := database.NewInsertBuilder()
	ib.InsertInto("buildings")
	ib.Cols("name", "normalized_name", "address", "normalized_address", "total_floors", "status", "created_at", "updated_at")
	ib.Values(building.Name, building.NormalizedName, building.Address, building.NormalizedAddress, building.TotalFloors, building.Status, building.CreatedAt, building.UpdatedAt)
	ib.Returning("id")

	query, args := ib.Build()
	if err := r.q(ctx).GetContext(ctx, &building.ID, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"normalized_name": building.NormalizedName}).Error("Failed to create building")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create building")
	}

	return building, nil
}

// Update writes the building's mutable attributes back to its row
func (r *Repository) Update(ctx context.Context, building *models.Building) error {
	ctx, span := tracing.StartSpan(ctx, "building.Repository.Update")
	defer span.End()

	building.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("buildings")
	sb.Set(
		sb.Assign("name", building.Name),
		sb.Assign("normalized_name", building.NormalizedName),
		sb.Assign("address", building.Address),
		sb.Assign("normalized_address", building.NormalizedAddress),
		sb.Assign("total_floors", building.TotalFloors),
		sb.Assign("updated_at", building.UpdatedAt),
	)
	sb.Where(sb.Equal("id", building.ID))

	query, args := sb.Build()
	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update building")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update building")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("building %d not found", building.ID))
	}

	return nil
}

// MarkAbsorbed tombstones the given active buildings as absorbed into the
// primary, pointing at the history entry that can restore them. Returns the
// number of rows transitioned.
func (r *Repository) MarkAbsorbed(ctx context.Context, ids []int64, primaryID, historyID int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "building.Repository.MarkAbsorbed")
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("buildings")
	sb.Set(
		sb.Assign("status", models.BuildingStatusAbsorbed),
		sb.Assign("absorbed_into_id", primaryID),
		sb.Assign("absorbed_history_id", historyID),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.In("id", int64sToAny(ids)...),
		sb.Equal("status", models.BuildingStatusActive),
	)

	query, args := sb.Build()
	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark buildings absorbed")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark buildings absorbed")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// MarkActive restores absorbed buildings to active, clearing their tombstone columns
func (r *Repository) MarkActive(ctx context.Context, ids []int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "building.Repository.MarkActive")
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("buildings")
	sb.Set(
		sb.Assign("status", models.BuildingStatusActive),
		sb.Assign("absorbed_into_id", nil),
		sb.Assign("absorbed_history_id", nil),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.In("id", int64sToAny(ids)...),
		sb.Equal("status", models.BuildingStatusAbsorbed),
	)

	query, args := sb.Build()
	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to restore buildings")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to restore buildings")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

func int64sToAny(ids []int64) []any {
	result := make([]any, len(ids))
	for i, id := range ids {
		result[i] = id
	}
	return result
}
