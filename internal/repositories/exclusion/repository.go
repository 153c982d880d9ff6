package exclusion

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

// Repository handles building exclusion persistence. Pairs are stored with
// building1_id < building2_id so (A,B) and (B,A) resolve to the same row.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new exclusion repository
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

// NormalizePair orders two building ids as (low, high)
func NormalizePair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// Create records that two buildings are not duplicates. Excluding an already
// excluded pair is a no-op that returns the existing row.
func (r *Repository) Create(ctx context.Context, building1ID, building2ID int64, reason, excludedBy *string) (*models.BuildingExclusion, error) {
	ctx, span := tracing.StartSpan(ctx, "exclusion.Repository.Create")
	defer span.End()

	low, high := NormalizePair(building1ID, building2ID)
	now := time.Now().UTC()

	ib := database.NewInsertBuilder()
	ib.InsertInto("building_exclusions")
	ib.Cols("building1_id", "building2_id", "reason", "excluded_by", "created_at")
	ib.Values(low, high, reason, excludedBy, now)
	ib.OnConflictDoNothing()
	ib.Returning("id", "building1_id", "building2_id", "reason", "excluded_by", "created_at")

	query, args := ib.Build()
	var exclusion models.BuildingExclusion
	err := r.q(ctx).GetContext(ctx, &exclusion, query, args...)
	if err == nil {
		return &exclusion, nil
	}
	if err.Error() != "sql: no rows in result set" {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"building1_id": low, "building2_id": high}).Error("Failed to create exclusion")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create exclusion")
	}

	// Conflict path: the pair already exists, return it
	existing, err := r.GetByPair(ctx, low, high)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		r.logger.WithContext(ctx).WithFields(map[string]any{"building1_id": low, "building2_id": high}).Error("Exclusion insert conflicted but pair not found")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create exclusion")
	}

	return existing, nil
}

// GetByPair returns the exclusion for a pair in either order, or nil when none exists
func (r *Repository) GetByPair(ctx context.Context, a, b int64) (*models.BuildingExclusion, error) {
	ctx, span := tracing.StartSpan(ctx, "exclusion.Repository.GetByPair")
	defer span.End()

	low, high := NormalizePair(a, b)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "building1_id", "building2_id", "reason", "excluded_by", "created_at")
	sb.From("building_exclusions")
	sb.Where(
		sb.Equal("building1_id", low),
		sb.Equal("building2_id", high),
	)

	query, args := sb.Build()
	var exclusion models.BuildingExclusion
	if err := r.q(ctx).GetContext(ctx, &exclusion, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get exclusion by pair")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get exclusion")
	}

	return &exclusion, nil
}

// IsExcluded reports whether the pair is excluded, in either order
func (r *Repository) IsExcluded(ctx context.Context, a, b int64) (bool, error) {
	exclusion, err := r.GetByPair(ctx, a, b)
	if err != nil {
		return false, err
	}
	return exclusion != nil, nil
}

// ListPairsAmong returns every excluded pair where both members are in ids.
// The duplicate scan uses this to drop excluded pairs in one query.
func (r *Repository) ListPairsAmong(ctx context.Context, ids []int64) ([]models.BuildingExclusion, error) {
	ctx, span := tracing.StartSpan(ctx, "exclusion.Repository.ListPairsAmong")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "building1_id", "building2_id", "reason", "excluded_by", "created_at")
	sb.From("building_exclusions")
	sb.Where(
		sb.In("building1_id", int64sToAny(ids)...),
		sb.In("building2_id", int64sToAny(ids)...),
	)

	query, args := sb.Build()
	var exclusions []models.BuildingExclusion
	if err := r.q(ctx).SelectContext(ctx, &exclusions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list exclusion pairs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list exclusion pairs")
	}

	return exclusions, nil
}

// List retrieves exclusions newest-first with offset pagination
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.BuildingExclusion, error) {
	ctx, span := tracing.StartSpan(ctx, "exclusion.Repository.List")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "building1_id", "building2_id", "reason", "excluded_by", "created_at")
	sb.From("building_exclusions")
	sb.OrderBy("created_at DESC", "id DESC")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	var exclusions []models.BuildingExclusion
	if err := r.q(ctx).SelectContext(ctx, &exclusions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list exclusions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list exclusions")
	}

	return exclusions, nil
}

// Count returns the total number of exclusions
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "exclusion.Repository.Count")
	defer span.End()

	var count int
	if err := r.q(ctx).GetContext(ctx, &count, "SELECT COUNT(*) FROM building_exclusions"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count exclusions")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count exclusions")
	}

	return count, nil
}

// Delete removes an exclusion, re-enabling the pair for future duplicate scans
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "exclusion.Repository.Delete")
	defer span.End()

	result, err := r.q(ctx).ExecContext(ctx, "DELETE FROM building_exclusions WHERE id = $1", id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete exclusion")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete exclusion")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("exclusion %d not found", id))
	}

	return nil
}

// DeleteAll clears the exclusion store and returns the number of rows removed
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "exclusion.Repository.DeleteAll")
	defer span.End()

	result, err := r.q(ctx).ExecContext(ctx, "DELETE FROM building_exclusions")
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete all exclusions")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete exclusions")
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
