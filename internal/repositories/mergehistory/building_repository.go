package mergehistory

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/wisteria/pkg/database"
	"github.com/Ramsey-B/wisteria/pkg/tracing"

	"github.com/Ramsey-B/wisteria/pkg/models"
)

// BuildingRepository handles building merge history persistence
type BuildingRepository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewBuildingRepository creates a new building merge history repository
func NewBuildingRepository(db database.DB, logger ectologger.Logger) *BuildingRepository {
	return &BuildingRepository{
		db:     db,
		logger: logger,
	}
}

// q resolves the querier for ctx so statements join an open transaction.
func (r *BuildingRepository) q(ctx context.Context) database.Querier {
	return database.QuerierFromContext(ctx, r.db)
}

// Create appends a merge history entry and fills in its generated ID
func (r *BuildingRepository) Create(ctx context.Context, history *models.BuildingMergeHistory) (*models.BuildingMergeHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "mergehistory.BuildingRepository.Create")
	defer span.End()

	history.CreatedAt = time.Now().UTC()

	ib := database.NewInsertBuilder()
	ib.InsertInto(buildingHistoriesTable)
	ib.Cols("primary_building_id", "secondary_building_ids", "moved_properties_count", "merge_details", "merged_by", "created_at")
	ib.Values(
		history.PrimaryBuildingID,
		database.JSONB[[]int64]{Data: history.SecondaryBuildingIDs},
		history.MovedPropertiesCount,
		database.JSONB[models.BuildingMergeDetails]{Data: history.MergeDetails},
		history.MergedBy,
		history.CreatedAt,
	)
	ib.Returning("id")

	query, args := ib.Build()
	if err := r.q(ctx).GetContext(ctx, &history.ID, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"primary_building_id": history.PrimaryBuildingID}).Error("Failed to create building merge history")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create merge history")
	}

	return history, nil
}

// Get retrieves a history entry by ID
func (r *BuildingRepository) Get(ctx context.Context, id int64) (*models.BuildingMergeHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "mergehistory.BuildingRepository.Get")
	defer span.End()

	sb := buildingHistoryStruct.SelectFrom(buildingHistoriesTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row BuildingHistoryRow
	if err := r.q(ctx).GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("merge history %d not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get building merge history")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge history")
	}

	return ToBuildingHistory(&row), nil
}

// GetForUpdate locks and returns a history entry inside the current transaction
func (r *BuildingRepository) GetForUpdate(ctx context.Context, id int64) (*models.BuildingMergeHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "mergehistory.BuildingRepository.GetForUpdate")
	defer span.End()

	sb := buildingHistoryStruct.SelectFrom(buildingHistoriesTable)
	sb.Where(sb.Equal("id", id))
	sb.SQL("FOR UPDATE")

	query, args := sb.Build()
	var row BuildingHistoryRow
	if err := r.q(ctx).GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("merge history %d not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to lock building merge history")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge history")
	}

	return ToBuildingHistory(&row), nil
}

// MarkReverted stamps a history entry as reverted. Returns Conflict if the
// entry was already reverted by another call.
func (r *BuildingRepository) MarkReverted(ctx context.Context, id int64, revertedBy *string) error {
	ctx, span := tracing.StartSpan(ctx, "mergehistory.BuildingRepository.MarkReverted")
	defer span.End()

	query := `
		UPDATE building_merge_histories
		SET reverted_at = $1, reverted_by = $2
		WHERE id = $3 AND reverted_at IS NULL
	`

	result, err := r.q(ctx).ExecContext(ctx, query, time.Now().UTC(), revertedBy, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark building merge history reverted")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark merge history reverted")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("merge history %d has already been reverted", id))
	}

	return nil
}

// List retrieves history entries newest-first with offset pagination
func (r *BuildingRepository) List(ctx context.Context, limit, offset int, includeReverted bool) ([]models.BuildingMergeHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "mergehistory.BuildingRepository.List")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	sb := buildingHistoryStruct.SelectFrom(buildingHistoriesTable)
	if !includeReverted {
		sb.Where(sb.IsNull("reverted_at"))
	}
	sb.OrderBy("created_at DESC", "id DESC")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	var rows []BuildingHistoryRow
	if err := r.q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list building merge histories")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list merge histories")
	}

	return ToBuildingHistories(rows), nil
}

// Count returns the number of history entries matching the List filter
func (r *BuildingRepository) Count(ctx context.Context, includeReverted bool) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "mergehistory.BuildingRepository.Count")
	defer span.End()

	query := "SELECT COUNT(*) FROM building_merge_histories WHERE ($1 OR reverted_at IS NULL)"

	var count int
	if err := r.q(ctx).GetContext(ctx, &count, query, includeReverted); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count building merge histories")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count merge histories")
	}

	return count, nil
}

// Delete removes a single audit row. The merge it records stays in effect.
func (r *BuildingRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "mergehistory.BuildingRepository.Delete")
	defer span.End()

	result, err := r.q(ctx).ExecContext(ctx, "DELETE FROM building_merge_histories WHERE id = $1", id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete building merge history")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete merge history")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("merge history %d not found", id))
	}

	return nil
}

// DeleteAll clears the history log and returns the number of rows removed
func (r *BuildingRepository) DeleteAll(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "mergehistory.BuildingRepository.DeleteAll")
	defer span.End()

	result, err := r.q(ctx).ExecContext(ctx, "DELETE FROM building_merge_histories")
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete all building merge histories")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete merge histories")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
