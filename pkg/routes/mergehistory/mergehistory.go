package mergehistory

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/wisteria/internal/repositories/mergehistory"
	"github.com/Ramsey-B/wisteria/pkg/models"
	"github.com/Ramsey-B/wisteria/pkg/tracing"
)

// Register registers merge history routes. Deleting history prunes the audit
// trail only; it never undoes the merge itself, but a deleted entry can no
// longer be reverted.
func Register(g *echo.Group) {
	g.GET("/merge-history", ListBuildingMergeHistory)
	g.GET("/building-merge-history", ListBuildingMergeHistory)
	g.DELETE("/building-merge-history/:id", DeleteBuildingMergeHistory)
	g.DELETE("/building-merge-history/bulk", BulkDeleteBuildingMergeHistory)
	g.GET("/property-merge-history", ListPropertyMergeHistory)
	g.DELETE("/property-merge-history/:id", DeletePropertyMergeHistory)
	g.DELETE("/property-merge-history/bulk", BulkDeletePropertyMergeHistory)
}

// ListBuildingMergeHistory lists building merges newest-first. Reverted
// entries are hidden unless include_reverted=true.
func ListBuildingMergeHistory(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mergehistory_handler.ListBuildingMergeHistory")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	includeReverted, _ := strconv.ParseBool(c.QueryParam("include_reverted"))

	ctx, repo, err := ectoinject.GetContext[*mergehistory.BuildingRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge history repository")
	}

	histories, err := repo.List(ctx, limit, offset, includeReverted)
	if err != nil {
		return err
	}

	total, err := repo.Count(ctx, includeReverted)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.BuildingMergeHistoryListResponse{
		Histories: histories,
		Total:     total,
	})
}

// DeleteBuildingMergeHistory removes one building merge history entry
func DeleteBuildingMergeHistory(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mergehistory_handler.DeleteBuildingMergeHistory")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}

	ctx, repo, err := ectoinject.GetContext[*mergehistory.BuildingRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge history repository")
	}

	if err := repo.Delete(ctx, id); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.MessageResponse{
		Success: true,
		Message: fmt.Sprintf("merge history %d deleted", id),
	})
}

// BulkDeleteBuildingMergeHistory clears the building merge history
func BulkDeleteBuildingMergeHistory(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mergehistory_handler.BulkDeleteBuildingMergeHistory")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*mergehistory.BuildingRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge history repository")
	}

	deleted, err := repo.DeleteAll(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.BulkDeleteResponse{
		Success:      true,
		Message:      fmt.Sprintf("deleted %d merge history entries", deleted),
		DeletedCount: deleted,
	})
}

// ListPropertyMergeHistory lists property merges newest-first
func ListPropertyMergeHistory(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mergehistory_handler.ListPropertyMergeHistory")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	includeReverted, _ := strconv.ParseBool(c.QueryParam("include_reverted"))

	ctx, repo, err := ectoinject.GetContext[*mergehistory.PropertyRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge history repository")
	}

	histories, err := repo.List(ctx, limit, offset, includeReverted)
	if err != nil {
		return err
	}

	total, err := repo.Count(ctx, includeReverted)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.PropertyMergeHistoryListResponse{
		Histories: histories,
		Total:     total,
	})
}

// DeletePropertyMergeHistory removes one property merge history entry
func DeletePropertyMergeHistory(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mergehistory_handler.DeletePropertyMergeHistory")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}

	ctx, repo, err := ectoinject.GetContext[*mergehistory.PropertyRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge history repository")
	}

	if err := repo.Delete(ctx, id); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.MessageResponse{
		Success: true,
		Message: fmt.Sprintf("merge history %d deleted", id),
	})
}

// BulkDeletePropertyMergeHistory clears the property merge history
func BulkDeletePropertyMergeHistory(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mergehistory_handler.BulkDeletePropertyMergeHistory")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*mergehistory.PropertyRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge history repository")
	}

	deleted, err := repo.DeleteAll(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.BulkDeleteResponse{
		Success:      true,
		Message:      fmt.Sprintf("deleted %d merge history entries", deleted),
		DeletedCount: deleted,
	})
}
