package exclusions

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/wisteria/internal/repositories/building"
	"github.com/Ramsey-B/wisteria/internal/repositories/exclusion"
	ctxmiddleware "github.com/Ramsey-B/wisteria/pkg/context"
	"github.com/Ramsey-B/wisteria/pkg/dedup"
	"github.com/Ramsey-B/wisteria/pkg/models"
	"github.com/Ramsey-B/wisteria/pkg/tracing"
)

var validate = validator.New()

// Register registers building exclusion routes
func Register(g *echo.Group) {
	g.POST("/exclude-buildings", ExcludeBuildings)
	g.DELETE("/exclude-buildings/:id", DeleteExclusion)
	g.GET("/building-exclusions", ListExclusions)
	g.DELETE("/building-exclusions/bulk", BulkDeleteExclusions)
}

// ExcludeBuildings marks two buildings as confirmed distinct so duplicate
// scans never pair them again. Excluding an already excluded pair returns
// the existing exclusion.
func ExcludeBuildings(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "exclusions_handler.ExcludeBuildings")
	defer span.End()

	var req models.ExcludeBuildingsRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if req.Building1ID == req.Building2ID {
		return httperror.NewHTTPError(http.StatusBadRequest, "a building cannot be excluded against itself")
	}

	ctx, buildingRepo, err := ectoinject.GetContext[*building.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get building repository")
	}

	// Both buildings must exist; the pair itself may be in any merge state.
	if _, err := buildingRepo.Get(ctx, req.Building1ID); err != nil {
		return err
	}
	if _, err := buildingRepo.Get(ctx, req.Building2ID); err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*exclusion.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get exclusion repository")
	}

	var reason *string
	if req.Reason != "" {
		reason = &req.Reason
	}

	created, err := repo.Create(ctx, req.Building1ID, req.Building2ID, reason, requestUser(ctx))
	if err != nil {
		return err
	}

	invalidateScanCache(ctx)

	return c.JSON(http.StatusOK, models.ExcludeBuildingsResponse{
		Success:     true,
		ExclusionID: created.ID,
		Message:     fmt.Sprintf("buildings %d and %d excluded from duplicate detection", created.Building1ID, created.Building2ID),
	})
}

// DeleteExclusion removes an exclusion so the pair can be suggested again
func DeleteExclusion(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "exclusions_handler.DeleteExclusion")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}

	ctx, repo, err := ectoinject.GetContext[*exclusion.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get exclusion repository")
	}

	if err := repo.Delete(ctx, id); err != nil {
		return err
	}

	invalidateScanCache(ctx)

	return c.JSON(http.StatusOK, models.MessageResponse{
		Success: true,
		Message: fmt.Sprintf("exclusion %d removed", id),
	})
}

// ListExclusions lists exclusions newest-first
func ListExclusions(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "exclusions_handler.ListExclusions")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	ctx, repo, err := ectoinject.GetContext[*exclusion.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get exclusion repository")
	}

	exclusions, err := repo.List(ctx, limit, offset)
	if err != nil {
		return err
	}

	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ExclusionListResponse{
		Exclusions: exclusions,
		Total:      total,
	})
}

// BulkDeleteExclusions clears the entire exclusion store
func BulkDeleteExclusions(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "exclusions_handler.BulkDeleteExclusions")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*exclusion.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get exclusion repository")
	}

	deleted, err := repo.DeleteAll(ctx)
	if err != nil {
		return err
	}

	invalidateScanCache(ctx)

	return c.JSON(http.StatusOK, models.BulkDeleteResponse{
		Success:      true,
		Message:      fmt.Sprintf("deleted %d exclusions", deleted),
		DeletedCount: deleted,
	})
}

// invalidateScanCache drops cached duplicate groups; exclusion changes alter
// what the next scan may pair
func invalidateScanCache(ctx context.Context) {
	ctx, finder, err := ectoinject.GetContext[*dedup.Finder](ctx)
	if err != nil {
		return
	}
	finder.Invalidate(ctx)
}

// requestUser returns the admin user the request was made as, nil when anonymous
func requestUser(ctx context.Context) *string {
	if user := ctxmiddleware.GetUserID(ctx); user != "" {
		return &user
	}
	return nil
}
