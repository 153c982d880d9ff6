package merges

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	ctxmiddleware "github.com/Ramsey-B/wisteria/pkg/context"
	"github.com/Ramsey-B/wisteria/pkg/merging"
	"github.com/Ramsey-B/wisteria/pkg/models"
	"github.com/Ramsey-B/wisteria/pkg/tracing"
)

var validate = validator.New()

// Register registers merge and revert routes
func Register(g *echo.Group) {
	g.POST("/merge-buildings", MergeBuildings)
	g.POST("/merge-properties", MergeProperties)
	g.POST("/revert-building-merge/:history_id", RevertBuildingMerge)
	g.POST("/revert-property-merge/:history_id", RevertPropertyMerge)
}

// MergeBuildings merges the secondary buildings into the primary
func MergeBuildings(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "merges_handler.MergeBuildings")
	defer span.End()

	var req models.MergeBuildingsRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, engine, err := ectoinject.GetContext[*merging.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge engine")
	}

	result, err := engine.MergeBuildings(ctx, &req, requestUser(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.MergeBuildingsResponse{
		Success:         true,
		MergedCount:     result.MergedCount,
		MovedProperties: result.MovedProperties,
		PrimaryBuilding: result.PrimaryBuilding,
	})
}

// MergeProperties merges the secondary property's listings into the primary
func MergeProperties(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "merges_handler.MergeProperties")
	defer span.End()

	var req models.MergePropertiesRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, engine, err := ectoinject.GetContext[*merging.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge engine")
	}

	result, err := engine.MergeProperties(ctx, &req, requestUser(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.MessageResponse{
		Success: true,
		Message: fmt.Sprintf("moved %d listings into property %d", result.MovedListings, result.PrimaryProperty.ID),
	})
}

// RevertBuildingMerge undoes a recorded building merge
func RevertBuildingMerge(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "merges_handler.RevertBuildingMerge")
	defer span.End()

	historyID, err := strconv.ParseInt(c.Param("history_id"), 10, 64)
	if err != nil || historyID < 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "history_id must be a positive integer")
	}

	ctx, engine, err := ectoinject.GetContext[*merging.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge engine")
	}

	history, err := engine.RevertBuildingMerge(ctx, historyID, requestUser(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.MessageResponse{
		Success: true,
		Message: fmt.Sprintf("reverted merge of %d buildings into building %d", len(history.SecondaryBuildingIDs), history.PrimaryBuildingID),
	})
}

// RevertPropertyMerge undoes a recorded property merge
func RevertPropertyMerge(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "merges_handler.RevertPropertyMerge")
	defer span.End()

	historyID, err := strconv.ParseInt(c.Param("history_id"), 10, 64)
	if err != nil || historyID < 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "history_id must be a positive integer")
	}

	ctx, engine, err := ectoinject.GetContext[*merging.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge engine")
	}

	history, err := engine.RevertPropertyMerge(ctx, historyID, requestUser(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.MessageResponse{
		Success: true,
		Message: fmt.Sprintf("reverted merge of property %d into property %d", history.SecondaryPropertyID, history.PrimaryPropertyID),
	})
}

// requestUser returns the admin user the request was made as, nil when anonymous
func requestUser(ctx context.Context) *string {
	if user := ctxmiddleware.GetUserID(ctx); user != "" {
		return &user
	}
	return nil
}
