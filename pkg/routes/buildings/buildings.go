package buildings

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/wisteria/internal/repositories/building"
	"github.com/Ramsey-B/wisteria/internal/repositories/property"
	"github.com/Ramsey-B/wisteria/pkg/models"
	"github.com/Ramsey-B/wisteria/pkg/tracing"
)

// Register registers building browse routes
func Register(g *echo.Group) {
	g.GET("/buildings", ListBuildings)
	g.GET("/buildings/:id", GetBuilding)
}

// ListBuildings lists buildings newest-first with their property counts.
// Buildings absorbed by a merge are hidden unless include_absorbed=true.
func ListBuildings(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "buildings_handler.ListBuildings")
	defer span.End()

	search := c.QueryParam("search")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	includeAbsorbed, _ := strconv.ParseBool(c.QueryParam("include_absorbed"))

	ctx, repo, err := ectoinject.GetContext[*building.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get building repository")
	}

	buildings, err := repo.List(ctx, search, includeAbsorbed, limit, offset)
	if err != nil {
		return err
	}

	total, err := repo.Count(ctx, search, includeAbsorbed)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.BuildingListResponse{
		Buildings: buildings,
		Total:     total,
	})
}

// GetBuilding returns one building with the properties it owns, each carrying
// its derived listing count and price range
func GetBuilding(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "buildings_handler.GetBuilding")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}

	ctx, buildingRepo, err := ectoinject.GetContext[*building.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get building repository")
	}

	found, err := buildingRepo.Get(ctx, id)
	if err != nil {
		return err
	}

	ctx, propertyRepo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get property repository")
	}

	properties, err := propertyRepo.ListByBuilding(ctx, id, false)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.BuildingDetailResponse{
		Building:   *found,
		Properties: properties,
	})
}
