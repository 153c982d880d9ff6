package duplicates

import (
	"math"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/wisteria/config"
	"github.com/Ramsey-B/wisteria/pkg/dedup"
	"github.com/Ramsey-B/wisteria/pkg/tracing"
)

// Register registers the duplicate building scan routes
func Register(g *echo.Group) {
	g.GET("/duplicate-buildings", ListDuplicateBuildings)
}

// ListDuplicateBuildings returns groups of buildings that likely describe
// the same physical structure, primaries first
func ListDuplicateBuildings(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "duplicates_handler.ListDuplicateBuildings")
	defer span.End()

	ctx, cfg, err := ectoinject.GetContext[*config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get config")
	}

	search := c.QueryParam("search")

	minSimilarity := cfg.DedupMinSimilarity
	if raw := c.QueryParam("min_similarity"); raw != "" {
		minSimilarity, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "min_similarity must be a number")
		}
	}
	if math.IsNaN(minSimilarity) || minSimilarity < 0 || minSimilarity > 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "min_similarity must be between 0 and 1")
	}

	limit := cfg.DedupGroupLimit
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
	}

	ctx, finder, err := ectoinject.GetContext[*dedup.Finder](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get duplicate finder")
	}

	groups, err := finder.FindGroups(ctx, search, minSimilarity, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, groups)
}
