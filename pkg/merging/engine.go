// Package merging implements reversible building and property merges.
//
// A merge moves every active child record (properties of a building, listings
// of a property) onto the primary, tombstones the secondaries as absorbed, and
// appends a history entry holding the exact previous owner of every moved row.
// Reverting replays that history backwards inside one transaction.
package merging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/wisteria/internal/repositories/building"
	"github.com/Ramsey-B/wisteria/internal/repositories/exclusion"
	"github.com/Ramsey-B/wisteria/internal/repositories/listing"
	"github.com/Ramsey-B/wisteria/internal/repositories/mergehistory"
	"github.com/Ramsey-B/wisteria/internal/repositories/property"
	"github.com/Ramsey-B/wisteria/pkg/dedup"
	"github.com/Ramsey-B/wisteria/pkg/events"
	"github.com/Ramsey-B/wisteria/pkg/metrics"
	"github.com/Ramsey-B/wisteria/pkg/models"
	"github.com/Ramsey-B/wisteria/pkg/redis"
	"github.com/Ramsey-B/wisteria/pkg/tracing"
)

// Config holds merge engine tuning
type Config struct {
	// LockTTL bounds how long a crashed merge can keep its Redis locks
	LockTTL time.Duration
	// LockTimeout bounds how long a merge waits for contended locks
	LockTimeout time.Duration
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		LockTTL:     30 * time.Second,
		LockTimeout: 5 * time.Second,
	}
}

// Engine executes merges and reverts. The emitter and cache are optional;
// the locker is not.
type Engine struct {
	logger            ectologger.Logger
	buildingRepo      *building.Repository
	propertyRepo      *property.Repository
	listingRepo       listing.ListingRepository
	exclusionRepo     *exclusion.Repository
	buildingHistories *mergehistory.BuildingRepository
	propertyHistories *mergehistory.PropertyRepository
	locker            *redis.Locker
	cache             *dedup.Cache
	emitter           *events.Emitter
	cfg               Config
}

// NewEngine creates a new merge engine
func NewEngine(
	logger ectologger.Logger,
	buildingRepo *building.Repository,
	propertyRepo *property.Repository,
	listingRepo listing.ListingRepository,
	exclusionRepo *exclusion.Repository,
	buildingHistories *mergehistory.BuildingRepository,
	propertyHistories *mergehistory.PropertyRepository,
	locker *redis.Locker,
	cache *dedup.Cache,
	emitter *events.Emitter,
	cfg Config,
) *Engine {
	return &Engine{
		logger:            logger,
		buildingRepo:      buildingRepo,
		propertyRepo:      propertyRepo,
		listingRepo:       listingRepo,
		exclusionRepo:     exclusionRepo,
		buildingHistories: buildingHistories,
		propertyHistories: propertyHistories,
		locker:            locker,
		cache:             cache,
		emitter:           emitter,
		cfg:               cfg,
	}
}

// MergeBuildings merges the secondary buildings into the primary inside one
// transaction and records a history entry that can undo it exactly.
func (e *Engine) MergeBuildings(ctx context.Context, req *models.MergeBuildingsRequest, mergedBy *string) (*models.BuildingMergeResult, error) {
	start := time.Now()
	result, err := e.mergeBuildings(ctx, req, mergedBy)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordMerge("building", status, time.Since(start).Seconds())
	return result, err
}

func (e *Engine) mergeBuildings(ctx context.Context, req *models.MergeBuildingsRequest, mergedBy *string) (*models.BuildingMergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.MergeBuildings")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"primary_id":    req.PrimaryID,
		"secondary_ids": req.SecondaryIDs,
	})

	if err := validateMergeSet(req.PrimaryID, req.SecondaryIDs); err != nil {
		return nil, err
	}

	mergeSet := append([]int64{req.PrimaryID}, req.SecondaryIDs...)

	// An excluded pair anywhere in the merge set blocks the merge.
	exclusions, err := e.exclusionRepo.ListPairsAmong(ctx, mergeSet)
	if err != nil {
		return nil, err
	}
	if len(exclusions) > 0 {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf(
			"buildings %d and %d are excluded from merging", exclusions[0].Building1ID, exclusions[0].Building2ID))
	}

	locks, err := e.lockIDs(ctx, "building", mergeSet)
	if err != nil {
		return nil, err
	}
	defer redis.ReleaseAll(ctx, locks)

	ctxTx, tx, err := e.buildingRepo.DB().GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	buildings, err := e.buildingRepo.GetManyForUpdate(ctxTx, mergeSet)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*models.Building, len(buildings))
	for i := range buildings {
		byID[buildings[i].ID] = &buildings[i]
	}

	primary, ok := byID[req.PrimaryID]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("building %d not found", req.PrimaryID))
	}
	if !primary.IsActive() {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("building %d has already been absorbed by a merge", primary.ID))
	}
	for _, id := range req.SecondaryIDs {
		secondary, ok := byID[id]
		if !ok {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("building %d not found", id))
		}
		if !secondary.IsActive() {
			return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("building %d has already been absorbed by a merge", id))
		}
	}

	// Move every active property off the secondaries, remembering each one's
	// previous owner for the revert path.
	properties, err := e.propertyRepo.LockActiveByBuildings(ctxTx, req.SecondaryIDs)
	if err != nil {
		return nil, err
	}

	moved := make([]models.MovedProperty, len(properties))
	propertyIDs := make([]int64, len(properties))
	for i, p := range properties {
		moved[i] = models.MovedProperty{PropertyID: p.ID, PreviousBuildingID: p.BuildingID}
		propertyIDs[i] = p.ID
	}

	if len(propertyIDs) > 0 {
		if _, err := e.propertyRepo.ReassignBuilding(ctxTx, propertyIDs, primary.ID); err != nil {
			return nil, err
		}
	}

	filled := fillPrimaryBuilding(primary, byID, req.SecondaryIDs)
	if filled.Address || filled.TotalFloors {
		if err := e.buildingRepo.Update(ctxTx, primary); err != nil {
			return nil, err
		}
	}

	history, err := e.buildingHistories.Create(ctxTx, &models.BuildingMergeHistory{
		PrimaryBuildingID:    primary.ID,
		SecondaryBuildingIDs: req.SecondaryIDs,
		MovedPropertiesCount: len(moved),
		MergeDetails: models.BuildingMergeDetails{
			MovedProperties:   moved,
			AbsorbedBuildings: absorbedBuildingSnapshots(byID, req.SecondaryIDs, moved),
			PrimaryFilled:     filled,
		},
		MergedBy: mergedBy,
	})
	if err != nil {
		return nil, err
	}

	absorbed, err := e.buildingRepo.MarkAbsorbed(ctxTx, req.SecondaryIDs, primary.ID, history.ID)
	if err != nil {
		return nil, err
	}
	if absorbed != int64(len(req.SecondaryIDs)) {
		return nil, httperror.NewHTTPError(http.StatusConflict, "building state changed during merge")
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{
		"history_id":       history.ID,
		"moved_properties": len(moved),
	}).Info("Merged buildings")

	if e.emitter != nil {
		if err := e.emitter.EmitBuildingMerged(ctx, history); err != nil {
			log.WithError(err).Warn("Merge committed but event emission failed")
		}
	}
	e.invalidateScanCache(ctx)

	refreshed, err := e.buildingRepo.Get(ctx, primary.ID)
	if err != nil {
		log.WithError(err).Warn("Failed to reload primary building after merge")
		refreshed = primary
	}

	return &models.BuildingMergeResult{
		HistoryID:       history.ID,
		MergedCount:     len(req.SecondaryIDs),
		MovedProperties: len(moved),
		PrimaryBuilding: *refreshed,
	}, nil
}

// RevertBuildingMerge undoes a recorded building merge: moved properties go
// back to their previous buildings, absorbed secondaries become active again,
// and attributes the merge filled onto the primary are cleared.
func (e *Engine) RevertBuildingMerge(ctx context.Context, historyID int64, revertedBy *string) (*models.BuildingMergeHistory, error) {
	result, err := e.revertBuildingMerge(ctx, historyID, revertedBy)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordRevert("building", status)
	return result, err
}

func (e *Engine) revertBuildingMerge(ctx context.Context, historyID int64, revertedBy *string) (*models.BuildingMergeHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.RevertBuildingMerge")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"history_id": historyID,
	})

	history, err := e.buildingHistories.Get(ctx, historyID)
	if err != nil {
		return nil, err
	}
	if history.IsReverted() {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("merge history %d has already been reverted", historyID))
	}

	mergeSet := append([]int64{history.PrimaryBuildingID}, history.SecondaryBuildingIDs...)
	locks, err := e.lockIDs(ctx, "building", mergeSet)
	if err != nil {
		return nil, err
	}
	defer redis.ReleaseAll(ctx, locks)

	ctxTx, tx, err := e.buildingRepo.DB().GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Re-read under the row lock; the check above only fails fast.
	history, err = e.buildingHistories.GetForUpdate(ctxTx, historyID)
	if err != nil {
		return nil, err
	}
	if history.IsReverted() {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("merge history %d has already been reverted", historyID))
	}

	if err := e.propertyRepo.RestoreOwners(ctxTx, history.MergeDetails.MovedProperties); err != nil {
		return nil, err
	}

	restored, err := e.buildingRepo.MarkActive(ctxTx, history.SecondaryBuildingIDs)
	if err != nil {
		return nil, err
	}
	if restored != int64(len(history.SecondaryBuildingIDs)) {
		return nil, httperror.NewHTTPError(http.StatusConflict, "absorbed buildings were modified after the merge")
	}

	if err := e.clearFilledBuildingFields(ctxTx, history); err != nil {
		return nil, err
	}

	if err := e.buildingHistories.MarkReverted(ctxTx, historyID, revertedBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	history.RevertedAt = &now
	history.RevertedBy = revertedBy

	log.WithFields(map[string]any{
		"primary_id":          history.PrimaryBuildingID,
		"restored_buildings":  len(history.SecondaryBuildingIDs),
		"restored_properties": len(history.MergeDetails.MovedProperties),
	}).Info("Reverted building merge")

	if e.emitter != nil {
		if err := e.emitter.EmitBuildingMergeReverted(ctx, history); err != nil {
			log.WithError(err).Warn("Revert committed but event emission failed")
		}
	}
	e.invalidateScanCache(ctx)

	return history, nil
}

// MergeProperties merges the secondary property's listings into the primary
// property and tombstones the secondary, mirroring MergeBuildings one level down.
func (e *Engine) MergeProperties(ctx context.Context, req *models.MergePropertiesRequest, mergedBy *string) (*models.PropertyMergeResult, error) {
	start := time.Now()
	result, err := e.mergeProperties(ctx, req, mergedBy)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordMerge("property", status, time.Since(start).Seconds())
	return result, err
}

func (e *Engine) mergeProperties(ctx context.Context, req *models.MergePropertiesRequest, mergedBy *string) (*models.PropertyMergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.MergeProperties")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"primary_property_id":   req.PrimaryPropertyID,
		"secondary_property_id": req.SecondaryPropertyID,
	})

	if req.PrimaryPropertyID == req.SecondaryPropertyID {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "a property cannot be merged into itself")
	}

	locks, err := e.lockIDs(ctx, "property", []int64{req.PrimaryPropertyID, req.SecondaryPropertyID})
	if err != nil {
		return nil, err
	}
	defer redis.ReleaseAll(ctx, locks)

	ctxTx, tx, err := e.propertyRepo.DB().GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Row locks are taken in ascending id order so concurrent property merges
	// over the same pair cannot deadlock.
	first, second := req.PrimaryPropertyID, req.SecondaryPropertyID
	if second < first {
		first, second = second, first
	}
	a, err := e.propertyRepo.GetForUpdate(ctxTx, first)
	if err != nil {
		return nil, err
	}
	b, err := e.propertyRepo.GetForUpdate(ctxTx, second)
	if err != nil {
		return nil, err
	}

	primary, secondary := a, b
	if primary.ID != req.PrimaryPropertyID {
		primary, secondary = b, a
	}

	if !primary.IsActive() {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("property %d has already been absorbed by a merge", primary.ID))
	}
	if !secondary.IsActive() {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("property %d has already been absorbed by a merge", secondary.ID))
	}

	listings, err := e.listingRepo.LockByProperty(ctxTx, secondary.ID)
	if err != nil {
		return nil, err
	}

	moved := make([]models.MovedListing, len(listings))
	listingIDs := make([]int64, len(listings))
	for i, l := range listings {
		moved[i] = models.MovedListing{ListingID: l.ID, PreviousPropertyID: l.PropertyID}
		listingIDs[i] = l.ID
	}

	if len(listingIDs) > 0 {
		if _, err := e.listingRepo.ReassignProperty(ctxTx, listingIDs, primary.ID); err != nil {
			return nil, err
		}
	}

	filled := fillPrimaryProperty(primary, secondary)
	if anyPropertyFieldFilled(filled) {
		if err := e.propertyRepo.Update(ctxTx, primary); err != nil {
			return nil, err
		}
	}

	history, err := e.propertyHistories.Create(ctxTx, &models.PropertyMergeHistory{
		PrimaryPropertyID:   primary.ID,
		SecondaryPropertyID: secondary.ID,
		MovedListingsCount:  len(moved),
		MergeDetails: models.PropertyMergeDetails{
			MovedListings: moved,
			AbsorbedProperty: models.AbsorbedPropertySnapshot{
				PropertyID:   secondary.ID,
				BuildingID:   secondary.BuildingID,
				ListingCount: len(moved),
			},
			PrimaryFilled: filled,
		},
		MergedBy: mergedBy,
	})
	if err != nil {
		return nil, err
	}

	if err := e.propertyRepo.MarkAbsorbed(ctxTx, secondary.ID, primary.ID, history.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{
		"history_id":     history.ID,
		"moved_listings": len(moved),
	}).Info("Merged properties")

	if e.emitter != nil {
		if err := e.emitter.EmitPropertyMerged(ctx, history); err != nil {
			log.WithError(err).Warn("Merge committed but event emission failed")
		}
	}
	e.invalidateScanCache(ctx)

	refreshed, err := e.propertyRepo.Get(ctx, primary.ID)
	if err != nil {
		log.WithError(err).Warn("Failed to reload primary property after merge")
		refreshed = primary
	}

	return &models.PropertyMergeResult{
		HistoryID:       history.ID,
		MovedListings:   len(moved),
		PrimaryProperty: *refreshed,
	}, nil
}

// RevertPropertyMerge undoes a recorded property merge
func (e *Engine) RevertPropertyMerge(ctx context.Context, historyID int64, revertedBy *string) (*models.PropertyMergeHistory, error) {
	result, err := e.revertPropertyMerge(ctx, historyID, revertedBy)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordRevert("property", status)
	return result, err
}

func (e *Engine) revertPropertyMerge(ctx context.Context, historyID int64, revertedBy *string) (*models.PropertyMergeHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.RevertPropertyMerge")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"history_id": historyID,
	})

	history, err := e.propertyHistories.Get(ctx, historyID)
	if err != nil {
		return nil, err
	}
	if history.IsReverted() {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("merge history %d has already been reverted", historyID))
	}

	locks, err := e.lockIDs(ctx, "property", []int64{history.PrimaryPropertyID, history.SecondaryPropertyID})
	if err != nil {
		return nil, err
	}
	defer redis.ReleaseAll(ctx, locks)

	ctxTx, tx, err := e.propertyRepo.DB().GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	history, err = e.propertyHistories.GetForUpdate(ctxTx, historyID)
	if err != nil {
		return nil, err
	}
	if history.IsReverted() {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("merge history %d has already been reverted", historyID))
	}

	if err := e.listingRepo.RestoreOwners(ctxTx, history.MergeDetails.MovedListings); err != nil {
		return nil, err
	}

	if err := e.propertyRepo.MarkActive(ctxTx, history.SecondaryPropertyID); err != nil {
		return nil, err
	}

	if err := e.clearFilledPropertyFields(ctxTx, history); err != nil {
		return nil, err
	}

	if err := e.propertyHistories.MarkReverted(ctxTx, historyID, revertedBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	history.RevertedAt = &now
	history.RevertedBy = revertedBy

	log.WithFields(map[string]any{
		"primary_property_id": history.PrimaryPropertyID,
		"restored_listings":   len(history.MergeDetails.MovedListings),
	}).Info("Reverted property merge")

	if e.emitter != nil {
		if err := e.emitter.EmitPropertyMergeReverted(ctx, history); err != nil {
			log.WithError(err).Warn("Revert committed but event emission failed")
		}
	}
	e.invalidateScanCache(ctx)

	return history, nil
}

// lockIDs takes one Redis lock per record in ascending id order so concurrent
// merges over overlapping sets cannot deadlock on each other.
func (e *Engine) lockIDs(ctx context.Context, kind string, ids []int64) ([]*redis.Lock, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	keys := make([]string, len(sorted))
	for i, id := range sorted {
		keys[i] = fmt.Sprintf("%s:%d", kind, id)
	}

	start := time.Now()
	locks, err := e.locker.AcquireMany(ctx, keys, e.cfg.LockTTL, e.cfg.LockTimeout)
	metrics.MergeLockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return nil, httperror.NewHTTPError(http.StatusConflict, "another merge involving these records is in progress")
		}
		e.logger.WithContext(ctx).WithError(err).Error("Failed to acquire merge locks")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to acquire merge locks")
	}

	return locks, nil
}

// invalidateScanCache drops cached duplicate groups after any mutation that
// can change scan results
func (e *Engine) invalidateScanCache(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Bump(ctx); err != nil {
		e.logger.WithContext(ctx).WithError(err).Warn("Failed to invalidate duplicate scan cache")
	}
}

// clearFilledBuildingFields removes the attributes the merge copied onto the primary
func (e *Engine) clearFilledBuildingFields(ctx context.Context, history *models.BuildingMergeHistory) error {
	filled := history.MergeDetails.PrimaryFilled
	if !filled.Address && !filled.TotalFloors {
		return nil
	}

	rows, err := e.buildingRepo.GetManyForUpdate(ctx, []int64{history.PrimaryBuildingID})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("building %d not found", history.PrimaryBuildingID))
	}

	primary := &rows[0]
	if filled.Address {
		primary.Address = ""
		primary.NormalizedAddress = ""
	}
	if filled.TotalFloors {
		primary.TotalFloors = nil
	}

	return e.buildingRepo.Update(ctx, primary)
}

// clearFilledPropertyFields removes the attributes the merge copied onto the primary
func (e *Engine) clearFilledPropertyFields(ctx context.Context, history *models.PropertyMergeHistory) error {
	filled := history.MergeDetails.PrimaryFilled
	if !anyPropertyFieldFilled(filled) {
		return nil
	}

	primary, err := e.propertyRepo.GetForUpdate(ctx, history.PrimaryPropertyID)
	if err != nil {
		return err
	}

	if filled.RoomNumber {
		primary.RoomNumber = nil
	}
	if filled.FloorNumber {
		primary.FloorNumber = nil
	}
	if filled.Area {
		primary.Area = nil
	}
	if filled.Layout {
		primary.Layout = nil
	}
	if filled.Direction {
		primary.Direction = nil
	}

	return e.propertyRepo.Update(ctx, primary)
}

func validateMergeSet(primaryID int64, secondaryIDs []int64) error {
	seen := make(map[int64]struct{}, len(secondaryIDs))
	for _, id := range secondaryIDs {
		if id == primaryID {
			return httperror.NewHTTPError(http.StatusBadRequest, "primary building cannot be merged into itself")
		}
		if _, dup := seen[id]; dup {
			return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("building %d appears more than once", id))
		}
		seen[id] = struct{}{}
	}
	return nil
}

// fillPrimaryBuilding copies attributes the primary is missing from the first
// secondary that has them, in request order. Only genuinely missing fields are
// filled so a revert can clear exactly those.
func fillPrimaryBuilding(primary *models.Building, byID map[int64]*models.Building, secondaryIDs []int64) models.PrimaryFilledFields {
	var filled models.PrimaryFilledFields
	for _, id := range secondaryIDs {
		secondary := byID[id]
		if primary.Address == "" && secondary.Address != "" {
			primary.Address = secondary.Address
			primary.NormalizedAddress = secondary.NormalizedAddress
			filled.Address = true
		}
		if primary.TotalFloors == nil && secondary.TotalFloors != nil {
			floors := *secondary.TotalFloors
			primary.TotalFloors = &floors
			filled.TotalFloors = true
		}
	}
	return filled
}

// fillPrimaryProperty copies attributes the primary is missing from the secondary
func fillPrimaryProperty(primary, secondary *models.Property) models.PropertyFilledFields {
	var filled models.PropertyFilledFields
	if primary.RoomNumber == nil && secondary.RoomNumber != nil {
		v := *secondary.RoomNumber
		primary.RoomNumber = &v
		filled.RoomNumber = true
	}
	if primary.FloorNumber == nil && secondary.FloorNumber != nil {
		v := *secondary.FloorNumber
		primary.FloorNumber = &v
		filled.FloorNumber = true
	}
	if primary.Area == nil && secondary.Area != nil {
		v := *secondary.Area
		primary.Area = &v
		filled.Area = true
	}
	if primary.Layout == nil && secondary.Layout != nil {
		v := *secondary.Layout
		primary.Layout = &v
		filled.Layout = true
	}
	if primary.Direction == nil && secondary.Direction != nil {
		v := *secondary.Direction
		primary.Direction = &v
		filled.Direction = true
	}
	return filled
}

func anyPropertyFieldFilled(f models.PropertyFilledFields) bool {
	return f.RoomNumber || f.FloorNumber || f.Area || f.Layout || f.Direction
}

func absorbedBuildingSnapshots(byID map[int64]*models.Building, secondaryIDs []int64, moved []models.MovedProperty) []models.AbsorbedBuildingSnapshot {
	counts := make(map[int64]int, len(secondaryIDs))
	for _, m := range moved {
		counts[m.PreviousBuildingID]++
	}

	snapshots := make([]models.AbsorbedBuildingSnapshot, len(secondaryIDs))
	for i, id := range secondaryIDs {
		snapshots[i] = models.AbsorbedBuildingSnapshot{
			BuildingID:    id,
			Name:          byID[id].Name,
			PropertyCount: counts[id],
		}
	}
	return snapshots
}
