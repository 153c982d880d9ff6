// Package processor handles scraped listing ingestion. It resolves each event
// to a building and property by normalized identity, upserts the listing, and
// leaves fuzzy duplicate detection to the admin scan endpoints.
package processor

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/wisteria/internal/repositories/building"
	"github.com/Ramsey-B/wisteria/internal/repositories/listing"
	"github.com/Ramsey-B/wisteria/internal/repositories/property"
	"github.com/Ramsey-B/wisteria/pkg/dedup"
	"github.com/Ramsey-B/wisteria/pkg/fingerprint"
	"github.com/Ramsey-B/wisteria/pkg/kafka"
	"github.com/Ramsey-B/wisteria/pkg/metrics"
	"github.com/Ramsey-B/wisteria/pkg/models"
	"github.com/Ramsey-B/wisteria/pkg/normalizers"
	"github.com/Ramsey-B/wisteria/pkg/tracing"
)

// ListingProcessor handles scraped listing events from Kafka
type ListingProcessor struct {
	logger       ectologger.Logger
	buildingRepo *building.Repository
	propertyRepo *property.Repository
	listingRepo  listing.ListingRepository
	cache        *dedup.Cache
}

// NewListingProcessor creates a new listing processor. The cache may be nil;
// it is only bumped when ingestion creates a building.
func NewListingProcessor(
	logger ectologger.Logger,
	buildingRepo *building.Repository,
	propertyRepo *property.Repository,
	listingRepo listing.ListingRepository,
	cache *dedup.Cache,
) *ListingProcessor {
	return &ListingProcessor{
		logger:       logger,
		buildingRepo: buildingRepo,
		propertyRepo: propertyRepo,
		listingRepo:  listingRepo,
		cache:        cache,
	}
}

// ProcessMessage handles one scraped listing event. Malformed or invalid
// payloads are logged and skipped so the consumer commits past them; repo
// failures propagate so the message is redelivered.
func (p *ListingProcessor) ProcessMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	outcome, err := p.process(ctx, msg)
	if err != nil {
		metrics.RecordIngest("error")
		return err
	}
	metrics.RecordIngest(outcome)
	return nil
}

func (p *ListingProcessor) process(ctx context.Context, msg *kafka.IncomingMessage) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.ListingProcessor.ProcessMessage")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"key":    msg.Key,
		"topic":  msg.Topic,
		"offset": msg.Offset,
	})

	if msg.Listing == nil {
		if err := msg.ParseListingEvent(); err != nil {
			log.WithError(err).Warn("Skipping malformed listing event")
			return "malformed", nil
		}
	}

	evt := msg.Listing
	if err := evt.Validate(); err != nil {
		log.WithError(err).Warn("Skipping listing event with missing identity fields")
		return "invalid", nil
	}

	log = log.WithFields(map[string]any{
		"source_site": evt.SourceSite,
		"external_id": evt.ExternalID,
	})

	fp, err := fingerprint.FromJSON(msg.Value)
	if err != nil {
		log.WithError(err).Warn("Skipping listing event that could not be fingerprinted")
		return "malformed", nil
	}

	existing, err := p.listingRepo.GetBySource(ctx, evt.SourceSite, evt.ExternalID)
	if err != nil {
		return "", err
	}

	if existing != nil {
		if !fingerprint.HasChanged(existing.Fingerprint, fp) {
			if err := p.listingRepo.Touch(ctx, existing.ID, time.Now().UTC()); err != nil {
				return "", err
			}
			log.Debug("Listing unchanged, recorded sighting")
			return "unchanged", nil
		}
		return p.updateListing(ctx, existing, evt, fp, log)
	}

	return p.createListing(ctx, evt, fp, log)
}

// updateListing refreshes a known listing in place. Re-scrapes never re-home a
// listing; only admin merges move records between owners.
func (p *ListingProcessor) updateListing(ctx context.Context, existing *models.Listing, evt *models.ListingScrapedEvent, fp string, log ectologger.Logger) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.ListingProcessor.updateListing")
	defer span.End()

	existing.Title = evt.Title
	existing.URL = evt.URL
	existing.CurrentPrice = evt.Price
	existing.Fingerprint = fp

	if err := p.listingRepo.Update(ctx, existing); err != nil {
		return "", err
	}

	// Later scrapes often carry attributes the first one was missing.
	owner, err := p.propertyRepo.Get(ctx, existing.PropertyID)
	if err != nil {
		log.WithError(err).Warn("Listing updated but owning property could not be loaded")
		return "updated", nil
	}
	if fillPropertyAttrs(owner, &evt.Property) {
		if err := p.propertyRepo.Update(ctx, owner); err != nil {
			return "", err
		}
	}

	log.WithFields(map[string]any{"listing_id": existing.ID}).Info("Updated listing")
	return "updated", nil
}

// createListing resolves owners by normalized identity, creating them as needed
func (p *ListingProcessor) createListing(ctx context.Context, evt *models.ListingScrapedEvent, fp string, log ectologger.Logger) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.ListingProcessor.createListing")
	defer span.End()

	bld, createdBuilding, err := p.resolveBuilding(ctx, &evt.Building)
	if err != nil {
		return "", err
	}

	prop, err := p.resolveProperty(ctx, bld.ID, &evt.Property)
	if err != nil {
		return "", err
	}

	created, err := p.listingRepo.Create(ctx, &models.Listing{
		PropertyID:   prop.ID,
		SourceSite:   evt.SourceSite,
		ExternalID:   evt.ExternalID,
		Title:        evt.Title,
		URL:          evt.URL,
		CurrentPrice: evt.Price,
		Fingerprint:  fp,
	})
	if err != nil {
		return "", err
	}

	if createdBuilding {
		p.bumpScanCache(ctx)
	}

	log.WithFields(map[string]any{
		"listing_id":   created.ID,
		"property_id":  prop.ID,
		"building_id":  bld.ID,
		"new_building": createdBuilding,
	}).Info("Created listing")

	return "created", nil
}

// resolveBuilding finds the active building with the event's normalized
// identity, creating one when none exists
func (p *ListingProcessor) resolveBuilding(ctx context.Context, sb *models.ScrapedBuilding) (*models.Building, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.ListingProcessor.resolveBuilding")
	defer span.End()

	normalizedName := normalizers.NormalizeBuildingName(sb.Name)
	normalizedAddress := normalizers.NormalizeAddress(sb.Address)

	existing, err := p.buildingRepo.FindActiveByIdentity(ctx, normalizedName, normalizedAddress)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if fillBuildingAttrs(existing, sb) {
			if err := p.buildingRepo.Update(ctx, existing); err != nil {
				return nil, false, err
			}
		}
		return existing, false, nil
	}

	created, err := p.buildingRepo.Create(ctx, &models.Building{
		Name:              sb.Name,
		NormalizedName:    normalizedName,
		Address:           sb.Address,
		NormalizedAddress: normalizedAddress,
		TotalFloors:       sb.TotalFloors,
	})
	if err != nil {
		return nil, false, err
	}
	metrics.BuildingsCreatedTotal.Inc()

	return created, true, nil
}

// resolveProperty finds the building's property matching the event's room and
// floor, creating one when none exists. Room numbers are canonicalized so
// "101号室" and "101" land on the same property.
func (p *ListingProcessor) resolveProperty(ctx context.Context, buildingID int64, sp *models.ScrapedProperty) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.ListingProcessor.resolveProperty")
	defer span.End()

	room := normalizedRoom(sp.RoomNumber)

	properties, err := p.propertyRepo.FindActiveByBuilding(ctx, buildingID)
	if err != nil {
		return nil, err
	}

	for i := range properties {
		candidate := &properties[i]
		if !sameRoom(candidate.RoomNumber, room) || !sameFloor(candidate.FloorNumber, sp.FloorNumber) {
			continue
		}
		if fillPropertyAttrs(candidate, sp) {
			if err := p.propertyRepo.Update(ctx, candidate); err != nil {
				return nil, err
			}
		}
		return candidate, nil
	}

	return p.propertyRepo.Create(ctx, &models.Property{
		BuildingID:  buildingID,
		RoomNumber:  room,
		FloorNumber: sp.FloorNumber,
		Area:        sp.AreaSqm,
		Layout:      sp.Layout,
		Direction:   sp.Direction,
	})
}

// bumpScanCache invalidates cached duplicate groups; a new building changes
// what the next scan should return
func (p *ListingProcessor) bumpScanCache(ctx context.Context) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Bump(ctx); err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("Failed to invalidate duplicate scan cache")
	}
}

// fillBuildingAttrs copies attributes the stored building is missing from the
// event. Reports whether anything changed.
func fillBuildingAttrs(b *models.Building, sb *models.ScrapedBuilding) bool {
	changed := false
	if b.TotalFloors == nil && sb.TotalFloors != nil {
		floors := *sb.TotalFloors
		b.TotalFloors = &floors
		changed = true
	}
	if b.Address == "" && sb.Address != "" {
		b.Address = sb.Address
		b.NormalizedAddress = normalizers.NormalizeAddress(sb.Address)
		changed = true
	}
	return changed
}

// fillPropertyAttrs copies attributes the stored property is missing from the
// event. Reports whether anything changed.
func fillPropertyAttrs(p *models.Property, sp *models.ScrapedProperty) bool {
	changed := false
	if p.FloorNumber == nil && sp.FloorNumber != nil {
		v := *sp.FloorNumber
		p.FloorNumber = &v
		changed = true
	}
	if p.Area == nil && sp.AreaSqm != nil {
		v := *sp.AreaSqm
		p.Area = &v
		changed = true
	}
	if p.Layout == nil && sp.Layout != nil {
		v := *sp.Layout
		p.Layout = &v
		changed = true
	}
	if p.Direction == nil && sp.Direction != nil {
		v := *sp.Direction
		p.Direction = &v
		changed = true
	}
	return changed
}

func normalizedRoom(room *string) *string {
	if room == nil {
		return nil
	}
	normalized := normalizers.NormalizeRoomNumber(*room)
	if normalized == "" {
		return nil
	}
	return &normalized
}

func sameRoom(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameFloor(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
