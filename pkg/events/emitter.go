// Package events handles event emission for merge lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/wisteria/pkg/kafka"
	"github.com/Ramsey-B/wisteria/pkg/models"
	"github.com/Ramsey-B/wisteria/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter handles event emission for Wisteria
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitBuildingMerged emits a building.merged event
func (e *Emitter) EmitBuildingMerged(ctx context.Context, history *models.BuildingMergeHistory) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitBuildingMerged")
	defer span.End()

	event := &kafka.MergeEvent{
		EventType:    string(EventTypeBuildingMerged),
		HistoryID:    history.ID,
		PrimaryID:    history.PrimaryBuildingID,
		SecondaryIDs: history.SecondaryBuildingIDs,
		MovedCount:   history.MovedPropertiesCount,
		Actor:        actor(history.MergedBy),
	}

	if err := e.producer.PublishMergeEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit building.merged event")
		return err
	}

	return nil
}

// EmitBuildingMergeReverted emits a building.merge_reverted event
func (e *Emitter) EmitBuildingMergeReverted(ctx context.Context, history *models.BuildingMergeHistory) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitBuildingMergeReverted")
	defer span.End()

	event := &kafka.MergeEvent{
		EventType:    string(EventTypeBuildingMergeReverted),
		HistoryID:    history.ID,
		PrimaryID:    history.PrimaryBuildingID,
		SecondaryIDs: history.SecondaryBuildingIDs,
		MovedCount:   history.MovedPropertiesCount,
		Actor:        actor(history.RevertedBy),
	}

	if err := e.producer.PublishMergeEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit building.merge_reverted event")
		return err
	}

	return nil
}

// EmitPropertyMerged emits a property.merged event
func (e *Emitter) EmitPropertyMerged(ctx context.Context, history *models.PropertyMergeHistory) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPropertyMerged")
	defer span.End()

	event := &kafka.MergeEvent{
		EventType:    string(EventTypePropertyMerged),
		HistoryID:    history.ID,
		PrimaryID:    history.PrimaryPropertyID,
		SecondaryIDs: []int64{history.SecondaryPropertyID},
		MovedCount:   history.MovedListingsCount,
		Actor:        actor(history.MergedBy),
	}

	if err := e.producer.PublishMergeEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit property.merged event")
		return err
	}

	return nil
}

// EmitPropertyMergeReverted emits a property.merge_reverted event
func (e *Emitter) EmitPropertyMergeReverted(ctx context.Context, history *models.PropertyMergeHistory) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPropertyMergeReverted")
	defer span.End()

	event := &kafka.MergeEvent{
		EventType:    string(EventTypePropertyMergeReverted),
		HistoryID:    history.ID,
		PrimaryID:    history.PrimaryPropertyID,
		SecondaryIDs: []int64{history.SecondaryPropertyID},
		MovedCount:   history.MovedListingsCount,
		Actor:        actor(history.RevertedBy),
	}

	if err := e.producer.PublishMergeEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit property.merge_reverted event")
		return err
	}

	return nil
}

func actor(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
