package events

// EventType defines the type of event
type EventType string

const (
	// Building merge lifecycle
	EventTypeBuildingMerged        EventType = "building.merged"
	EventTypeBuildingMergeReverted EventType = "building.merge_reverted"

	// Property merge lifecycle
	EventTypePropertyMerged        EventType = "property.merged"
	EventTypePropertyMergeReverted EventType = "property.merge_reverted"
)
