package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/wisteria/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	Listing *models.ListingScrapedEvent
}

// ParseListingEvent parses the message value as a scraped listing event
func (m *IncomingMessage) ParseListingEvent() error {
	var evt models.ListingScrapedEvent
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		return err
	}
	m.Listing = &evt
	return nil
}

// SourceKey returns the listing identity used in logs. Falls back to the
// Kafka message key when the payload has not been parsed.
func (m *IncomingMessage) SourceKey() string {
	if m.Listing != nil {
		return m.Listing.SourceSite + ":" + m.Listing.ExternalID
	}
	return m.Key
}
