package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListingEvent(t *testing.T) {
	payload := `{
		"source_site": "suumo",
		"external_id": "chintai-12345",
		"title": "パークタワー芝浦 101号室",
		"url": "https://example.com/chintai/12345",
		"price": 120000,
		"building": {
			"name": "パークタワー芝浦",
			"address": "東京都港区芝浦4丁目2番3号",
			"total_floors": 30
		},
		"property": {
			"room_number": "101",
			"floor_number": 1,
			"area_sqm": 25.5,
			"layout": "1LDK",
			"direction": "南"
		}
	}`

	msg := &IncomingMessage{Key: "suumo:chintai-12345", Value: []byte(payload)}
	require.NoError(t, msg.ParseListingEvent())
	require.NotNil(t, msg.Listing)

	evt := msg.Listing
	assert.Equal(t, "suumo", evt.SourceSite)
	assert.Equal(t, "chintai-12345", evt.ExternalID)
	assert.Equal(t, "パークタワー芝浦", evt.Building.Name)
	assert.Equal(t, "東京都港区芝浦4丁目2番3号", evt.Building.Address)
	require.NotNil(t, evt.Price)
	assert.Equal(t, int64(120000), *evt.Price)
	require.NotNil(t, evt.Property.AreaSqm)
	assert.Equal(t, 25.5, *evt.Property.AreaSqm)
	require.NotNil(t, evt.Property.RoomNumber)
	assert.Equal(t, "101", *evt.Property.RoomNumber)
}

func TestParseListingEvent_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "not json", value: "price dropped!"},
		{name: "truncated", value: `{"source_site": "suumo", "building": {`},
		{name: "wrong type", value: `{"source_site": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &IncomingMessage{Value: []byte(tt.value)}
			err := msg.ParseListingEvent()
			require.Error(t, err)
			assert.Nil(t, msg.Listing, "failed parse must not set the listing")
		})
	}
}

func TestSourceKey(t *testing.T) {
	msg := &IncomingMessage{Key: "raw-key"}
	assert.Equal(t, "raw-key", msg.SourceKey(), "unparsed message falls back to the Kafka key")

	msg.Value = []byte(`{"source_site": "homes", "external_id": "b-777", "building": {"name": "メゾン青山"}}`)
	require.NoError(t, msg.ParseListingEvent())
	assert.Equal(t, "homes:b-777", msg.SourceKey())
}

func TestParsedEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{
			name:  "complete identity",
			value: `{"source_site": "suumo", "external_id": "x1", "building": {"name": "コーポ桜"}}`,
		},
		{
			name:    "missing source site",
			value:   `{"external_id": "x1", "building": {"name": "コーポ桜"}}`,
			wantErr: "source_site is required",
		},
		{
			name:    "missing external id",
			value:   `{"source_site": "suumo", "building": {"name": "コーポ桜"}}`,
			wantErr: "external_id is required",
		},
		{
			name:    "missing building name",
			value:   `{"source_site": "suumo", "external_id": "x1", "building": {"address": "港区1-2-3"}}`,
			wantErr: "building.name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &IncomingMessage{Value: []byte(tt.value)}
			require.NoError(t, msg.ParseListingEvent())

			err := msg.Listing.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.wantErr)
		})
	}
}
