package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/wisteria/pkg/kafka"
	"github.com/Ramsey-B/wisteria/pkg/normalizers"
	"github.com/Ramsey-B/wisteria/pkg/processor"
)

func scrapedMessage(payload string) *kafka.IncomingMessage {
	return &kafka.IncomingMessage{
		Key:   "test",
		Value: []byte(payload),
		Topic: "listings.scraped",
	}
}

func TestListingIngestion(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newTestEnv(t)
	proc := processor.NewListingProcessor(env.logger, env.buildings, env.properties, env.listings, nil)
	ctx := context.Background()

	normalizedName := normalizers.NormalizeBuildingName("パークタワー芝浦")
	normalizedAddress := normalizers.NormalizeAddress("東京都港区芝浦4丁目2番3号")

	require.NoError(t, proc.ProcessMessage(ctx, scrapedMessage(
		`{"source_site":"suumo","external_id":"ext-1","title":"パークタワー芝浦 101号室","url":"https://example.com/1","price":120000,"building":{"name":"パークタワー芝浦","address":"東京都港区芝浦4丁目2番3号","total_floors":30},"property":{"room_number":"101号室","floor_number":1,"area_sqm":25.5,"layout":"1LDK"}}`,
	)))

	listing, err := env.listings.GetBySource(ctx, "suumo", "ext-1")
	require.NoError(t, err)
	require.NotNil(t, listing, "first event creates the listing")
	require.NotNil(t, listing.CurrentPrice)
	assert.Equal(t, int64(120000), *listing.CurrentPrice)

	prop, err := env.properties.Get(ctx, listing.PropertyID)
	require.NoError(t, err)
	require.NotNil(t, prop.RoomNumber)
	assert.Equal(t, "101", *prop.RoomNumber, "room number stored canonicalized")
	require.NotNil(t, prop.FloorNumber)
	assert.Equal(t, 1, *prop.FloorNumber)

	bld, err := env.buildings.FindActiveByIdentity(ctx, normalizedName, normalizedAddress)
	require.NoError(t, err)
	require.NotNil(t, bld, "building resolvable by normalized identity")
	assert.Equal(t, bld.ID, prop.BuildingID)
	require.NotNil(t, bld.TotalFloors)
	assert.Equal(t, 30, *bld.TotalFloors)

	t.Run("unchanged event records a sighting only", func(t *testing.T) {
		// Same payload with reordered keys; the fingerprint must not change
		require.NoError(t, proc.ProcessMessage(ctx, scrapedMessage(
			`{"external_id":"ext-1","source_site":"suumo","url":"https://example.com/1","title":"パークタワー芝浦 101号室","building":{"address":"東京都港区芝浦4丁目2番3号","name":"パークタワー芝浦","total_floors":30},"price":120000,"property":{"floor_number":1,"room_number":"101号室","area_sqm":25.5,"layout":"1LDK"}}`,
		)))

		same, err := env.listings.GetBySource(ctx, "suumo", "ext-1")
		require.NoError(t, err)
		assert.Equal(t, listing.ID, same.ID)
		assert.Equal(t, int64(120000), *same.CurrentPrice)

		owned, err := env.listings.ListByProperty(ctx, prop.ID)
		require.NoError(t, err)
		assert.Len(t, owned, 1, "re-scrape must not create a second row")
	})

	t.Run("price change updates the listing in place", func(t *testing.T) {
		require.NoError(t, proc.ProcessMessage(ctx, scrapedMessage(
			`{"source_site":"suumo","external_id":"ext-1","title":"パークタワー芝浦 101号室","url":"https://example.com/1","price":118000,"building":{"name":"パークタワー芝浦","address":"東京都港区芝浦4丁目2番3号","total_floors":30},"property":{"room_number":"101号室","floor_number":1,"area_sqm":25.5,"layout":"1LDK"}}`,
		)))

		updated, err := env.listings.GetBySource(ctx, "suumo", "ext-1")
		require.NoError(t, err)
		assert.Equal(t, listing.ID, updated.ID)
		require.NotNil(t, updated.CurrentPrice)
		assert.Equal(t, int64(118000), *updated.CurrentPrice)
	})

	t.Run("second site lands on the same property", func(t *testing.T) {
		require.NoError(t, proc.ProcessMessage(ctx, scrapedMessage(
			`{"source_site":"homes","external_id":"h-9","title":"パークタワー芝浦","url":"https://example.com/h9","price":121000,"building":{"name":"パークタワー芝浦","address":"東京都港区芝浦4丁目2番3号"},"property":{"room_number":"101","floor_number":1,"direction":"南"}}`,
		)))

		other, err := env.listings.GetBySource(ctx, "homes", "h-9")
		require.NoError(t, err)
		require.NotNil(t, other)
		assert.Equal(t, prop.ID, other.PropertyID, "same room and floor resolve to the same property")

		// The second scrape carried a direction the first one lacked
		enriched, err := env.properties.Get(ctx, prop.ID)
		require.NoError(t, err)
		require.NotNil(t, enriched.Direction)
		assert.Equal(t, "南", *enriched.Direction)
		assert.Equal(t, 2, enriched.ListingCount)
	})

	t.Run("different room creates a sibling property", func(t *testing.T) {
		require.NoError(t, proc.ProcessMessage(ctx, scrapedMessage(
			`{"source_site":"suumo","external_id":"ext-2","title":"パークタワー芝浦 202号室","url":"https://example.com/2","price":135000,"building":{"name":"パークタワー芝浦","address":"東京都港区芝浦4丁目2番3号","total_floors":30},"property":{"room_number":"202号室","floor_number":2}}`,
		)))

		siblings, err := env.properties.FindActiveByBuilding(ctx, bld.ID)
		require.NoError(t, err)
		assert.Len(t, siblings, 2, "new room under the existing building")
	})

	t.Run("malformed and invalid events are skipped", func(t *testing.T) {
		require.NoError(t, proc.ProcessMessage(ctx, scrapedMessage(`price dropped!`)),
			"unparseable payload is skipped, not retried")
		require.NoError(t, proc.ProcessMessage(ctx, scrapedMessage(
			`{"source_site":"suumo","external_id":"","building":{"name":"どこかのビル"}}`,
		)), "payload without identity is skipped, not retried")

		siblings, err := env.properties.FindActiveByBuilding(ctx, bld.ID)
		require.NoError(t, err)
		assert.Len(t, siblings, 2, "skipped events must not create records")
	})
}
