package integration

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/wisteria/internal/repositories/building"
	"github.com/Ramsey-B/wisteria/internal/repositories/exclusion"
	"github.com/Ramsey-B/wisteria/internal/repositories/listing"
	"github.com/Ramsey-B/wisteria/internal/repositories/mergehistory"
	"github.com/Ramsey-B/wisteria/internal/repositories/property"
	"github.com/Ramsey-B/wisteria/pkg/database"
	"github.com/Ramsey-B/wisteria/pkg/merging"
	"github.com/Ramsey-B/wisteria/pkg/models"
	"github.com/Ramsey-B/wisteria/pkg/normalizers"
	"github.com/Ramsey-B/wisteria/pkg/redis"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

var migrateOnce sync.Once

func getTestDB(t *testing.T) database.DB {
	// Use environment variables or defaults for test DB
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}
	dbUser := os.Getenv("DB_USER_NAME")
	if dbUser == "" {
		dbUser = "user"
	}
	dbPass := os.Getenv("DB_PASSWORD")
	if dbPass == "" {
		dbPass = "password"
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "wisteria"
	}

	dsn := "host=" + dbHost + " user=" + dbUser + " password=" + dbPass + " dbname=" + dbName + " sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")

	logger := getTestLogger()

	migrateOnce.Do(func() {
		// The test binary runs from test/integration
		ms := database.NewMigrationService(logger, &database.MigrationConfig{
			MigrationFolderPath: "../../db/pg",
		})
		require.NoError(t, ms.MigratePostgres(dbName, db.DB), "Failed to run migrations")
	})

	return database.NewDatabaseInstance(db, logger)
}

// newTestLocker backs the merge engine's locks with an in-process Redis
func newTestLocker(t *testing.T) *redis.Locker {
	t.Helper()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	client, err := redis.NewClient(redis.Config{Host: mr.Host(), Port: port}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return redis.NewLocker(client, "")
}

type testEnv struct {
	logger            ectologger.Logger
	db                database.DB
	buildings         *building.Repository
	properties        *property.Repository
	listings          listing.ListingRepository
	exclusions        *exclusion.Repository
	buildingHistories *mergehistory.BuildingRepository
	propertyHistories *mergehistory.PropertyRepository
	engine            *merging.Engine
}

// newTestEnv connects to the test database, wipes data left by earlier runs,
// and wires repositories plus a merge engine without cache or event emission.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := getTestLogger()
	db := getTestDB(t)
	wipeData(t, db)

	buildings := building.NewRepository(db, logger)
	properties := property.NewRepository(db, logger)
	listings := listing.NewRepository(db, logger)
	exclusions := exclusion.NewRepository(db, logger)
	buildingHistories := mergehistory.NewBuildingRepository(db, logger)
	propertyHistories := mergehistory.NewPropertyRepository(db, logger)

	engine := merging.NewEngine(
		logger,
		buildings,
		properties,
		listings,
		exclusions,
		buildingHistories,
		propertyHistories,
		newTestLocker(t),
		nil,
		nil,
		merging.DefaultConfig(),
	)

	return &testEnv{
		logger:            logger,
		db:                db,
		buildings:         buildings,
		properties:        properties,
		listings:          listings,
		exclusions:        exclusions,
		buildingHistories: buildingHistories,
		propertyHistories: propertyHistories,
		engine:            engine,
	}
}

// wipeData clears every table, children before parents
func wipeData(t *testing.T, db database.DB) {
	t.Helper()

	tables := []string{
		"listings",
		"property_merge_histories",
		"properties",
		"building_merge_histories",
		"building_exclusions",
		"buildings",
	}
	for _, table := range tables {
		_, err := db.ExecContext(context.Background(), "DELETE FROM "+table)
		require.NoError(t, err, "Failed to clear table %s", table)
	}
}

func (env *testEnv) createBuilding(t *testing.T, name, address string, totalFloors *int) *models.Building {
	t.Helper()

	created, err := env.buildings.Create(context.Background(), &models.Building{
		Name:              name,
		NormalizedName:    normalizers.NormalizeBuildingName(name),
		Address:           address,
		NormalizedAddress: normalizers.NormalizeAddress(address),
		TotalFloors:       totalFloors,
	})
	require.NoError(t, err)
	return created
}

func (env *testEnv) createProperty(t *testing.T, buildingID int64, roomNumber *string, floorNumber *int) *models.Property {
	t.Helper()

	created, err := env.properties.Create(context.Background(), &models.Property{
		BuildingID:  buildingID,
		RoomNumber:  roomNumber,
		FloorNumber: floorNumber,
	})
	require.NoError(t, err)
	return created
}

func (env *testEnv) createListing(t *testing.T, propertyID int64, sourceSite, externalID string, price *int64) *models.Listing {
	t.Helper()

	created, err := env.listings.Create(context.Background(), &models.Listing{
		PropertyID:   propertyID,
		SourceSite:   sourceSite,
		ExternalID:   externalID,
		Title:        externalID,
		URL:          "https://example.com/" + externalID,
		CurrentPrice: price,
		Fingerprint:  "fp-" + externalID,
	})
	require.NoError(t, err)
	return created
}

// assertNotFound asserts that err is an HTTP 404 error
func assertNotFound(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err), "expected HTTP error, got: %v", err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err), "expected 404, got: %d", httperror.GetStatusCode(err))
}

// assertConflict asserts that err is an HTTP 409 error
func assertConflict(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err), "expected HTTP error, got: %v", err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err), "expected 409, got: %d", httperror.GetStatusCode(err))
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func int64Ptr(i int64) *int64 { return &i }
