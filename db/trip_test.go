package db_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alwitt/vaultgate/db"
	"github.com/alwitt/vaultgate/models"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

// TestDBTripRecord verifies the trip API:
//   - DefineNewTrip
//   - GetTrip
//   - ListTrips
//   - MarkTripExpired
func TestDBTripRecord(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	// Create a unique temporary DB file for this test
	testDB := fmt.Sprintf("/tmp/vaultgate_ut_%s.db", ulid.Make().String())
	log.WithField("db", testDB).Debug("Test database")

	uut, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(err)

	// Create database tables
	assert.Nil(uut.RunSQLInTransaction(utCtx, db.DefineTables))

	testProperty := uuid.NewString()

	// 1. Define one active and one draft trip against the property
	var activeTrip, draftTrip models.Trip
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		activeTrip, err = dbClient.DefineNewTrip(
			ctx,
			testProperty,
			models.TripStateActive,
			time.Now().UTC(),
			time.Now().UTC().AddDate(0, 0, 7),
		)
		if err != nil {
			return err
		}
		draftTrip, err = dbClient.DefineNewTrip(
			ctx,
			testProperty,
			models.TripStateDraft,
			time.Now().UTC().AddDate(0, 1, 0),
			time.Now().UTC().AddDate(0, 1, 7),
		)
		return err
	})
	assert.Nil(err)

	// 2. Retrieve the active trip and verify content
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		read, err := dbClient.GetTrip(ctx, activeTrip.ID)
		if err != nil {
			return err
		}
		assert.Equal(testProperty, read.PropertyID)
		assert.Equal(models.TripStateActive, read.State)
		return nil
	})
	assert.Nil(err)

	// 3. List trips by property and by state
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		all, err := dbClient.ListTrips(ctx, db.TripQueryFilter{TargetPropertyID: &testProperty})
		if err != nil {
			return err
		}
		assert.Len(all, 2)

		active, err := dbClient.ListTrips(ctx, db.TripQueryFilter{
			TargetStates: []models.TripStateENUMType{models.TripStateActive},
		})
		if err != nil {
			return err
		}
		assert.Len(active, 1)
		assert.Equal(activeTrip.ID, active[0].ID)
		return nil
	})
	assert.Nil(err)

	// 4. Expire the active trip and verify state and audit event
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		return dbClient.MarkTripExpired(ctx, activeTrip.ID)
	})
	assert.Nil(err)
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		read, err := dbClient.GetTrip(ctx, activeTrip.ID)
		if err != nil {
			return err
		}
		assert.Equal(models.TripStateExpired, read.State)

		events, err := dbClient.ListAccessEvents(ctx, db.AccessEventQueryFilter{
			EventTypes: []models.AccessEventTypeENUMType{models.AccessEventTypeTripExpired},
		})
		if err != nil {
			return err
		}
		assert.Len(events, 1)
		return nil
	})
	assert.Nil(err)

	// 5. Expiring it again is a NOOP
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		return dbClient.MarkTripExpired(ctx, activeTrip.ID)
	})
	assert.Nil(err)

	// 6. A draft trip cannot be expired
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		return dbClient.MarkTripExpired(ctx, draftTrip.ID)
	})
	assert.Error(err)
}
