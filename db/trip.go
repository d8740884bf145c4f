package db

import (
	"context"
	"fmt"
	"time"

	"github.com/alwitt/vaultgate/models"
	"github.com/google/uuid"
)

/*
DefineNewTrip define new trip

	@param ctx context.Context - execution context
	@param propertyID string - the property the trip covers
	@param state models.TripStateENUMType - initial trip state
	@param startDate time.Time - first day of the trip
	@param endDate time.Time - last day of the trip
	@returns trip entry
*/
func (d *databaseImpl) DefineNewTrip(
	_ context.Context,
	propertyID string,
	state models.TripStateENUMType,
	startDate time.Time,
	endDate time.Time,
) (models.Trip, error) {
	newEntry := TripDBEntry{
		Trip: models.Trip{
			ID:         uuid.NewString(),
			PropertyID: propertyID,
			State:      state,
			StartDate:  startDate,
			EndDate:    endDate,
		},
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.Trip{}, fmt.Errorf("new trip for property %s is not valid [%w]", propertyID, err)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.Trip{}, fmt.Errorf(
			"new trip for property %s failed insert [%w]", propertyID, tmp.Error,
		)
	}

	return newEntry.Trip, nil
}

// getTripEntry find a trip by ID
func (d *databaseImpl) getTripEntry(tripID string) (TripDBEntry, error) {
	var entry TripDBEntry
	err := d.db.Where("id = ?", tripID).First(&entry).Error
	return entry, err
}

/*
GetTrip fetch a trip by ID

	@param ctx context.Context - execution context
	@param tripID string - trip ID
	@returns trip entry
*/
func (d *databaseImpl) GetTrip(_ context.Context, tripID string) (models.Trip, error) {
	entry, err := d.getTripEntry(tripID)
	if err != nil {
		return models.Trip{}, fmt.Errorf("failed to fetch trip %s [%w]", tripID, err)
	}
	return entry.Trip, nil
}

/*
ListTrips list trips

	@param ctx context.Context - execution context
	@param filters TripQueryFilter - entry listing filter
	@return list of trips
*/
func (d *databaseImpl) ListTrips(
	_ context.Context, filters TripQueryFilter,
) ([]models.Trip, error) {
	query := d.db.Model(&TripDBEntry{})

	if len(filters.TargetStates) > 0 {
		query = query.Where("state in ?", filters.TargetStates)
	}

	if filters.TargetPropertyID != nil {
		query = query.Where("property_id = ?", *filters.TargetPropertyID)
	}

	if filters.Limit != nil {
		query = query.Limit(*filters.Limit)
	}
	if filters.Offset != nil {
		query = query.Offset(*filters.Offset)
	}

	query = query.Order("created_at desc")

	var entries []TripDBEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list trips [%w]", tmp.Error)
	}

	result := []models.Trip{}
	for _, entry := range entries {
		result = append(result, entry.Trip)
	}

	return result, nil
}

/*
MarkTripExpired transition a trip to the EXPIRED state

	@param ctx context.Context - execution context
	@param tripID string - trip ID
*/
func (d *databaseImpl) MarkTripExpired(_ context.Context, tripID string) error {
	entry, err := d.getTripEntry(tripID)
	if err != nil {
		return fmt.Errorf("failed to fetch trip %s [%w]", tripID, err)
	}

	if entry.State == models.TripStateExpired {
		// NOOP
		return nil
	}

	if err := entry.ValidateNextState(models.TripStateExpired); err != nil {
		return fmt.Errorf("trip state change to %s not allowed [%w]", models.TripStateExpired, err)
	}

	entry.State = models.TripStateExpired
	if tmp := d.db.Updates(&entry); tmp.Error != nil {
		return fmt.Errorf("trip state change update failed [%w]", tmp.Error)
	}

	// Record this event
	if _, err := d.recordAccessEvent(
		models.AccessEventTypeTripExpired,
		models.AccessEventRevocationRelated{TripID: tripID},
	); err != nil {
		return fmt.Errorf("failed to log trip expiry audit event [%w]", err)
	}

	return nil
}
