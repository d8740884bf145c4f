package models_test

import (
	"testing"
	"time"

	"github.com/alwitt/vaultgate/models"
	"github.com/stretchr/testify/assert"
)

func TestTripActiveness(t *testing.T) {
	assert := assert.New(t)

	endDate := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	trip := models.Trip{
		State:     models.TripStateActive,
		StartDate: endDate.AddDate(0, 0, -7),
		EndDate:   endDate,
	}

	// Active through the entire end date, regardless of time of day
	assert.True(trip.IsActiveOn(time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC)))
	assert.True(trip.IsActiveOn(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(trip.IsActiveOn(time.Date(2024, 6, 15, 23, 59, 59, 0, time.UTC)))

	// Inactive starting the following day
	assert.False(trip.IsActiveOn(time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)))

	// Only the ACTIVE state counts even within the date window
	for _, state := range []models.TripStateENUMType{
		models.TripStateDraft, models.TripStateCompleted, models.TripStateExpired,
	} {
		trip.State = state
		assert.False(trip.IsActiveOn(time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC)))
	}
}

func TestTripStateTransitions(t *testing.T) {
	assert := assert.New(t)

	trip := models.Trip{State: models.TripStateDraft}
	assert.Nil(trip.ValidateNextState(models.TripStateActive))
	assert.Error(trip.ValidateNextState(models.TripStateCompleted))
	assert.Error(trip.ValidateNextState(models.TripStateExpired))

	trip.State = models.TripStateActive
	assert.Nil(trip.ValidateNextState(models.TripStateCompleted))
	assert.Nil(trip.ValidateNextState(models.TripStateExpired))
	assert.Error(trip.ValidateNextState(models.TripStateDraft))

	// Terminal states only allow self transition
	trip.State = models.TripStateCompleted
	assert.Nil(trip.ValidateNextState(models.TripStateCompleted))
	assert.Error(trip.ValidateNextState(models.TripStateActive))

	trip.State = models.TripStateExpired
	assert.Nil(trip.ValidateNextState(models.TripStateExpired))
	assert.Error(trip.ValidateNextState(models.TripStateActive))
}

func TestOtpSessionLiveness(t *testing.T) {
	assert := assert.New(t)

	expiresAt := time.Date(2024, 6, 14, 10, 10, 0, 0, time.UTC)
	session := models.VaultOtpSession{ExpiresAt: expiresAt}

	assert.True(session.IsLiveOn(expiresAt.Add(-time.Minute)))
	// Live exactly at the expiry timestamp
	assert.True(session.IsLiveOn(expiresAt))
	// Expired the instant after
	assert.False(session.IsLiveOn(expiresAt.Add(time.Millisecond)))
}
