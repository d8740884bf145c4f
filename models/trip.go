package models

import (
	"fmt"
	"time"
)

// TripStateENUMType trip lifecycle state ENUM
type TripStateENUMType string

const (
	// TripStateDraft trip is being drafted by the owner
	TripStateDraft TripStateENUMType = "DRAFT"
	// TripStateActive trip is currently running
	TripStateActive TripStateENUMType = "ACTIVE"
	// TripStateCompleted trip ended normally
	TripStateCompleted TripStateENUMType = "COMPLETED"
	// TripStateExpired trip passed its end date without completion
	TripStateExpired TripStateENUMType = "EXPIRED"
)

// Trip one sitting engagement window at a property
//
// The vault core only reads trip state; the single write path it owns is the
// expiry transition driven by the external scheduler.
type Trip struct {
	// ID trip ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,uuid_rfc4122"`

	// PropertyID the property this trip covers
	PropertyID string `json:"property_id" gorm:"column:property_id;not null" validate:"required,uuid_rfc4122"`

	// State trip lifecycle state
	State TripStateENUMType `json:"state" gorm:"column:state;not null" validate:"required,trip_state"`

	// StartDate first day of the trip
	StartDate time.Time `json:"start_date" gorm:"column:start_date;not null" validate:"required"`
	// EndDate last day of the trip
	EndDate time.Time `json:"end_date" gorm:"column:end_date;not null" validate:"required"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateNextState verify can transition to new state
func (t *Trip) ValidateNextState(newState TripStateENUMType) error {
	statesWithTransitions := map[TripStateENUMType]map[TripStateENUMType]bool{
		TripStateDraft: {
			TripStateDraft:  true,
			TripStateActive: true,
		},
		TripStateActive: {
			TripStateActive:    true,
			TripStateCompleted: true,
			TripStateExpired:   true,
		},
		TripStateCompleted: {
			TripStateCompleted: true,
		},
		TripStateExpired: {
			TripStateExpired: true,
		},
	}

	availableNextStates, ok := statesWithTransitions[t.State]
	if !ok {
		return fmt.Errorf("trip can't transition out of state '%s'", t.State)
	}

	if _, ok := availableNextStates[newState]; !ok {
		return fmt.Errorf("trip can't transition from '%s' to '%s'", t.State, newState)
	}

	return nil
}

/*
IsActiveOn whether the trip is active at a point in time.

Active means state is ACTIVE and the trip end date has not passed. The
comparison is date-only; time-of-day is ignored on both sides.

	@param now time.Time - the reference time
	@return whether the trip is active
*/
func (t *Trip) IsActiveOn(now time.Time) bool {
	if t.State != TripStateActive {
		return false
	}
	endY, endM, endD := t.EndDate.Date()
	endDate := time.Date(endY, endM, endD, 0, 0, 0, 0, time.UTC)
	nowY, nowM, nowD := now.Date()
	nowDate := time.Date(nowY, nowM, nowD, 0, 0, 0, 0, time.UTC)
	return !endDate.Before(nowDate)
}
