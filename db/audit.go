// Package db - persistence layer
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alwitt/vaultgate/models"
	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
)

// recordAccessEvent record a new vault access event
func (d *databaseImpl) recordAccessEvent(
	eventType models.AccessEventTypeENUMType, metadata interface{},
) (models.AccessEventAudit, error) {

	newEntry := AccessEventAuditDBEntry{
		AccessEventAudit: models.AccessEventAudit{ID: ulid.Make().String(), EventType: eventType},
	}

	if metadata != nil {
		if err := d.validator.Struct(metadata); err != nil {
			return models.AccessEventAudit{}, fmt.Errorf(
				"new access event '%s' metadata entry is not valid [%w]", eventType, err,
			)
		}

		metadataStr, _ := json.Marshal(&metadata)
		newEntry.Metadata = datatypes.JSON(metadataStr)
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.AccessEventAudit{}, fmt.Errorf(
			"new access event '%s' entry is not valid [%w]", eventType, err,
		)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.AccessEventAudit{}, fmt.Errorf(
			"new access event '%s' insert failed [%w]", eventType, tmp.Error,
		)
	}

	return newEntry.AccessEventAudit, nil
}

/*
RecordAccessEvent record a new vault access event

	@param ctx context.Context - execution context
	@param eventType models.AccessEventTypeENUMType - the event type
	@param metadata interface{} - event metadata
	@return the recorded event
*/
func (d *databaseImpl) RecordAccessEvent(
	_ context.Context, eventType models.AccessEventTypeENUMType, metadata interface{},
) (models.AccessEventAudit, error) {
	return d.recordAccessEvent(eventType, metadata)
}

/*
ListAccessEvents list captured vault access events

	@param ctx context.Context - execution context
	@param filters AccessEventQueryFilter - entry listing filter
	@return list of access events
*/
func (d *databaseImpl) ListAccessEvents(
	_ context.Context, filters AccessEventQueryFilter,
) ([]models.AccessEventAudit, error) {
	query := d.db.Model(&AccessEventAuditDBEntry{})

	if len(filters.EventTypes) > 0 {
		query = query.Where("type in ?", filters.EventTypes)
	}

	if filters.EventsAfter != nil {
		query = query.Where("created_at >= ?", *filters.EventsAfter)
	}
	if filters.EventsBefore != nil {
		query = query.Where("created_at <= ?", *filters.EventsBefore)
	}

	if filters.Limit != nil {
		query = query.Limit(*filters.Limit)
	}
	if filters.Offset != nil {
		query = query.Offset(*filters.Offset)
	}

	query = query.Order("created_at")

	var entries []AccessEventAuditDBEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list captured access events [%w]", tmp.Error)
	}

	result := []models.AccessEventAudit{}
	for _, entry := range entries {
		result = append(result, entry.AccessEventAudit)
	}

	return result, nil
}
