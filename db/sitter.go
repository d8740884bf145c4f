package db

import (
	"context"
	"fmt"

	"github.com/alwitt/vaultgate/models"
	"github.com/google/uuid"
)

/*
DefineNewSitter register a new sitter against a trip

	@param ctx context.Context - execution context
	@param tripID string - the trip the sitter is registered for
	@param name string - sitter display name
	@param phone string - normalized sitter phone, may be empty
	@param vaultAccess bool - whether the sitter may view the vault
	@returns sitter entry
*/
func (d *databaseImpl) DefineNewSitter(
	_ context.Context, tripID string, name string, phone string, vaultAccess bool,
) (models.Sitter, error) {
	newEntry := SitterDBEntry{
		Sitter: models.Sitter{
			ID:          uuid.NewString(),
			TripID:      tripID,
			Name:        name,
			Phone:       phone,
			VaultAccess: vaultAccess,
		},
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.Sitter{}, fmt.Errorf("new sitter '%s' is not valid [%w]", name, err)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.Sitter{}, fmt.Errorf("new sitter '%s' failed insert [%w]", name, tmp.Error)
	}

	return newEntry.Sitter, nil
}

// getSitterEntry find a sitter by ID
func (d *databaseImpl) getSitterEntry(sitterID string) (SitterDBEntry, error) {
	var entry SitterDBEntry
	err := d.db.Where("id = ?", sitterID).First(&entry).Error
	return entry, err
}

/*
GetSitter fetch a sitter by ID

	@param ctx context.Context - execution context
	@param sitterID string - sitter ID
	@returns sitter entry
*/
func (d *databaseImpl) GetSitter(_ context.Context, sitterID string) (models.Sitter, error) {
	entry, err := d.getSitterEntry(sitterID)
	if err != nil {
		return models.Sitter{}, fmt.Errorf("failed to fetch sitter %s [%w]", sitterID, err)
	}
	return entry.Sitter, nil
}

/*
FindSitterByPhone find a trip's sitter by normalized phone

An empty phone never matches; sitters without recorded phones are not
addressable through this lookup.

	@param ctx context.Context - execution context
	@param tripID string - trip ID
	@param phone string - normalized phone
	@returns sitter entry
*/
func (d *databaseImpl) FindSitterByPhone(
	_ context.Context, tripID string, phone string,
) (models.Sitter, error) {
	if phone == "" {
		return models.Sitter{}, fmt.Errorf("cannot look up a sitter with an empty phone")
	}

	var entry SitterDBEntry
	if tmp := d.db.Where(
		"trip_id = ? AND phone = ?", tripID, phone,
	).First(&entry); tmp.Error != nil {
		return models.Sitter{}, fmt.Errorf(
			"failed to find sitter of trip %s by phone [%w]", tripID, tmp.Error,
		)
	}

	return entry.Sitter, nil
}

/*
ListSittersOfTrip list sitters registered against a trip

	@param ctx context.Context - execution context
	@param tripID string - trip ID
	@return list of sitters
*/
func (d *databaseImpl) ListSittersOfTrip(
	_ context.Context, tripID string,
) ([]models.Sitter, error) {
	var entries []SitterDBEntry
	if tmp := d.db.Where(
		"trip_id = ?", tripID,
	).Order("created_at").Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list sitters of trip %s [%w]", tripID, tmp.Error)
	}

	result := []models.Sitter{}
	for _, entry := range entries {
		result = append(result, entry.Sitter)
	}

	return result, nil
}

/*
SetSitterVaultAccess update a sitter's vault access flag

	@param ctx context.Context - execution context
	@param sitterID string - sitter ID
	@param vaultAccess bool - the new flag value
*/
func (d *databaseImpl) SetSitterVaultAccess(
	_ context.Context, sitterID string, vaultAccess bool,
) error {
	entry, err := d.getSitterEntry(sitterID)
	if err != nil {
		return fmt.Errorf("failed to fetch sitter %s [%w]", sitterID, err)
	}

	if entry.VaultAccess == vaultAccess {
		// NOOP
		return nil
	}

	if tmp := d.db.Model(&SitterDBEntry{}).Where(
		"id = ?", sitterID,
	).Update("vault_access", vaultAccess); tmp.Error != nil {
		return fmt.Errorf("sitter %s vault access update failed [%w]", sitterID, tmp.Error)
	}

	return nil
}

/*
DeleteSitter remove a sitter from its trip

	@param ctx context.Context - execution context
	@param sitterID string - sitter ID
*/
func (d *databaseImpl) DeleteSitter(_ context.Context, sitterID string) error {
	entry, err := d.getSitterEntry(sitterID)
	if err != nil {
		return fmt.Errorf("failed to fetch sitter %s [%w]", sitterID, err)
	}

	if tmp := d.db.Delete(&entry); tmp.Error != nil {
		return fmt.Errorf("failed to delete sitter %s [%w]", sitterID, tmp.Error)
	}

	// Record this event
	if _, err := d.recordAccessEvent(
		models.AccessEventTypeSitterRemoved,
		models.AccessEventRevocationRelated{TripID: entry.TripID, SitterID: entry.ID},
	); err != nil {
		return fmt.Errorf("failed to log sitter removal audit event [%w]", err)
	}

	return nil
}
