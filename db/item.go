package db

import (
	"context"
	"fmt"

	"github.com/alwitt/vaultgate/models"
	"github.com/google/uuid"
)

/*
DefineNewVaultItem define new vault item with pre-encrypted value

	@param ctx context.Context - execution context
	@param params NewVaultItemParams - item parameters
	@returns item entry
*/
func (d *databaseImpl) DefineNewVaultItem(
	_ context.Context, params NewVaultItemParams,
) (models.VaultItem, error) {
	if err := d.validator.Struct(&params); err != nil {
		return models.VaultItem{}, fmt.Errorf(
			"new vault item '%s' parameters are not valid [%w]", params.Label, err,
		)
	}

	newEntry := VaultItemDBEntry{
		VaultItem: models.VaultItem{
			ID:             uuid.NewString(),
			PropertyID:     params.PropertyID,
			Type:           params.Type,
			Label:          params.Label,
			EncKeyID:       params.EncKeyID,
			EncValue:       params.EncValue,
			EncNonce:       params.EncNonce,
			Instructions:   params.Instructions,
			SortOrder:      params.SortOrder,
			LocationCardID: params.LocationCardID,
		},
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.VaultItem{}, fmt.Errorf(
			"new vault item '%s' is not valid [%w]", params.Label, err,
		)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.VaultItem{}, fmt.Errorf(
			"new vault item '%s' failed insert [%w]", params.Label, tmp.Error,
		)
	}

	return newEntry.VaultItem, nil
}

// getVaultItemEntry find a vault item by ID
func (d *databaseImpl) getVaultItemEntry(itemID string) (VaultItemDBEntry, error) {
	var entry VaultItemDBEntry
	err := d.db.Where("id = ?", itemID).First(&entry).Error
	return entry, err
}

/*
GetVaultItem fetch a vault item by ID

	@param ctx context.Context - execution context
	@param itemID string - item ID
	@returns item entry
*/
func (d *databaseImpl) GetVaultItem(_ context.Context, itemID string) (models.VaultItem, error) {
	entry, err := d.getVaultItemEntry(itemID)
	if err != nil {
		return models.VaultItem{}, fmt.Errorf("failed to fetch vault item %s [%w]", itemID, err)
	}
	return entry.VaultItem, nil
}

/*
ListVaultItemsOfProperty list a property's vault items in display order

	@param ctx context.Context - execution context
	@param propertyID string - property ID
	@param filters VaultItemQueryFilter - entry listing filter
	@return list of items
*/
func (d *databaseImpl) ListVaultItemsOfProperty(
	_ context.Context, propertyID string, filters VaultItemQueryFilter,
) ([]models.VaultItem, error) {
	query := d.db.Model(&VaultItemDBEntry{}).Where("property_id = ?", propertyID)

	if filters.Limit != nil {
		query = query.Limit(*filters.Limit)
	}
	if filters.Offset != nil {
		query = query.Offset(*filters.Offset)
	}

	query = query.Order("sort_order")

	var entries []VaultItemDBEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list vault items of property %s [%w]", propertyID, tmp.Error)
	}

	result := []models.VaultItem{}
	for _, entry := range entries {
		result = append(result, entry.VaultItem)
	}

	return result, nil
}

/*
UpdateVaultItemValue replace a vault item's encrypted value

	@param ctx context.Context - execution context
	@param itemID string - item ID
	@param encKey models.EncryptionKey - the key that encrypted the new value
	@param value []byte - the encrypted value
	@param nonce []byte - the encryption nonce
*/
func (d *databaseImpl) UpdateVaultItemValue(
	_ context.Context, itemID string, encKey models.EncryptionKey, value []byte, nonce []byte,
) error {
	entry, err := d.getVaultItemEntry(itemID)
	if err != nil {
		return fmt.Errorf("failed to fetch vault item %s [%w]", itemID, err)
	}

	entry.EncKeyID = encKey.ID
	entry.EncValue = value
	entry.EncNonce = nonce
	if err := d.validator.Struct(&entry); err != nil {
		return fmt.Errorf("updated vault item %s is not valid [%w]", itemID, err)
	}

	if tmp := d.db.Updates(&entry); tmp.Error != nil {
		return fmt.Errorf("vault item %s value update failed [%w]", itemID, tmp.Error)
	}

	return nil
}

/*
DeleteVaultItem delete a vault item

	@param ctx context.Context - execution context
	@param itemID string - item ID
*/
func (d *databaseImpl) DeleteVaultItem(_ context.Context, itemID string) error {
	entry, err := d.getVaultItemEntry(itemID)
	if err != nil {
		return fmt.Errorf("failed to fetch vault item %s [%w]", itemID, err)
	}

	if tmp := d.db.Delete(&entry); tmp.Error != nil {
		return fmt.Errorf("failed to delete vault item %s [%w]", itemID, tmp.Error)
	}

	return nil
}
