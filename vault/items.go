package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/alwitt/vaultgate/db"
	"github.com/alwitt/vaultgate/models"
	"gorm.io/gorm"
)

// DecryptedVaultItem one vault item with its value in plaintext
//
// Instances only exist inside a single gateway response. The type carries no
// serialization tags on purpose; nothing in or around this module may write
// one to a durable store or cache.
type DecryptedVaultItem struct {
	// ID item ID
	ID string
	// Type vault item type
	Type models.VaultItemTypeENUMType
	// Label short owner facing label
	Label string
	// Value the decrypted secret
	Value []byte
	// Instructions optional usage instructions
	Instructions string
	// SortOrder display ordering within the property vault
	SortOrder int
	// LocationCardID optional reference to an attached location card
	LocationCardID *string
}

/*
GetDecryptedItems return the property's vault items in plaintext

All eligibility gates are re-run and a live verified session is required
before any ciphertext is touched; an unauthorized viewer never observes item
labels, counts, or values.

	@param ctx context.Context - execution context
	@param tripID string - trip ID
	@param propertyID string - property ID
	@param rawPhone string - user entered sitter phone
	@return decrypted items keyed by item ID
*/
func (c *accessController) GetDecryptedItems(
	ctx context.Context, tripID string, propertyID string, rawPhone string,
) (map[string]DecryptedVaultItem, error) {
	phone := models.NormalizePhone(rawPhone)

	result := map[string]DecryptedVaultItem{}

	var denial *AccessDeniedError
	if dbErr := c.persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			_, err := c.checkEligibility(dbCtx, dbClient, tripID, phone)
			if err != nil {
				if theDenial, ok := AsAccessDenied(err); ok {
					denial = &theDenial
					return nil
				}
				return err
			}

			sessionEntry, err := dbClient.GetOtpSession(dbCtx, tripID, phone)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to fetch verification session [%w]", err)
			}
			if err != nil || !sessionEntry.Verified || !sessionEntry.IsLiveOn(c.now()) {
				theDenial := denied(
					DenialNotVerified, "no live verified session for trip %s", tripID,
				)
				denial = &theDenial
				return nil
			}

			itemEntries, err := dbClient.ListVaultItemsOfProperty(
				dbCtx, propertyID, db.VaultItemQueryFilter{},
			)
			if err != nil {
				return fmt.Errorf("failed to list vault items of property %s [%w]", propertyID, err)
			}

			for _, itemEntry := range itemEntries {
				plainText, err := c.itemStore.DecryptItemValue(dbCtx, itemEntry, dbClient)
				if err != nil {
					return fmt.Errorf("failed to decrypt vault item %s [%w]", itemEntry.ID, err)
				}
				result[itemEntry.ID] = DecryptedVaultItem{
					ID:             itemEntry.ID,
					Type:           itemEntry.Type,
					Label:          itemEntry.Label,
					Value:          plainText,
					Instructions:   itemEntry.Instructions,
					SortOrder:      itemEntry.SortOrder,
					LocationCardID: itemEntry.LocationCardID,
				}
			}

			if _, err := dbClient.RecordAccessEvent(
				dbCtx, models.AccessEventTypeVaultViewed, models.AccessEventVaultViewRelated{
					TripID:     tripID,
					PropertyID: propertyID,
					PhoneTail:  models.MaskPhone(phone),
					ItemCount:  len(result),
				},
			); err != nil {
				return fmt.Errorf("failed to log vault view audit event [%w]", err)
			}

			return nil
		},
	); dbErr != nil {
		return nil, fmt.Errorf("failed to fetch vault items of property %s [%w]", propertyID, dbErr)
	}
	if denial != nil {
		return nil, *denial
	}

	return result, nil
}
