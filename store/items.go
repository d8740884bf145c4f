// Package store - data storage controllers
package store

import (
	"context"
	"fmt"

	"github.com/alwitt/goutils"
	"github.com/alwitt/vaultgate/db"
	"github.com/alwitt/vaultgate/encryption"
	"github.com/alwitt/vaultgate/models"
	"github.com/apex/log"
)

// NewVaultItemParams parameters for recording a new vault item
//
// The value arrives in plaintext and is encrypted before it touches the
// persistence layer.
type NewVaultItemParams struct {
	// PropertyID the property this item belongs to
	PropertyID string
	// Type vault item type
	Type models.VaultItemTypeENUMType
	// Label short owner facing label
	Label string
	// Value the plaintext secret
	Value []byte
	// Instructions optional usage instructions
	Instructions string
	// SortOrder display ordering within the property vault
	SortOrder int
	// LocationCardID optional reference to an attached location card
	LocationCardID *string
}

// VaultItemStore encrypted-at-rest storage for property vault items
type VaultItemStore interface {
	/*
		RecordVaultItem encrypt and store a new vault item

			@param ctx context.Context - execution context
			@param params NewVaultItemParams - item parameters with plaintext value
			@param activeDBClient Database - existing database transaction
			@returns the item entry (encrypted form)
	*/
	RecordVaultItem(
		ctx context.Context, params NewVaultItemParams, activeDBClient db.Database,
	) (models.VaultItem, error)

	/*
		UpdateVaultItemValue re-encrypt and replace a vault item's value

			@param ctx context.Context - execution context
			@param itemID string - item ID
			@param value []byte - the new plaintext value
			@param activeDBClient Database - existing database transaction
	*/
	UpdateVaultItemValue(
		ctx context.Context, itemID string, value []byte, activeDBClient db.Database,
	) error

	/*
		DecryptItemValue decrypt one vault item's value for a single call

		The plaintext only exists in the returned slice; it is never written
		back to any store.

			@param ctx context.Context - execution context
			@param item models.VaultItem - the item entry
			@param activeDBClient Database - existing database transaction
			@return decrypted item value
	*/
	DecryptItemValue(
		ctx context.Context, item models.VaultItem, activeDBClient db.Database,
	) ([]byte, error)

	/*
		DeleteVaultItem delete a vault item

			@param ctx context.Context - execution context
			@param itemID string - item ID
			@param activeDBClient Database - existing database transaction
	*/
	DeleteVaultItem(ctx context.Context, itemID string, activeDBClient db.Database) error
}

// vaultItemStore implements VaultItemStore
type vaultItemStore struct {
	goutils.Component

	persistence db.Client

	cryptoEngine encryption.CryptographyEngine

	workingKey models.EncryptionKey
}

/*
NewVaultItemStore define new vault item store

On first use a working symmetric encryption key is created; afterwards the
newest active key is loaded.

	@param ctx context.Context - execution context
	@param persistence db.Client - persistence layer client
	@param cryptoEngine encryption.CryptographyEngine - cryptography engine
	@returns store instance
*/
func NewVaultItemStore(
	ctx context.Context, persistence db.Client, cryptoEngine encryption.CryptographyEngine,
) (VaultItemStore, error) {
	logTags := log.Fields{"module": "store", "component": "vault-item-store"}

	instance := &vaultItemStore{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		persistence:  persistence,
		cryptoEngine: cryptoEngine,
	}

	// Prepare the working encryption key
	if dbErr := persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			activeKeys, err := cryptoEngine.ListEncryptionKeys(
				dbCtx,
				db.EncryptionKeyQueryFilter{
					TargetState: []models.EncryptionKeyStateENUMType{models.EncryptionKeyStateActive},
				},
				dbClient,
			)
			if err != nil {
				return fmt.Errorf("failed to list active encryption keys [%w]", err)
			}

			if len(activeKeys) == 0 {
				// Make a new key
				instance.workingKey, err = cryptoEngine.NewEncryptionKey(dbCtx, dbClient)
				if err != nil {
					return fmt.Errorf("failed to define new encryption key [%w]", err)
				}
			} else {
				// Use the newest key
				instance.workingKey = activeKeys[0]
			}

			return nil
		},
	); dbErr != nil {
		return nil, fmt.Errorf("failed to prepare working encryption key [%w]", dbErr)
	}

	return instance, nil
}

/*
RecordVaultItem encrypt and store a new vault item

	@param ctx context.Context - execution context
	@param params NewVaultItemParams - item parameters with plaintext value
	@param activeDBClient Database - existing database transaction
	@returns the item entry (encrypted form)
*/
func (s *vaultItemStore) RecordVaultItem(
	ctx context.Context, params NewVaultItemParams, activeDBClient db.Database,
) (models.VaultItem, error) {
	var itemEntry models.VaultItem

	if dbErr := db.ActiveSessionWrapper(
		ctx, activeDBClient, s.persistence, func(dbCtx context.Context, dbClient db.Database) error {
			// Encrypt the value
			theKey, encrypted, err := s.cryptoEngine.EncryptData(
				dbCtx, s.workingKey.ID, params.Value, dbClient,
			)
			if err != nil {
				return fmt.Errorf("failed to encrypt vault item value [%w]", err)
			}

			itemEntry, err = dbClient.DefineNewVaultItem(dbCtx, db.NewVaultItemParams{
				PropertyID:     params.PropertyID,
				Type:           params.Type,
				Label:          params.Label,
				EncKeyID:       theKey.ID,
				EncValue:       encrypted.CipherText,
				EncNonce:       encrypted.Nonce,
				Instructions:   params.Instructions,
				SortOrder:      params.SortOrder,
				LocationCardID: params.LocationCardID,
			})
			if err != nil {
				return fmt.Errorf("failed to insert new vault item [%w]", err)
			}

			return nil
		},
	); dbErr != nil {
		return models.VaultItem{}, fmt.Errorf(
			"failed to record vault item '%s' [%w]", params.Label, dbErr,
		)
	}

	return itemEntry, nil
}

/*
UpdateVaultItemValue re-encrypt and replace a vault item's value

	@param ctx context.Context - execution context
	@param itemID string - item ID
	@param value []byte - the new plaintext value
	@param activeDBClient Database - existing database transaction
*/
func (s *vaultItemStore) UpdateVaultItemValue(
	ctx context.Context, itemID string, value []byte, activeDBClient db.Database,
) error {
	if dbErr := db.ActiveSessionWrapper(
		ctx, activeDBClient, s.persistence, func(dbCtx context.Context, dbClient db.Database) error {
			theKey, encrypted, err := s.cryptoEngine.EncryptData(
				dbCtx, s.workingKey.ID, value, dbClient,
			)
			if err != nil {
				return fmt.Errorf("failed to encrypt vault item value [%w]", err)
			}

			return dbClient.UpdateVaultItemValue(
				dbCtx, itemID, theKey, encrypted.CipherText, encrypted.Nonce,
			)
		},
	); dbErr != nil {
		return fmt.Errorf("failed to update vault item %s value [%w]", itemID, dbErr)
	}

	return nil
}

/*
DecryptItemValue decrypt one vault item's value for a single call

	@param ctx context.Context - execution context
	@param item models.VaultItem - the item entry
	@param activeDBClient Database - existing database transaction
	@return decrypted item value
*/
func (s *vaultItemStore) DecryptItemValue(
	ctx context.Context, item models.VaultItem, activeDBClient db.Database,
) ([]byte, error) {
	_, plainText, err := s.cryptoEngine.DecryptData(
		ctx, item.EncKeyID, encryption.EncryptedData{
			CipherText: item.EncValue, Nonce: item.EncNonce,
		}, activeDBClient,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt vault item %s [%w]", item.ID, err)
	}

	return plainText, nil
}

/*
DeleteVaultItem delete a vault item

	@param ctx context.Context - execution context
	@param itemID string - item ID
	@param activeDBClient Database - existing database transaction
*/
func (s *vaultItemStore) DeleteVaultItem(
	ctx context.Context, itemID string, activeDBClient db.Database,
) error {
	if dbErr := db.ActiveSessionWrapper(
		ctx, activeDBClient, s.persistence, func(dbCtx context.Context, dbClient db.Database) error {
			return dbClient.DeleteVaultItem(dbCtx, itemID)
		},
	); dbErr != nil {
		return fmt.Errorf("failed to delete vault item %s [%w]", itemID, dbErr)
	}

	return nil
}
