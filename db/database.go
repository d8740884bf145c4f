package db

import (
	"context"
	"fmt"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/vaultgate/models"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// CommonListEntryQueryFilter common query filter when listing data entries
type CommonListEntryQueryFilter struct {
	Limit  *int
	Offset *int
}

// AccessEventQueryFilter access audit event query filter conditions
type AccessEventQueryFilter struct {
	CommonListEntryQueryFilter
	// EventTypes the specific event types to query for
	EventTypes []models.AccessEventTypeENUMType
	// EventsAfter filter for events after this timestamp
	EventsAfter *time.Time
	// EventsBefore filter for events before this timestamp
	EventsBefore *time.Time
}

// EncryptionKeyQueryFilter encryption key query filer conditions
type EncryptionKeyQueryFilter struct {
	CommonListEntryQueryFilter
	// TargetState the specific states to query for
	TargetState []models.EncryptionKeyStateENUMType
}

// TripQueryFilter trip query filter conditions
type TripQueryFilter struct {
	CommonListEntryQueryFilter
	// TargetStates the specific trip states to query for
	TargetStates []models.TripStateENUMType
	// TargetPropertyID fetch only trips of this property
	TargetPropertyID *string
}

// VaultItemQueryFilter vault item query filter conditions
type VaultItemQueryFilter struct {
	CommonListEntryQueryFilter
}

// NewVaultItemParams parameters for defining a new vault item
//
// The value must already be encrypted; the persistence layer never sees
// plaintext secrets.
type NewVaultItemParams struct {
	// PropertyID the property this item belongs to
	PropertyID string `validate:"required,uuid_rfc4122"`
	// Type vault item type
	Type models.VaultItemTypeENUMType `validate:"required,vault_item_type"`
	// Label short owner facing label
	Label string `validate:"required"`
	// EncKeyID the symmetric encryption key which encrypted the value
	EncKeyID string `validate:"required,uuid_rfc4122"`
	// EncValue the encrypted item value
	EncValue []byte `validate:"required"`
	// EncNonce the encryption nonce used
	EncNonce []byte `validate:"required"`
	// Instructions optional usage instructions
	Instructions string
	// SortOrder display ordering within the property vault
	SortOrder int
	// LocationCardID optional reference to an attached location card
	LocationCardID *string `validate:"omitempty,uuid_rfc4122"`
}

// Database the database handle for interacting with the data base
type Database interface {
	// ------------------------------------------------------------------------------------
	// Access audit events

	/*
		RecordAccessEvent record a new vault access event

			@param ctx context.Context - execution context
			@param eventType models.AccessEventTypeENUMType - the event type
			@param metadata interface{} - event metadata
			@return the recorded event
	*/
	RecordAccessEvent(
		ctx context.Context, eventType models.AccessEventTypeENUMType, metadata interface{},
	) (models.AccessEventAudit, error)

	/*
		ListAccessEvents list captured vault access events

			@param ctx context.Context - execution context
			@param filters AccessEventQueryFilter - entry listing filter
			@return list of access events
	*/
	ListAccessEvents(
		ctx context.Context, filters AccessEventQueryFilter,
	) ([]models.AccessEventAudit, error)

	// ------------------------------------------------------------------------------------
	// Trips

	/*
		DefineNewTrip define new trip

			@param ctx context.Context - execution context
			@param propertyID string - the property the trip covers
			@param state models.TripStateENUMType - initial trip state
			@param startDate time.Time - first day of the trip
			@param endDate time.Time - last day of the trip
			@returns trip entry
	*/
	DefineNewTrip(
		ctx context.Context,
		propertyID string,
		state models.TripStateENUMType,
		startDate time.Time,
		endDate time.Time,
	) (models.Trip, error)

	/*
		GetTrip fetch a trip by ID

			@param ctx context.Context - execution context
			@param tripID string - trip ID
			@returns trip entry
	*/
	GetTrip(ctx context.Context, tripID string) (models.Trip, error)

	/*
		ListTrips list trips

			@param ctx context.Context - execution context
			@param filters TripQueryFilter - entry listing filter
			@return list of trips
	*/
	ListTrips(ctx context.Context, filters TripQueryFilter) ([]models.Trip, error)

	/*
		MarkTripExpired transition a trip to the EXPIRED state

			@param ctx context.Context - execution context
			@param tripID string - trip ID
	*/
	MarkTripExpired(ctx context.Context, tripID string) error

	// ------------------------------------------------------------------------------------
	// Sitters

	/*
		DefineNewSitter register a new sitter against a trip

			@param ctx context.Context - execution context
			@param tripID string - the trip the sitter is registered for
			@param name string - sitter display name
			@param phone string - normalized sitter phone, may be empty
			@param vaultAccess bool - whether the sitter may view the vault
			@returns sitter entry
	*/
	DefineNewSitter(
		ctx context.Context, tripID string, name string, phone string, vaultAccess bool,
	) (models.Sitter, error)

	/*
		GetSitter fetch a sitter by ID

			@param ctx context.Context - execution context
			@param sitterID string - sitter ID
			@returns sitter entry
	*/
	GetSitter(ctx context.Context, sitterID string) (models.Sitter, error)

	/*
		FindSitterByPhone find a trip's sitter by normalized phone

			@param ctx context.Context - execution context
			@param tripID string - trip ID
			@param phone string - normalized phone
			@returns sitter entry
	*/
	FindSitterByPhone(ctx context.Context, tripID string, phone string) (models.Sitter, error)

	/*
		ListSittersOfTrip list sitters registered against a trip

			@param ctx context.Context - execution context
			@param tripID string - trip ID
			@return list of sitters
	*/
	ListSittersOfTrip(ctx context.Context, tripID string) ([]models.Sitter, error)

	/*
		SetSitterVaultAccess update a sitter's vault access flag

			@param ctx context.Context - execution context
			@param sitterID string - sitter ID
			@param vaultAccess bool - the new flag value
	*/
	SetSitterVaultAccess(ctx context.Context, sitterID string, vaultAccess bool) error

	/*
		DeleteSitter remove a sitter from its trip

			@param ctx context.Context - execution context
			@param sitterID string - sitter ID
	*/
	DeleteSitter(ctx context.Context, sitterID string) error

	// ------------------------------------------------------------------------------------
	// Vault OTP sessions

	/*
		ReplaceOtpSession insert-or-replace the verification session for a (trip, phone)

		Any prior session for the key is deleted first; exactly one session row
		survives per key.

			@param ctx context.Context - execution context
			@param tripID string - trip ID
			@param phone string - normalized phone
			@param pinDigest []byte - digest of the issued PIN
			@param expiresAt time.Time - session expiry
			@returns session entry
	*/
	ReplaceOtpSession(
		ctx context.Context, tripID string, phone string, pinDigest []byte, expiresAt time.Time,
	) (models.VaultOtpSession, error)

	/*
		GetOtpSession fetch the verification session for a (trip, phone)

			@param ctx context.Context - execution context
			@param tripID string - trip ID
			@param phone string - normalized phone
			@returns session entry
	*/
	GetOtpSession(ctx context.Context, tripID string, phone string) (models.VaultOtpSession, error)

	/*
		IncrementOtpSessionAttempts consume one PIN comparison attempt

			@param ctx context.Context - execution context
			@param sessionID string - session entry ID
			@returns the attempt count after the increment
	*/
	IncrementOtpSessionAttempts(ctx context.Context, sessionID string) (int, error)

	/*
		MarkOtpSessionVerified mark the session's PIN as matched

			@param ctx context.Context - execution context
			@param sessionID string - session entry ID
	*/
	MarkOtpSessionVerified(ctx context.Context, sessionID string) error

	/*
		DeleteOtpSession delete the verification session for a (trip, phone)

		Deleting an absent session is not an error.

			@param ctx context.Context - execution context
			@param tripID string - trip ID
			@param phone string - normalized phone
	*/
	DeleteOtpSession(ctx context.Context, tripID string, phone string) error

	/*
		DeleteOtpSessionsOfTrip delete all verification sessions of a trip

			@param ctx context.Context - execution context
			@param tripID string - trip ID
	*/
	DeleteOtpSessionsOfTrip(ctx context.Context, tripID string) error

	// ------------------------------------------------------------------------------------
	// Vault items

	/*
		DefineNewVaultItem define new vault item with pre-encrypted value

			@param ctx context.Context - execution context
			@param params NewVaultItemParams - item parameters
			@returns item entry
	*/
	DefineNewVaultItem(ctx context.Context, params NewVaultItemParams) (models.VaultItem, error)

	/*
		GetVaultItem fetch a vault item by ID

			@param ctx context.Context - execution context
			@param itemID string - item ID
			@returns item entry
	*/
	GetVaultItem(ctx context.Context, itemID string) (models.VaultItem, error)

	/*
		ListVaultItemsOfProperty list a property's vault items in display order

			@param ctx context.Context - execution context
			@param propertyID string - property ID
			@param filters VaultItemQueryFilter - entry listing filter
			@return list of items
	*/
	ListVaultItemsOfProperty(
		ctx context.Context, propertyID string, filters VaultItemQueryFilter,
	) ([]models.VaultItem, error)

	/*
		UpdateVaultItemValue replace a vault item's encrypted value

			@param ctx context.Context - execution context
			@param itemID string - item ID
			@param encKey models.EncryptionKey - the key that encrypted the new value
			@param value []byte - the encrypted value
			@param nonce []byte - the encryption nonce
	*/
	UpdateVaultItemValue(
		ctx context.Context, itemID string, encKey models.EncryptionKey, value []byte, nonce []byte,
	) error

	/*
		DeleteVaultItem delete a vault item

			@param ctx context.Context - execution context
			@param itemID string - item ID
	*/
	DeleteVaultItem(ctx context.Context, itemID string) error

	// ------------------------------------------------------------------------------------
	// Encryption keys

	/*
		RecordEncryptionKey record an encrypted symmetric encryption key

			@param ctx context.Context - execution context
			@param encKeyMaterial []byte - encrypted key material
			@returns the key entry
	*/
	RecordEncryptionKey(ctx context.Context, encKeyMaterial []byte) (models.EncryptionKey, error)

	/*
		GetEncryptionKey fetch one encryption key

			@param ctx context.Context - execution context
			@param keyID string - the encryption key ID
			@return key entry
	*/
	GetEncryptionKey(ctx context.Context, keyID string) (models.EncryptionKey, error)

	/*
		ListEncryptionKeys list encryption keys

			@param ctx context.Context - execution context
			@param filters EncryptionKeyQueryFilter - entry listing filter
			@return list of keys
	*/
	ListEncryptionKeys(
		ctx context.Context, filters EncryptionKeyQueryFilter,
	) ([]models.EncryptionKey, error)

	/*
		MarkEncryptionKeyActive mark encryption key is active

			@param ctx context.Context - execution context
			@param keyID string - the encryption key ID
	*/
	MarkEncryptionKeyActive(ctx context.Context, keyID string) error

	/*
		MarkEncryptionKeyInactive mark encryption key is inactive

			@param ctx context.Context - execution context
			@param keyID string - the encryption key ID
	*/
	MarkEncryptionKeyInactive(ctx context.Context, keyID string) error

	/*
		DeleteEncryptionKey delete encryption key

			@param ctx context.Context - execution context
			@param keyID string - the encryption key ID
	*/
	DeleteEncryptionKey(ctx context.Context, keyID string) error
}

// databaseImpl implements Database
type databaseImpl struct {
	goutils.Component
	db        *gorm.DB
	validator *validator.Validate
}

// newDatabase define a new database client
func newDatabase(_ context.Context, sqlClient *gorm.DB) (Database, error) {
	logTags := log.Fields{"package": "vaultgate", "module": "db", "component": "db-client"}

	instance := &databaseImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		db:        sqlClient,
		validator: validator.New(),
	}

	if err := models.RegisterWithValidator(instance.validator); err != nil {
		return nil, fmt.Errorf("failed to install custom validation macros [%w]", err)
	}

	return instance, nil
}
