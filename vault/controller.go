package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/vaultgate/db"
	"github.com/alwitt/vaultgate/encryption"
	"github.com/alwitt/vaultgate/models"
	"github.com/alwitt/vaultgate/store"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// AccessController the vault access control state machine
//
// It gates a sitter's view of a property's vault behind phone possession: a
// time-boxed one-time PIN, attempt-limited verification, and an owner
// revocable session. Eligibility (trip active, sitter registered, vault
// access granted) is re-derived on every gated call and never trusted from
// a prior step.
type AccessController interface {
	/*
		RequestAccessPin issue a verification PIN for a (trip, phone)

		Any prior session for the key is replaced. The PIN only travels over
		the transport channel; it never appears in a return value.

			@param ctx context.Context - execution context
			@param tripID string - trip ID
			@param rawPhone string - user entered sitter phone
	*/
	RequestAccessPin(ctx context.Context, tripID string, rawPhone string) error

	/*
		VerifyAccessPin check a submitted PIN against the live session

			@param ctx context.Context - execution context
			@param tripID string - trip ID
			@param rawPhone string - user entered sitter phone
			@param pin string - the submitted PIN
	*/
	VerifyAccessPin(ctx context.Context, tripID string, rawPhone string, pin string) error

	/*
		GetDecryptedItems return the property's vault items in plaintext

		Requires a live verified session. The result is derived fresh on every
		call and must never be persisted or cached by the caller.

			@param ctx context.Context - execution context
			@param tripID string - trip ID
			@param propertyID string - property ID
			@param rawPhone string - user entered sitter phone
			@return decrypted items keyed by item ID
	*/
	GetDecryptedItems(
		ctx context.Context, tripID string, propertyID string, rawPhone string,
	) (map[string]DecryptedVaultItem, error)

	/*
		RevokeSitterVaultAccess owner initiated revocation of a sitter's vault access

		Clears the vault access flag and deletes any live session in one
		transaction; the next gated call observes the revoked state.

			@param ctx context.Context - execution context
			@param sitterID string - sitter ID
	*/
	RevokeSitterVaultAccess(ctx context.Context, sitterID string) error

	/*
		HandleSitterRemoved propagate a sitter deletion

		Removes the sitter and deletes any live session in one transaction.

			@param ctx context.Context - execution context
			@param sitterID string - sitter ID
	*/
	HandleSitterRemoved(ctx context.Context, sitterID string) error

	/*
		HandleTripExpired propagate a trip expiry

		Transitions the trip to EXPIRED, clears vault access for all its
		sitters, and deletes all its sessions in one transaction. Driven by
		the external daily scheduler.

			@param ctx context.Context - execution context
			@param tripID string - trip ID
	*/
	HandleTripExpired(ctx context.Context, tripID string) error
}

// accessController implements AccessController
type accessController struct {
	goutils.Component

	persistence db.Client

	itemStore store.VaultItemStore

	cryptoEngine encryption.CryptographyEngine

	transport PinTransport

	now func() time.Time
}

// AccessControllerParams access controller init parameters
type AccessControllerParams struct {
	// Persistence persistence layer client
	Persistence db.Client `validate:"-"`
	// ItemStore encrypted vault item store
	ItemStore store.VaultItemStore `validate:"-"`
	// CryptoEngine cryptography engine
	CryptoEngine encryption.CryptographyEngine `validate:"-"`
	// Transport PIN delivery collaborator
	Transport PinTransport `validate:"-"`
	// TimeSource optional clock override, defaults to time.Now
	TimeSource func() time.Time `validate:"-"`
}

/*
NewAccessController define new vault access controller

	@param ctx context.Context - execution context
	@param params AccessControllerParams - controller parameters
	@returns controller instance
*/
func NewAccessController(
	_ context.Context, params AccessControllerParams,
) (AccessController, error) {
	logTags := log.Fields{"module": "vault", "component": "access-controller"}

	if params.Persistence == nil || params.ItemStore == nil ||
		params.CryptoEngine == nil || params.Transport == nil {
		return nil, fmt.Errorf("access controller is missing a required collaborator")
	}

	timeSource := params.TimeSource
	if timeSource == nil {
		timeSource = time.Now
	}

	instance := &accessController{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		persistence:  params.Persistence,
		itemStore:    params.ItemStore,
		cryptoEngine: params.CryptoEngine,
		transport:    params.Transport,
		now:          timeSource,
	}

	if err := models.RegisterWithValidator(validator.New()); err != nil {
		return nil, fmt.Errorf("failed to install custom validation macros [%w]", err)
	}

	return instance, nil
}

// checkEligibility run the trip / sitter / vault-access gates
//
// Gate ordering is fixed: trip activeness overrides everything so sitters
// get an actionable message, then registration, then the access flag.
func (c *accessController) checkEligibility(
	ctx context.Context, dbClient db.Database, tripID string, phone string,
) (models.Sitter, error) {
	tripEntry, err := dbClient.GetTrip(ctx, tripID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// An unknown trip is reported the same as an inactive one
			return models.Sitter{}, denied(DenialTripInactive, "trip %s is not active", tripID)
		}
		return models.Sitter{}, fmt.Errorf("trip %s lookup failed [%w]", tripID, err)
	}
	if !tripEntry.IsActiveOn(c.now()) {
		return models.Sitter{}, denied(DenialTripInactive, "trip %s is not active", tripID)
	}

	if len(phone) != 10 {
		return models.Sitter{}, denied(
			DenialNotRegistered, "no sitter of trip %s matches the phone", tripID,
		)
	}

	sitterEntry, err := dbClient.FindSitterByPhone(ctx, tripID, phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Sitter{}, denied(
				DenialNotRegistered, "no sitter of trip %s matches the phone", tripID,
			)
		}
		return models.Sitter{}, fmt.Errorf("sitter lookup for trip %s failed [%w]", tripID, err)
	}

	if !sitterEntry.VaultAccess {
		return models.Sitter{}, denied(
			DenialVaultAccessDenied, "sitter %s does not have vault access", sitterEntry.ID,
		)
	}

	return sitterEntry, nil
}
