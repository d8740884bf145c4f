package vault

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/alwitt/vaultgate/db"
	"github.com/alwitt/vaultgate/models"
	"github.com/apex/log"
	"gorm.io/gorm"
)

// accessPinDigits length of issued verification PINs
const accessPinDigits = 6

// pinDigest digest a PIN for storage and comparison
func pinDigest(pin string) []byte {
	digest := sha256.Sum256([]byte(pin))
	return digest[:]
}

/*
RequestAccessPin issue a verification PIN for a (trip, phone)

	@param ctx context.Context - execution context
	@param tripID string - trip ID
	@param rawPhone string - user entered sitter phone
*/
func (c *accessController) RequestAccessPin(
	ctx context.Context, tripID string, rawPhone string,
) error {
	logTags := c.GetLogTagsForContext(ctx)

	phone := models.NormalizePhone(rawPhone)

	pin, err := c.cryptoEngine.NewNumericPin(ctx, accessPinDigits)
	if err != nil {
		return fmt.Errorf("failed to generate verification PIN [%w]", err)
	}

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

			if _, err := dbClient.ReplaceOtpSession(
				dbCtx, tripID, phone, pinDigest(pin), c.now().Add(models.OtpSessionLifetime),
			); err != nil {
				return fmt.Errorf("failed to store verification session [%w]", err)
			}

			if _, err := dbClient.RecordAccessEvent(
				dbCtx, models.AccessEventTypePinIssued, models.AccessEventSessionRelated{
					TripID: tripID, PhoneTail: models.MaskPhone(phone),
				},
			); err != nil {
				return fmt.Errorf("failed to log PIN issuance audit event [%w]", err)
			}

			return nil
		},
	); dbErr != nil {
		return fmt.Errorf("failed to issue verification PIN for trip %s [%w]", tripID, dbErr)
	}
	if denial != nil {
		return *denial
	}

	// Dispatch is fire-and-forget with respect to the stored session; a
	// transport failure leaves the session in place and callers recover by
	// requesting a new PIN.
	if err := c.transport.SendPin(ctx, phone, pin); err != nil {
		log.WithError(err).WithFields(logTags).Error("Verification PIN dispatch failed")
		return fmt.Errorf("failed to dispatch verification PIN [%w]", err)
	}

	return nil
}

/*
VerifyAccessPin check a submitted PIN against the live session

	@param ctx context.Context - execution context
	@param tripID string - trip ID
	@param rawPhone string - user entered sitter phone
	@param pin string - the submitted PIN
*/
func (c *accessController) VerifyAccessPin(
	ctx context.Context, tripID string, rawPhone string, pin string,
) error {
	phone := models.NormalizePhone(rawPhone)

	// Denials after the attempt increment must not roll the increment back,
	// so they are captured and surfaced after the transaction commits.
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
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("failed to fetch verification session [%w]", err)
				}
				theDenial := denied(DenialNotFound, "no verification session for trip %s", tripID)
				denial = &theDenial
				return nil
			}

			if !sessionEntry.IsLiveOn(c.now()) {
				theDenial := denied(DenialExpired, "verification session %s expired", sessionEntry.ID)
				denial = &theDenial
				return nil
			}

			if sessionEntry.AttemptsExhausted() {
				theDenial := denied(
					DenialMaxAttempts, "verification session %s attempt budget spent", sessionEntry.ID,
				)
				denial = &theDenial
				return nil
			}

			attempts, err := dbClient.IncrementOtpSessionAttempts(dbCtx, sessionEntry.ID)
			if err != nil {
				return fmt.Errorf("failed to consume verification attempt [%w]", err)
			}

			if subtle.ConstantTimeCompare(sessionEntry.PinDigest, pinDigest(pin)) != 1 {
				if _, err := dbClient.RecordAccessEvent(
					dbCtx, models.AccessEventTypePinRejected, models.AccessEventSessionRelated{
						TripID: tripID, PhoneTail: models.MaskPhone(phone),
					},
				); err != nil {
					return fmt.Errorf("failed to log PIN rejection audit event [%w]", err)
				}

				if attempts >= models.OtpSessionAttemptBudget {
					// Terminal failure; the session is consumed and a new PIN
					// must be requested
					if err := dbClient.DeleteOtpSession(dbCtx, tripID, phone); err != nil {
						return fmt.Errorf("failed to consume exhausted session [%w]", err)
					}
					theDenial := denied(
						DenialMaxAttempts, "verification session %s attempt budget spent", sessionEntry.ID,
					)
					denial = &theDenial
					return nil
				}

				theDenial := denied(
					DenialInvalidPin, "submitted PIN does not match for trip %s", tripID,
				)
				denial = &theDenial
				return nil
			}

			if err := dbClient.MarkOtpSessionVerified(dbCtx, sessionEntry.ID); err != nil {
				return fmt.Errorf("failed to mark session verified [%w]", err)
			}

			if _, err := dbClient.RecordAccessEvent(
				dbCtx, models.AccessEventTypePinVerified, models.AccessEventSessionRelated{
					TripID: tripID, PhoneTail: models.MaskPhone(phone),
				},
			); err != nil {
				return fmt.Errorf("failed to log PIN verification audit event [%w]", err)
			}

			return nil
		},
	); dbErr != nil {
		return fmt.Errorf("failed to verify PIN for trip %s [%w]", tripID, dbErr)
	}
	if denial != nil {
		return *denial
	}

	return nil
}
