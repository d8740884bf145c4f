package db

import (
	"context"
	"fmt"
	"time"

	"github.com/alwitt/vaultgate/models"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

/*
ReplaceOtpSession insert-or-replace the verification session for a (trip, phone)

Any prior session for the key is deleted first; exactly one session row
survives per key. When two replacements race, the last writer wins.

	@param ctx context.Context - execution context
	@param tripID string - trip ID
	@param phone string - normalized phone
	@param pinDigest []byte - digest of the issued PIN
	@param expiresAt time.Time - session expiry
	@returns session entry
*/
func (d *databaseImpl) ReplaceOtpSession(
	ctx context.Context, tripID string, phone string, pinDigest []byte, expiresAt time.Time,
) (models.VaultOtpSession, error) {
	if err := d.DeleteOtpSession(ctx, tripID, phone); err != nil {
		return models.VaultOtpSession{}, fmt.Errorf(
			"failed to clear prior session of trip %s [%w]", tripID, err,
		)
	}

	newEntry := VaultOtpSessionDBEntry{
		VaultOtpSession: models.VaultOtpSession{
			ID:        ulid.Make().String(),
			TripID:    tripID,
			Phone:     phone,
			PinDigest: pinDigest,
			ExpiresAt: expiresAt,
			Verified:  false,
			Attempts:  0,
		},
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.VaultOtpSession{}, fmt.Errorf(
			"new session for trip %s is not valid [%w]", tripID, err,
		)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.VaultOtpSession{}, fmt.Errorf(
			"new session for trip %s failed insert [%w]", tripID, tmp.Error,
		)
	}

	return newEntry.VaultOtpSession, nil
}

/*
GetOtpSession fetch the verification session for a (trip, phone)

	@param ctx context.Context - execution context
	@param tripID string - trip ID
	@param phone string - normalized phone
	@returns session entry
*/
func (d *databaseImpl) GetOtpSession(
	_ context.Context, tripID string, phone string,
) (models.VaultOtpSession, error) {
	var entry VaultOtpSessionDBEntry
	if tmp := d.db.Where(
		"trip_id = ? AND phone = ?", tripID, phone,
	).First(&entry); tmp.Error != nil {
		return models.VaultOtpSession{}, fmt.Errorf(
			"failed to fetch session of trip %s [%w]", tripID, tmp.Error,
		)
	}

	return entry.VaultOtpSession, nil
}

/*
IncrementOtpSessionAttempts consume one PIN comparison attempt

The increment happens against the stored row, not an in-memory copy, so a
client retrying in parallel cannot stretch the attempt budget.

	@param ctx context.Context - execution context
	@param sessionID string - session entry ID
	@returns the attempt count after the increment
*/
func (d *databaseImpl) IncrementOtpSessionAttempts(
	_ context.Context, sessionID string,
) (int, error) {
	if tmp := d.db.Model(&VaultOtpSessionDBEntry{}).Where(
		"id = ?", sessionID,
	).Update("attempts", gorm.Expr("attempts + 1")); tmp.Error != nil {
		return 0, fmt.Errorf("session %s attempt increment failed [%w]", sessionID, tmp.Error)
	}

	var entry VaultOtpSessionDBEntry
	if tmp := d.db.Where("id = ?", sessionID).First(&entry); tmp.Error != nil {
		return 0, fmt.Errorf("failed to fetch session %s [%w]", sessionID, tmp.Error)
	}

	return entry.Attempts, nil
}

/*
MarkOtpSessionVerified mark the session's PIN as matched

The session is updated in place rather than deleted; the decryption gateway
re-validates it on every call.

	@param ctx context.Context - execution context
	@param sessionID string - session entry ID
*/
func (d *databaseImpl) MarkOtpSessionVerified(_ context.Context, sessionID string) error {
	if tmp := d.db.Model(&VaultOtpSessionDBEntry{}).Where(
		"id = ?", sessionID,
	).Update("verified", true); tmp.Error != nil {
		return fmt.Errorf("session %s verified update failed [%w]", sessionID, tmp.Error)
	}
	return nil
}

/*
DeleteOtpSession delete the verification session for a (trip, phone)

Deleting an absent session is not an error.

	@param ctx context.Context - execution context
	@param tripID string - trip ID
	@param phone string - normalized phone
*/
func (d *databaseImpl) DeleteOtpSession(_ context.Context, tripID string, phone string) error {
	if tmp := d.db.Where(
		"trip_id = ? AND phone = ?", tripID, phone,
	).Delete(&VaultOtpSessionDBEntry{}); tmp.Error != nil {
		return fmt.Errorf("failed to delete session of trip %s [%w]", tripID, tmp.Error)
	}
	return nil
}

/*
DeleteOtpSessionsOfTrip delete all verification sessions of a trip

	@param ctx context.Context - execution context
	@param tripID string - trip ID
*/
func (d *databaseImpl) DeleteOtpSessionsOfTrip(_ context.Context, tripID string) error {
	if tmp := d.db.Where(
		"trip_id = ?", tripID,
	).Delete(&VaultOtpSessionDBEntry{}); tmp.Error != nil {
		return fmt.Errorf("failed to delete sessions of trip %s [%w]", tripID, tmp.Error)
	}
	return nil
}
