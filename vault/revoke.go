package vault

import (
	"context"
	"fmt"

	"github.com/alwitt/vaultgate/db"
	"github.com/alwitt/vaultgate/models"
)

/*
RevokeSitterVaultAccess owner initiated revocation of a sitter's vault access

	@param ctx context.Context - execution context
	@param sitterID string - sitter ID
*/
func (c *accessController) RevokeSitterVaultAccess(ctx context.Context, sitterID string) error {
	var denial *AccessDeniedError
	if dbErr := c.persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			sitterEntry, err := dbClient.GetSitter(dbCtx, sitterID)
			if err != nil {
				theDenial := denied(DenialNotFound, "sitter %s is unknown", sitterID)
				denial = &theDenial
				return nil
			}

			if err := dbClient.SetSitterVaultAccess(dbCtx, sitterID, false); err != nil {
				return fmt.Errorf("failed to clear vault access of sitter %s [%w]", sitterID, err)
			}

			// Any live verification session dies with the grant
			if sitterEntry.Phone != "" {
				if err := dbClient.DeleteOtpSession(
					dbCtx, sitterEntry.TripID, sitterEntry.Phone,
				); err != nil {
					return fmt.Errorf(
						"failed to clear verification session of sitter %s [%w]", sitterID, err,
					)
				}
			}

			if _, err := dbClient.RecordAccessEvent(
				dbCtx, models.AccessEventTypeAccessRevoked, models.AccessEventRevocationRelated{
					TripID: sitterEntry.TripID, SitterID: sitterID,
				},
			); err != nil {
				return fmt.Errorf("failed to log revocation audit event [%w]", err)
			}

			return nil
		},
	); dbErr != nil {
		return fmt.Errorf("failed to revoke vault access of sitter %s [%w]", sitterID, dbErr)
	}
	if denial != nil {
		return *denial
	}

	return nil
}

/*
HandleSitterRemoved propagate a sitter deletion

	@param ctx context.Context - execution context
	@param sitterID string - sitter ID
*/
func (c *accessController) HandleSitterRemoved(ctx context.Context, sitterID string) error {
	var denial *AccessDeniedError
	if dbErr := c.persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			sitterEntry, err := dbClient.GetSitter(dbCtx, sitterID)
			if err != nil {
				theDenial := denied(DenialNotFound, "sitter %s is unknown", sitterID)
				denial = &theDenial
				return nil
			}

			if sitterEntry.Phone != "" {
				if err := dbClient.DeleteOtpSession(
					dbCtx, sitterEntry.TripID, sitterEntry.Phone,
				); err != nil {
					return fmt.Errorf(
						"failed to clear verification session of sitter %s [%w]", sitterID, err,
					)
				}
			}

			if err := dbClient.DeleteSitter(dbCtx, sitterID); err != nil {
				return fmt.Errorf("failed to delete sitter %s [%w]", sitterID, err)
			}

			return nil
		},
	); dbErr != nil {
		return fmt.Errorf("failed to propagate removal of sitter %s [%w]", sitterID, dbErr)
	}
	if denial != nil {
		return *denial
	}

	return nil
}

/*
HandleTripExpired propagate a trip expiry

	@param ctx context.Context - execution context
	@param tripID string - trip ID
*/
func (c *accessController) HandleTripExpired(ctx context.Context, tripID string) error {
	var denial *AccessDeniedError
	if dbErr := c.persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			if _, err := dbClient.GetTrip(dbCtx, tripID); err != nil {
				theDenial := denied(DenialNotFound, "trip %s is unknown", tripID)
				denial = &theDenial
				return nil
			}

			if err := dbClient.MarkTripExpired(dbCtx, tripID); err != nil {
				return fmt.Errorf("failed to mark trip %s expired [%w]", tripID, err)
			}

			sitterEntries, err := dbClient.ListSittersOfTrip(dbCtx, tripID)
			if err != nil {
				return fmt.Errorf("failed to list sitters of trip %s [%w]", tripID, err)
			}
			for _, sitterEntry := range sitterEntries {
				if !sitterEntry.VaultAccess {
					continue
				}
				if err := dbClient.SetSitterVaultAccess(dbCtx, sitterEntry.ID, false); err != nil {
					return fmt.Errorf(
						"failed to clear vault access of sitter %s [%w]", sitterEntry.ID, err,
					)
				}
			}

			if err := dbClient.DeleteOtpSessionsOfTrip(dbCtx, tripID); err != nil {
				return fmt.Errorf(
					"failed to clear verification sessions of trip %s [%w]", tripID, err,
				)
			}

			return nil
		},
	); dbErr != nil {
		return fmt.Errorf("failed to propagate expiry of trip %s [%w]", tripID, dbErr)
	}
	if denial != nil {
		return *denial
	}

	return nil
}
