// Package vaultgate - phone-gated access control and delivery for encrypted property vaults
package vaultgate

import (
	"context"
	"fmt"

	"github.com/alwitt/vaultgate/db"
	"github.com/alwitt/vaultgate/encryption"
	"github.com/alwitt/vaultgate/store"
	"github.com/alwitt/vaultgate/vault"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

/*
NewAccessController initialize a vault access controller instance.

Each instance is backed by a SQL database; two instances using the same database are
essentially copies of each other.

	@param ctx context.Context - execution context
	@param dbDialector gorm.Dialector - GORM dialector
	@param dbLogLevel logger.LogLevel - SQL log level
	@param primaryRSACertFile string - file path to the primary RSA certificate PEM
	@param primaryRSAKeyFile string - file path to the primary RSA certificate private key PEM
	@param transport vault.PinTransport - verification PIN delivery transport
	@returns new controller instance
*/
func NewAccessController(
	ctx context.Context,
	dbDialector gorm.Dialector,
	dbLogLevel logger.LogLevel,
	primaryRSACertFile string,
	primaryRSAKeyFile string,
	transport vault.PinTransport,
) (vault.AccessController, error) {
	// Prepare persistence
	persistence, err := db.NewConnection(dbDialector, dbLogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialized persistence client [%w]", err)
	}

	// Prepare cryptography engine
	cryptoEngine, err := encryption.NewCryptographyEngine(ctx, encryption.CryptographyEngineParams{
		Persistence:        persistence,
		PrimaryRSACertFile: primaryRSACertFile,
		PrimaryRSAKeyFile:  primaryRSAKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialized cryptography engine [%w]", err)
	}

	// Prepare encrypted vault item store
	itemStore, err := store.NewVaultItemStore(ctx, persistence, cryptoEngine)
	if err != nil {
		return nil, fmt.Errorf("failed to initialized vault item store [%w]", err)
	}

	controller, err := vault.NewAccessController(ctx, vault.AccessControllerParams{
		Persistence:  persistence,
		ItemStore:    itemStore,
		CryptoEngine: cryptoEngine,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialized vault access controller [%w]", err)
	}

	return controller, nil
}
