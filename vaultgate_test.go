package vaultgate_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alwitt/vaultgate"
	"github.com/alwitt/vaultgate/db"
	"github.com/alwitt/vaultgate/encryption"
	"github.com/alwitt/vaultgate/models"
	"github.com/alwitt/vaultgate/store"
	"github.com/alwitt/vaultgate/vault"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

// recordingTransport captures dispatched PINs for the test to read back
type recordingTransport struct {
	lock sync.Mutex
	pins map[string]string
}

func (t *recordingTransport) SendPin(_ context.Context, phone string, pin string) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.pins[phone] = pin
	return nil
}

func (t *recordingTransport) pinFor(phone string) string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.pins[phone]
}

// TestVaultAccessEndToEnd performs a full end-to-end run of the vault access
// flow. A temporary SQLite database is created, the `vaultgate.NewAccessController`
// constructor is exercised, and a sitter walks the complete path: PIN request,
// verification, vault read, and finally owner revocation.
func TestVaultAccessEndToEnd(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	// ------------------------------------------------------------------
	// 1. Create a temporary SQLite database
	// ------------------------------------------------------------------
	ctx := context.Background()

	testDB := fmt.Sprintf("/tmp/vaultgate_ut_%s.db", ulid.Make().String())
	dbClient, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(err)

	// Create tables
	assert.Nil(dbClient.RunSQLInTransaction(ctx, db.DefineTables))

	// ------------------------------------------------------------------
	// 2. Load RSA key files
	// ------------------------------------------------------------------
	certFile, err := filepath.Abs("./test/ut_rsa.crt")
	assert.Nil(err)
	keyFile, err := filepath.Abs("./test/ut_rsa.key")
	assert.Nil(err)

	// ------------------------------------------------------------------
	// 3. Create the access controller
	// ------------------------------------------------------------------
	transport := &recordingTransport{pins: map[string]string{}}
	controller, err := vaultgate.NewAccessController(
		ctx, db.GetSqliteDialector(testDB), logger.Error, certFile, keyFile, transport,
	)
	assert.Nil(err)

	// ------------------------------------------------------------------
	// 4. Seed a trip, a sitter with vault access, and vault items
	// ------------------------------------------------------------------
	testProperty := uuid.NewString()
	sitterPhone := "5551234567"

	var trip models.Trip
	var sitter models.Sitter
	err = dbClient.UseDatabaseInTransaction(ctx, func(ctx context.Context, dbClient db.Database) error {
		trip, err = dbClient.DefineNewTrip(
			ctx,
			testProperty,
			models.TripStateActive,
			time.Now().UTC(),
			time.Now().UTC().AddDate(0, 0, 7),
		)
		if err != nil {
			return err
		}
		sitter, err = dbClient.DefineNewSitter(ctx, trip.ID, "e2e-sitter", sitterPhone, true)
		return err
	})
	assert.Nil(err)

	cryptoEngine, err := encryption.NewCryptographyEngine(ctx, encryption.CryptographyEngineParams{
		Persistence:        dbClient,
		PrimaryRSACertFile: certFile,
		PrimaryRSAKeyFile:  keyFile,
	})
	assert.Nil(err)
	itemStore, err := store.NewVaultItemStore(ctx, dbClient, cryptoEngine)
	assert.Nil(err)

	doorItem, err := itemStore.RecordVaultItem(ctx, store.NewVaultItemParams{
		PropertyID:   testProperty,
		Type:         models.VaultItemTypeDoorCode,
		Label:        "Front door",
		Value:        []byte("4812"),
		Instructions: "Press # after the code",
	}, nil)
	assert.Nil(err)

	// ------------------------------------------------------------------
	// 5. Request a PIN using a formatted phone string
	// ------------------------------------------------------------------
	assert.Nil(controller.RequestAccessPin(ctx, trip.ID, "+1 (555) 123-4567"))
	sentPin := transport.pinFor(sitterPhone)
	assert.Len(sentPin, 6)

	// ------------------------------------------------------------------
	// 6. Verify the PIN
	// ------------------------------------------------------------------
	assert.Nil(controller.VerifyAccessPin(ctx, trip.ID, sitterPhone, sentPin))

	// ------------------------------------------------------------------
	// 7. Read the vault and verify the decrypted content
	// ------------------------------------------------------------------
	items, err := controller.GetDecryptedItems(ctx, trip.ID, testProperty, sitterPhone)
	assert.Nil(err)
	assert.Len(items, 1)
	assert.Equal([]byte("4812"), items[doorItem.ID].Value)
	assert.Equal("Front door", items[doorItem.ID].Label)

	// ------------------------------------------------------------------
	// 8. Revoke the sitter's access
	// ------------------------------------------------------------------
	assert.Nil(controller.RevokeSitterVaultAccess(ctx, sitter.ID))

	// The vault shuts immediately
	_, err = controller.GetDecryptedItems(ctx, trip.ID, testProperty, sitterPhone)
	denial, ok := vault.AsAccessDenied(err)
	assert.True(ok)
	assert.Equal(vault.DenialVaultAccessDenied, denial.Code)

	// The verification session was destroyed with the grant
	err = dbClient.UseDatabaseInTransaction(ctx, func(ctx context.Context, dbClient db.Database) error {
		_, err := dbClient.GetOtpSession(ctx, trip.ID, sitterPhone)
		assert.Error(err)
		return nil
	})
	assert.Nil(err)

	// ------------------------------------------------------------------
	// 9. The audit trail covers the whole flow
	// ------------------------------------------------------------------
	var events []models.AccessEventAudit
	err = dbClient.UseDatabaseInTransaction(ctx, func(ctx context.Context, dbClient db.Database) error {
		events, err = dbClient.ListAccessEvents(ctx, db.AccessEventQueryFilter{})
		return err
	})
	assert.Nil(err)

	eventTypes := map[models.AccessEventTypeENUMType]int{}
	for _, event := range events {
		eventTypes[event.EventType]++
	}
	assert.Equal(1, eventTypes[models.AccessEventTypePinIssued])
	assert.Equal(1, eventTypes[models.AccessEventTypePinVerified])
	assert.Equal(1, eventTypes[models.AccessEventTypeVaultViewed])
	assert.Equal(1, eventTypes[models.AccessEventTypeAccessRevoked])
}
