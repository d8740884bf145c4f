package vault_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alwitt/vaultgate/db"
	"github.com/alwitt/vaultgate/encryption"
	"github.com/alwitt/vaultgate/models"
	"github.com/alwitt/vaultgate/store"
	"github.com/alwitt/vaultgate/vault"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

// capturePinTransport records dispatched PINs instead of sending them
type capturePinTransport struct {
	lock sync.Mutex
	sent []capturedPin
	// failNext force the next dispatch to fail
	failNext bool
}

type capturedPin struct {
	phone string
	pin   string
}

func (t *capturePinTransport) SendPin(_ context.Context, phone string, pin string) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.failNext {
		t.failNext = false
		return fmt.Errorf("simulated dispatch failure")
	}
	t.sent = append(t.sent, capturedPin{phone: phone, pin: pin})
	return nil
}

func (t *capturePinTransport) lastSent() (capturedPin, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.sent) == 0 {
		return capturedPin{}, false
	}
	return t.sent[len(t.sent)-1], true
}

func (t *capturePinTransport) sentCount() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.sent)
}

// testHarness one controller instance against a private SQLite database with
// a captured transport and an adjustable clock
type testHarness struct {
	dbClient  db.Client
	itemStore store.VaultItemStore
	uut       vault.AccessController
	transport *capturePinTransport

	lock        sync.Mutex
	currentTime time.Time
}

func (h *testHarness) now() time.Time {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.currentTime
}

func (h *testHarness) advanceTime(by time.Duration) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.currentTime = h.currentTime.Add(by)
}

func defineTestHarness(t *testing.T) *testHarness {
	assert := assert.New(t)

	utCtx := context.Background()

	// Create a unique temporary DB file for this test
	testDB := fmt.Sprintf("/tmp/vaultgate_ut_%s.db", ulid.Make().String())

	dbClient, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(err)
	assert.Nil(dbClient.RunSQLInTransaction(utCtx, db.DefineTables))

	testCertFile, err := filepath.Abs("../test/ut_rsa.crt")
	assert.Nil(err)
	testKeyFile, err := filepath.Abs("../test/ut_rsa.key")
	assert.Nil(err)

	cryptoEngine, err := encryption.NewCryptographyEngine(utCtx, encryption.CryptographyEngineParams{
		Persistence:        dbClient,
		PrimaryRSACertFile: testCertFile,
		PrimaryRSAKeyFile:  testKeyFile,
	})
	assert.Nil(err)

	itemStore, err := store.NewVaultItemStore(utCtx, dbClient, cryptoEngine)
	assert.Nil(err)

	harness := &testHarness{
		dbClient:    dbClient,
		itemStore:   itemStore,
		transport:   &capturePinTransport{},
		currentTime: time.Now().UTC(),
	}

	harness.uut, err = vault.NewAccessController(utCtx, vault.AccessControllerParams{
		Persistence:  dbClient,
		ItemStore:    itemStore,
		CryptoEngine: cryptoEngine,
		Transport:    harness.transport,
		TimeSource:   harness.now,
	})
	assert.Nil(err)

	return harness
}

// defineTestTrip seed an active trip with one sitter
func (h *testHarness) defineTestTrip(
	t *testing.T, propertyID string, sitterPhone string, vaultAccess bool,
) (models.Trip, models.Sitter) {
	assert := assert.New(t)

	utCtx := context.Background()

	var trip models.Trip
	var sitter models.Sitter
	err := h.dbClient.UseDatabaseInTransaction(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			theTrip, err := dbClient.DefineNewTrip(
				ctx,
				propertyID,
				models.TripStateActive,
				h.now(),
				h.now().AddDate(0, 0, 7),
			)
			if err != nil {
				return err
			}
			trip = theTrip

			sitter, err = dbClient.DefineNewSitter(
				ctx, trip.ID, "unit-test-sitter", sitterPhone, vaultAccess,
			)
			return err
		},
	)
	assert.Nil(err)

	return trip, sitter
}

// getSession read the stored verification session for a (trip, phone)
func (h *testHarness) getSession(
	t *testing.T, tripID string, phone string,
) (models.VaultOtpSession, error) {
	utCtx := context.Background()

	var session models.VaultOtpSession
	err := h.dbClient.UseDatabaseInTransaction(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			read, err := dbClient.GetOtpSession(ctx, tripID, phone)
			if err != nil {
				return err
			}
			session = read
			return nil
		},
	)
	return session, err
}

// countAccessEvents count stored audit events of one type
func (h *testHarness) countAccessEvents(
	t *testing.T, eventType models.AccessEventTypeENUMType,
) int {
	assert := assert.New(t)

	utCtx := context.Background()

	var events []models.AccessEventAudit
	err := h.dbClient.UseDatabaseInTransaction(
		utCtx, func(ctx context.Context, dbClient db.Database) error {
			read, err := dbClient.ListAccessEvents(ctx, db.AccessEventQueryFilter{
				EventTypes: []models.AccessEventTypeENUMType{eventType},
			})
			if err != nil {
				return err
			}
			events = read
			return nil
		},
	)
	assert.Nil(err)

	return len(events)
}

// requestAndVerify drive the happy path up to a verified session, returning
// the PIN that was dispatched
func (h *testHarness) requestAndVerify(t *testing.T, tripID string, phone string) string {
	assert := assert.New(t)

	utCtx := context.Background()

	assert.Nil(h.uut.RequestAccessPin(utCtx, tripID, phone))
	sent, ok := h.transport.lastSent()
	assert.True(ok)
	assert.Nil(h.uut.VerifyAccessPin(utCtx, tripID, phone, sent.pin))

	return sent.pin
}
