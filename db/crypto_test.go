package db_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alwitt/vaultgate/db"
	"github.com/alwitt/vaultgate/models"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

// TestDBEncryptionKeyRecord verifies the behaviour of the encryption key API:
//   - RecordEncryptionKey
//   - GetEncryptionKey
//   - DeleteEncryptionKey
//
// The test performs the following steps:
//
//  1. Record two encryption keys and verify the stored material.
//  2. Delete key 1 and confirm that it can no longer be retrieved.
//  3. Confirm that key 2 still exists.
//  4. List audit events and confirm three events:
//     KEY_CREATED for key 1, KEY_CREATED for key 2, KEY_DELETED for key 1.
func TestDBEncryptionKeyRecord(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	// Create a unique temporary DB file for this test
	testDB := fmt.Sprintf("/tmp/vaultgate_ut_%s.db", ulid.Make().String())
	log.WithField("db", testDB).Debug("Test database")

	uut, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(err)

	// Create database tables
	assert.Nil(uut.RunSQLInTransaction(utCtx, db.DefineTables))

	// 1. Record two keys
	var key1, key2 models.EncryptionKey
	keyMaterial1 := []byte(uuid.NewString())
	keyMaterial2 := []byte(uuid.NewString())
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		key1, err = dbClient.RecordEncryptionKey(ctx, keyMaterial1)
		if err != nil {
			return err
		}
		key2, err = dbClient.RecordEncryptionKey(ctx, keyMaterial2)
		return err
	})
	assert.Nil(err)

	// Verify the stored material
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		read1, err := dbClient.GetEncryptionKey(ctx, key1.ID)
		if err != nil {
			return err
		}
		assert.Equal(keyMaterial1, read1.EncKeyMaterial)
		assert.Equal(models.EncryptionKeyStateActive, read1.State)

		read2, err := dbClient.GetEncryptionKey(ctx, key2.ID)
		if err != nil {
			return err
		}
		assert.Equal(keyMaterial2, read2.EncKeyMaterial)
		return nil
	})
	assert.Nil(err)

	// 2. Delete key 1
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		return dbClient.DeleteEncryptionKey(ctx, key1.ID)
	})
	assert.Nil(err)
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		_, err := dbClient.GetEncryptionKey(ctx, key1.ID)
		return err
	})
	assert.Error(err)

	// 3. Key 2 still exists
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		read2, err := dbClient.GetEncryptionKey(ctx, key2.ID)
		if err != nil {
			return err
		}
		assert.Equal(keyMaterial2, read2.EncKeyMaterial)
		return nil
	})
	assert.Nil(err)

	// 4. List audit events
	var events []models.AccessEventAudit
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		events, err = dbClient.ListAccessEvents(ctx, db.AccessEventQueryFilter{
			EventTypes: []models.AccessEventTypeENUMType{
				models.AccessEventTypeKeyCreated, models.AccessEventTypeKeyDeleted,
			},
		})
		return err
	})
	assert.Nil(err)
	assert.Len(events, 3)

	validate := validator.New()
	assert.Nil(models.RegisterWithValidator(validate))

	key1Created := false
	key2Created := false
	key1Deleted := false
	for _, event := range events {
		metadata, err := event.ParseMetadata(validate)
		assert.Nil(err)
		keyMeta, ok := metadata.(models.AccessEventEncKeyRelated)
		assert.True(ok)
		switch event.EventType {
		case models.AccessEventTypeKeyCreated:
			switch keyMeta.KeyID {
			case key1.ID:
				key1Created = true
			case key2.ID:
				key2Created = true
			}
		case models.AccessEventTypeKeyDeleted:
			if keyMeta.KeyID == key1.ID {
				key1Deleted = true
			}
		}
	}
	assert.True(key1Created)
	assert.True(key2Created)
	assert.True(key1Deleted)
}

// TestDBEncryptionKeyStateChange verifies the encryption key state change API
// (MarkEncryptionKeyActive / MarkEncryptionKeyInactive).
//
// The test performs the following steps:
//
//  1. Record a new encryption key; it starts ACTIVE.
//  2. Mark it inactive and verify.
//  3. Mark it active again and verify.
//  4. Mark it active once more; no state change, no audit event.
//  5. List audit events and confirm three events:
//     KEY_CREATED, KEY_DEACTIVATED, KEY_ACTIVATED, all for this key.
func TestDBEncryptionKeyStateChange(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	// Create a unique temporary DB file for this test
	testDB := fmt.Sprintf("/tmp/vaultgate_ut_%s.db", ulid.Make().String())
	log.WithField("db", testDB).Debug("Test database")

	uut, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(err)

	// Create database tables
	assert.Nil(uut.RunSQLInTransaction(utCtx, db.DefineTables))

	// 1. Record a key
	var key models.EncryptionKey
	keyMaterial := []byte(uuid.NewString())
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		key, err = dbClient.RecordEncryptionKey(ctx, keyMaterial)
		return err
	})
	assert.Nil(err)
	assert.Equal(models.EncryptionKeyStateActive, key.State)

	// 2. Mark inactive and verify
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		return dbClient.MarkEncryptionKeyInactive(ctx, key.ID)
	})
	assert.Nil(err)
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		read, err := dbClient.GetEncryptionKey(ctx, key.ID)
		if err != nil {
			return err
		}
		assert.Equal(models.EncryptionKeyStateInactive, read.State)
		return nil
	})
	assert.Nil(err)

	// 3. Mark active again and verify
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		return dbClient.MarkEncryptionKeyActive(ctx, key.ID)
	})
	assert.Nil(err)
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		read, err := dbClient.GetEncryptionKey(ctx, key.ID)
		if err != nil {
			return err
		}
		assert.Equal(models.EncryptionKeyStateActive, read.State)
		return nil
	})
	assert.Nil(err)

	// 4. Mark active once more (NOOP)
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		return dbClient.MarkEncryptionKeyActive(ctx, key.ID)
	})
	assert.Nil(err)

	// 5. List audit events
	var events []models.AccessEventAudit
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		events, err = dbClient.ListAccessEvents(ctx, db.AccessEventQueryFilter{
			EventTypes: []models.AccessEventTypeENUMType{
				models.AccessEventTypeKeyCreated,
				models.AccessEventTypeKeyActivated,
				models.AccessEventTypeKeyDeactivated,
			},
		})
		return err
	})
	assert.Nil(err)
	assert.Len(events, 3)

	validate := validator.New()
	assert.Nil(models.RegisterWithValidator(validate))

	created := false
	deactivated := false
	activated := false
	for _, event := range events {
		metadata, err := event.ParseMetadata(validate)
		assert.Nil(err)
		keyMeta, ok := metadata.(models.AccessEventEncKeyRelated)
		assert.True(ok)
		assert.Equal(key.ID, keyMeta.KeyID)
		switch event.EventType {
		case models.AccessEventTypeKeyCreated:
			created = true
		case models.AccessEventTypeKeyDeactivated:
			deactivated = true
		case models.AccessEventTypeKeyActivated:
			activated = true
		}
	}
	assert.True(created)
	assert.True(deactivated)
	assert.True(activated)
}
