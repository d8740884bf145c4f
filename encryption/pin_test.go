package encryption_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alwitt/vaultgate/encryption"
	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestCryptoEnginePinGeneration(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	// RSA cert files
	testCertFile, err := filepath.Abs("../test/ut_rsa.crt")
	assert.Nil(err)
	testKeyFile, err := filepath.Abs("../test/ut_rsa.key")
	assert.Nil(err)

	uut, err := encryption.NewCryptographyEngine(utCtx, encryption.CryptographyEngineParams{
		PrimaryRSACertFile: testCertFile,
		PrimaryRSAKeyFile:  testKeyFile,
	})
	assert.Nil(err)

	// Unsupported lengths
	_, err = uut.NewNumericPin(utCtx, 0)
	assert.Error(err)
	_, err = uut.NewNumericPin(utCtx, 10)
	assert.Error(err)

	// Generated PINs are always exactly the requested length, including the
	// zero-padded ones
	for idx := 0; idx < 64; idx++ {
		pin, err := uut.NewNumericPin(utCtx, 6)
		assert.Nil(err)
		assert.Len(pin, 6)
		for _, r := range pin {
			assert.True(r >= '0' && r <= '9')
		}
	}

	// Single digit PINs stay in range
	for idx := 0; idx < 16; idx++ {
		pin, err := uut.NewNumericPin(utCtx, 1)
		assert.Nil(err)
		assert.Len(pin, 1)
	}
}
