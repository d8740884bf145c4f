package db

import "github.com/alwitt/vaultgate/models"

// --------------------------------------------------------------------------------------
// Access audit events

// AccessEventAuditDBEntry vault access event DB entry
type AccessEventAuditDBEntry struct {
	models.AccessEventAudit
}

// TableName hard code table name
func (AccessEventAuditDBEntry) TableName() string {
	return "vault_access_events"
}

// --------------------------------------------------------------------------------------
// Trips

// TripDBEntry trip DB entry
type TripDBEntry struct {
	models.Trip
}

// TableName hard code table name
func (TripDBEntry) TableName() string {
	return "trips"
}

// --------------------------------------------------------------------------------------
// Sitters

// SitterDBEntry sitter DB entry
type SitterDBEntry struct {
	models.Sitter
	Trip TripDBEntry `gorm:"constraint:OnDelete:CASCADE;foreignKey:TripID" validate:"-"`
}

// TableName hard code table name
func (SitterDBEntry) TableName() string {
	return "sitters"
}

// --------------------------------------------------------------------------------------
// Vault OTP sessions

// VaultOtpSessionDBEntry vault OTP session DB entry
//
// Sessions are keyed by (trip, normalized phone), not by sitter ID; the
// composite unique index enforces at most one live row per key.
type VaultOtpSessionDBEntry struct {
	models.VaultOtpSession
	Trip TripDBEntry `gorm:"constraint:OnDelete:CASCADE;foreignKey:TripID" validate:"-"`
}

// TableName hard code table name
func (VaultOtpSessionDBEntry) TableName() string {
	return "vault_otp_sessions"
}

// --------------------------------------------------------------------------------------
// Encryption keys

// EncryptionKeyDBEntry encryption key DB entry
type EncryptionKeyDBEntry struct {
	models.EncryptionKey
}

// TableName hard code table name
func (EncryptionKeyDBEntry) TableName() string {
	return "encryption_keys"
}

// --------------------------------------------------------------------------------------
// Vault items

// VaultItemDBEntry vault item DB entry
type VaultItemDBEntry struct {
	models.VaultItem
	EncKey EncryptionKeyDBEntry `gorm:"constraint:OnDelete:CASCADE;foreignKey:EncKeyID" validate:"-"`
}

// TableName hard code table name
func (VaultItemDBEntry) TableName() string {
	return "vault_items"
}
