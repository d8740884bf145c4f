package models

import "time"

// VaultItemTypeENUMType vault item type ENUM
type VaultItemTypeENUMType string

const (
	// VaultItemTypeDoorCode front / interior door code
	VaultItemTypeDoorCode VaultItemTypeENUMType = "DOOR_CODE"
	// VaultItemTypeAlarmCode alarm system code
	VaultItemTypeAlarmCode VaultItemTypeENUMType = "ALARM_CODE"
	// VaultItemTypeWifi Wi-Fi network password
	VaultItemTypeWifi VaultItemTypeENUMType = "WIFI"
	// VaultItemTypeGateCode gate code
	VaultItemTypeGateCode VaultItemTypeENUMType = "GATE_CODE"
	// VaultItemTypeGarageCode garage code
	VaultItemTypeGarageCode VaultItemTypeENUMType = "GARAGE_CODE"
	// VaultItemTypeSafeCombination safe combination
	VaultItemTypeSafeCombination VaultItemTypeENUMType = "SAFE_COMBINATION"
	// VaultItemTypeCustom owner defined secret
	VaultItemTypeCustom VaultItemTypeENUMType = "CUSTOM"
)

// VaultItem an encrypted property secret
//
// The value only exists in plaintext inside a single decryption gateway
// response; it is stored and transported encrypted everywhere else.
type VaultItem struct {
	// ID item ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,uuid_rfc4122"`

	// PropertyID the property this item belongs to
	PropertyID string `json:"property_id" gorm:"column:property_id;not null" validate:"required,uuid_rfc4122"`

	// Type vault item type
	Type VaultItemTypeENUMType `json:"type" gorm:"column:type;not null" validate:"required,vault_item_type"`

	// Label short owner facing label
	Label string `json:"label" gorm:"column:label;not null" validate:"required"`

	// EncKeyID the symmetric encryption key which encrypted this item
	EncKeyID string `json:"enc_key_id" gorm:"column:enc_key_id;not null" validate:"required,uuid_rfc4122"`

	// EncValue the symmetrically encrypted item value
	EncValue []byte `json:"enc_value" gorm:"column:enc_value;not null" validate:"required"`
	// EncNonce the encryption nonce used
	EncNonce []byte `json:"enc_nonce" gorm:"column:enc_nonce;not null" validate:"required"`

	// Instructions optional usage instructions shown alongside the value
	Instructions string `json:"instructions,omitempty" gorm:"column:instructions"`

	// SortOrder display ordering within the property vault
	SortOrder int `json:"sort_order" gorm:"column:sort_order;not null"`

	// LocationCardID optional reference to an attached location card
	LocationCardID *string `json:"location_card_id,omitempty" gorm:"column:location_card_id;default:null" validate:"omitempty,uuid_rfc4122"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// OtpSessionAttemptBudget total PIN comparisons allowed per session
const OtpSessionAttemptBudget = 3

// OtpSessionLifetime how long an issued PIN remains usable
const OtpSessionLifetime = time.Minute * 10

// VaultOtpSession one live phone verification record per (trip, phone)
//
// A new PIN request always replaces the prior record for its key. Stale
// sessions are treated as absent once ExpiresAt passes; they are not swept.
type VaultOtpSession struct {
	// ID session entry ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required"`

	// TripID the trip the verification is scoped to
	TripID string `json:"trip_id" gorm:"column:trip_id;not null;uniqueIndex:vault_otp_session_key" validate:"required,uuid_rfc4122"`

	// Phone the normalized sitter phone the PIN was sent to
	Phone string `json:"phone" gorm:"column:phone;not null;uniqueIndex:vault_otp_session_key" validate:"required,len=10,numeric"`

	// PinDigest SHA-256 digest of the issued PIN. The PIN itself is never
	// stored.
	PinDigest []byte `json:"pin_digest" gorm:"column:pin_digest;not null" validate:"required"`

	// ExpiresAt when the session stops being usable
	ExpiresAt time.Time `json:"expires_at" gorm:"column:expires_at;not null" validate:"required"`

	// Verified whether the PIN has been matched
	Verified bool `json:"verified" gorm:"column:verified;not null"`

	// Attempts number of PIN comparisons consumed so far
	Attempts int `json:"attempts" gorm:"column:attempts;not null"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

/*
IsLiveOn whether the session is still usable at a point in time

	@param now time.Time - the reference time
	@return whether the session has not yet expired
*/
func (s *VaultOtpSession) IsLiveOn(now time.Time) bool {
	// Live while ExpiresAt >= now; a session expires the instant after its
	// expiry timestamp, not at it.
	return !now.After(s.ExpiresAt)
}

/*
AttemptsExhausted whether the PIN comparison budget is spent

	@return whether no further comparisons are allowed
*/
func (s *VaultOtpSession) AttemptsExhausted() bool {
	return s.Attempts >= OtpSessionAttemptBudget
}
