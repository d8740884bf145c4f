package models

import "time"

// Sitter a house / pet sitter registered against one trip
type Sitter struct {
	// ID sitter ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,uuid_rfc4122"`

	// TripID the trip this sitter is registered for
	TripID string `json:"trip_id" gorm:"column:trip_id;not null" validate:"required,uuid_rfc4122"`

	// Name sitter display name
	Name string `json:"name" gorm:"column:name;not null" validate:"required"`

	// Phone normalized ten digit phone number. May be empty if the owner has
	// not recorded one; an empty phone can never match a lookup.
	Phone string `json:"phone,omitempty" gorm:"column:phone" validate:"omitempty,len=10,numeric"`

	// VaultAccess whether the sitter may view the property vault. A sitter
	// with this flag false never receives decrypted items, even with a still
	// valid OTP session.
	VaultAccess bool `json:"vault_access" gorm:"column:vault_access;not null"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}
