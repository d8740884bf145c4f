package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

// AccessEventTypeENUMType vault access event type ENUM value type
type AccessEventTypeENUMType string

const (
	// AccessEventTypePinIssued a verification PIN was issued and dispatched
	AccessEventTypePinIssued AccessEventTypeENUMType = "PIN_ISSUED"

	// AccessEventTypePinVerified a PIN was matched and the session verified
	AccessEventTypePinVerified AccessEventTypeENUMType = "PIN_VERIFIED"

	// AccessEventTypePinRejected a PIN comparison failed
	AccessEventTypePinRejected AccessEventTypeENUMType = "PIN_REJECTED"

	// AccessEventTypeVaultViewed decrypted vault items were returned
	AccessEventTypeVaultViewed AccessEventTypeENUMType = "VAULT_VIEWED"

	// AccessEventTypeAccessRevoked a sitter's vault access was revoked
	AccessEventTypeAccessRevoked AccessEventTypeENUMType = "ACCESS_REVOKED"

	// AccessEventTypeSitterRemoved a sitter was removed from a trip
	AccessEventTypeSitterRemoved AccessEventTypeENUMType = "SITTER_REMOVED"

	// AccessEventTypeTripExpired a trip passed its end date and was expired
	AccessEventTypeTripExpired AccessEventTypeENUMType = "TRIP_EXPIRED"

	// AccessEventTypeKeyCreated a new symmetric encryption key was recorded
	AccessEventTypeKeyCreated AccessEventTypeENUMType = "KEY_CREATED"

	// AccessEventTypeKeyActivated an encryption key was marked active
	AccessEventTypeKeyActivated AccessEventTypeENUMType = "KEY_ACTIVATED"

	// AccessEventTypeKeyDeactivated an encryption key was marked inactive
	AccessEventTypeKeyDeactivated AccessEventTypeENUMType = "KEY_DEACTIVATED"

	// AccessEventTypeKeyDeleted an encryption key was deleted
	AccessEventTypeKeyDeleted AccessEventTypeENUMType = "KEY_DELETED"
)

// AccessEventAudit recording of vault access control events
type AccessEventAudit struct {
	// ID audit entry ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required"`
	// EventType vault access event type
	EventType AccessEventTypeENUMType `json:"type" gorm:"column:type;not null" validate:"required,access_event_type"`
	// Metadata a metadata relating to the event
	Metadata datatypes.JSON `json:"metadata,omitempty" gorm:"column:metadata;default:null"`
	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// ParseMetadata parse the metadata based on the event type
func (a AccessEventAudit) ParseMetadata(validator *validator.Validate) (interface{}, error) {
	switch a.EventType {
	// Verification session related access events
	case AccessEventTypePinIssued:
		fallthrough
	case AccessEventTypePinVerified:
		fallthrough
	case AccessEventTypePinRejected:
		var parsed AccessEventSessionRelated
		if err := json.Unmarshal(a.Metadata, &parsed); err != nil {
			return nil, fmt.Errorf("access event '%s' metadata parse failed [%w]", a.EventType, err)
		}
		return parsed, validator.Struct(&parsed)

	// Vault view related access events
	case AccessEventTypeVaultViewed:
		var parsed AccessEventVaultViewRelated
		if err := json.Unmarshal(a.Metadata, &parsed); err != nil {
			return nil, fmt.Errorf("access event '%s' metadata parse failed [%w]", a.EventType, err)
		}
		return parsed, validator.Struct(&parsed)

	// Revocation related access events
	case AccessEventTypeAccessRevoked:
		fallthrough
	case AccessEventTypeSitterRemoved:
		fallthrough
	case AccessEventTypeTripExpired:
		var parsed AccessEventRevocationRelated
		if err := json.Unmarshal(a.Metadata, &parsed); err != nil {
			return nil, fmt.Errorf("access event '%s' metadata parse failed [%w]", a.EventType, err)
		}
		return parsed, validator.Struct(&parsed)

	// Encryption key related access events
	case AccessEventTypeKeyCreated:
		fallthrough
	case AccessEventTypeKeyActivated:
		fallthrough
	case AccessEventTypeKeyDeactivated:
		fallthrough
	case AccessEventTypeKeyDeleted:
		var parsed AccessEventEncKeyRelated
		if err := json.Unmarshal(a.Metadata, &parsed); err != nil {
			return nil, fmt.Errorf("access event '%s' metadata parse failed [%w]", a.EventType, err)
		}
		return parsed, validator.Struct(&parsed)
	}
	return nil, nil
}

// AccessEventSessionRelated access event metadata related to a verification session
type AccessEventSessionRelated struct {
	// TripID the trip the session is scoped to
	TripID string `json:"trip_id" validate:"required,uuid_rfc4122"`
	// PhoneTail masked sitter phone, last four digits only
	PhoneTail string `json:"phone_tail" validate:"required"`
}

// AccessEventVaultViewRelated access event metadata related to a vault view
type AccessEventVaultViewRelated struct {
	// TripID the trip the view was authorized under
	TripID string `json:"trip_id" validate:"required,uuid_rfc4122"`
	// PropertyID the property whose vault was viewed
	PropertyID string `json:"property_id" validate:"required,uuid_rfc4122"`
	// PhoneTail masked sitter phone, last four digits only
	PhoneTail string `json:"phone_tail" validate:"required"`
	// ItemCount number of items returned
	ItemCount int `json:"item_count"`
}

// AccessEventRevocationRelated access event metadata related to a revocation
type AccessEventRevocationRelated struct {
	// TripID the affected trip
	TripID string `json:"trip_id" validate:"required,uuid_rfc4122"`
	// SitterID the affected sitter, when the revocation targets one sitter
	SitterID string `json:"sitter_id,omitempty" validate:"omitempty,uuid_rfc4122"`
}

// AccessEventEncKeyRelated access event metadata related to an encryption key
type AccessEventEncKeyRelated struct {
	// KeyID the affected encryption key
	KeyID string `json:"key_id" validate:"required,uuid_rfc4122"`
}

/*
MaskPhone reduce a phone string to its last four digits for audit metadata

	@param phone string - normalized phone string
	@return masked phone tail
*/
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[len(phone)-4:]
}
