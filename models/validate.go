package models

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

/*
RegisterWithValidator register with the validator this custom validation support

	@param v *validator.Validate - the validator to register against
	@return whether successful
*/
func RegisterWithValidator(v *validator.Validate) error {
	if err := v.RegisterValidation(
		"enc_key_state", validateEncKeyStateType,
	); err != nil {
		return err
	}

	if err := v.RegisterValidation(
		"trip_state", validateTripStateType,
	); err != nil {
		return err
	}

	if err := v.RegisterValidation(
		"vault_item_type", validateVaultItemType,
	); err != nil {
		return err
	}

	if err := v.RegisterValidation(
		"access_event_type", validateAccessEventType,
	); err != nil {
		return err
	}

	return nil
}

func validateEncKeyStateType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch EncryptionKeyStateENUMType(fl.Field().String()) {
	case EncryptionKeyStateActive:
		fallthrough
	case EncryptionKeyStateInactive:
		return true
	}
	return false
}

func validateTripStateType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch TripStateENUMType(fl.Field().String()) {
	case TripStateDraft:
		fallthrough
	case TripStateActive:
		fallthrough
	case TripStateCompleted:
		fallthrough
	case TripStateExpired:
		return true
	}
	return false
}

func validateVaultItemType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch VaultItemTypeENUMType(fl.Field().String()) {
	case VaultItemTypeDoorCode:
		fallthrough
	case VaultItemTypeAlarmCode:
		fallthrough
	case VaultItemTypeWifi:
		fallthrough
	case VaultItemTypeGateCode:
		fallthrough
	case VaultItemTypeGarageCode:
		fallthrough
	case VaultItemTypeSafeCombination:
		fallthrough
	case VaultItemTypeCustom:
		return true
	}
	return false
}

func validateAccessEventType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch AccessEventTypeENUMType(fl.Field().String()) {
	case AccessEventTypePinIssued:
		fallthrough
	case AccessEventTypePinVerified:
		fallthrough
	case AccessEventTypePinRejected:
		fallthrough
	case AccessEventTypeVaultViewed:
		fallthrough
	case AccessEventTypeAccessRevoked:
		fallthrough
	case AccessEventTypeSitterRemoved:
		fallthrough
	case AccessEventTypeTripExpired:
		fallthrough
	case AccessEventTypeKeyCreated:
		fallthrough
	case AccessEventTypeKeyActivated:
		fallthrough
	case AccessEventTypeKeyDeactivated:
		fallthrough
	case AccessEventTypeKeyDeleted:
		return true
	}
	return false
}
