// Package vault - sitter vault access control
package vault

import (
	"errors"
	"fmt"
)

// DenialCodeENUMType machine readable access denial code ENUM
type DenialCodeENUMType string

const (
	// DenialTripInactive the trip is not currently active
	DenialTripInactive DenialCodeENUMType = "TRIP_INACTIVE"
	// DenialNotRegistered no sitter with this phone is registered on the trip
	DenialNotRegistered DenialCodeENUMType = "NOT_REGISTERED"
	// DenialVaultAccessDenied the sitter is registered but lacks vault access
	DenialVaultAccessDenied DenialCodeENUMType = "VAULT_ACCESS_DENIED"
	// DenialInvalidPin the submitted PIN did not match
	DenialInvalidPin DenialCodeENUMType = "INVALID_PIN"
	// DenialMaxAttempts the PIN attempt budget is exhausted
	DenialMaxAttempts DenialCodeENUMType = "MAX_ATTEMPTS"
	// DenialExpired the verification session has expired
	DenialExpired DenialCodeENUMType = "EXPIRED"
	// DenialNotFound the referenced session or sitter does not exist
	DenialNotFound DenialCodeENUMType = "NOT_FOUND"
	// DenialNotVerified no verified session backs the request
	DenialNotVerified DenialCodeENUMType = "NOT_VERIFIED"
)

// AccessDeniedError an access control denial with a machine readable code
//
// Denials are expected outcomes of the state machine, distinct from
// operational failures; callers branch on the code.
type AccessDeniedError struct {
	// Code machine readable denial code
	Code DenialCodeENUMType
	// Reason human readable denial context
	Reason string
}

// Error implement error
func (e AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied (%s): %s", e.Code, e.Reason)
}

// denied define a new access denial
func denied(code DenialCodeENUMType, reasonFormat string, args ...interface{}) AccessDeniedError {
	return AccessDeniedError{Code: code, Reason: fmt.Sprintf(reasonFormat, args...)}
}

/*
AsAccessDenied extract an access denial from an error chain

	@param err error - the error to inspect
	@return the denial, and whether the error is one
*/
func AsAccessDenied(err error) (AccessDeniedError, bool) {
	var denial AccessDeniedError
	if errors.As(err, &denial) {
		return denial, true
	}
	return AccessDeniedError{}, false
}
