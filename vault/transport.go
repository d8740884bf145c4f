package vault

import "context"

// PinTransport delivers verification PINs out-of-band
//
// The concrete transport (SMS gateway, etc) lives outside this module. A
// dispatch failure never invalidates the already stored session; callers
// recover by requesting a new PIN, which overwrites it.
type PinTransport interface {
	/*
		SendPin deliver a verification PIN to a phone

			@param ctx context.Context - execution context
			@param phone string - normalized recipient phone
			@param pin string - the PIN to deliver
	*/
	SendPin(ctx context.Context, phone string, pin string) error
}
