package order

import (
	"errors"
	"fmt"
)

var (
	// ErrAddressFormat marks a malformed address string.
	ErrAddressFormat = errors.New("malformed address")

	// ErrOutOfRange marks a numeric field that does not fit its fixed-width target.
	ErrOutOfRange = errors.New("value out of range")

	// ErrSignatureFormat marks an empty or structurally invalid signature.
	ErrSignatureFormat = errors.New("malformed signature")

	// ErrValidation marks a candidate that failed the ingestion shape check.
	ErrValidation = errors.New("order shape validation failed")

	// ErrHashMismatch is returned when a carried hash differs from the recomputed one.
	ErrHashMismatch = errors.New("order hash mismatch")

	// ErrSignerMismatch is returned when the recovered signer is not the seller.
	ErrSignerMismatch = errors.New("signature does not match seller")
)

// AddressFormatError reports which field held the malformed address.
type AddressFormatError struct {
	Field string
	Raw   string
}

func (e *AddressFormatError) Error() string {
	return fmt.Sprintf("%s: %s %q", ErrAddressFormat, e.Field, e.Raw)
}

func (e *AddressFormatError) Unwrap() error { return ErrAddressFormat }

// EncodingError reports a value that cannot be encoded as a uint256 word.
type EncodingError struct {
	Field string
	Value string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: %s=%s does not fit uint256", ErrOutOfRange, e.Field, e.Value)
}

func (e *EncodingError) Unwrap() error { return ErrOutOfRange }

// ValidationError reports why an untrusted candidate was rejected. Err holds
// the underlying cause when there is one.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := ErrValidation.Error()
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}
