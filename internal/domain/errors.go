package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a campaign id has no record.
var ErrNotFound = errors.New("campaign not found")

// ValidationError marks malformed input: bad email, bad phone format,
// missing required field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidStateError is returned when an action is attempted against a
// campaign whose status does not permit it. The record is left untouched.
type InvalidStateError struct {
	Action string
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s campaign with status: %s", e.Action, e.Status)
}

// VendorError carries a non-2xx or malformed vendor response.
type VendorError struct {
	Provider   string
	StatusCode int
	Body       string
	Message    string
}

func (e *VendorError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s API HTTP error: %d - %s", e.Provider, e.StatusCode, e.Body)
}

// TransportError wraps a network or timeout failure reaching a vendor.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConfigurationError surfaces a missing credential at service construction,
// never per-call and never onto a campaign record.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s must be configured", e.Setting)
}
