package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// Live state errors
	ErrCodeUnknownZone       ErrorCode = "UNKNOWN_ZONE"
	ErrCodeMalformedSnapshot ErrorCode = "MALFORMED_SNAPSHOT"
	ErrCodeChannel           ErrorCode = "CHANNEL_ERROR"

	// Backend errors
	ErrCodeAuthFailed     ErrorCode = "AUTH_FAILED"
	ErrCodeSessionMissing ErrorCode = "SESSION_MISSING"
	ErrCodeBackend        ErrorCode = "BACKEND_ERROR"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// FleetError represents a structured error with context
type FleetError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *FleetError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *FleetError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *FleetError) WithDetail(key string, value interface{}) *FleetError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *FleetError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new FleetError
func New(code ErrorCode, message string) *FleetError {
	return &FleetError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a FleetError
func Wrap(err error, code ErrorCode, message string) *FleetError {
	return &FleetError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific FleetError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	fleetErr, ok := err.(*FleetError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	if fleetErr.Code == code {
		return true
	}
	return fleetErr.Cause != nil && Is(fleetErr.Cause, code)
}

// GetCode extracts the outermost error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	fleetErr, ok := err.(*FleetError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return fleetErr.Code
}

// As returns err as a *FleetError if one is present in its chain.
func As(err error) (*FleetError, bool) {
	for err != nil {
		if fleetErr, ok := err.(*FleetError); ok {
			return fleetErr, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}
