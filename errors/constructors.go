package errors

import (
	"fmt"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *FleetError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *FleetError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// UnknownZone reports a zone outside the configured warehouse layout.
func UnknownZone(zone string) *FleetError {
	return New(ErrCodeUnknownZone, fmt.Sprintf("unknown zone %q", zone)).
		WithDetail("zone", zone)
}

// MalformedSnapshot reports a backend payload that cannot be committed.
func MalformedSnapshot(reason string) *FleetError {
	return New(ErrCodeMalformedSnapshot, fmt.Sprintf("malformed snapshot: %s", reason))
}

// ChannelFailed wraps a push channel connectivity failure.
func ChannelFailed(endpoint string, err error) *FleetError {
	return Wrap(err, ErrCodeChannel, fmt.Sprintf("push channel %s failed", endpoint)).
		WithDetail("endpoint", endpoint)
}

// AuthFailed carries the backend's user-visible login failure message.
func AuthFailed(message string) *FleetError {
	return New(ErrCodeAuthFailed, message)
}

// SessionMissing reports that a command needs a logged-in session.
func SessionMissing() *FleetError {
	return New(ErrCodeSessionMissing, "no active session")
}

// BackendStatus creates an error for an unexpected backend HTTP status.
func BackendStatus(endpoint string, status int, detail string) *FleetError {
	msg := fmt.Sprintf("%s returned status %d", endpoint, status)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	return New(ErrCodeBackend, msg).
		WithDetail("endpoint", endpoint).
		WithDetail("status", status)
}

// InvalidInput creates an error for rejected caller input.
func InvalidInput(reason string) *FleetError {
	return New(ErrCodeInvalidInput, reason)
}
