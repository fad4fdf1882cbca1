package errors

import (
	"fmt"
	"testing"
)

func TestFleetError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeUnknownZone, "zone not found")
	if err.Code != ErrCodeUnknownZone {
		t.Errorf("expected code %s, got %s", ErrCodeUnknownZone, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeChannel, "dial failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeChannel) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeUnknownZone) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("zone", "Q").WithDetail("row", 4)
	if detailed.Details["zone"] != "Q" {
		t.Error("WithDetail should add details")
	}
}

func TestIsFollowsNestedCauses(t *testing.T) {
	inner := MalformedSnapshot("robots[0].id is empty")
	outer := Wrap(inner, ErrCodeBackend, "snapshot fetch failed")
	stdWrapped := fmt.Errorf("refresh: %w", outer)

	if !Is(stdWrapped, ErrCodeMalformedSnapshot) {
		t.Error("Is should find a code nested under another FleetError")
	}
	if GetCode(stdWrapped) != ErrCodeBackend {
		t.Errorf("GetCode should return the outermost code, got %s", GetCode(stdWrapped))
	}

	fe, ok := As(stdWrapped)
	if !ok || fe.Code != ErrCodeBackend {
		t.Errorf("As should return the outermost FleetError, got %v", fe)
	}
}

func TestErrorConstructors(t *testing.T) {
	err := UnknownZone("Z")
	if err.Code != ErrCodeUnknownZone {
		t.Errorf("expected code %s, got %s", ErrCodeUnknownZone, err.Code)
	}
	if err.Details["zone"] != "Z" {
		t.Error("UnknownZone should include zone detail")
	}

	err = BackendStatus("/api/dashboard/current", 502, "")
	if err.Code != ErrCodeBackend {
		t.Errorf("expected code %s, got %s", ErrCodeBackend, err.Code)
	}
	if err.Details["status"] != 502 {
		t.Error("BackendStatus should include status detail")
	}
}
