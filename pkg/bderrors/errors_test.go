package bderrors

import (
	"errors"
	"testing"
)

func TestDeviceErrorUnwrap(t *testing.T) {
	tests := []struct {
		kind Kind
		want error
	}{
		{KindConnectivity, ErrUnreachable},
		{KindProtocol, ErrProtocol},
		{KindDrift, ErrDrift},
		{KindValidation, ErrValidationFailed},
		{KindConcurrency, ErrCancelled},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := NewDeviceError("DNAAS-LEAF-B14", "commit-check", tt.kind, "boom", nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false, want true", err, tt.want)
			}
		})
	}
}

func TestDeviceErrorPreservesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewDeviceError("DNAAS-LEAF-B14", "connect", KindConnectivity, "dial failed", cause)
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to surface the explicit cause when provided")
	}
}

func TestDeviceErrorMessage(t *testing.T) {
	err := NewDeviceError("DNAAS-LEAF-B15", "commit", KindProtocol, "access-denied", nil)
	msg := err.Error()
	for _, want := range []string{"DNAAS-LEAF-B15", "commit", "access-denied"} {
		if !contains(msg, want) {
			t.Errorf("Error() = %q, expected it to contain %q", msg, want)
		}
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
