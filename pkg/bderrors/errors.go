// Package bderrors defines the error taxonomy shared by every component
// that talks to a device or crosses the executor boundary, generalizing the
// typed-wrapper-over-sentinel pattern used throughout this codebase's
// ambient error handling.
package bderrors

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per taxonomy kind from the error handling design.
var (
	ErrUnreachable      = errors.New("device unreachable")
	ErrAuthFailed       = errors.New("device authentication failed")
	ErrShellTimeout     = errors.New("device shell timed out")
	ErrProtocol         = errors.New("device protocol error")
	ErrDrift            = errors.New("configuration drift detected")
	ErrValidationFailed = errors.New("validation failed")
	ErrAlreadyAssigned  = errors.New("bridge domain already assigned")
	ErrPermissionDenied = errors.New("permission denied")
	ErrCancelled        = errors.New("operation cancelled")
	ErrDeadlineExceeded = errors.New("operation deadline exceeded")
)

// Kind is the closed taxonomy category a DeviceError belongs to.
type Kind string

const (
	KindConnectivity Kind = "connectivity"
	KindProtocol     Kind = "protocol"
	KindDrift        Kind = "drift"
	KindValidation   Kind = "validation"
	KindPersistence  Kind = "persistence"
	KindConcurrency  Kind = "concurrency"
)

// DeviceError is the normalized shape every device-facing error takes once
// it crosses the C2/C3 boundary: it always names the device, the phase the
// error occurred in, and its taxonomy kind. Higher layers never see raw SSH
// or parse errors directly.
type DeviceError struct {
	Device string
	Phase  string
	Kind   Kind
	Detail string
	cause  error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: %s (device=%s phase=%s)", e.Kind, e.Detail, e.Device, e.Phase)
}

func (e *DeviceError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	switch e.Kind {
	case KindConnectivity:
		return ErrUnreachable
	case KindProtocol:
		return ErrProtocol
	case KindDrift:
		return ErrDrift
	case KindValidation:
		return ErrValidationFailed
	case KindConcurrency:
		return ErrCancelled
	default:
		return nil
	}
}

// NewDeviceError constructs a DeviceError, optionally wrapping a lower-level
// cause (e.g. the raw *ssh.Client error). When cause is non-nil, Unwrap
// returns it in place of the Kind's sentinel.
func NewDeviceError(device, phase string, kind Kind, detail string, cause error) *DeviceError {
	return &DeviceError{Device: device, Phase: phase, Kind: kind, Detail: detail, cause: cause}
}
