// Package errors defines the error taxonomy shared by the enkit packages.
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Convenience wrappers for errors.Is/As
package errors

import (
	"errors"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingField  = errors.New("missing required field")
	ErrUnknownKind   = errors.New("unknown parameter kind")

	// Data shape errors
	ErrSizeMismatch   = errors.New("data length mismatch")
	ErrConfigMismatch = errors.New("config mismatch between nodes")
	ErrEmptyEnsemble  = errors.New("ensemble has no members")

	// Persistence errors
	ErrNotFound = errors.New("not found")
	ErrFormat   = errors.New("invalid file format")

	// Query errors
	ErrQueryTimeout = errors.New("query timeout")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// Join is a convenience wrapper for errors.Join
var Join = errors.Join

// IsValidation returns true if err is a configuration or shape error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrUnknownKind) ||
		errors.Is(err, ErrSizeMismatch) ||
		errors.Is(err, ErrConfigMismatch) ||
		errors.Is(err, ErrEmptyEnsemble)
}

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsFormat returns true if err is a file format error.
func IsFormat(err error) bool {
	return errors.Is(err, ErrFormat)
}
