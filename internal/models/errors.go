package models

import (
	"errors"
	"fmt"
)

// ReasonCode is a stable, machine-readable rejection code surfaced to callers.
type ReasonCode string

const (
	ReasonDurationTooShort ReasonCode = "DURATION_TOO_SHORT"
	ReasonDurationTooLong  ReasonCode = "DURATION_TOO_LONG"
	ReasonTooFarInAdvance  ReasonCode = "TOO_FAR_IN_ADVANCE"
	ReasonMaintenance      ReasonCode = "MAINTENANCE"
	ReasonInvalidPattern   ReasonCode = "INVALID_PATTERN"
	ReasonOverlap          ReasonCode = "OVERLAP"
	ReasonAlreadyTerminal  ReasonCode = "ALREADY_TERMINAL"
	ReasonForbiddenRole    ReasonCode = "FORBIDDEN_ROLE"
)

// DomainError carries a stable reason code plus a human-readable detail.
// OVERLAP errors additionally carry the conflicting windows so callers can
// offer alternatives.
type DomainError struct {
	Code      ReasonCode
	Detail    string
	Conflicts []Reservation
}

func (e *DomainError) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// NewDomainError creates a DomainError with a formatted detail string.
func NewDomainError(code ReasonCode, format string, args ...interface{}) *DomainError {
	return &DomainError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// IsReason reports whether err is a DomainError with the given code.
func IsReason(err error, code ReasonCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// ReasonOf extracts the reason code from err, or an empty code if err is not
// a DomainError.
func ReasonOf(err error) ReasonCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
