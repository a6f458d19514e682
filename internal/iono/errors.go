package iono

import (
	"errors"
	"fmt"
	"math"
)

// DomainError reports an input outside its physically valid range. It is
// raised at the entry of the public operation that received the input.
type DomainError struct {
	Op     string  // Operation that rejected the input
	Field  string  // Offending input
	Value  float64 // Offending value
	Reason string
}

// NewDomainError builds a *DomainError.
func NewDomainError(op, field string, value float64, reason string) *DomainError {
	return &DomainError{Op: op, Field: field, Value: value, Reason: reason}
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s=%g: %s", e.Op, e.Field, e.Value, e.Reason)
}

// IsDomainError reports whether err wraps a *DomainError.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// CheckSSN validates a solar-activity level against [0, MaxSSN].
func CheckSSN(op string, ssn float64) error {
	if math.IsNaN(ssn) || ssn < 0 || ssn > MaxSSN {
		return NewDomainError(op, "ssn", ssn, "solar activity outside [0, 200]")
	}
	return nil
}

// CheckMonth validates a calendar month.
func CheckMonth(op string, month int) error {
	if month < 1 || month > 12 {
		return NewDomainError(op, "month", float64(month), "month outside [1, 12]")
	}
	return nil
}

// CheckUTC validates a UTC day fraction.
func CheckUTC(op string, utc float64) error {
	if math.IsNaN(utc) || utc < 0 || utc > 1 {
		return NewDomainError(op, "utc", utc, "UTC fraction outside [0, 1]")
	}
	return nil
}

// CheckFrequency validates a frequency in MHz.
func CheckFrequency(op string, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return NewDomainError(op, "freq", f, "frequency must be positive")
	}
	return nil
}
