package models

import "errors"

// Custom errors
var (
	ErrNotFound = errors.New("record not found")

	// ErrCaptureExists is returned when a raw capture key is written twice.
	ErrCaptureExists = errors.New("raw capture already exists")
	// ErrMalformedCapture marks a raw payload that cannot be decoded.
	ErrMalformedCapture = errors.New("malformed raw capture")
	// ErrNoRawData aborts a date that has no usable raw captures.
	ErrNoRawData = errors.New("no raw data for date")
	// ErrMissingPrerequisite is returned when an upstream stage's output is absent.
	ErrMissingPrerequisite = errors.New("missing prerequisite")
	// ErrInvariantViolation marks a defect such as leakage or a duplicate key after dedup.
	ErrInvariantViolation = errors.New("invariant violation")
)
