package leads

import "errors"

var (
	// ErrInvalidName is returned when the name is invalid
	ErrInvalidName = errors.New("leads: name is required")

	// ErrMissingContact is returned when phone or email is missing
	ErrMissingContact = errors.New("leads: phone and email are required")

	// ErrMissingDescription is returned when the project description is empty
	ErrMissingDescription = errors.New("leads: description is required")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("leads: lead not found")

	// ErrInvalidStatus is returned for statuses outside the workflow set
	ErrInvalidStatus = errors.New("leads: invalid status")

	// ErrEmptyUpdate is returned when an update carries no fields
	ErrEmptyUpdate = errors.New("leads: nothing to update")

	// ErrDuplicateStoragePath is returned when an attachment path is reused
	ErrDuplicateStoragePath = errors.New("leads: duplicate attachment storage path")
)
