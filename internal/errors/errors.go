// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrDispatchInProgress is returned when another run holds the dispatch lease.
var ErrDispatchInProgress = errors.New("dispatch already in progress")

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ValidationError reports a malformed dispatch request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err (or anything it wraps) is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ErrAtomicUnavailable means the datastore cannot perform the atomic counter increment
// (the increment function is missing or not permitted) and a slower path must be used.
var ErrAtomicUnavailable = errors.New("atomic increment unavailable")

// ErrDuplicateOutbound means the prospect already has an outbound email on record.
var ErrDuplicateOutbound = errors.New("prospect already has an outbound email")
