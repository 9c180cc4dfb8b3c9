package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrExternalAPIFailure = errors.New("external API failure")
	ErrEventNotFound      = errors.New("event not found")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrUnsupportedFormat  = errors.New("unsupported spreadsheet format")
	ErrDuplicateInterest  = errors.New("you have already registered interest for this event")
	ErrInterestNotFound   = errors.New("no matching interest found to remove")
	ErrEmailDomain        = errors.New("email address is outside the allowed domain")
	ErrBlobNotFound       = errors.New("blob not found")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// MissingColumnsError is returned when a spreadsheet lacks one of the
// required semantic columns.
type MissingColumnsError struct {
	Missing  []string
	Detected []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("could not find columns for: %s. Detected: [%s]",
		strings.Join(e.Missing, ", "), strings.Join(e.Detected, ", "))
}
