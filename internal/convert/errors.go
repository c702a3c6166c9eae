package convert

import "errors"

// Domain errors for the convert package.
var (
	// ErrMalformedEntityID is returned when an entity identifier does
	// not contain exactly one "." separator.
	ErrMalformedEntityID = errors.New("convert: malformed entity id")

	// ErrMissingAutomationID is returned when an automation's state
	// attributes carry no stable id, so its config cannot be fetched.
	ErrMissingAutomationID = errors.New("convert: automation has no id")

	// ErrInvalidTrigger is returned when a trigger fails schema
	// validation. Trigger semantics are safety-relevant, so this aborts
	// the whole automation rather than emitting a partial translation.
	ErrInvalidTrigger = errors.New("convert: invalid trigger")

	// ErrInvalidCondition is returned when a condition entry fails
	// schema validation.
	ErrInvalidCondition = errors.New("convert: invalid condition")

	// ErrInvalidConfig is returned when an automation config lacks the
	// expected trigger/condition/action lists.
	ErrInvalidConfig = errors.New("convert: invalid automation config")
)
