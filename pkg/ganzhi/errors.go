package ganzhi

import "errors"

// Error classes shared by the scoring packages. Callers classify with errors.Is.
var (
	// ErrConfiguration marks setup data that cannot be scored against: a point
	// table with missing labels, an empty or broken period sequence.
	ErrConfiguration = errors.New("configuration error")

	// ErrOracle marks a date the calendar oracle could not resolve.
	ErrOracle = errors.New("oracle failure")

	// ErrInvalidInput marks malformed birth data.
	ErrInvalidInput = errors.New("invalid input")
)
