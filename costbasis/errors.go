package costbasis

import "errors"

var (
	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("costbasis: nil parameter")

	// ErrPricing indicates the price oracle could not value the transfer.
	ErrPricing = errors.New("costbasis: pricing failed")
)
