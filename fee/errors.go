package fee

import "errors"

var (
	// ErrRateOverflow indicates a group of basis-point rates summing above 10000.
	ErrRateOverflow = errors.New("fee: rates exceed 10000 basis points")

	// ErrMissingDestination indicates a non-zero rate routed to the zero address.
	ErrMissingDestination = errors.New("fee: missing destination")

	// ErrConservationViolation indicates net plus shares differs from the gross amount.
	ErrConservationViolation = errors.New("fee: amount conservation violated")

	// ErrFeeExceedsAmount indicates fees larger than the amount they are taken from.
	ErrFeeExceedsAmount = errors.New("fee: fees exceed amount")

	// ErrOverflow indicates an intermediate product exceeding 256 bits.
	ErrOverflow = errors.New("fee: arithmetic overflow")

	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("fee: nil parameter")
)
