package ledger

import "errors"

var (
	// ErrInsufficientBalance indicates a debit larger than the account balance.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrInsufficientCost indicates a cost-basis reduction larger than the recorded cost.
	ErrInsufficientCost = errors.New("ledger: insufficient cost basis")

	// ErrOverflow indicates an addition that would exceed 256 bits.
	ErrOverflow = errors.New("ledger: arithmetic overflow")

	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("ledger: nil parameter")
)
