package token

import "errors"

var (
	// ErrInvalidAmount indicates a zero or missing transfer amount.
	ErrInvalidAmount = errors.New("token: invalid amount")

	// ErrZeroAddress indicates the zero address on either side of a transfer.
	ErrZeroAddress = errors.New("token: zero address")

	// ErrUnauthorized indicates an owner-only call from another caller.
	ErrUnauthorized = errors.New("token: unauthorized")

	// ErrAlreadyAllocated indicates a second initial allocation.
	ErrAlreadyAllocated = errors.New("token: initial allocation already done")

	// ErrNilParam indicates a required dependency was nil.
	ErrNilParam = errors.New("token: nil parameter")
)
