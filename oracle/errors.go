package oracle

import "errors"

var (
	// ErrInsufficientLiquidity indicates empty reserves or an output that would drain them.
	ErrInsufficientLiquidity = errors.New("oracle: insufficient liquidity")

	// ErrInsufficientInputAmount indicates a zero swap input.
	ErrInsufficientInputAmount = errors.New("oracle: insufficient input amount")

	// ErrInsufficientOutputAmount indicates a zero requested output.
	ErrInsufficientOutputAmount = errors.New("oracle: insufficient output amount")

	// ErrUnknownToken indicates a swap leg that is not one of the pool's tokens.
	ErrUnknownToken = errors.New("oracle: unknown token")

	// ErrInvalidFee indicates a swap fee of 10000 basis points or more.
	ErrInvalidFee = errors.New("oracle: invalid swap fee")

	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("oracle: nil parameter")

	// ErrOverflow indicates an intermediate product exceeded 256 bits.
	ErrOverflow = errors.New("oracle: arithmetic overflow")
)
