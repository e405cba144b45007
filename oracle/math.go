package oracle

import (
	"fmt"

	"github.com/holiman/uint256"
)

const feeDenominator = 10000

// GetAmountOut returns the output of a constant-product swap:
//
//	out = in*(10000-fee)*reserveOut / (reserveIn*10000 + in*(10000-fee))
func GetAmountOut(amountIn, reserveIn, reserveOut *uint256.Int, feeBP uint64) (*uint256.Int, error) {
	if amountIn == nil || reserveIn == nil || reserveOut == nil {
		return nil, ErrNilParam
	}
	if feeBP >= feeDenominator {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFee, feeBP)
	}
	if amountIn.IsZero() {
		return nil, ErrInsufficientInputAmount
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}

	inWithFee, overflow := new(uint256.Int).MulOverflow(amountIn, uint256.NewInt(feeDenominator-feeBP))
	if overflow {
		return nil, fmt.Errorf("%w: amount in", ErrOverflow)
	}
	num, overflow := new(uint256.Int).MulOverflow(inWithFee, reserveOut)
	if overflow {
		return nil, fmt.Errorf("%w: amount in * reserve out", ErrOverflow)
	}
	den, overflow := new(uint256.Int).MulOverflow(reserveIn, uint256.NewInt(feeDenominator))
	if overflow {
		return nil, fmt.Errorf("%w: reserve in", ErrOverflow)
	}
	if _, overflow := den.AddOverflow(den, inWithFee); overflow {
		return nil, fmt.Errorf("%w: denominator", ErrOverflow)
	}
	return num.Div(num, den), nil
}

// GetAmountIn returns the input required to receive amountOut:
//
//	in = reserveIn*out*10000 / ((reserveOut-out)*(10000-fee)) + 1
func GetAmountIn(amountOut, reserveIn, reserveOut *uint256.Int, feeBP uint64) (*uint256.Int, error) {
	if amountOut == nil || reserveIn == nil || reserveOut == nil {
		return nil, ErrNilParam
	}
	if feeBP >= feeDenominator {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFee, feeBP)
	}
	if amountOut.IsZero() {
		return nil, ErrInsufficientOutputAmount
	}
	if reserveIn.IsZero() || !reserveOut.Gt(amountOut) {
		return nil, ErrInsufficientLiquidity
	}

	num, overflow := new(uint256.Int).MulOverflow(reserveIn, amountOut)
	if !overflow {
		_, overflow = num.MulOverflow(num, uint256.NewInt(feeDenominator))
	}
	if overflow {
		return nil, fmt.Errorf("%w: reserve in * amount out", ErrOverflow)
	}
	den := new(uint256.Int).Sub(reserveOut, amountOut)
	if _, overflow := den.MulOverflow(den, uint256.NewInt(feeDenominator-feeBP)); overflow {
		return nil, fmt.Errorf("%w: reserve out", ErrOverflow)
	}
	num.Div(num, den)
	return num.AddUint64(num, 1), nil
}

// Quote converts amountA to the other side at the reserve ratio, with no fee.
func Quote(amountA, reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	if amountA == nil || reserveA == nil || reserveB == nil {
		return nil, ErrNilParam
	}
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	out, overflow := new(uint256.Int).MulOverflow(amountA, reserveB)
	if overflow {
		return nil, fmt.Errorf("%w: amount * reserve", ErrOverflow)
	}
	return out.Div(out, reserveA), nil
}
