// Package oracle models the external AMM pair as a price and swap oracle.
package oracle

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// DefaultFeeBasisPoints is the PancakeSwap V2 swap fee (0.25%).
const DefaultFeeBasisPoints = 25

// Oracle is the black-box AMM collaborator.
type Oracle interface {
	// Reserves returns the CMT reserve and the quote-currency reserve.
	Reserves() (tokenReserve, quoteReserve *uint256.Int, err error)

	// Swap sells amountIn of tokenIn for tokenOut and returns the output.
	Swap(amountIn *uint256.Int, tokenIn, tokenOut common.Address) (*uint256.Int, error)

	// SpotPrice returns quote currency per whole token.
	SpotPrice() (decimal.Decimal, error)
}

// Pricer values token amounts in quote currency.
type Pricer interface {
	// BuyCost returns the quote currency a buyer pays to receive amount tokens.
	BuyCost(amount *uint256.Int) (*uint256.Int, error)

	// SellValue returns the quote currency a seller receives for amount tokens.
	SellValue(amount *uint256.Int) (*uint256.Int, error)
}

// ReservePricer derives prices from any Oracle's reserves.
type ReservePricer struct {
	Oracle         Oracle
	FeeBasisPoints uint64
}

// Compile-time interface check.
var _ Pricer = (*ReservePricer)(nil)

// BuyCost implements Pricer.
func (p *ReservePricer) BuyCost(amount *uint256.Int) (*uint256.Int, error) {
	tokenReserve, quoteReserve, err := p.Oracle.Reserves()
	if err != nil {
		return nil, err
	}
	return GetAmountIn(amount, quoteReserve, tokenReserve, p.FeeBasisPoints)
}

// SellValue implements Pricer.
func (p *ReservePricer) SellValue(amount *uint256.Int) (*uint256.Int, error) {
	tokenReserve, quoteReserve, err := p.Oracle.Reserves()
	if err != nil {
		return nil, err
	}
	return GetAmountOut(amount, tokenReserve, quoteReserve, p.FeeBasisPoints)
}
