package oracle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/cmtlabs/libcmt-go/journal"
)

// ConstantProduct is an in-memory x*y=k pair between CMT and the quote
// currency. Reserve changes are journaled.
type ConstantProduct struct {
	token common.Address
	quote common.Address
	feeBP uint64

	tokenReserve uint256.Int
	quoteReserve uint256.Int

	decimals int32
	j        *journal.Journal
}

// Compile-time interface checks.
var (
	_ Oracle = (*ConstantProduct)(nil)
	_ Pricer = (*ConstantProduct)(nil)
)

// NewConstantProduct creates an empty pair. decimals is shared by both
// tokens and only affects SpotPrice.
func NewConstantProduct(token, quote common.Address, feeBP uint64, decimals int32, j *journal.Journal) (*ConstantProduct, error) {
	if feeBP >= feeDenominator {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFee, feeBP)
	}
	return &ConstantProduct{token: token, quote: quote, feeBP: feeBP, decimals: decimals, j: j}, nil
}

// Token returns the CMT token address.
func (p *ConstantProduct) Token() common.Address { return p.token }

// QuoteToken returns the quote-currency address.
func (p *ConstantProduct) QuoteToken() common.Address { return p.quote }

// FeeBasisPoints returns the swap fee.
func (p *ConstantProduct) FeeBasisPoints() uint64 { return p.feeBP }

// Reserves implements Oracle.
func (p *ConstantProduct) Reserves() (*uint256.Int, *uint256.Int, error) {
	return new(uint256.Int).Set(&p.tokenReserve), new(uint256.Int).Set(&p.quoteReserve), nil
}

// SetReserves overwrites both reserves. It is not journaled and is meant for
// restoring persisted state.
func (p *ConstantProduct) SetReserves(tokenReserve, quoteReserve *uint256.Int) {
	p.tokenReserve.Set(tokenReserve)
	p.quoteReserve.Set(quoteReserve)
}

func (p *ConstantProduct) setReserves(tokenReserve, quoteReserve *uint256.Int) {
	prevToken, prevQuote := p.tokenReserve, p.quoteReserve
	p.tokenReserve.Set(tokenReserve)
	p.quoteReserve.Set(quoteReserve)
	p.j.Record(func() {
		p.tokenReserve = prevToken
		p.quoteReserve = prevQuote
	})
}

// AddLiquidity deposits both sides into the reserves.
func (p *ConstantProduct) AddLiquidity(tokenAmount, quoteAmount *uint256.Int) error {
	if tokenAmount == nil || quoteAmount == nil {
		return ErrNilParam
	}
	if tokenAmount.IsZero() || quoteAmount.IsZero() {
		return ErrInsufficientInputAmount
	}
	t := new(uint256.Int).Add(&p.tokenReserve, tokenAmount)
	q := new(uint256.Int).Add(&p.quoteReserve, quoteAmount)
	p.setReserves(t, q)
	return nil
}

// Swap implements Oracle.
func (p *ConstantProduct) Swap(amountIn *uint256.Int, tokenIn, tokenOut common.Address) (*uint256.Int, error) {
	var reserveIn, reserveOut *uint256.Int
	switch {
	case tokenIn == p.token && tokenOut == p.quote:
		reserveIn, reserveOut = &p.tokenReserve, &p.quoteReserve
	case tokenIn == p.quote && tokenOut == p.token:
		reserveIn, reserveOut = &p.quoteReserve, &p.tokenReserve
	default:
		return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownToken, tokenIn, tokenOut)
	}

	out, err := GetAmountOut(amountIn, reserveIn, reserveOut, p.feeBP)
	if err != nil {
		return nil, err
	}
	if out.IsZero() {
		return nil, ErrInsufficientOutputAmount
	}

	newIn := new(uint256.Int).Add(reserveIn, amountIn)
	newOut := new(uint256.Int).Sub(reserveOut, out)
	if tokenIn == p.token {
		p.setReserves(newIn, newOut)
	} else {
		p.setReserves(newOut, newIn)
	}
	return out, nil
}

// SpotPrice implements Oracle.
func (p *ConstantProduct) SpotPrice() (decimal.Decimal, error) {
	if p.tokenReserve.IsZero() || p.quoteReserve.IsZero() {
		return decimal.Zero, ErrInsufficientLiquidity
	}
	q := decimal.NewFromBigInt(p.quoteReserve.ToBig(), -p.decimals)
	t := decimal.NewFromBigInt(p.tokenReserve.ToBig(), -p.decimals)
	return q.Div(t), nil
}

// BuyCost implements Pricer.
func (p *ConstantProduct) BuyCost(amount *uint256.Int) (*uint256.Int, error) {
	return GetAmountIn(amount, &p.quoteReserve, &p.tokenReserve, p.feeBP)
}

// SellValue implements Pricer.
func (p *ConstantProduct) SellValue(amount *uint256.Int) (*uint256.Int, error) {
	return GetAmountOut(amount, &p.tokenReserve, &p.quoteReserve, p.feeBP)
}

// QuoteValue converts a token amount to quote currency at the reserve ratio.
func (p *ConstantProduct) QuoteValue(amount *uint256.Int) (*uint256.Int, error) {
	return Quote(amount, &p.tokenReserve, &p.quoteReserve)
}
