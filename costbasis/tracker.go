// Package costbasis tracks, per holder, what the holder notionally paid for
// its current balance and derives realized profit when tokens leave.
package costbasis

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cmtlabs/libcmt-go/fee"
	"github.com/cmtlabs/libcmt-go/ledger"
	"github.com/cmtlabs/libcmt-go/oracle"
)

// Result describes the cost-basis effect of one transfer.
type Result struct {
	TransferredCost *uint256.Int // added to the recipient
	Deductible      *uint256.Int // removed from the sender
	RealizedProfit  *uint256.Int // TransferredCost - Deductible
}

// Tracker updates cost bases in a ledger.Book.
type Tracker struct {
	book      *ledger.Book
	pricer    oracle.Pricer
	isSpecial func(common.Address) bool
}

// NewTracker creates a Tracker. isSpecial may be nil, meaning no account is
// valued at market price on normal transfers.
func NewTracker(book *ledger.Book, pricer oracle.Pricer, isSpecial func(common.Address) bool) *Tracker {
	if isSpecial == nil {
		isSpecial = func(common.Address) bool { return false }
	}
	return &Tracker{book: book, pricer: pricer, isSpecial: isSpecial}
}

// Value returns the quote-currency value assigned to amount tokens leaving
// from, without mutating anything. It must be called before the sender's
// balance is debited.
//
//   - buy: what the buyer pays the pool for amount
//   - sell: what the pool pays for amount
//   - normal from a special account: valued like a sell
//   - normal otherwise: costBasis[from] * amount / balance[from]
func (t *Tracker) Value(from common.Address, amount *uint256.Int, class fee.Classification) (*uint256.Int, error) {
	if amount == nil {
		return nil, fmt.Errorf("%w: amount", ErrNilParam)
	}
	switch {
	case class == fee.ClassBuy:
		v, err := t.pricer.BuyCost(amount)
		if err != nil {
			return nil, fmt.Errorf("%w: buy cost: %w", ErrPricing, err)
		}
		return v, nil
	case class == fee.ClassSell:
		v, err := t.pricer.SellValue(amount)
		if err != nil {
			return nil, fmt.Errorf("%w: sell value: %w", ErrPricing, err)
		}
		return v, nil
	case t.isSpecial(from):
		v, err := t.pricer.SellValue(amount)
		if err == nil {
			return v, nil
		}
		// Without liquidity there is no market reference yet.
		if !errors.Is(err, oracle.ErrInsufficientLiquidity) {
			return nil, fmt.Errorf("%w: special sender: %w", ErrPricing, err)
		}
	}
	return t.averageCost(from, amount)
}

func (t *Tracker) averageCost(from common.Address, amount *uint256.Int) (*uint256.Int, error) {
	balance := t.book.Balance(from)
	if balance.IsZero() {
		return new(uint256.Int), nil
	}
	v, overflow := new(uint256.Int).MulOverflow(t.book.CostBasis(from), amount)
	if overflow {
		return nil, fmt.Errorf("%w: cost * amount overflows", ErrPricing)
	}
	return v.Div(v, balance), nil
}

// OnTransfer values the movement of amount from -> to, moves that cost
// between the two accounts and returns the realized profit. Balances are
// not touched.
func (t *Tracker) OnTransfer(from, to common.Address, amount *uint256.Int, class fee.Classification) (Result, error) {
	transferred, err := t.Value(from, amount, class)
	if err != nil {
		return Result{}, err
	}
	return t.Apply(from, to, transferred)
}

// Apply moves transferredCost into to and removes min(transferredCost,
// costBasis[from]) from from. Any excess is realized profit.
func (t *Tracker) Apply(from, to common.Address, transferredCost *uint256.Int) (Result, error) {
	if transferredCost == nil {
		return Result{}, fmt.Errorf("%w: transferred cost", ErrNilParam)
	}
	deductible := t.book.CostBasis(from)
	if transferredCost.Lt(deductible) {
		deductible.Set(transferredCost)
	}
	profit := new(uint256.Int).Sub(transferredCost, deductible)

	if err := t.book.AddCost(to, transferredCost); err != nil {
		return Result{}, err
	}
	if err := t.book.SubCost(from, deductible); err != nil {
		return Result{}, err
	}
	return Result{
		TransferredCost: new(uint256.Int).Set(transferredCost),
		Deductible:      deductible,
		RealizedProfit:  profit,
	}, nil
}
