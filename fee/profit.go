package fee

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
)

// ProfitFee applies the profit tax to amount.
//
// The taxable base is amount * realizedProfit / transferredCost / 10000,
// computed in exactly that order, and each category takes base * rate. The
// normal category is skipped until marketAge reaches NormalFeeDelay.
// A zero realizedProfit returns amount untouched.
func (s *Schedule) ProfitFee(amount, realizedProfit, transferredCost *uint256.Int, marketAge time.Duration) (*uint256.Int, Breakdown, error) {
	if amount == nil || realizedProfit == nil || transferredCost == nil {
		return nil, nil, ErrNilParam
	}
	net := new(uint256.Int).Set(amount)
	if realizedProfit.IsZero() || transferredCost.IsZero() {
		return net, nil, nil
	}

	base, overflow := new(uint256.Int).MulOverflow(amount, realizedProfit)
	if overflow {
		return nil, nil, fmt.Errorf("%w: amount * profit", ErrOverflow)
	}
	base.Div(base, transferredCost)
	base.Div(base, uint256.NewInt(BasisPoints))

	var shares Breakdown
	for _, c := range profitOrder {
		if c == CategoryNormal && marketAge < s.NormalFeeDelay {
			continue
		}
		v := new(uint256.Int).Mul(base, uint256.NewInt(s.Profit.rate(c)))
		if v.IsZero() {
			continue
		}
		if net.Lt(v) {
			return nil, nil, fmt.Errorf("%w: %s fee %s > remaining %s", ErrFeeExceedsAmount, c, v.Dec(), net.Dec())
		}
		shares = append(shares, Share{Category: c, To: s.Destinations.For(c), Amount: v})
		net.Sub(net, v)
	}
	return net, shares, nil
}
