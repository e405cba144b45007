package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cmtlabs/libcmt-go/fee"
	"github.com/cmtlabs/libcmt-go/ledger"
)

// Transfer moves amount from -> to on behalf of caller and runs the hook:
//
//	bypass? -> classify -> transaction fee -> cost basis -> profit fee -> settle
//
// Every value is computed against pre-transfer balances; balances change
// only in the settle step. Fee credits are plain ledger moves and never
// re-enter the hook. On error the caller is expected to revert the journal.
func (t *Token) Transfer(caller, from, to common.Address, amount *uint256.Int) (*Receipt, error) {
	if amount == nil || amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	if from == (common.Address{}) || to == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if bal := t.book.Balance(from); bal.Lt(amount) {
		return nil, fmt.Errorf("%w: %s has %s, needs %s", ledger.ErrInsufficientBalance, from, bal.Dec(), amount.Dec())
	}

	r := &Receipt{
		Caller: caller,
		From:   from,
		To:     to,
		Amount: new(uint256.Int).Set(amount),
	}

	if t.bypass(caller, from, to) {
		r.Bypassed = true
		r.Net = new(uint256.Int).Set(amount)
		if err := t.book.Move(from, to, amount); err != nil {
			return nil, err
		}
		return r, nil
	}

	r.Class = t.Classify(from, to)
	sched := &t.cfg.Schedule

	net, txFees := sched.TransactionFee(amount, r.Class)
	r.TxFees = txFees

	cost, err := t.tracker.OnTransfer(from, to, amount, r.Class)
	if err != nil {
		return nil, err
	}
	r.Cost = cost

	if t.taxesProfit(from, r.Class) {
		net, r.ProfitFees, err = sched.ProfitFee(net, cost.RealizedProfit, cost.TransferredCost, t.MarketAge())
		if err != nil {
			return nil, err
		}
	}
	r.Net = net

	if err := t.settle(r); err != nil {
		return nil, err
	}
	return r, nil
}

// taxesProfit reports whether realized profit on this transfer is taxed.
// Pools selling to buyers and special accounts paying out are not: a DAO
// payout is valued at market against a near-zero basis, so taxing it would
// charge the recipient's reward as pure profit.
func (t *Token) taxesProfit(from common.Address, class Classification) bool {
	return class != Buy && !t.special[from]
}

func (t *Token) settle(r *Receipt) error {
	shares := append(append(fee.Breakdown(nil), r.TxFees...), r.ProfitFees...)
	if err := fee.ValidateConservation(r.Amount, r.Net, shares); err != nil {
		return err
	}
	if err := t.book.Debit(r.From, r.Amount); err != nil {
		return err
	}
	for _, fees := range []fee.Breakdown{r.TxFees, r.ProfitFees} {
		for _, s := range fees {
			if err := t.book.Credit(s.To, s.Amount); err != nil {
				return err
			}
		}
	}
	return t.book.Credit(r.To, r.Net)
}
