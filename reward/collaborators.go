package reward

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cmtlabs/libcmt-go/journal"
)

// StakeSource reports the lifetime quote-currency amount staked by a holder.
type StakeSource interface {
	TotalStaked(holder common.Address) *uint256.Int
}

// Quoter values reward-token amounts in quote currency.
type Quoter interface {
	QuoteValue(amount *uint256.Int) (*uint256.Int, error)
}

// Swapper converts the withheld part of a claim into quote currency.
type Swapper interface {
	Swap(amountIn *uint256.Int, tokenIn, tokenOut common.Address) (*uint256.Int, error)
}

// RewardPool is the DAO reward pool that pays holders.
type RewardPool interface {
	Withdraw(recipient common.Address, amount *uint256.Int) error
}

// FundingSink is the event-funding contract that receives quote currency.
type FundingSink interface {
	DepositQuote(amount *uint256.Int) error
}

// ParityQuoter values one reward unit at one quote unit.
type ParityQuoter struct{}

// QuoteValue implements Quoter.
func (ParityQuoter) QuoteValue(amount *uint256.Int) (*uint256.Int, error) {
	return new(uint256.Int).Set(amount), nil
}

// MemSink is an in-memory FundingSink.
type MemSink struct {
	total    uint256.Int
	deposits int
	j        *journal.Journal
}

// Compile-time interface check.
var _ FundingSink = (*MemSink)(nil)

// NewMemSink creates an empty sink. j may be nil.
func NewMemSink(j *journal.Journal) *MemSink { return &MemSink{j: j} }

// DepositQuote implements FundingSink.
func (s *MemSink) DepositQuote(amount *uint256.Int) error {
	if amount == nil {
		return ErrNilParam
	}
	prev, prevN := s.total, s.deposits
	s.total.Add(&s.total, amount)
	s.deposits++
	s.j.Record(func() { s.total, s.deposits = prev, prevN })
	return nil
}

// Total returns the quote currency received so far.
func (s *MemSink) Total() *uint256.Int { return new(uint256.Int).Set(&s.total) }

// Deposits returns the number of deposits received.
func (s *MemSink) Deposits() int { return s.deposits }

// SetTotal restores the sink balance. It is not journaled.
func (s *MemSink) SetTotal(v *uint256.Int) { s.total.Set(v) }

// MemPool is an in-memory RewardPool holding a single balance and a
// per-recipient payout tally.
type MemPool struct {
	balance uint256.Int
	paid    map[common.Address]*uint256.Int
	j       *journal.Journal
}

// Compile-time interface check.
var _ RewardPool = (*MemPool)(nil)

// NewMemPool creates a pool funded with balance. j may be nil.
func NewMemPool(balance *uint256.Int, j *journal.Journal) *MemPool {
	p := &MemPool{paid: make(map[common.Address]*uint256.Int), j: j}
	p.balance.Set(balance)
	return p
}

// Withdraw implements RewardPool.
func (p *MemPool) Withdraw(recipient common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilParam
	}
	if p.balance.Lt(amount) {
		return fmt.Errorf("%w: has %s, needs %s", ErrInsufficientPoolBalance, p.balance.Dec(), amount.Dec())
	}
	prevBal := p.balance
	prevPaid, had := p.paid[recipient]
	p.balance.Sub(&p.balance, amount)
	next := new(uint256.Int).Set(amount)
	if had {
		next.Add(next, prevPaid)
	}
	p.paid[recipient] = next
	p.j.Record(func() {
		p.balance = prevBal
		if had {
			p.paid[recipient] = prevPaid
		} else {
			delete(p.paid, recipient)
		}
	})
	return nil
}

// Balance returns the remaining pool balance.
func (p *MemPool) Balance() *uint256.Int { return new(uint256.Int).Set(&p.balance) }

// Paid returns the total paid to recipient.
func (p *MemPool) Paid(recipient common.Address) *uint256.Int {
	if v, ok := p.paid[recipient]; ok {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}
