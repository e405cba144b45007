// Package reward accumulates staking rewards per holder, caps team referral
// rewards at a multiple of the holder's stake, and pays out claims.
package reward

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cmtlabs/libcmt-go/journal"
)

// Defaults of the reference deployment.
const (
	DefaultCapMultiplier   = 3
	DefaultWithholdPercent = 20
)

// Options configures an Accountant.
type Options struct {
	// CapMultiplier bounds lifetime team referral value to
	// CapMultiplier * TotalStaked.
	CapMultiplier uint64

	// WithholdPercent of every claim is swapped to quote currency and sent
	// to the funding sink.
	WithholdPercent uint64

	Scope CapScope

	RewardToken common.Address
	QuoteToken  common.Address

	// Operators may grant rewards.
	Operators []common.Address
}

// Collaborators are the external contracts the accountant calls.
type Collaborators struct {
	Stakes  StakeSource
	Quoter  Quoter
	Swapper Swapper
	Pool    RewardPool
	Sink    FundingSink
}

// Accountant is the reward accountant.
type Accountant struct {
	opts      Options
	c         Collaborators
	operators map[common.Address]struct{}
	ledgers   map[common.Address]*Ledger
	onCap     []func(holder common.Address, capValue *uint256.Int)
	j         *journal.Journal
}

// NewAccountant validates opts and creates an accountant. j may be nil.
func NewAccountant(opts Options, c Collaborators, j *journal.Journal) (*Accountant, error) {
	if c.Stakes == nil || c.Swapper == nil || c.Pool == nil || c.Sink == nil {
		return nil, fmt.Errorf("%w: stakes, swapper, pool and sink are required", ErrNilParam)
	}
	if c.Quoter == nil {
		c.Quoter = ParityQuoter{}
	}
	if opts.CapMultiplier == 0 {
		return nil, fmt.Errorf("%w: cap multiplier must be positive", ErrInvalidOptions)
	}
	if opts.WithholdPercent > 100 {
		return nil, fmt.Errorf("%w: withhold percent %d", ErrInvalidOptions, opts.WithholdPercent)
	}
	if len(opts.Operators) == 0 {
		return nil, fmt.Errorf("%w: no operators", ErrInvalidOptions)
	}
	ops := make(map[common.Address]struct{}, len(opts.Operators))
	for _, o := range opts.Operators {
		ops[o] = struct{}{}
	}
	return &Accountant{
		opts:      opts,
		c:         c,
		operators: ops,
		ledgers:   make(map[common.Address]*Ledger),
		j:         j,
	}, nil
}

// OnCapReached registers fn to run when a holder's team cap is hit.
func (a *Accountant) OnCapReached(fn func(holder common.Address, capValue *uint256.Int)) {
	a.onCap = append(a.onCap, fn)
}

// Ledger returns a copy of the ledger of holder; the zero ledger if the
// holder never received a reward.
func (a *Accountant) Ledger(holder common.Address) Ledger {
	if l, ok := a.ledgers[holder]; ok {
		return *l
	}
	return Ledger{Holder: holder}
}

// TeamCap returns the quote-value cap on team referral rewards.
func (a *Accountant) TeamCap(holder common.Address) *uint256.Int {
	staked := a.c.Stakes.TotalStaked(holder)
	return staked.Mul(staked, uint256.NewInt(a.opts.CapMultiplier))
}

// mutate runs fn on the ledger of holder, creating it lazily, and journals
// the previous value.
func (a *Accountant) mutate(holder common.Address, fn func(l *Ledger)) {
	l, ok := a.ledgers[holder]
	if !ok {
		l = &Ledger{Holder: holder}
		a.ledgers[holder] = l
	}
	prev := *l
	fn(l)
	a.j.Record(func() {
		if ok {
			*l = prev
		} else {
			delete(a.ledgers, holder)
		}
	})
}

// Grant credits amount of category c to holder.
//
// Team referral grants are capped: once the quote value of lifetime team
// rewards would exceed CapMultiplier * TotalStaked, only the part up to the
// cap is credited and the holder is flagged. Flagged holders get
// ErrInvalidRewardType for further team grants, or for every grant under
// CapScopeAll. TotalReward grows by the credited amount.
func (a *Accountant) Grant(caller, holder common.Address, amount *uint256.Int, c Category) (GrantResult, error) {
	if _, ok := a.operators[caller]; !ok {
		return GrantResult{}, ErrUnauthorized
	}
	if holder == (common.Address{}) {
		return GrantResult{}, ErrZeroAddress
	}
	if amount == nil || amount.IsZero() {
		return GrantResult{}, ErrInvalidAmount
	}
	if !c.Valid() {
		return GrantResult{}, fmt.Errorf("%w: %s", ErrInvalidRewardType, c)
	}

	l := a.Ledger(holder)
	if l.TeamCapReached && (c == TeamReferral || a.opts.Scope == CapScopeAll) {
		return GrantResult{}, fmt.Errorf("%w: team cap reached for %s", ErrInvalidRewardType, holder)
	}

	res := GrantResult{Holder: holder, Category: c, Amount: new(uint256.Int).Set(amount), Credited: new(uint256.Int).Set(amount)}
	var teamValue *uint256.Int
	var capValue *uint256.Int

	if c == TeamReferral {
		value, err := a.c.Quoter.QuoteValue(amount)
		if err != nil {
			return GrantResult{}, fmt.Errorf("reward: quote team reward: %w", err)
		}
		capValue = a.TeamCap(holder)
		remaining := new(uint256.Int)
		if capValue.Gt(&l.TeamValue) {
			remaining.Sub(capValue, &l.TeamValue)
		}
		switch {
		case remaining.IsZero():
			// At the cap even a grant that quotes to zero is refused.
			res.Credited.Clear()
			res.CapReached = true
			teamValue = capValue
		case value.Gt(remaining):
			// Credit the fraction of amount whose value fits under the cap.
			res.Credited.Mul(amount, remaining)
			res.Credited.Div(res.Credited, value)
			res.CapReached = true
			teamValue = capValue
		default:
			teamValue = new(uint256.Int).Add(&l.TeamValue, value)
		}
	}

	a.mutate(holder, func(l *Ledger) {
		l.Categories[c].Add(&l.Categories[c], res.Credited)
		l.TotalReward.Add(&l.TotalReward, res.Credited)
		if teamValue != nil {
			l.TeamValue.Set(teamValue)
		}
		if res.CapReached {
			l.TeamCapReached = true
		}
	})

	if res.CapReached {
		for _, fn := range a.onCap {
			fn(holder, capValue)
		}
	}
	return res, nil
}

// ResetTeamCap clears the cap flag of holder. The staking engine calls it on
// every new deposit.
func (a *Accountant) ResetTeamCap(holder common.Address) {
	l, ok := a.ledgers[holder]
	if !ok || !l.TeamCapReached {
		return
	}
	a.mutate(holder, func(l *Ledger) { l.TeamCapReached = false })
}

// Claim pays amount of accumulated reward to holder. WithholdPercent of it
// is swapped to quote currency and deposited into the funding sink; the rest
// is withdrawn from the reward pool to the holder. ClaimedReward grows by
// the full amount.
func (a *Accountant) Claim(holder common.Address, amount *uint256.Int) (ClaimResult, error) {
	if holder == (common.Address{}) {
		return ClaimResult{}, ErrZeroAddress
	}
	if amount == nil || amount.IsZero() {
		return ClaimResult{}, ErrInvalidAmount
	}
	l := a.Ledger(holder)
	if claimable := l.Claimable(); amount.Gt(claimable) {
		return ClaimResult{}, fmt.Errorf("%w: requested %s, claimable %s", ErrInvalidRewardAmount, amount.Dec(), claimable.Dec())
	}

	withheld := new(uint256.Int).Mul(amount, uint256.NewInt(a.opts.WithholdPercent))
	withheld.Div(withheld, uint256.NewInt(100))
	res := ClaimResult{
		Holder:   holder,
		Amount:   new(uint256.Int).Set(amount),
		Withheld: withheld,
		QuoteOut: new(uint256.Int),
		Paid:     new(uint256.Int).Sub(amount, withheld),
	}

	if !withheld.IsZero() {
		out, err := a.c.Swapper.Swap(withheld, a.opts.RewardToken, a.opts.QuoteToken)
		if err != nil {
			return ClaimResult{}, fmt.Errorf("reward: swap withheld: %w", err)
		}
		if err := a.c.Sink.DepositQuote(out); err != nil {
			return ClaimResult{}, fmt.Errorf("reward: fund event: %w", err)
		}
		res.QuoteOut = out
	}
	if !res.Paid.IsZero() {
		if err := a.c.Pool.Withdraw(holder, res.Paid); err != nil {
			return ClaimResult{}, fmt.Errorf("reward: pay holder: %w", err)
		}
	}

	a.mutate(holder, func(l *Ledger) {
		l.ClaimedReward.Add(&l.ClaimedReward, amount)
	})
	return res, nil
}

// All returns every ledger ordered by holder.
func (a *Accountant) All() []Ledger {
	out := make([]Ledger, 0, len(a.ledgers))
	for _, l := range a.ledgers {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, k int) bool {
		return bytes.Compare(out[i].Holder[:], out[k].Holder[:]) < 0
	})
	return out
}

// Load replaces every ledger. It is not journaled.
func (a *Accountant) Load(ledgers []Ledger) {
	a.ledgers = make(map[common.Address]*Ledger, len(ledgers))
	for i := range ledgers {
		l := ledgers[i]
		a.ledgers[l.Holder] = &l
	}
}
