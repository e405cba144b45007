package engine

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/cmtlabs/libcmt-go/ledger"
	"github.com/cmtlabs/libcmt-go/reward"
	"github.com/cmtlabs/libcmt-go/staking"
	"github.com/cmtlabs/libcmt-go/token"
)

func (s *System) read(fn func(c *components)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.c)
}

// Settings returns the settings the system was built with.
func (s *System) Settings() Settings { return s.set }

// Now returns the simulated time.
func (s *System) Now() time.Time { return s.clock.Now() }

// Seq returns the number of applied operations.
func (s *System) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// BalanceOf returns the token balance of a.
func (s *System) BalanceOf(a common.Address) (v *uint256.Int) {
	s.read(func(c *components) { v = c.token.BalanceOf(a) })
	return v
}

// CostBasisOf returns the cost basis of a.
func (s *System) CostBasisOf(a common.Address) (v *uint256.Int) {
	s.read(func(c *components) { v = c.token.CostBasisOf(a) })
	return v
}

// TotalSupply returns the minted supply.
func (s *System) TotalSupply() (v *uint256.Int) {
	s.read(func(c *components) { v = c.token.TotalSupply() })
	return v
}

// Accounts returns every account ordered by address.
func (s *System) Accounts() (out []ledger.Account) {
	s.read(func(c *components) { out = c.book.Accounts() })
	return out
}

// Allocated reports whether the initial allocation has run.
func (s *System) Allocated() (ok bool) {
	s.read(func(c *components) { ok = c.token.Allocated() })
	return ok
}

// MarketAge returns the time since launch.
func (s *System) MarketAge() (d time.Duration) {
	s.read(func(c *components) { d = c.token.MarketAge() })
	return d
}

// PoolStatus returns the registry answer for a.
func (s *System) PoolStatus(a common.Address) (st token.PoolStatus) {
	s.read(func(c *components) { st = c.pools.PoolStatus(a) })
	return st
}

// IsWhitelisted reports whether a skips the hook.
func (s *System) IsWhitelisted(a common.Address) (ok bool) {
	s.read(func(c *components) { ok = c.token.IsWhitelisted(a) })
	return ok
}

// IsSpecial reports whether a is valued at market price.
func (s *System) IsSpecial(a common.Address) (ok bool) {
	s.read(func(c *components) { ok = c.token.IsSpecial(a) })
	return ok
}

// Reserves returns the pair's token and quote reserves.
func (s *System) Reserves() (tokenReserve, quoteReserve *uint256.Int) {
	s.read(func(c *components) { tokenReserve, quoteReserve, _ = c.pair.Reserves() })
	return tokenReserve, quoteReserve
}

// SpotPrice returns quote currency per whole token.
func (s *System) SpotPrice() (p decimal.Decimal, err error) {
	s.read(func(c *components) { p, err = c.pair.SpotPrice() })
	return p, err
}

// Records returns every stake record of holder.
func (s *System) Records(holder common.Address) (out []staking.Record) {
	s.read(func(c *components) { out = c.staking.Records(holder) })
	return out
}

// ActiveRounds returns the rounds of holder that have not ended.
func (s *System) ActiveRounds(holder common.Address) (out []uint64) {
	s.read(func(c *components) { out = c.staking.ActiveRounds(holder) })
	return out
}

// Members returns the holders of tier in first deposit order.
func (s *System) Members(tier int) (out []common.Address) {
	s.read(func(c *components) { out = c.staking.Members(tier) })
	return out
}

// TotalStaked returns the lifetime stake of holder.
func (s *System) TotalStaked(holder common.Address) (v *uint256.Int) {
	s.read(func(c *components) { v = c.staking.TotalStaked(holder) })
	return v
}

// Referrer returns the referrer of holder.
func (s *System) Referrer(holder common.Address) (ref common.Address, ok bool) {
	s.read(func(c *components) { ref, ok = c.staking.Referrals().Referrer(holder) })
	return ref, ok
}

// RewardLedger returns the reward ledger of holder.
func (s *System) RewardLedger(holder common.Address) (l reward.Ledger) {
	s.read(func(c *components) { l = c.rewards.Ledger(holder) })
	return l
}

// Claimable returns the unclaimed reward of holder.
func (s *System) Claimable(holder common.Address) *uint256.Int {
	return s.RewardLedger(holder).Claimable()
}

// FundingTotal returns the quote currency deposited into event funding.
func (s *System) FundingTotal() (v *uint256.Int) {
	s.read(func(c *components) { v = c.funding.Total() })
	return v
}
