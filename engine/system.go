// Package engine runs the CMT ledger as a serialised system: every
// operation holds one lock and either applies completely or is rolled back
// through the shared journal.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/cmtlabs/libcmt-go/journal"
	"github.com/cmtlabs/libcmt-go/ledger"
	"github.com/cmtlabs/libcmt-go/oracle"
	"github.com/cmtlabs/libcmt-go/reward"
	"github.com/cmtlabs/libcmt-go/staking"
	"github.com/cmtlabs/libcmt-go/token"
)

// Options configures New.
type Options struct {
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger

	// Clock defaults to a clock reading Settings.Launch.
	Clock *Clock
}

// components is everything a restore replaces.
type components struct {
	j       *journal.Journal
	book    *ledger.Book
	pools   *token.Registry
	pair    *oracle.ConstantProduct
	token   *token.Token
	staking *staking.Engine
	rewards *reward.Accountant
	funding *reward.MemSink
	router  *router
}

// System is the CMT ledger with its pair, staking and rewards.
type System struct {
	mu    sync.Mutex
	set   Settings
	log   *zap.Logger
	clock *Clock
	seq   uint64
	c     *components
}

// Trade is the outcome of a buy or a sell.
type Trade struct {
	Receipt *token.Receipt
	// Quote is the quote currency paid in (buy) or received (sell).
	Quote *uint256.Int
}

// New builds an empty system from set.
func New(set Settings, opts Options) (*System, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = NewClock(set.Launch)
	}
	c, err := build(set, clock, log)
	if err != nil {
		return nil, err
	}
	return &System{set: set, log: log, clock: clock, c: c}, nil
}

func build(set Settings, clock *Clock, log *zap.Logger) (*components, error) {
	j := journal.New()
	c := &components{
		j:       j,
		book:    ledger.NewBook(j),
		pools:   token.NewRegistry(j),
		funding: reward.NewMemSink(j),
	}

	pair, err := oracle.NewConstantProduct(set.Token, set.Quote, set.PairFeeBps, set.Decimals, j)
	if err != nil {
		return nil, fmt.Errorf("engine: pair: %w", err)
	}
	c.pair = pair
	pricer := &oracle.ReservePricer{Oracle: pair, FeeBasisPoints: set.PairFeeBps}

	c.token, err = token.New(token.Config{
		Owner:           set.Owner,
		PositionManager: set.PositionManager,
		Launch:          set.Launch,
		Schedule:        set.Schedule,
	}, c.book, c.pools, pricer, clock.Now, j)
	if err != nil {
		return nil, fmt.Errorf("engine: token: %w", err)
	}
	c.router = &router{pair: pair, token: c.token, at: set.Pair}

	c.staking, err = staking.NewEngine(staking.Options{
		Tiers:           set.Tiers,
		RequireReferrer: set.RequireReferrer,
		Now:             clock.Now,
	}, staking.NewReferrals(j), j)
	if err != nil {
		return nil, fmt.Errorf("engine: staking: %w", err)
	}

	var quoter reward.Quoter = pair
	if set.TeamValuation == ValueParity {
		quoter = reward.ParityQuoter{}
	}
	c.rewards, err = reward.NewAccountant(reward.Options{
		CapMultiplier:   set.CapMultiplier,
		WithholdPercent: set.WithholdPercent,
		Scope:           set.CapScope,
		RewardToken:     set.Token,
		QuoteToken:      set.Quote,
		Operators:       set.Operators,
	}, reward.Collaborators{
		Stakes:  c.staking,
		Quoter:  quoter,
		Swapper: &claimSwapper{router: c.router, from: set.DAOPool},
		Pool:    &daoPool{addr: set.DAOPool, book: c.book, token: c.token},
		Sink:    c.funding,
	}, j)
	if err != nil {
		return nil, fmt.Errorf("engine: rewards: %w", err)
	}

	c.staking.OnDeposit(c.rewards.ResetTeamCap)
	c.rewards.OnCapReached(func(holder common.Address, capValue *uint256.Int) {
		log.Info("team cap reached", zap.Stringer("holder", holder), zap.String("cap", capValue.Dec()))
	})

	c.pools.Set(set.Pair, token.KnownPool)
	for _, a := range set.Whitelist {
		if err := c.token.SetWhitelisted(set.Owner, a, true); err != nil {
			return nil, fmt.Errorf("engine: whitelist %s: %w", a, err)
		}
	}
	for _, a := range set.Special {
		if err := c.token.SetSpecial(set.Owner, a, true); err != nil {
			return nil, fmt.Errorf("engine: special %s: %w", a, err)
		}
	}
	j.Reset()
	return c, nil
}

func addr(key string, a common.Address) zap.Field { return zap.Stringer(key, a) }

func amount(key string, v *uint256.Int) zap.Field {
	if v == nil {
		return zap.Skip()
	}
	return zap.String(key, v.Dec())
}

// apply runs fn under the lock. If fn fails every journaled mutation it
// made is undone.
func (s *System) apply(op string, fields []zap.Field, fn func(c *components) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.c
	mark := c.j.Snapshot()
	fields = append(fields, zap.String("op", op))
	if err := fn(c); err != nil {
		c.j.RevertTo(mark)
		s.log.Warn("operation aborted", append(fields, zap.Error(err))...)
		return err
	}
	c.j.Reset()
	s.seq++
	s.log.Debug("operation applied", append(fields, zap.Uint64("seq", s.seq))...)
	return nil
}

// Allocate runs the one-time initial allocation.
func (s *System) Allocate(caller common.Address, allocs []token.Allocation) error {
	return s.apply("allocate", []zap.Field{addr("caller", caller), zap.Int("recipients", len(allocs))}, func(c *components) error {
		return c.token.Allocate(caller, allocs)
	})
}

// Transfer moves amount from -> to through the transfer hook.
func (s *System) Transfer(caller, from, to common.Address, amt *uint256.Int) (*token.Receipt, error) {
	var rc *token.Receipt
	err := s.apply("transfer", []zap.Field{addr("from", from), addr("to", to), amount("amount", amt)}, func(c *components) error {
		var err error
		rc, err = c.token.Transfer(caller, from, to, amt)
		return err
	})
	return rc, err
}

// Buy swaps quoteIn of quote currency for tokens delivered to buyer.
func (s *System) Buy(buyer common.Address, quoteIn *uint256.Int) (*Trade, error) {
	var t *Trade
	err := s.apply("buy", []zap.Field{addr("to", buyer), amount("quote", quoteIn)}, func(c *components) error {
		if buyer == (common.Address{}) {
			return token.ErrZeroAddress
		}
		rc, err := c.router.buy(buyer, quoteIn)
		if err != nil {
			return err
		}
		t = &Trade{Receipt: rc, Quote: new(uint256.Int).Set(quoteIn)}
		return nil
	})
	return t, err
}

// Sell swaps amt tokens of seller for quote currency.
func (s *System) Sell(seller common.Address, amt *uint256.Int) (*Trade, error) {
	var t *Trade
	err := s.apply("sell", []zap.Field{addr("from", seller), amount("amount", amt)}, func(c *components) error {
		rc, out, err := c.router.sell(seller, amt)
		if err != nil {
			return err
		}
		t = &Trade{Receipt: rc, Quote: out}
		return nil
	})
	return t, err
}

// AddLiquidity moves tokenAmount from provider into the pair through the
// position manager, which bypasses the hook, and grows both reserves.
func (s *System) AddLiquidity(provider common.Address, tokenAmount, quoteAmount *uint256.Int) (*token.Receipt, error) {
	var rc *token.Receipt
	err := s.apply("add_liquidity", []zap.Field{addr("from", provider), amount("amount", tokenAmount), amount("quote", quoteAmount)}, func(c *components) error {
		pm := s.set.PositionManager
		if pm == (common.Address{}) {
			return ErrNoPositionManager
		}
		var err error
		if rc, err = c.token.Transfer(pm, provider, s.set.Pair, tokenAmount); err != nil {
			return err
		}
		return c.pair.AddLiquidity(tokenAmount, quoteAmount)
	})
	return rc, err
}

// SetPool records the pool status of a.
func (s *System) SetPool(caller, a common.Address, status token.PoolStatus) error {
	return s.apply("set_pool", []zap.Field{addr("caller", caller), addr("pool", a), zap.Stringer("status", status)}, func(c *components) error {
		if caller != s.set.Owner {
			return token.ErrUnauthorized
		}
		if a == (common.Address{}) {
			return token.ErrZeroAddress
		}
		c.pools.Set(a, status)
		return nil
	})
}

// SetWhitelisted adds or removes a from the whitelist.
func (s *System) SetWhitelisted(caller, a common.Address, on bool) error {
	return s.apply("set_whitelisted", []zap.Field{addr("caller", caller), addr("account", a), zap.Bool("on", on)}, func(c *components) error {
		return c.token.SetWhitelisted(caller, a, on)
	})
}

// SetSpecial adds or removes a from the special accounts.
func (s *System) SetSpecial(caller, a common.Address, on bool) error {
	return s.apply("set_special", []zap.Field{addr("caller", caller), addr("account", a), zap.Bool("on", on)}, func(c *components) error {
		return c.token.SetSpecial(caller, a, on)
	})
}

// SetReferrer registers the referrer of holder.
func (s *System) SetReferrer(holder, referrer common.Address) error {
	return s.apply("set_referrer", []zap.Field{addr("holder", holder), addr("referrer", referrer)}, func(c *components) error {
		return c.staking.Referrals().SetReferrer(holder, referrer)
	})
}

// Deposit opens a staking round. It clears the holder's team cap flag.
func (s *System) Deposit(holder common.Address, amt *uint256.Int) (staking.Record, error) {
	var rec staking.Record
	err := s.apply("deposit", []zap.Field{addr("holder", holder), amount("amount", amt)}, func(c *components) error {
		var err error
		rec, err = c.staking.Deposit(holder, amt)
		return err
	})
	return rec, err
}

// EndRound closes a staking round after its lock.
func (s *System) EndRound(holder common.Address, round uint64) (staking.Record, error) {
	var rec staking.Record
	err := s.apply("end_round", []zap.Field{addr("holder", holder), zap.Uint64("round", round)}, func(c *components) error {
		var err error
		rec, err = c.staking.EndRound(holder, round)
		return err
	})
	return rec, err
}

// Grant credits a reward to holder.
func (s *System) Grant(caller, holder common.Address, amt *uint256.Int, cat reward.Category) (reward.GrantResult, error) {
	var res reward.GrantResult
	err := s.apply("grant", []zap.Field{addr("caller", caller), addr("holder", holder), amount("amount", amt), zap.Stringer("category", cat)}, func(c *components) error {
		var err error
		res, err = c.rewards.Grant(caller, holder, amt, cat)
		return err
	})
	return res, err
}

// Claim pays out accumulated rewards of holder.
func (s *System) Claim(holder common.Address, amt *uint256.Int) (reward.ClaimResult, error) {
	var res reward.ClaimResult
	err := s.apply("claim", []zap.Field{addr("holder", holder), amount("amount", amt)}, func(c *components) error {
		var err error
		res, err = c.rewards.Claim(holder, amt)
		return err
	})
	return res, err
}

// Advance moves the simulated clock forward.
func (s *System) Advance(d time.Duration) (time.Time, error) {
	if d < 0 {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidDuration, d)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Advance(d)
	s.log.Debug("clock advanced", zap.Duration("by", d), zap.Time("now", now))
	return now, nil
}
