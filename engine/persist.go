package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cmtlabs/libcmt-go/ledger"
	"github.com/cmtlabs/libcmt-go/reward"
	"github.com/cmtlabs/libcmt-go/staking"
	"github.com/cmtlabs/libcmt-go/store"
	"github.com/cmtlabs/libcmt-go/token"
)

// Snapshot captures the full state.
func (s *System) Snapshot() *store.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.c

	tokenReserve, quoteReserve, _ := c.pair.Reserves()
	snap := &store.Snapshot{
		Meta: store.Meta{
			Seq:          s.seq,
			SavedAt:      time.Now().UTC(),
			Launch:       s.set.Launch,
			Now:          s.clock.Now(),
			Allocated:    c.token.Allocated(),
			TokenReserve: store.AmountOf(tokenReserve),
			QuoteReserve: store.AmountOf(quoteReserve),
			FundingTotal: store.AmountOf(c.funding.Total()),
			Whitelist:    c.token.Whitelist(),
			Specials:     c.token.Specials(),
		},
	}
	for _, e := range c.pools.Entries() {
		snap.Meta.Pools = append(snap.Meta.Pools, store.Pool{Address: e.Address, Status: uint8(e.Status)})
	}
	for _, a := range c.book.Accounts() {
		snap.Accounts = append(snap.Accounts, store.Account{
			Address:   a.Address,
			Balance:   store.AmountOf(a.Balance),
			CostBasis: store.AmountOf(a.CostBasis),
		})
	}
	for _, r := range c.staking.AllRecords() {
		snap.Stakes = append(snap.Stakes, store.Stake{
			Holder: r.Holder,
			Round:  r.Round,
			Tier:   r.Tier,
			Amount: store.AmountOf(r.Amount),
			Start:  r.Start,
			End:    r.End,
			Status: uint8(r.Status),
		})
	}
	for _, r := range c.staking.Referrals().All() {
		snap.Referrals = append(snap.Referrals, store.Referral{Holder: r.Holder, Referrer: r.Referrer})
	}
	for _, l := range c.rewards.All() {
		r := store.Reward{
			Holder:         l.Holder,
			TeamValue:      store.AmountOf(&l.TeamValue),
			TotalReward:    store.AmountOf(&l.TotalReward),
			ClaimedReward:  store.AmountOf(&l.ClaimedReward),
			TeamCapReached: l.TeamCapReached,
		}
		for i := range l.Categories {
			r.Categories = append(r.Categories, store.AmountOf(&l.Categories[i]))
		}
		snap.Rewards = append(snap.Rewards, r)
	}
	return snap
}

// Open builds a system from set and loads snap into it.
func Open(set Settings, opts Options, snap *store.Snapshot) (*System, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot", ErrNilParam)
	}
	if err := checkLaunch(set, snap); err != nil {
		return nil, err
	}
	sys, err := New(set, opts)
	if err != nil {
		return nil, err
	}
	if err := load(sys.c, snap); err != nil {
		return nil, err
	}
	sys.seq = snap.Meta.Seq
	sys.clock.Set(snap.Meta.Now)
	return sys, nil
}

// Restore replaces the state with snap. On error the state is unchanged.
func (s *System) Restore(snap *store.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: snapshot", ErrNilParam)
	}
	if err := checkLaunch(s.set, snap); err != nil {
		return err
	}
	c, err := build(s.set, s.clock, s.log)
	if err != nil {
		return err
	}
	if err := load(c, snap); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = c
	s.seq = snap.Meta.Seq
	s.clock.Set(snap.Meta.Now)
	s.log.Info("state restored", zap.Uint64("seq", s.seq), zap.Int("accounts", len(snap.Accounts)))
	return nil
}

// checkLaunch rejects snap if it was saved under another launch time, which
// would move the normal profit fee gate.
func checkLaunch(set Settings, snap *store.Snapshot) error {
	if !snap.Meta.Launch.Equal(set.Launch) {
		return fmt.Errorf("%w: snapshot %s, settings %s", ErrLaunchMismatch,
			snap.Meta.Launch.Format(time.RFC3339), set.Launch.Format(time.RFC3339))
	}
	return nil
}

func load(c *components, snap *store.Snapshot) error {
	accounts := make([]ledger.Account, 0, len(snap.Accounts))
	for _, a := range snap.Accounts {
		accounts = append(accounts, ledger.Account{
			Address:   a.Address,
			Balance:   a.Balance.Int(),
			CostBasis: a.CostBasis.Int(),
		})
	}
	if err := c.book.Load(accounts); err != nil {
		return fmt.Errorf("engine: restore accounts: %w", err)
	}

	records := make([]staking.Record, 0, len(snap.Stakes))
	for _, st := range snap.Stakes {
		records = append(records, staking.Record{
			Holder: st.Holder,
			Round:  st.Round,
			Tier:   st.Tier,
			Amount: st.Amount.Int(),
			Start:  st.Start,
			End:    st.End,
			Status: staking.Status(st.Status),
		})
	}
	if err := c.staking.Load(records); err != nil {
		return fmt.Errorf("engine: restore stakes: %w", err)
	}

	links := make([]staking.Referral, 0, len(snap.Referrals))
	for _, r := range snap.Referrals {
		links = append(links, staking.Referral{Holder: r.Holder, Referrer: r.Referrer})
	}
	c.staking.Referrals().Load(links)

	ledgers := make([]reward.Ledger, 0, len(snap.Rewards))
	for _, r := range snap.Rewards {
		l := reward.Ledger{Holder: r.Holder, TeamCapReached: r.TeamCapReached}
		for i, a := range r.Categories {
			if i < len(l.Categories) {
				l.Categories[i] = *a.Int()
			}
		}
		l.TeamValue = *r.TeamValue.Int()
		l.TotalReward = *r.TotalReward.Int()
		l.ClaimedReward = *r.ClaimedReward.Int()
		ledgers = append(ledgers, l)
	}
	c.rewards.Load(ledgers)

	m := snap.Meta
	entries := make([]token.PoolEntry, 0, len(m.Pools))
	for _, p := range m.Pools {
		entries = append(entries, token.PoolEntry{Address: p.Address, Status: token.PoolStatus(p.Status)})
	}
	c.pools.Load(entries)
	c.token.LoadFlags(m.Whitelist, m.Specials)
	c.token.SetAllocated(m.Allocated)
	c.pair.SetReserves(m.TokenReserve.Int(), m.QuoteReserve.Int())
	c.funding.SetTotal(m.FundingTotal.Int())
	c.j.Reset()
	return nil
}

// Save writes the current state to st.
func (s *System) Save(st store.Store) error {
	if err := st.Save(s.Snapshot()); err != nil {
		return fmt.Errorf("engine: save: %w", err)
	}
	return nil
}

// Load replaces the state with the one saved in st.
func (s *System) Load(st store.Store) error {
	snap, err := st.Load()
	if err != nil {
		return fmt.Errorf("engine: load: %w", err)
	}
	return s.Restore(snap)
}

// Checkpoint stores the current state under name.
func (s *System) Checkpoint(st store.Store, name string) error {
	if err := st.PutCheckpoint(name, s.Snapshot()); err != nil {
		return fmt.Errorf("engine: checkpoint %q: %w", name, err)
	}
	return nil
}

// Rewind restores the checkpoint stored under name.
func (s *System) Rewind(st store.Store, name string) error {
	snap, err := st.GetCheckpoint(name)
	if err != nil {
		return fmt.Errorf("engine: rewind %q: %w", name, err)
	}
	return s.Restore(snap)
}
