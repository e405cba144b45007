// Package staking classifies deposits into fixed tiers and keeps the
// round-indexed stake records of every holder.
package staking

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cmtlabs/libcmt-go/journal"
)

// Status is the lifecycle state of a stake record.
type Status uint8

const (
	// Active records are still locked or not yet ended.
	Active Status = iota
	// Ended records have been closed after their lock elapsed.
	Ended
)

func (s Status) String() string {
	if s == Ended {
		return "ended"
	}
	return "active"
}

// Record is one deposit. Records are never deleted.
type Record struct {
	Holder common.Address
	Round  uint64
	Tier   int
	Amount *uint256.Int
	Start  time.Time
	End    time.Time
	Status Status
}

func (r *Record) clone() Record {
	c := *r
	c.Amount = new(uint256.Int).Set(r.Amount)
	return c
}

// Options configures an Engine.
type Options struct {
	Tiers []Tier

	// RequireReferrer gates deposits on a registered referrer.
	RequireReferrer bool

	// Now defaults to time.Now.
	Now func() time.Time
}

type holderState struct {
	log    []*Record // indexed by round
	active map[uint64]struct{}
	total  uint256.Int // lifetime staked
}

// Engine is the staking tier engine.
type Engine struct {
	tiers           []Tier
	requireReferrer bool
	now             func() time.Time
	j               *journal.Journal

	referrals *Referrals
	holders   map[common.Address]*holderState
	members   []map[common.Address]struct{}
	order     [][]common.Address
	onDeposit []func(common.Address)
}

// NewEngine creates an engine. j may be nil.
func NewEngine(opts Options, referrals *Referrals, j *journal.Journal) (*Engine, error) {
	if err := ValidateTiers(opts.Tiers); err != nil {
		return nil, err
	}
	if referrals == nil {
		referrals = NewReferrals(j)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	e := &Engine{
		tiers:           opts.Tiers,
		requireReferrer: opts.RequireReferrer,
		now:             now,
		j:               j,
		referrals:       referrals,
	}
	e.reset()
	return e, nil
}

func (e *Engine) reset() {
	e.holders = make(map[common.Address]*holderState)
	e.members = make([]map[common.Address]struct{}, len(e.tiers))
	e.order = make([][]common.Address, len(e.tiers))
	for i := range e.members {
		e.members[i] = make(map[common.Address]struct{})
	}
}

// Tiers returns the tier table.
func (e *Engine) Tiers() []Tier { return e.tiers }

// Referrals returns the referrer registry.
func (e *Engine) Referrals() *Referrals { return e.referrals }

// OnDeposit registers fn to run after every successful deposit.
func (e *Engine) OnDeposit(fn func(holder common.Address)) {
	e.onDeposit = append(e.onDeposit, fn)
}

// Classify returns the tier index and lock duration for amount.
func (e *Engine) Classify(amount *uint256.Int) (int, time.Duration, error) {
	return Classify(e.tiers, amount)
}

func (e *Engine) holder(addr common.Address) *holderState {
	h, ok := e.holders[addr]
	if !ok {
		h = &holderState{active: make(map[uint64]struct{})}
		e.holders[addr] = h
		e.j.Record(func() { delete(e.holders, addr) })
	}
	return h
}

// Deposit opens a new round for holder. Deposits never merge: each gets its
// own record and lock.
func (e *Engine) Deposit(holder common.Address, amount *uint256.Int) (Record, error) {
	if holder == (common.Address{}) {
		return Record{}, ErrZeroAddress
	}
	tier, lock, err := e.Classify(amount)
	if err != nil {
		return Record{}, err
	}
	if e.requireReferrer {
		if _, ok := e.referrals.Referrer(holder); !ok {
			return Record{}, ErrNoReferrer
		}
	}

	h := e.holder(holder)
	start := e.now()
	rec := &Record{
		Holder: holder,
		Round:  uint64(len(h.log)),
		Tier:   tier,
		Amount: new(uint256.Int).Set(amount),
		Start:  start,
		End:    start.Add(lock),
		Status: Active,
	}

	h.log = append(h.log, rec)
	h.active[rec.Round] = struct{}{}
	prevTotal := h.total
	h.total.Add(&h.total, amount)
	e.j.Record(func() {
		h.log = h.log[:len(h.log)-1]
		delete(h.active, rec.Round)
		h.total = prevTotal
	})
	e.addMember(tier, holder)

	for _, fn := range e.onDeposit {
		fn(holder)
	}
	return rec.clone(), nil
}

func (e *Engine) addMember(tier int, holder common.Address) {
	if _, ok := e.members[tier][holder]; ok {
		return
	}
	e.members[tier][holder] = struct{}{}
	e.order[tier] = append(e.order[tier], holder)
	e.j.Record(func() {
		delete(e.members[tier], holder)
		e.order[tier] = e.order[tier][:len(e.order[tier])-1]
	})
}

// EndRound closes a round once its lock has elapsed. Ending an already
// ended round returns it unchanged.
func (e *Engine) EndRound(holder common.Address, round uint64) (Record, error) {
	rec, err := e.lookup(holder, round)
	if err != nil {
		return Record{}, err
	}
	if rec.Status == Ended {
		return rec.clone(), nil
	}
	if now := e.now(); now.Before(rec.End) {
		return Record{}, fmt.Errorf("%w: round %d unlocks at %s", ErrUnderLockPeriod, round, rec.End.Format(time.RFC3339))
	}

	h := e.holders[holder]
	rec.Status = Ended
	delete(h.active, round)
	e.j.Record(func() {
		rec.Status = Active
		h.active[round] = struct{}{}
	})
	return rec.clone(), nil
}

func (e *Engine) lookup(holder common.Address, round uint64) (*Record, error) {
	h, ok := e.holders[holder]
	if !ok || round >= uint64(len(h.log)) {
		return nil, fmt.Errorf("%w: %s round %d", ErrRoundNotFound, holder, round)
	}
	return h.log[round], nil
}

// Record returns one stake record.
func (e *Engine) Record(holder common.Address, round uint64) (Record, error) {
	rec, err := e.lookup(holder, round)
	if err != nil {
		return Record{}, err
	}
	return rec.clone(), nil
}

// Records returns every record of holder, ordered by round.
func (e *Engine) Records(holder common.Address) []Record {
	h, ok := e.holders[holder]
	if !ok {
		return nil
	}
	out := make([]Record, len(h.log))
	for i, r := range h.log {
		out[i] = r.clone()
	}
	return out
}

// ActiveRounds returns the rounds of holder that have not ended, ascending.
func (e *Engine) ActiveRounds(holder common.Address) []uint64 {
	h, ok := e.holders[holder]
	if !ok {
		return nil
	}
	out := make([]uint64, 0, len(h.active))
	for r := range h.active {
		out = append(out, r)
	}
	sort.Slice(out, func(i, k int) bool { return out[i] < out[k] })
	return out
}

// RoundCount returns the next round index of holder.
func (e *Engine) RoundCount(holder common.Address) uint64 {
	if h, ok := e.holders[holder]; ok {
		return uint64(len(h.log))
	}
	return 0
}

// TotalStaked returns the lifetime amount deposited by holder.
func (e *Engine) TotalStaked(holder common.Address) *uint256.Int {
	if h, ok := e.holders[holder]; ok {
		return new(uint256.Int).Set(&h.total)
	}
	return new(uint256.Int)
}

// Members returns the holders that ever deposited into tier, in first
// deposit order.
func (e *Engine) Members(tier int) []common.Address {
	if tier < 0 || tier >= len(e.order) {
		return nil
	}
	return append([]common.Address(nil), e.order[tier]...)
}

// AllRecords returns every record of every holder, ordered by holder then
// round.
func (e *Engine) AllRecords() []Record {
	addrs := make([]common.Address, 0, len(e.holders))
	for a := range e.holders {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, k int) bool { return bytes.Compare(addrs[i][:], addrs[k][:]) < 0 })

	var out []Record
	for _, a := range addrs {
		out = append(out, e.Records(a)...)
	}
	return out
}

// Load replaces all stake state with records. Totals, the active index and
// tier membership are rebuilt. Load is not journaled.
func (e *Engine) Load(records []Record) error {
	sorted := append([]Record(nil), records...)
	sort.SliceStable(sorted, func(i, k int) bool {
		if sorted[i].Start.Equal(sorted[k].Start) {
			return sorted[i].Round < sorted[k].Round
		}
		return sorted[i].Start.Before(sorted[k].Start)
	})

	saved := e.j
	e.j = nil
	defer func() { e.j = saved }()

	e.reset()
	for _, r := range sorted {
		if r.Tier < 0 || r.Tier >= len(e.tiers) || r.Amount == nil {
			return fmt.Errorf("%w: record %s/%d", ErrInvalidTiers, r.Holder, r.Round)
		}
		h := e.holder(r.Holder)
		if r.Round != uint64(len(h.log)) {
			return fmt.Errorf("%w: %s round %d out of sequence", ErrRoundNotFound, r.Holder, r.Round)
		}
		rec := r.clone()
		h.log = append(h.log, &rec)
		if rec.Status == Active {
			h.active[rec.Round] = struct{}{}
		}
		h.total.Add(&h.total, rec.Amount)
		e.addMember(rec.Tier, rec.Holder)
	}
	return nil
}
