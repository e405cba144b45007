// Package token implements the CMT transfer hook: classification against the
// AMM pools, transaction fees, cost-basis tracking and the profit tax, around
// the plain ledger move.
package token

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cmtlabs/libcmt-go/costbasis"
	"github.com/cmtlabs/libcmt-go/fee"
	"github.com/cmtlabs/libcmt-go/journal"
	"github.com/cmtlabs/libcmt-go/ledger"
	"github.com/cmtlabs/libcmt-go/oracle"
)

// Classification aliases fee.Classification for callers of this package.
type Classification = fee.Classification

const (
	Normal = fee.ClassNormal
	Buy    = fee.ClassBuy
	Sell   = fee.ClassSell
)

// Config is the fixed configuration of a Token.
type Config struct {
	Owner common.Address

	// PositionManager is the liquidity position manager. Transfers it
	// initiates bypass fees and cost-basis tracking.
	PositionManager common.Address

	// Launch is the market launch time; the profit normal fee starts
	// Schedule.NormalFeeDelay after it.
	Launch time.Time

	Schedule fee.Schedule
}

// Allocation is one recipient of the initial allocation.
type Allocation struct {
	To     common.Address
	Amount *uint256.Int
}

// Receipt describes a settled transfer.
type Receipt struct {
	Caller common.Address
	From   common.Address
	To     common.Address
	Amount *uint256.Int // gross, debited from From
	Net    *uint256.Int // credited to To

	// Bypassed is set when the transfer skipped every fee and cost-basis
	// step (whitelist, position manager or before the initial allocation).
	Bypassed bool

	Class      Classification
	TxFees     fee.Breakdown
	ProfitFees fee.Breakdown
	Cost       costbasis.Result
}

// Fees returns the sum of all fees taken.
func (r *Receipt) Fees() *uint256.Int {
	total := r.TxFees.Total()
	return total.Add(total, r.ProfitFees.Total())
}

// Token is the CMT ledger with its transfer hook.
type Token struct {
	cfg     Config
	book    *ledger.Book
	pools   PoolRegistry
	tracker *costbasis.Tracker
	now     func() time.Time
	j       *journal.Journal

	whitelist map[common.Address]bool
	special   map[common.Address]bool
	allocated bool
}

// New creates a Token over book. now defaults to time.Now. j may be nil.
func New(cfg Config, book *ledger.Book, pools PoolRegistry, pricer oracle.Pricer, now func() time.Time, j *journal.Journal) (*Token, error) {
	if book == nil || pools == nil || pricer == nil {
		return nil, fmt.Errorf("%w: book, pools and pricer are required", ErrNilParam)
	}
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	t := &Token{
		cfg:       cfg,
		book:      book,
		pools:     pools,
		now:       now,
		j:         j,
		whitelist: make(map[common.Address]bool),
		special:   make(map[common.Address]bool),
	}
	t.tracker = costbasis.NewTracker(book, pricer, t.IsSpecial)
	return t, nil
}

// Config returns the token configuration.
func (t *Token) Config() Config { return t.cfg }

// Book returns the underlying ledger.
func (t *Token) Book() *ledger.Book { return t.book }

// BalanceOf returns the balance of addr.
func (t *Token) BalanceOf(addr common.Address) *uint256.Int { return t.book.Balance(addr) }

// CostBasisOf returns the cost basis of addr.
func (t *Token) CostBasisOf(addr common.Address) *uint256.Int { return t.book.CostBasis(addr) }

// TotalSupply returns the minted supply.
func (t *Token) TotalSupply() *uint256.Int { return t.book.TotalSupply() }

// Allocated reports whether the initial allocation has run.
func (t *Token) Allocated() bool { return t.allocated }

// MarketAge returns the time since launch, or zero before it.
func (t *Token) MarketAge() time.Duration {
	age := t.now().Sub(t.cfg.Launch)
	if age < 0 {
		return 0
	}
	return age
}

// Allocate mints the initial supply. It may run once, by the owner. Until it
// has run, every transfer passes through fee-free.
func (t *Token) Allocate(caller common.Address, allocs []Allocation) error {
	if caller != t.cfg.Owner {
		return ErrUnauthorized
	}
	if t.allocated {
		return ErrAlreadyAllocated
	}
	for i, a := range allocs {
		if a.To == (common.Address{}) {
			return fmt.Errorf("%w: allocation %d", ErrZeroAddress, i)
		}
		if a.Amount == nil || a.Amount.IsZero() {
			return fmt.Errorf("%w: allocation %d", ErrInvalidAmount, i)
		}
		if err := t.book.Mint(a.To, a.Amount); err != nil {
			return err
		}
	}
	t.allocated = true
	t.j.Record(func() { t.allocated = false })
	return nil
}

// SetAllocated restores the allocation flag from persisted state. It is not
// journaled.
func (t *Token) SetAllocated(v bool) { t.allocated = v }

// IsWhitelisted reports whether addr skips all fee logic.
func (t *Token) IsWhitelisted(addr common.Address) bool { return t.whitelist[addr] }

// IsSpecial reports whether addr is valued at market price on normal
// transfers.
func (t *Token) IsSpecial(addr common.Address) bool { return t.special[addr] }

// SetWhitelisted adds or removes addr from the whitelist.
func (t *Token) SetWhitelisted(caller, addr common.Address, on bool) error {
	return t.setFlag(t.whitelist, caller, addr, on)
}

// SetSpecial adds or removes addr from the special accounts.
func (t *Token) SetSpecial(caller, addr common.Address, on bool) error {
	return t.setFlag(t.special, caller, addr, on)
}

func (t *Token) setFlag(m map[common.Address]bool, caller, addr common.Address, on bool) error {
	if caller != t.cfg.Owner {
		return ErrUnauthorized
	}
	if addr == (common.Address{}) {
		return ErrZeroAddress
	}
	prev, had := m[addr]
	if on {
		m[addr] = true
	} else {
		delete(m, addr)
	}
	t.j.Record(func() {
		if had {
			m[addr] = prev
		} else {
			delete(m, addr)
		}
	})
	return nil
}

// LoadFlags replaces the whitelist and the special accounts. It is not
// journaled.
func (t *Token) LoadFlags(whitelist, special []common.Address) {
	t.whitelist = make(map[common.Address]bool, len(whitelist))
	for _, a := range whitelist {
		t.whitelist[a] = true
	}
	t.special = make(map[common.Address]bool, len(special))
	for _, a := range special {
		t.special[a] = true
	}
}

// Whitelist returns every whitelisted address.
func (t *Token) Whitelist() []common.Address { return keys(t.whitelist) }

// Specials returns every special address.
func (t *Token) Specials() []common.Address { return keys(t.special) }

func keys(m map[common.Address]bool) []common.Address {
	out := make([]common.Address, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, k int) bool { return bytes.Compare(out[i][:], out[k][:]) < 0 })
	return out
}

// Classify labels a transfer from -> to.
func (t *Token) Classify(from, to common.Address) Classification {
	return Classify(t.pools, from, to)
}

func (t *Token) bypass(caller, from, to common.Address) bool {
	if !t.allocated {
		return true
	}
	if t.whitelist[from] || t.whitelist[to] {
		return true
	}
	pm := t.cfg.PositionManager
	return pm != (common.Address{}) && caller == pm
}
