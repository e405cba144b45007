// Package ledger holds per-address token balances and cost bases. It is the
// base ledger-mutation primitive that the transfer hook builds on.
package ledger

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cmtlabs/libcmt-go/journal"
)

// Account is the state of one address.
type Account struct {
	Address   common.Address
	Balance   *uint256.Int // token units
	CostBasis *uint256.Int // quote-currency units
}

type entry struct {
	balance uint256.Int
	cost    uint256.Int
}

// Book is an in-memory account book. Every mutation is recorded in the
// attached journal so the caller can roll it back.
type Book struct {
	accounts map[common.Address]*entry
	supply   uint256.Int
	j        *journal.Journal
}

// NewBook creates an empty book. j may be nil.
func NewBook(j *journal.Journal) *Book {
	return &Book{accounts: make(map[common.Address]*entry), j: j}
}

func (b *Book) get(addr common.Address) *entry {
	e, ok := b.accounts[addr]
	if !ok {
		e = &entry{}
		b.accounts[addr] = e
		b.j.Record(func() { delete(b.accounts, addr) })
	}
	return e
}

// Balance returns a copy of the token balance of addr.
func (b *Book) Balance(addr common.Address) *uint256.Int {
	if e, ok := b.accounts[addr]; ok {
		return new(uint256.Int).Set(&e.balance)
	}
	return new(uint256.Int)
}

// CostBasis returns a copy of the cost basis of addr.
func (b *Book) CostBasis(addr common.Address) *uint256.Int {
	if e, ok := b.accounts[addr]; ok {
		return new(uint256.Int).Set(&e.cost)
	}
	return new(uint256.Int)
}

// TotalSupply returns the sum of all minted units.
func (b *Book) TotalSupply() *uint256.Int {
	return new(uint256.Int).Set(&b.supply)
}

// Mint creates amount new units at addr.
func (b *Book) Mint(addr common.Address, amount *uint256.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: amount", ErrNilParam)
	}
	supply, overflow := new(uint256.Int).AddOverflow(&b.supply, amount)
	if overflow {
		return fmt.Errorf("%w: total supply", ErrOverflow)
	}
	if err := b.Credit(addr, amount); err != nil {
		return err
	}
	prev := b.supply
	b.supply = *supply
	b.j.Record(func() { b.supply = prev })
	return nil
}

// Credit adds amount to the balance of addr.
func (b *Book) Credit(addr common.Address, amount *uint256.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: amount", ErrNilParam)
	}
	e := b.get(addr)
	next, overflow := new(uint256.Int).AddOverflow(&e.balance, amount)
	if overflow {
		return fmt.Errorf("%w: balance of %s", ErrOverflow, addr)
	}
	prev := e.balance
	e.balance = *next
	b.j.Record(func() { e.balance = prev })
	return nil
}

// Debit subtracts amount from the balance of addr.
func (b *Book) Debit(addr common.Address, amount *uint256.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: amount", ErrNilParam)
	}
	e := b.get(addr)
	if e.balance.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, addr, e.balance.Dec(), amount.Dec())
	}
	prev := e.balance
	e.balance.Sub(&e.balance, amount)
	b.j.Record(func() { e.balance = prev })
	return nil
}

// Move debits from and credits to without touching cost basis.
func (b *Book) Move(from, to common.Address, amount *uint256.Int) error {
	if err := b.Debit(from, amount); err != nil {
		return err
	}
	return b.Credit(to, amount)
}

// AddCost increases the cost basis of addr.
func (b *Book) AddCost(addr common.Address, amount *uint256.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: amount", ErrNilParam)
	}
	e := b.get(addr)
	next, overflow := new(uint256.Int).AddOverflow(&e.cost, amount)
	if overflow {
		return fmt.Errorf("%w: cost basis of %s", ErrOverflow, addr)
	}
	prev := e.cost
	e.cost = *next
	b.j.Record(func() { e.cost = prev })
	return nil
}

// SubCost decreases the cost basis of addr. The cost basis never goes
// negative.
func (b *Book) SubCost(addr common.Address, amount *uint256.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: amount", ErrNilParam)
	}
	e := b.get(addr)
	if e.cost.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientCost, addr, e.cost.Dec(), amount.Dec())
	}
	prev := e.cost
	e.cost.Sub(&e.cost, amount)
	b.j.Record(func() { e.cost = prev })
	return nil
}

// Accounts returns every known account ordered by address.
func (b *Book) Accounts() []Account {
	out := make([]Account, 0, len(b.accounts))
	for addr, e := range b.accounts {
		out = append(out, Account{
			Address:   addr,
			Balance:   new(uint256.Int).Set(&e.balance),
			CostBasis: new(uint256.Int).Set(&e.cost),
		})
	}
	sort.Slice(out, func(i, k int) bool {
		return bytes.Compare(out[i].Address[:], out[k].Address[:]) < 0
	})
	return out
}

// Load replaces the book contents. The total supply is recomputed from the
// balances. Load is not journaled.
func (b *Book) Load(accounts []Account) error {
	m := make(map[common.Address]*entry, len(accounts))
	var supply uint256.Int
	for _, a := range accounts {
		if a.Balance == nil || a.CostBasis == nil {
			return fmt.Errorf("%w: account %s", ErrNilParam, a.Address)
		}
		if _, overflow := supply.AddOverflow(&supply, a.Balance); overflow {
			return fmt.Errorf("%w: total supply", ErrOverflow)
		}
		e := &entry{}
		e.balance.Set(a.Balance)
		e.cost.Set(a.CostBasis)
		m[a.Address] = e
	}
	b.accounts = m
	b.supply = supply
	return nil
}
