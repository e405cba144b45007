package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmtlabs/libcmt-go/journal"
)

func addr(seed byte) common.Address {
	var a common.Address
	for i := range a {
		a[i] = seed
	}
	return a
}

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestMintAndMove(t *testing.T) {
	b := NewBook(nil)
	require.NoError(t, b.Mint(addr(1), u(1000)))
	require.NoError(t, b.Move(addr(1), addr(2), u(400)))

	assert.Equal(t, u(600), b.Balance(addr(1)))
	assert.Equal(t, u(400), b.Balance(addr(2)))
	assert.Equal(t, u(1000), b.TotalSupply())
}

func TestDebit_Insufficient(t *testing.T) {
	b := NewBook(nil)
	require.NoError(t, b.Mint(addr(1), u(10)))
	err := b.Debit(addr(1), u(11))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, u(10), b.Balance(addr(1)))
}

func TestCost_NeverNegative(t *testing.T) {
	b := NewBook(nil)
	require.NoError(t, b.AddCost(addr(1), u(50)))
	assert.ErrorIs(t, b.SubCost(addr(1), u(51)), ErrInsufficientCost)
	require.NoError(t, b.SubCost(addr(1), u(50)))
	assert.True(t, b.CostBasis(addr(1)).IsZero())
}

func TestCredit_Overflow(t *testing.T) {
	b := NewBook(nil)
	max := new(uint256.Int).SetAllOne()
	require.NoError(t, b.Credit(addr(1), max))
	assert.ErrorIs(t, b.Credit(addr(1), u(1)), ErrOverflow)
}

func TestJournal_RevertRestoresEverything(t *testing.T) {
	j := journal.New()
	b := NewBook(j)
	require.NoError(t, b.Mint(addr(1), u(100)))
	require.NoError(t, b.AddCost(addr(1), u(7)))
	j.Reset()

	id := j.Snapshot()
	require.NoError(t, b.Move(addr(1), addr(2), u(60)))
	require.NoError(t, b.SubCost(addr(1), u(7)))
	require.NoError(t, b.AddCost(addr(2), u(7)))
	require.NoError(t, b.Mint(addr(3), u(5)))
	j.RevertTo(id)

	assert.Equal(t, u(100), b.Balance(addr(1)))
	assert.Equal(t, u(7), b.CostBasis(addr(1)))
	assert.True(t, b.Balance(addr(2)).IsZero())
	assert.Equal(t, u(100), b.TotalSupply())
	assert.Len(t, b.Accounts(), 1)
}

func TestAccounts_SortedAndLoad(t *testing.T) {
	b := NewBook(nil)
	require.NoError(t, b.Mint(addr(9), u(1)))
	require.NoError(t, b.Mint(addr(2), u(2)))
	require.NoError(t, b.AddCost(addr(2), u(3)))

	accts := b.Accounts()
	require.Len(t, accts, 2)
	assert.Equal(t, addr(2), accts[0].Address)
	assert.Equal(t, addr(9), accts[1].Address)

	other := NewBook(nil)
	require.NoError(t, other.Load(accts))
	assert.Equal(t, u(3), other.TotalSupply())
	assert.Equal(t, u(3), other.CostBasis(addr(2)))

	assert.ErrorIs(t, other.Load([]Account{{Address: addr(1)}}), ErrNilParam)
}
