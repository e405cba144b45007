package reward

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmtlabs/libcmt-go/journal"
)

func makeAddr(seed byte) common.Address {
	var a common.Address
	for i := range a {
		a[i] = seed
	}
	return a
}

var (
	operator = makeAddr(0x01)
	alice    = makeAddr(0x0a)
	bob      = makeAddr(0x0b)
	cmt      = makeAddr(0xc1)
	usdt     = makeAddr(0xd1)
)

func u(n uint64) *uint256.Int { return uint256.NewInt(n) }

type stakes map[common.Address]uint64

func (s stakes) TotalStaked(holder common.Address) *uint256.Int { return u(s[holder]) }

// doubleSwapper returns twice the input, or err when set.
type doubleSwapper struct {
	calls int
	err   error
}

func (s *doubleSwapper) Swap(amountIn *uint256.Int, tokenIn, tokenOut common.Address) (*uint256.Int, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if tokenIn != cmt || tokenOut != usdt {
		return nil, errors.New("unexpected pair")
	}
	return new(uint256.Int).Mul(amountIn, u(2)), nil
}

type fixture struct {
	acct   *Accountant
	stakes stakes
	swap   *doubleSwapper
	pool   *MemPool
	sink   *MemSink
	j      *journal.Journal
}

func newFixture(t *testing.T, scope CapScope) *fixture {
	t.Helper()
	j := journal.New()
	f := &fixture{
		stakes: stakes{alice: 200, bob: 100},
		swap:   &doubleSwapper{},
		pool:   NewMemPool(u(1_000_000), j),
		sink:   NewMemSink(j),
		j:      j,
	}
	acct, err := NewAccountant(Options{
		CapMultiplier:   DefaultCapMultiplier,
		WithholdPercent: DefaultWithholdPercent,
		Scope:           scope,
		RewardToken:     cmt,
		QuoteToken:      usdt,
		Operators:       []common.Address{operator},
	}, Collaborators{
		Stakes:  f.stakes,
		Swapper: f.swap,
		Pool:    f.pool,
		Sink:    f.sink,
	}, j)
	require.NoError(t, err)
	f.acct = acct
	return f
}

// --- Construction ---

func TestNewAccountant_Invalid(t *testing.T) {
	c := Collaborators{Stakes: stakes{}, Swapper: &doubleSwapper{}, Pool: NewMemPool(u(0), nil), Sink: NewMemSink(nil)}
	base := Options{CapMultiplier: 3, WithholdPercent: 20, Operators: []common.Address{operator}}

	_, err := NewAccountant(base, Collaborators{}, nil)
	assert.ErrorIs(t, err, ErrNilParam)

	o := base
	o.CapMultiplier = 0
	_, err = NewAccountant(o, c, nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	o = base
	o.WithholdPercent = 101
	_, err = NewAccountant(o, c, nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	o = base
	o.Operators = nil
	_, err = NewAccountant(o, c, nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = NewAccountant(base, c, nil)
	assert.NoError(t, err)
}

func TestParseCategory(t *testing.T) {
	for c := Daily; c < numCategories; c++ {
		got, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCategory("airdrop")
	assert.ErrorIs(t, err, ErrInvalidRewardType)

	s, err := ParseCapScope("ALL")
	require.NoError(t, err)
	assert.Equal(t, CapScopeAll, s)
	_, err = ParseCapScope("some")
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

// --- Grant ---

func TestGrant_Validation(t *testing.T) {
	f := newFixture(t, CapScopeCategory)

	_, err := f.acct.Grant(alice, alice, u(10), Daily)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.acct.Grant(operator, common.Address{}, u(10), Daily)
	assert.ErrorIs(t, err, ErrZeroAddress)

	_, err = f.acct.Grant(operator, alice, u(0), Daily)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.acct.Grant(operator, alice, u(10), Category(9))
	assert.ErrorIs(t, err, ErrInvalidRewardType)

	assert.Empty(t, f.acct.All())
}

func TestGrant_AccumulatesPerCategory(t *testing.T) {
	f := newFixture(t, CapScopeCategory)

	for _, c := range []Category{Daily, DirectReferral, FomoPool, Daily} {
		res, err := f.acct.Grant(operator, alice, u(100), c)
		require.NoError(t, err)
		assert.Equal(t, u(100), res.Credited)
		assert.False(t, res.CapReached)
	}

	l := f.acct.Ledger(alice)
	assert.Equal(t, u(200), l.Total(Daily))
	assert.Equal(t, u(100), l.Total(DirectReferral))
	assert.Equal(t, u(100), l.Total(FomoPool))
	assert.True(t, l.Total(TeamReferral).IsZero())
	assert.Equal(t, u(400), &l.TotalReward)
	assert.Equal(t, u(400), l.Claimable())
	assert.True(t, l.TeamValue.IsZero())
}

func TestGrant_TeamUnderCap(t *testing.T) {
	f := newFixture(t, CapScopeCategory)

	// cap = 3 * 200 = 600
	_, err := f.acct.Grant(operator, alice, u(300), TeamReferral)
	require.NoError(t, err)
	res, err := f.acct.Grant(operator, alice, u(300), TeamReferral)
	require.NoError(t, err)
	assert.Equal(t, u(300), res.Credited)
	assert.False(t, res.CapReached)

	l := f.acct.Ledger(alice)
	assert.Equal(t, u(600), &l.TeamValue)
	assert.Equal(t, u(600), l.Total(TeamReferral))
	assert.False(t, l.TeamCapReached)
}

func TestGrant_TeamStraddlesCap(t *testing.T) {
	f := newFixture(t, CapScopeCategory)
	var hits []common.Address
	f.acct.OnCapReached(func(holder common.Address, capValue *uint256.Int) {
		hits = append(hits, holder)
		assert.Equal(t, u(600), capValue)
	})

	_, err := f.acct.Grant(operator, alice, u(500), TeamReferral)
	require.NoError(t, err)

	res, err := f.acct.Grant(operator, alice, u(400), TeamReferral)
	require.NoError(t, err)
	assert.Equal(t, u(400), res.Amount)
	assert.Equal(t, u(100), res.Credited)
	assert.True(t, res.CapReached)
	assert.Equal(t, []common.Address{alice}, hits)

	l := f.acct.Ledger(alice)
	assert.Equal(t, u(600), &l.TeamValue)
	assert.Equal(t, u(600), l.Total(TeamReferral))
	assert.Equal(t, u(600), &l.TotalReward)
	assert.True(t, l.TeamCapReached)

	_, err = f.acct.Grant(operator, alice, u(1), TeamReferral)
	assert.ErrorIs(t, err, ErrInvalidRewardType)

	// Other categories remain open under the category scope.
	res, err = f.acct.Grant(operator, alice, u(50), Daily)
	require.NoError(t, err)
	assert.Equal(t, u(50), res.Credited)
}

func TestGrant_ExactCapThenClamp(t *testing.T) {
	f := newFixture(t, CapScopeCategory)

	// cap = 3 * 100 = 300
	res, err := f.acct.Grant(operator, bob, u(300), TeamReferral)
	require.NoError(t, err)
	assert.Equal(t, u(300), res.Credited)
	assert.False(t, res.CapReached)
	assert.False(t, f.acct.Ledger(bob).TeamCapReached)

	res, err = f.acct.Grant(operator, bob, u(50), TeamReferral)
	require.NoError(t, err)
	assert.True(t, res.Credited.IsZero())
	assert.True(t, res.CapReached)

	l := f.acct.Ledger(bob)
	assert.True(t, l.TeamCapReached)
	assert.Equal(t, u(300), &l.TotalReward)

	_, err = f.acct.Grant(operator, bob, u(50), TeamReferral)
	assert.ErrorIs(t, err, ErrInvalidRewardType)
}

// halfQuoter values one token at half a quote unit, truncating.
type halfQuoter struct{}

func (halfQuoter) QuoteValue(amount *uint256.Int) (*uint256.Int, error) {
	return new(uint256.Int).Div(amount, u(2)), nil
}

func TestGrant_DustAtCapIsRefused(t *testing.T) {
	j := journal.New()
	acct, err := NewAccountant(Options{
		CapMultiplier:   DefaultCapMultiplier,
		WithholdPercent: DefaultWithholdPercent,
		RewardToken:     cmt,
		QuoteToken:      usdt,
		Operators:       []common.Address{operator},
	}, Collaborators{
		Stakes:  stakes{alice: 200},
		Quoter:  halfQuoter{},
		Swapper: &doubleSwapper{},
		Pool:    NewMemPool(u(1_000_000), j),
		Sink:    NewMemSink(j),
	}, j)
	require.NoError(t, err)

	// 1200 tokens are worth exactly the 600 cap.
	res, err := acct.Grant(operator, alice, u(1200), TeamReferral)
	require.NoError(t, err)
	assert.Equal(t, u(1200), res.Credited)
	assert.False(t, res.CapReached)

	// One token quotes to zero but must not slip under a full cap.
	res, err = acct.Grant(operator, alice, u(1), TeamReferral)
	require.NoError(t, err)
	assert.True(t, res.Credited.IsZero())
	assert.True(t, res.CapReached)

	l := acct.Ledger(alice)
	assert.True(t, l.TeamCapReached)
	assert.Equal(t, u(1200), l.Total(TeamReferral))
	assert.Equal(t, u(600), &l.TeamValue)

	for i := 0; i < 10; i++ {
		_, err = acct.Grant(operator, alice, u(1), TeamReferral)
		assert.ErrorIs(t, err, ErrInvalidRewardType)
	}
	l = acct.Ledger(alice)
	assert.Equal(t, u(1200), l.Total(TeamReferral))
}

func TestGrant_NoStakeClampsToZero(t *testing.T) {
	f := newFixture(t, CapScopeCategory)
	carol := makeAddr(0x0c)

	res, err := f.acct.Grant(operator, carol, u(10), TeamReferral)
	require.NoError(t, err)
	assert.True(t, res.Credited.IsZero())
	assert.True(t, res.CapReached)
}

func TestGrant_ScopeAllBlocksEveryCategory(t *testing.T) {
	f := newFixture(t, CapScopeAll)

	_, err := f.acct.Grant(operator, bob, u(400), TeamReferral)
	require.NoError(t, err)
	require.True(t, f.acct.Ledger(bob).TeamCapReached)

	for c := Daily; c < numCategories; c++ {
		_, err := f.acct.Grant(operator, bob, u(1), c)
		assert.ErrorIs(t, err, ErrInvalidRewardType, c.String())
	}
}

func TestResetTeamCap(t *testing.T) {
	f := newFixture(t, CapScopeCategory)

	_, err := f.acct.Grant(operator, bob, u(400), TeamReferral)
	require.NoError(t, err)
	require.True(t, f.acct.Ledger(bob).TeamCapReached)

	// A new deposit raises the stake and clears the flag.
	f.stakes[bob] = 200
	f.acct.ResetTeamCap(bob)
	assert.False(t, f.acct.Ledger(bob).TeamCapReached)

	res, err := f.acct.Grant(operator, bob, u(400), TeamReferral)
	require.NoError(t, err)
	assert.Equal(t, u(300), res.Credited)
	assert.True(t, res.CapReached)
	l := f.acct.Ledger(bob)
	assert.Equal(t, u(600), &l.TeamValue)

	// Unknown holders are a no-op.
	f.acct.ResetTeamCap(makeAddr(0x0f))
	assert.Len(t, f.acct.All(), 1)
}

func TestGrant_RevertRestoresLedger(t *testing.T) {
	f := newFixture(t, CapScopeCategory)

	_, err := f.acct.Grant(operator, alice, u(100), Daily)
	require.NoError(t, err)

	snap := f.j.Snapshot()
	_, err = f.acct.Grant(operator, alice, u(700), TeamReferral)
	require.NoError(t, err)
	_, err = f.acct.Grant(operator, bob, u(5), Daily)
	require.NoError(t, err)
	f.j.RevertTo(snap)

	l := f.acct.Ledger(alice)
	assert.Equal(t, u(100), &l.TotalReward)
	assert.True(t, l.TeamValue.IsZero())
	assert.False(t, l.TeamCapReached)
	assert.Len(t, f.acct.All(), 1)
}

// --- Claim ---

func TestClaim_SplitsWithheld(t *testing.T) {
	f := newFixture(t, CapScopeCategory)

	_, err := f.acct.Grant(operator, alice, u(150), Daily)
	require.NoError(t, err)

	res, err := f.acct.Claim(alice, u(100))
	require.NoError(t, err)
	assert.Equal(t, u(100), res.Amount)
	assert.Equal(t, u(20), res.Withheld)
	assert.Equal(t, u(40), res.QuoteOut)
	assert.Equal(t, u(80), res.Paid)

	assert.Equal(t, u(40), f.sink.Total())
	assert.Equal(t, 1, f.sink.Deposits())
	assert.Equal(t, u(80), f.pool.Paid(alice))
	assert.Equal(t, u(1_000_000-80), f.pool.Balance())

	l := f.acct.Ledger(alice)
	assert.Equal(t, u(100), &l.ClaimedReward)
	assert.Equal(t, u(50), l.Claimable())
}

func TestClaim_Errors(t *testing.T) {
	f := newFixture(t, CapScopeCategory)

	_, err := f.acct.Claim(alice, u(0))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.acct.Claim(common.Address{}, u(1))
	assert.ErrorIs(t, err, ErrZeroAddress)

	_, err = f.acct.Claim(alice, u(1))
	assert.ErrorIs(t, err, ErrInvalidRewardAmount)

	_, err = f.acct.Grant(operator, alice, u(100), Daily)
	require.NoError(t, err)
	_, err = f.acct.Claim(alice, u(101))
	assert.ErrorIs(t, err, ErrInvalidRewardAmount)

	f.swap.err = errors.New("pair paused")
	_, err = f.acct.Claim(alice, u(100))
	assert.ErrorContains(t, err, "pair paused")
	l := f.acct.Ledger(alice)
	assert.True(t, l.ClaimedReward.IsZero())
	assert.True(t, f.sink.Total().IsZero())
}

func TestClaim_PoolShortfallReverts(t *testing.T) {
	f := newFixture(t, CapScopeCategory)
	f.pool = NewMemPool(u(10), f.j)
	f.acct.c.Pool = f.pool

	_, err := f.acct.Grant(operator, alice, u(100), Daily)
	require.NoError(t, err)

	snap := f.j.Snapshot()
	_, err = f.acct.Claim(alice, u(100))
	require.ErrorIs(t, err, ErrInsufficientPoolBalance)
	f.j.RevertTo(snap)

	assert.True(t, f.sink.Total().IsZero())
	assert.Equal(t, 0, f.sink.Deposits())
	assert.Equal(t, u(10), f.pool.Balance())
	assert.Equal(t, u(100), f.acct.Ledger(alice).Claimable())
}

func TestClaim_SmallAmountWithholdsNothing(t *testing.T) {
	f := newFixture(t, CapScopeCategory)

	_, err := f.acct.Grant(operator, alice, u(4), Daily)
	require.NoError(t, err)

	res, err := f.acct.Claim(alice, u(4))
	require.NoError(t, err)
	assert.True(t, res.Withheld.IsZero())
	assert.Equal(t, u(4), res.Paid)
	assert.Equal(t, 0, f.swap.calls)
}

func TestLoad(t *testing.T) {
	f := newFixture(t, CapScopeCategory)
	_, err := f.acct.Grant(operator, alice, u(100), Daily)
	require.NoError(t, err)
	_, err = f.acct.Grant(operator, bob, u(400), TeamReferral)
	require.NoError(t, err)

	all := f.acct.All()
	require.Len(t, all, 2)
	assert.Equal(t, alice, all[0].Holder)

	g := newFixture(t, CapScopeCategory)
	g.acct.Load(all)
	assert.Equal(t, all, g.acct.All())
	assert.True(t, g.acct.Ledger(bob).TeamCapReached)
}
