package staking

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmtlabs/libcmt-go/journal"
	"github.com/cmtlabs/libcmt-go/units"
)

func makeAddr(seed byte) common.Address {
	var a common.Address
	for i := range a {
		a[i] = seed
	}
	return a
}

var (
	root  = makeAddr(0x01)
	alice = makeAddr(0x0a)
	bob   = makeAddr(0x0b)
	t0    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func whole(n uint64) *uint256.Int { return units.Whole(n, units.Decimals) }

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newEngine(t *testing.T, requireReferrer bool, j *journal.Journal) (*Engine, *clock) {
	t.Helper()
	c := &clock{now: t0}
	e, err := NewEngine(Options{
		Tiers:           DefaultTiers(units.Decimals),
		RequireReferrer: requireReferrer,
		Now:             c.Now,
	}, NewReferrals(j), j)
	require.NoError(t, err)
	return e, c
}

// --- Tier classification ---

func TestClassify_Exact(t *testing.T) {
	tiers := DefaultTiers(units.Decimals)
	tests := []struct {
		amount uint64
		tier   int
		lock   time.Duration
	}{
		{200, 0, 2 * Day},
		{600, 1, 3 * Day},
		{1200, 2, 4 * Day},
		{2500, 3, 5 * Day},
		{6000, 4, 6 * Day},
		{14000, 5, 7 * Day},
	}
	for _, tt := range tests {
		tier, lock, err := Classify(tiers, whole(tt.amount))
		require.NoError(t, err, "amount %d", tt.amount)
		assert.Equal(t, tt.tier, tier)
		assert.Equal(t, tt.lock, lock)
	}
}

func TestClassify_NoRangeMatching(t *testing.T) {
	tiers := DefaultTiers(units.Decimals)
	for _, amt := range []*uint256.Int{whole(201), whole(199), uint256.NewInt(200_000_001), uint256.NewInt(0), nil} {
		_, _, err := Classify(tiers, amt)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestValidateTiers(t *testing.T) {
	assert.NoError(t, ValidateTiers(DefaultTiers(6)))
	assert.ErrorIs(t, ValidateTiers(nil), ErrInvalidTiers)
	assert.ErrorIs(t, ValidateTiers([]Tier{{Amount: whole(1)}}), ErrInvalidTiers)
	assert.ErrorIs(t, ValidateTiers([]Tier{{Amount: whole(1), Lock: Day}, {Amount: whole(1), Lock: Day}}), ErrInvalidTiers)
}

// --- Referrals ---

func TestReferrals(t *testing.T) {
	r := NewReferrals(nil)
	require.NoError(t, r.SetReferrer(alice, root))
	require.NoError(t, r.SetReferrer(bob, alice))

	assert.ErrorIs(t, r.SetReferrer(alice, bob), ErrReferrerAlreadySet)
	assert.ErrorIs(t, r.SetReferrer(root, root), ErrInvalidReferrer)
	assert.ErrorIs(t, r.SetReferrer(root, bob), ErrInvalidReferrer, "cycle root -> bob -> alice -> root")
	assert.ErrorIs(t, r.SetReferrer(common.Address{}, root), ErrZeroAddress)

	ref, ok := r.Referrer(bob)
	assert.True(t, ok)
	assert.Equal(t, alice, ref)
	assert.Equal(t, []common.Address{alice}, r.Referees(root))

	other := NewReferrals(nil)
	other.Load(r.All())
	assert.Equal(t, r.All(), other.All())
}

func TestReferrals_JournalRevert(t *testing.T) {
	j := journal.New()
	r := NewReferrals(j)
	require.NoError(t, r.SetReferrer(alice, root))
	j.RevertTo(0)
	_, ok := r.Referrer(alice)
	assert.False(t, ok)
	assert.Empty(t, r.Referees(root))
}

// --- Deposits ---

func TestDeposit_CreatesIndependentRounds(t *testing.T) {
	e, c := newEngine(t, false, nil)

	r0, err := e.Deposit(alice, whole(200))
	require.NoError(t, err)
	c.now = t0.Add(time.Hour)
	r1, err := e.Deposit(alice, whole(14000))
	require.NoError(t, err)

	assert.Equal(t, uint64(0), r0.Round)
	assert.Equal(t, uint64(1), r1.Round)
	assert.Equal(t, 0, r0.Tier)
	assert.Equal(t, 5, r1.Tier)
	assert.Equal(t, t0.Add(2*Day), r0.End)
	assert.Equal(t, t0.Add(time.Hour+7*Day), r1.End)
	assert.Equal(t, Active, r1.Status)

	assert.Equal(t, uint64(2), e.RoundCount(alice))
	assert.Equal(t, whole(14200), e.TotalStaked(alice))
	assert.Equal(t, []uint64{0, 1}, e.ActiveRounds(alice))
	assert.Len(t, e.Records(alice), 2)
}

func TestDeposit_InvalidAmount(t *testing.T) {
	e, _ := newEngine(t, false, nil)
	_, err := e.Deposit(alice, whole(201))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, uint64(0), e.RoundCount(alice))

	_, err = e.Deposit(common.Address{}, whole(200))
	assert.ErrorIs(t, err, ErrZeroAddress)
}

func TestDeposit_RequiresReferrer(t *testing.T) {
	e, _ := newEngine(t, true, nil)
	_, err := e.Deposit(alice, whole(200))
	assert.ErrorIs(t, err, ErrNoReferrer)

	require.NoError(t, e.Referrals().SetReferrer(alice, root))
	_, err = e.Deposit(alice, whole(200))
	assert.NoError(t, err)
}

func TestDeposit_MembersDeduplicated(t *testing.T) {
	e, _ := newEngine(t, false, nil)
	for i := 0; i < 3; i++ {
		_, err := e.Deposit(alice, whole(600))
		require.NoError(t, err)
	}
	_, err := e.Deposit(bob, whole(600))
	require.NoError(t, err)

	assert.Equal(t, []common.Address{alice, bob}, e.Members(1))
	assert.Empty(t, e.Members(0))
	assert.Nil(t, e.Members(99))
}

func TestDeposit_OnDepositHook(t *testing.T) {
	e, _ := newEngine(t, false, nil)
	var seen []common.Address
	e.OnDeposit(func(h common.Address) { seen = append(seen, h) })

	_, err := e.Deposit(alice, whole(200))
	require.NoError(t, err)
	_, err = e.Deposit(alice, whole(201))
	require.Error(t, err)
	assert.Equal(t, []common.Address{alice}, seen)
}

func TestDeposit_JournalRevert(t *testing.T) {
	j := journal.New()
	e, _ := newEngine(t, false, j)
	_, err := e.Deposit(alice, whole(200))
	require.NoError(t, err)
	j.Reset()

	_, err = e.Deposit(alice, whole(600))
	require.NoError(t, err)
	_, err = e.Deposit(bob, whole(600))
	require.NoError(t, err)
	j.RevertTo(0)

	assert.Equal(t, uint64(1), e.RoundCount(alice))
	assert.Equal(t, whole(200), e.TotalStaked(alice))
	assert.Equal(t, uint64(0), e.RoundCount(bob))
	assert.Empty(t, e.Members(1))
	assert.Equal(t, []uint64{0}, e.ActiveRounds(alice))
}

// --- Round end ---

func TestEndRound(t *testing.T) {
	e, c := newEngine(t, false, nil)
	_, err := e.Deposit(alice, whole(200))
	require.NoError(t, err)

	c.now = t0.Add(2*Day - time.Second)
	_, err = e.EndRound(alice, 0)
	assert.ErrorIs(t, err, ErrUnderLockPeriod)

	c.now = t0.Add(2 * Day)
	rec, err := e.EndRound(alice, 0)
	require.NoError(t, err)
	assert.Equal(t, Ended, rec.Status)
	assert.Empty(t, e.ActiveRounds(alice))

	_, err = e.EndRound(alice, 1)
	assert.ErrorIs(t, err, ErrRoundNotFound)
	_, err = e.EndRound(bob, 0)
	assert.ErrorIs(t, err, ErrRoundNotFound)
}

func TestEndRound_Idempotent(t *testing.T) {
	j := journal.New()
	e, c := newEngine(t, false, j)
	_, err := e.Deposit(alice, whole(600))
	require.NoError(t, err)
	c.now = t0.Add(10 * Day)

	first, err := e.EndRound(alice, 0)
	require.NoError(t, err)
	steps := j.Len()

	second, err := e.EndRound(alice, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, steps, j.Len(), "second call mutates nothing")
	assert.Equal(t, whole(600), e.TotalStaked(alice))
}

func TestEndRound_RoundsEndIndependently(t *testing.T) {
	e, c := newEngine(t, false, nil)
	_, err := e.Deposit(alice, whole(14000))
	require.NoError(t, err)
	_, err = e.Deposit(alice, whole(200))
	require.NoError(t, err)

	c.now = t0.Add(3 * Day)
	_, err = e.EndRound(alice, 0)
	assert.ErrorIs(t, err, ErrUnderLockPeriod)
	_, err = e.EndRound(alice, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, e.ActiveRounds(alice))
}

// --- Persistence ---

func TestLoad_RebuildsIndexes(t *testing.T) {
	e, c := newEngine(t, false, nil)
	_, err := e.Deposit(alice, whole(200))
	require.NoError(t, err)
	c.now = t0.Add(time.Minute)
	_, err = e.Deposit(bob, whole(200))
	require.NoError(t, err)
	_, err = e.Deposit(alice, whole(600))
	require.NoError(t, err)
	c.now = t0.Add(10 * Day)
	_, err = e.EndRound(alice, 0)
	require.NoError(t, err)

	other, _ := newEngine(t, false, nil)
	require.NoError(t, other.Load(e.AllRecords()))

	assert.Equal(t, e.AllRecords(), other.AllRecords())
	assert.Equal(t, whole(800), other.TotalStaked(alice))
	assert.Equal(t, []uint64{1}, other.ActiveRounds(alice))
	assert.Equal(t, []common.Address{alice, bob}, other.Members(0))
}

func TestLoad_OutOfSequence(t *testing.T) {
	e, _ := newEngine(t, false, nil)
	err := e.Load([]Record{{Holder: alice, Round: 3, Tier: 0, Amount: whole(200), Start: t0}})
	assert.ErrorIs(t, err, ErrRoundNotFound)
}
