package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cmtlabs/libcmt-go/config"
	"github.com/cmtlabs/libcmt-go/reward"
	"github.com/cmtlabs/libcmt-go/staking"
	"github.com/cmtlabs/libcmt-go/store"
)

// busySystem runs a little of everything so the snapshot has content in
// every section.
func busySystem(t *testing.T) *System {
	t.Helper()
	sys, _ := newSystem(t, nil)
	seed(t, sys, 100_000)

	_, err := sys.Buy(alice, w(1000))
	require.NoError(t, err)
	require.NoError(t, sys.SetReferrer(alice, bob))
	_, err = sys.Deposit(alice, w(200))
	require.NoError(t, err)
	_, err = sys.Grant(operator, alice, w(300), reward.TeamReferral)
	require.NoError(t, err)
	_, err = sys.Grant(operator, bob, w(50), reward.Daily)
	require.NoError(t, err)
	_, err = sys.Claim(bob, w(50))
	require.NoError(t, err)
	require.NoError(t, sys.SetWhitelisted(owner, whale, true))
	_, err = sys.Advance(3 * staking.Day)
	require.NoError(t, err)
	_, err = sys.EndRound(alice, 0)
	require.NoError(t, err)
	return sys
}

func assertSameState(t *testing.T, want, got *System) {
	t.Helper()
	assert.Equal(t, want.Seq(), got.Seq())
	assert.True(t, want.Now().Equal(got.Now()))
	assert.Equal(t, want.Allocated(), got.Allocated())
	assert.Equal(t, want.Accounts(), got.Accounts())
	assert.Equal(t, want.TotalSupply(), got.TotalSupply())

	wt, wq := want.Reserves()
	gt, gq := got.Reserves()
	assert.Equal(t, wt, gt)
	assert.Equal(t, wq, gq)

	assert.Equal(t, want.Records(alice), got.Records(alice))
	assert.Equal(t, want.ActiveRounds(alice), got.ActiveRounds(alice))
	assert.Equal(t, want.TotalStaked(alice), got.TotalStaked(alice))
	assert.Equal(t, want.Members(0), got.Members(0))
	assert.Equal(t, want.RewardLedger(alice), got.RewardLedger(alice))
	assert.Equal(t, want.RewardLedger(bob), got.RewardLedger(bob))
	assert.Equal(t, want.FundingTotal(), got.FundingTotal())
	assert.Equal(t, want.IsWhitelisted(whale), got.IsWhitelisted(whale))
	assert.Equal(t, want.IsSpecial(dao), got.IsSpecial(dao))
	assert.Equal(t, want.PoolStatus(pair), got.PoolStatus(pair))

	wr, wok := want.Referrer(alice)
	gr, gok := got.Referrer(alice)
	assert.Equal(t, wok, gok)
	assert.Equal(t, wr, gr)
}

func TestSaveLoad_BoltRoundTrip(t *testing.T) {
	sys := busySystem(t)

	path := filepath.Join(t.TempDir(), "state.db")
	st, err := store.OpenBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, sys.Save(st))
	require.NoError(t, st.Close())

	st, err = store.OpenBoltStore(path)
	require.NoError(t, err)
	defer st.Close()

	snap, err := st.Load()
	require.NoError(t, err)
	reopened, err := Open(sys.Settings(), Options{Logger: zap.NewNop()}, snap)
	require.NoError(t, err)
	assertSameState(t, sys, reopened)

	// Both continue identically.
	for _, s := range []*System{sys, reopened} {
		_, err := s.Sell(alice, w(100))
		require.NoError(t, err)
		_, err = s.Grant(operator, alice, w(200), reward.TeamReferral)
		require.NoError(t, err)
	}
	assertSameState(t, sys, reopened)
}

func TestCheckpointRewind(t *testing.T) {
	sys := busySystem(t)
	st := store.NewMemStore()

	require.NoError(t, sys.Checkpoint(st, "before-sell"))
	before := sys.Snapshot()

	_, err := sys.Sell(alice, w(100))
	require.NoError(t, err)
	assert.NotEqual(t, before.Meta.Seq, sys.Seq())

	require.NoError(t, sys.Rewind(st, "before-sell"))
	assert.Equal(t, before.Meta.Seq, sys.Seq())
	assert.Equal(t, before.Accounts, sys.Snapshot().Accounts)

	err = sys.Rewind(st, "missing")
	assert.ErrorIs(t, err, store.ErrSnapshotNotFound)
}

func TestLoad_EmptyStore(t *testing.T) {
	sys, _ := newSystem(t, nil)
	err := sys.Load(store.NewMemStore())
	assert.ErrorIs(t, err, store.ErrSnapshotNotFound)
}

func TestOpen_NilSnapshot(t *testing.T) {
	set, err := FromConfig(config.DefaultConfig())
	require.NoError(t, err)
	_, err = Open(set, Options{}, nil)
	assert.ErrorIs(t, err, ErrNilParam)
}

func TestRestore_InvalidLeavesStateUnchanged(t *testing.T) {
	sys := busySystem(t)
	seq := sys.Seq()
	accounts := sys.Accounts()

	snap := sys.Snapshot()
	snap.Accounts = nil
	snap.Stakes[0].Tier = 99

	err := sys.Restore(snap)
	assert.ErrorIs(t, err, staking.ErrInvalidTiers)
	assert.Equal(t, seq, sys.Seq())
	assert.Equal(t, accounts, sys.Accounts())
}

func TestRestore_RejectsOtherLaunch(t *testing.T) {
	sys := busySystem(t)
	seq := sys.Seq()

	snap := sys.Snapshot()
	snap.Meta.Launch = snap.Meta.Launch.Add(-30 * 24 * time.Hour)

	err := sys.Restore(snap)
	assert.ErrorIs(t, err, ErrLaunchMismatch)
	assert.Equal(t, seq, sys.Seq())

	_, err = Open(sys.Settings(), Options{}, snap)
	assert.ErrorIs(t, err, ErrLaunchMismatch)
}
