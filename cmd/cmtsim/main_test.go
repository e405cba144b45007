package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cmtlabs/libcmt-go/address"
	"github.com/cmtlabs/libcmt-go/config"
	"github.com/cmtlabs/libcmt-go/engine"
	"github.com/cmtlabs/libcmt-go/store"
	"github.com/cmtlabs/libcmt-go/units"
)

func testSystem(t *testing.T) *engine.System {
	t.Helper()
	set, err := engine.FromConfig(config.DefaultConfig())
	require.NoError(t, err)
	sys, err := engine.New(set, engine.Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	return sys
}

func TestReplayLaunchScenario(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "launch.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "launch", sc.Name)

	sys := testSystem(t)
	r := newRunner(sys)
	require.NoError(t, r.Run(sc))

	alice := address.FromLabel("alice")
	bob := address.FromLabel("bob")
	assert.True(t, sys.BalanceOf(bob).IsZero())
	assert.Empty(t, sys.ActiveRounds(alice))
	assert.Equal(t, units.Whole(200, units.Decimals), sys.TotalStaked(alice))
	assert.False(t, sys.FundingTotal().IsZero())
	assert.Equal(t, uint64(len(sc.Steps)-2), sys.Seq(), "advance and the expected failure do not count")

	var out bytes.Buffer
	require.NoError(t, writeReport(&out, sys, r))
	report := out.String()
	assert.Contains(t, report, "@fee-tech")
	assert.Contains(t, report, "@alice")
	assert.Contains(t, report, "price ")
}

func TestRun_StepErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"unknown op", "steps: [{op: mint}]", errUnknownOp},
		{"missing field", "steps: [{op: buy, quote: '1'}]", errMissingField},
		{"bad status", "steps: [{op: set_pool, caller: '@owner', account: '@x', status: maybe}]", errInvalidValue},
		{"expected failure passed", "steps: [{op: set_referrer, holder: '@a', account: '@b', expect_error: 'x'}]", errUnexpectedPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := ParseScenario([]byte(tt.yaml))
			require.NoError(t, err)
			err = newRunner(testSystem(t)).Run(sc)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	sc, err := ParseScenario([]byte(`
steps:
  - {op: deposit, holder: "@alice", amount: "201"}
  - {op: deposit, holder: "@alice", amount: "200"}
`))
	require.NoError(t, err)
	sys := testSystem(t)
	err = newRunner(sys).Run(sc)
	assert.ErrorContains(t, err, "step 0 (deposit)")
	assert.Equal(t, uint64(0), sys.Seq())
}

func TestOpenSystem_Resumes(t *testing.T) {
	set, err := engine.FromConfig(config.DefaultConfig())
	require.NoError(t, err)
	st, err := store.OpenBoltStore(filepath.Join(t.TempDir(), stateFile))
	require.NoError(t, err)
	defer st.Close()

	fresh, err := openSystem(set, zap.NewNop(), st)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), fresh.Seq())

	sc, err := ParseScenario([]byte(`steps: [{op: set_referrer, holder: "@alice", account: "@bob"}]`))
	require.NoError(t, err)
	require.NoError(t, newRunner(fresh).Run(sc))
	require.NoError(t, fresh.Save(st))

	resumed, err := openSystem(set, zap.NewNop(), st)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), resumed.Seq())
	ref, ok := resumed.Referrer(address.FromLabel("alice"))
	require.True(t, ok)
	assert.Equal(t, address.FromLabel("bob"), ref)
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger("warn", filepath.Join(t.TempDir(), "cmtsim.log"))
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.InfoLevel))
	assert.True(t, log.Core().Enabled(zap.WarnLevel))

	_, err = newLogger("loud", "")
	assert.ErrorIs(t, err, config.ErrInvalidLogLevel)
}

func TestLoadConfig_Explicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Rewards.WithholdPercent = 10
	require.NoError(t, config.SaveConfig(path, cfg))

	got, gotPath, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, gotPath)
	assert.Equal(t, uint64(10), got.Rewards.WithholdPercent)

	_, _, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, config.ErrConfigNotFound)
}
