package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cmtlabs/libcmt-go/config"
	"github.com/cmtlabs/libcmt-go/fee"
	"github.com/cmtlabs/libcmt-go/reward"
	"github.com/cmtlabs/libcmt-go/staking"
)

// Valuation selects how team referral rewards are valued against the cap.
type Valuation uint8

const (
	// ValuePool values rewards at the pair's reserve ratio.
	ValuePool Valuation = iota
	// ValueParity values one reward unit at one quote unit.
	ValueParity
)

// Settings is the typed form of config.Config.
type Settings struct {
	Decimals int32

	Token      common.Address
	Quote      common.Address
	Pair       common.Address
	PairFeeBps uint64

	Owner           common.Address
	PositionManager common.Address
	Launch          time.Time
	Schedule        fee.Schedule
	Whitelist       []common.Address
	Special         []common.Address

	Tiers           []staking.Tier
	RequireReferrer bool

	CapMultiplier   uint64
	WithholdPercent uint64
	CapScope        reward.CapScope
	TeamValuation   Valuation
	Operators       []common.Address
	DAOPool         common.Address
}

// FromConfig validates cfg and converts it to Settings.
func FromConfig(cfg config.Config) (Settings, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return Settings{}, err
	}

	var firstErr error
	addr := func(s string) common.Address {
		a, err := config.ParseAddress(s)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return a
	}
	list := func(ss []string) []common.Address {
		out := make([]common.Address, 0, len(ss))
		for _, s := range ss {
			out = append(out, addr(s))
		}
		return out
	}

	tc, fc, rc := cfg.Token, cfg.Fees, cfg.Rewards
	set := Settings{
		Decimals:        tc.Decimals,
		Token:           addr(tc.Address),
		Quote:           addr(tc.QuoteToken),
		Pair:            addr(tc.Pair),
		PairFeeBps:      tc.PairFeeBps,
		Owner:           addr(tc.Owner),
		Launch:          tc.Launch,
		Whitelist:       list(tc.Whitelist),
		Special:         list(tc.Special),
		RequireReferrer: cfg.Staking.RequireReferrer,
		CapMultiplier:   rc.CapMultiplier,
		WithholdPercent: rc.WithholdPercent,
		Operators:       list(rc.Operators),
		DAOPool:         addr(rc.DAOPool),
	}
	if tc.PositionManager != "" {
		set.PositionManager = addr(tc.PositionManager)
	}

	delay, err := tc.FeeDelay()
	if err != nil {
		return Settings{}, err
	}
	set.Schedule = fee.Schedule{
		Transaction: fee.Rates(fc.Transaction),
		Profit:      fee.Rates(fc.Profit),
		Destinations: fee.Destinations{
			Normal:  addr(fc.Destinations.Normal),
			Node:    addr(fc.Destinations.Node),
			Cluster: addr(fc.Destinations.Cluster),
			Market:  addr(fc.Destinations.Market),
			Tech:    addr(fc.Destinations.Tech),
			Sub:     addr(fc.Destinations.Sub),
		},
		NormalFeeDelay: delay,
	}

	tiers, err := cfg.Staking.ParseTiers(tc.Decimals)
	if err != nil {
		return Settings{}, err
	}
	for _, t := range tiers {
		set.Tiers = append(set.Tiers, staking.Tier{Amount: t.Amount, Lock: t.Lock})
	}

	if set.CapScope, err = reward.ParseCapScope(rc.CapScope); err != nil {
		return Settings{}, err
	}
	if strings.EqualFold(rc.TeamValuation, "parity") {
		set.TeamValuation = ValueParity
	}

	if firstErr != nil {
		return Settings{}, fmt.Errorf("engine: settings: %w", firstErr)
	}
	return set, nil
}
