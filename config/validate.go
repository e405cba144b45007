package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cmtlabs/libcmt-go/address"
	"github.com/cmtlabs/libcmt-go/units"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

const maxBasisPoints = 10000

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}
	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	tc := cfg.Token
	if tc.Decimals < 0 || tc.Decimals > 36 {
		return fmt.Errorf("%w: %d", ErrInvalidDecimals, tc.Decimals)
	}
	for name, s := range map[string]string{
		"token.address":     tc.Address,
		"token.quote_token": tc.QuoteToken,
		"token.pair":        tc.Pair,
		"token.owner":       tc.Owner,
	} {
		if _, err := ParseAddress(s); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if tc.PositionManager != "" {
		if _, err := ParseAddress(tc.PositionManager); err != nil {
			return fmt.Errorf("token.position_manager: %w", err)
		}
	}
	if _, err := ParseAddresses(tc.Whitelist); err != nil {
		return fmt.Errorf("token.whitelist: %w", err)
	}
	if _, err := ParseAddresses(tc.Special); err != nil {
		return fmt.Errorf("token.special: %w", err)
	}
	if tc.PairFeeBps >= maxBasisPoints {
		return fmt.Errorf("%w: pair fee %d", ErrInvalidRates, tc.PairFeeBps)
	}
	if _, err := tc.FeeDelay(); err != nil {
		return err
	}

	if err := validateFees(cfg.Fees); err != nil {
		return err
	}
	if _, err := cfg.Staking.ParseTiers(tc.Decimals); err != nil {
		return err
	}
	return validateRewards(cfg.Rewards)
}

func validateFees(fc FeeConfig) error {
	if fc.Transaction.Normal != 0 {
		return fmt.Errorf("%w: transaction fees have no normal category", ErrInvalidRates)
	}
	if s := fc.Transaction.Sum(); s > maxBasisPoints {
		return fmt.Errorf("%w: transaction rates sum to %d", ErrInvalidRates, s)
	}
	if s := fc.Profit.Sum(); s > maxBasisPoints {
		return fmt.Errorf("%w: profit rates sum to %d", ErrInvalidRates, s)
	}
	d := fc.Destinations
	for name, s := range map[string]string{
		"normal": d.Normal, "node": d.Node, "cluster": d.Cluster,
		"market": d.Market, "tech": d.Tech, "sub": d.Sub,
	} {
		if _, err := ParseAddress(s); err != nil {
			return fmt.Errorf("fees.destinations.%s: %w", name, err)
		}
	}
	return nil
}

func validateRewards(rc RewardConfig) error {
	if rc.CapMultiplier == 0 {
		return fmt.Errorf("%w: cap_multiplier must be positive", ErrInvalidRewards)
	}
	if rc.WithholdPercent > 100 {
		return fmt.Errorf("%w: withhold_percent %d", ErrInvalidRewards, rc.WithholdPercent)
	}
	switch strings.ToLower(rc.CapScope) {
	case "", "category", "all":
	default:
		return fmt.Errorf("%w: cap_scope %q", ErrInvalidRewards, rc.CapScope)
	}
	switch strings.ToLower(rc.TeamValuation) {
	case "", "pool", "parity":
	default:
		return fmt.Errorf("%w: team_valuation %q", ErrInvalidRewards, rc.TeamValuation)
	}
	if len(rc.Operators) == 0 {
		return fmt.Errorf("%w: no operators", ErrInvalidRewards)
	}
	if _, err := ParseAddresses(rc.Operators); err != nil {
		return fmt.Errorf("rewards.operators: %w", err)
	}
	if _, err := ParseAddress(rc.DAOPool); err != nil {
		return fmt.Errorf("rewards.dao_pool: %w", err)
	}
	return nil
}

// ParseAddress parses a hex or "@label" address. The zero address is
// rejected.
func ParseAddress(s string) (common.Address, error) {
	a, err := address.Parse(s)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if address.IsZero(a) {
		return common.Address{}, fmt.Errorf("%w: zero address %q", ErrInvalidAddress, s)
	}
	return a, nil
}

// ParseAddresses parses every entry of list.
func ParseAddresses(list []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(list))
	for _, s := range list {
		a, err := ParseAddress(s)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// FeeDelay parses NormalFeeDelay.
func (tc TokenConfig) FeeDelay() (time.Duration, error) {
	d, err := time.ParseDuration(tc.NormalFeeDelay)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: token.normal_fee_delay %q", ErrInvalidDuration, tc.NormalFeeDelay)
	}
	return d, nil
}

// ParsedTier is a tier in integer units.
type ParsedTier struct {
	Amount *uint256.Int
	Lock   time.Duration
}

// ParseTiers converts the tier table to integer quote units.
func (sc StakingConfig) ParseTiers(decimals int32) ([]ParsedTier, error) {
	if len(sc.Tiers) == 0 {
		return nil, fmt.Errorf("%w: no tiers", ErrInvalidTiers)
	}
	out := make([]ParsedTier, len(sc.Tiers))
	for i, t := range sc.Tiers {
		amt, err := units.Parse(t.Amount, decimals)
		if err != nil || amt.IsZero() {
			return nil, fmt.Errorf("%w: tier %d amount %q", ErrInvalidTiers, i, t.Amount)
		}
		lock, err := time.ParseDuration(t.Lock)
		if err != nil || lock <= 0 {
			return nil, fmt.Errorf("%w: tier %d lock %q", ErrInvalidTiers, i, t.Lock)
		}
		out[i] = ParsedTier{Amount: amt, Lock: lock}
	}
	return out, nil
}
