package staking

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/cmtlabs/libcmt-go/units"
)

// Day is the lock-duration unit of the reference tiers.
const Day = 24 * time.Hour

// Tier is one fixed stake size with its lock duration.
type Tier struct {
	Amount *uint256.Int // quote-currency units
	Lock   time.Duration
}

// DefaultTiers returns the six reference tiers: 200, 600, 1200, 2500, 6000
// and 14000 whole quote units locked for 2 to 7 days.
func DefaultTiers(decimals int32) []Tier {
	amounts := []uint64{200, 600, 1200, 2500, 6000, 14000}
	tiers := make([]Tier, len(amounts))
	for i, a := range amounts {
		tiers[i] = Tier{Amount: units.Whole(a, decimals), Lock: time.Duration(i+2) * Day}
	}
	return tiers
}

// ValidateTiers checks that amounts are positive and distinct and locks are
// positive.
func ValidateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("%w: no tiers", ErrInvalidTiers)
	}
	for i, t := range tiers {
		if t.Amount == nil || t.Amount.IsZero() {
			return fmt.Errorf("%w: tier %d has no amount", ErrInvalidTiers, i)
		}
		if t.Lock <= 0 {
			return fmt.Errorf("%w: tier %d has no lock", ErrInvalidTiers, i)
		}
		for k := 0; k < i; k++ {
			if tiers[k].Amount.Eq(t.Amount) {
				return fmt.Errorf("%w: tiers %d and %d share amount %s", ErrInvalidTiers, k, i, t.Amount.Dec())
			}
		}
	}
	return nil
}

// Classify returns the tier whose amount equals amount exactly.
func Classify(tiers []Tier, amount *uint256.Int) (int, time.Duration, error) {
	if amount == nil {
		return 0, 0, ErrInvalidAmount
	}
	for i, t := range tiers {
		if t.Amount.Eq(amount) {
			return i, t.Lock, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %s matches no tier", ErrInvalidAmount, amount.Dec())
}
