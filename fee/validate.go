package fee

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Validate checks rate totals and that every charged category has a
// destination.
func (s *Schedule) Validate() error {
	if s.Transaction.Normal != 0 {
		return fmt.Errorf("%w: transaction fees have no normal category", ErrRateOverflow)
	}
	if sum := s.Transaction.Sum(); sum > BasisPoints {
		return fmt.Errorf("%w: transaction rates sum to %d", ErrRateOverflow, sum)
	}
	if sum := s.Profit.Sum(); sum > BasisPoints {
		return fmt.Errorf("%w: profit rates sum to %d", ErrRateOverflow, sum)
	}
	for _, c := range profitOrder {
		if s.Transaction.rate(c) == 0 && s.Profit.rate(c) == 0 {
			continue
		}
		if s.Destinations.For(c) == (common.Address{}) {
			return fmt.Errorf("%w: %s", ErrMissingDestination, c)
		}
	}
	return nil
}

// ValidateConservation checks that net plus every share equals gross.
func ValidateConservation(gross, net *uint256.Int, shares Breakdown) error {
	total := shares.Total()
	total.Add(total, net)
	if !total.Eq(gross) {
		return fmt.Errorf("%w: gross=%s net+fees=%s", ErrConservationViolation, gross.Dec(), total.Dec())
	}
	return nil
}
