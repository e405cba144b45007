package reward

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Category is a reward type.
type Category uint8

const (
	Daily Category = iota
	DirectReferral
	TeamReferral
	FomoPool

	numCategories
)

var categoryNames = [...]string{"daily", "direct_referral", "team_referral", "fomo_pool"}

func (c Category) String() string {
	if c < numCategories {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool { return c < numCategories }

// ParseCategory maps a name such as "team_referral" to its Category.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range categoryNames {
		if n == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRewardType, s)
}

// CapScope decides what the team cap blocks once reached.
type CapScope uint8

const (
	// CapScopeCategory blocks only further team referral grants.
	CapScopeCategory CapScope = iota
	// CapScopeAll blocks every category for the holder.
	CapScopeAll
)

func (s CapScope) String() string {
	if s == CapScopeAll {
		return "all"
	}
	return "category"
}

// ParseCapScope maps "category" or "all" to a CapScope.
func ParseCapScope(s string) (CapScope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "category":
		return CapScopeCategory, nil
	case "all":
		return CapScopeAll, nil
	}
	return 0, fmt.Errorf("%w: cap scope %q", ErrInvalidOptions, s)
}

// Ledger is the reward state of one holder. All amounts are reward-token
// units except TeamValue, which is the quote value counted against the cap.
type Ledger struct {
	Holder         common.Address
	Categories     [numCategories]uint256.Int
	TeamValue      uint256.Int
	TotalReward    uint256.Int
	ClaimedReward  uint256.Int
	TeamCapReached bool
}

// Total returns the cumulative amount credited to category c.
func (l Ledger) Total(c Category) *uint256.Int {
	if !c.Valid() {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(&l.Categories[c])
}

// Claimable returns TotalReward - ClaimedReward.
func (l Ledger) Claimable() *uint256.Int {
	return new(uint256.Int).Sub(&l.TotalReward, &l.ClaimedReward)
}

// GrantResult describes one grant.
type GrantResult struct {
	Holder   common.Address
	Category Category
	Amount   *uint256.Int // requested
	Credited *uint256.Int // actually added
	// CapReached is set when this grant hit the team cap.
	CapReached bool
}

// ClaimResult describes one claim.
type ClaimResult struct {
	Holder   common.Address
	Amount   *uint256.Int // charged against the claimable balance
	Withheld *uint256.Int // sent to the swap
	QuoteOut *uint256.Int // deposited into event funding
	Paid     *uint256.Int // paid to the holder
}
