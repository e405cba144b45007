package fee

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// BasisPoints is the rate denominator.
const BasisPoints = 10000

// DefaultNormalFeeDelay is how long after launch the profit "normal" fee
// starts to apply.
const DefaultNormalFeeDelay = 60 * 24 * time.Hour

// Classification describes a transfer relative to the AMM pools.
type Classification uint8

const (
	// ClassNormal is a transfer where neither side is a pool.
	ClassNormal Classification = iota
	// ClassBuy is a transfer whose sender is a pool.
	ClassBuy
	// ClassSell is a transfer whose recipient is a pool.
	ClassSell
)

func (c Classification) String() string {
	switch c {
	case ClassBuy:
		return "buy"
	case ClassSell:
		return "sell"
	case ClassNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// Category names a fee destination.
type Category uint8

const (
	CategoryNode Category = iota
	CategoryCluster
	CategoryMarket
	CategoryTech
	CategorySub
	// CategoryNormal exists only for profit fees.
	CategoryNormal
)

func (c Category) String() string {
	switch c {
	case CategoryNode:
		return "node"
	case CategoryCluster:
		return "cluster"
	case CategoryMarket:
		return "market"
	case CategoryTech:
		return "tech"
	case CategorySub:
		return "sub"
	case CategoryNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// Rates holds basis-point rates (out of 10000) per category.
type Rates struct {
	Normal  uint64 // profit fees only
	Node    uint64
	Cluster uint64
	Market  uint64
	Tech    uint64
	Sub     uint64
}

// Sum returns the total of all rates.
func (r Rates) Sum() uint64 {
	return r.Normal + r.Node + r.Cluster + r.Market + r.Tech + r.Sub
}

// Destinations maps each category to the account that receives its share.
type Destinations struct {
	Normal  common.Address
	Node    common.Address
	Cluster common.Address
	Market  common.Address
	Tech    common.Address
	Sub     common.Address
}

// For returns the destination of category c.
func (d Destinations) For(c Category) common.Address {
	switch c {
	case CategoryNode:
		return d.Node
	case CategoryCluster:
		return d.Cluster
	case CategoryMarket:
		return d.Market
	case CategoryTech:
		return d.Tech
	case CategorySub:
		return d.Sub
	case CategoryNormal:
		return d.Normal
	}
	return common.Address{}
}

// Schedule is the fee configuration read on every transfer.
type Schedule struct {
	Transaction  Rates // Normal is ignored
	Profit       Rates
	Destinations Destinations

	// NormalFeeDelay is the market age below which the profit normal fee
	// is skipped entirely.
	NormalFeeDelay time.Duration
}

// DefaultSchedule returns the reference rates: 3% transaction fees and a
// 46% profit fee once the market is 60 days old.
func DefaultSchedule(dest Destinations) Schedule {
	return Schedule{
		Transaction: Rates{Node: 50, Cluster: 50, Market: 50, Tech: 100, Sub: 50},
		Profit: Rates{
			Normal: 1600, Node: 1000, Cluster: 500,
			Market: 500, Tech: 500, Sub: 500,
		},
		Destinations:   dest,
		NormalFeeDelay: DefaultNormalFeeDelay,
	}
}

// Share is one fee credit.
type Share struct {
	Category Category
	To       common.Address
	Amount   *uint256.Int
}

// Breakdown lists the shares taken from one amount.
type Breakdown []Share

// Total returns the sum of all shares.
func (b Breakdown) Total() *uint256.Int {
	total := new(uint256.Int)
	for _, s := range b {
		total.Add(total, s.Amount)
	}
	return total
}

// Amount returns the share of category c, or zero.
func (b Breakdown) Amount(c Category) *uint256.Int {
	for _, s := range b {
		if s.Category == c {
			return new(uint256.Int).Set(s.Amount)
		}
	}
	return new(uint256.Int)
}
