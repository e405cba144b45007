// Package store persists ledger snapshots.
package store

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Amount is a 256-bit big-endian amount.
type Amount [32]byte

// AmountOf encodes v. A nil v encodes as zero.
func AmountOf(v *uint256.Int) Amount {
	if v == nil {
		return Amount{}
	}
	return v.Bytes32()
}

// Int decodes a.
func (a Amount) Int() *uint256.Int {
	return new(uint256.Int).SetBytes32(a[:])
}

// Account is a token holder.
type Account struct {
	Address   common.Address
	Balance   Amount
	CostBasis Amount
}

// Pool is a registry entry for a liquidity pair address.
type Pool struct {
	Address common.Address
	Status  uint8
}

// Stake is one staking round.
type Stake struct {
	Holder common.Address
	Round  uint64
	Tier   int
	Amount Amount
	Start  time.Time
	End    time.Time
	Status uint8
}

// Referral links a holder to its referrer.
type Referral struct {
	Holder   common.Address
	Referrer common.Address
}

// Reward is the reward ledger of one holder.
type Reward struct {
	Holder         common.Address
	Categories     []Amount
	TeamValue      Amount
	TotalReward    Amount
	ClaimedReward  Amount
	TeamCapReached bool
}

// Meta holds the scalar state.
type Meta struct {
	Seq          uint64
	SavedAt      time.Time
	Launch       time.Time
	Now          time.Time
	Allocated    bool
	TokenReserve Amount
	QuoteReserve Amount
	FundingTotal Amount
	Whitelist    []common.Address
	Specials     []common.Address
	Pools        []Pool
}

// Snapshot is the full persisted state.
type Snapshot struct {
	Meta      Meta
	Accounts  []Account
	Stakes    []Stake
	Referrals []Referral
	Rewards   []Reward
}

// Store persists the current snapshot and named checkpoints.
type Store interface {
	// Save replaces the current snapshot.
	Save(snap *Snapshot) error

	// Load returns the current snapshot.
	Load() (*Snapshot, error)

	// PutCheckpoint stores snap under name, replacing any previous one.
	PutCheckpoint(name string, snap *Snapshot) error

	// GetCheckpoint returns the checkpoint stored under name.
	GetCheckpoint(name string) (*Snapshot, error)

	// Checkpoints lists checkpoint names in ascending order.
	Checkpoints() ([]string, error)

	// DeleteCheckpoint removes the checkpoint stored under name.
	DeleteCheckpoint(name string) error
}
