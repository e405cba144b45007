package token

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cmtlabs/libcmt-go/journal"
)

// PoolStatus is the answer to "is this address an AMM pool?".
type PoolStatus uint8

const (
	// NotPool is a regular account.
	NotPool PoolStatus = iota
	// KnownPool is a recognised AMM pair.
	KnownPool
	// Unknown means the registry has no information; it classifies as NotPool.
	Unknown
)

func (s PoolStatus) String() string {
	switch s {
	case NotPool:
		return "not-pool"
	case KnownPool:
		return "pool"
	default:
		return "unknown"
	}
}

// PoolRegistry answers pool membership for transfer classification.
type PoolRegistry interface {
	PoolStatus(addr common.Address) PoolStatus
}

// Registry is a journaled in-memory PoolRegistry. Addresses never set report
// Unknown.
type Registry struct {
	status map[common.Address]PoolStatus
	j      *journal.Journal
}

// Compile-time interface check.
var _ PoolRegistry = (*Registry)(nil)

// NewRegistry creates an empty registry. j may be nil.
func NewRegistry(j *journal.Journal) *Registry {
	return &Registry{status: make(map[common.Address]PoolStatus), j: j}
}

// PoolStatus implements PoolRegistry.
func (r *Registry) PoolStatus(addr common.Address) PoolStatus {
	if s, ok := r.status[addr]; ok {
		return s
	}
	return Unknown
}

// Set records the status of addr.
func (r *Registry) Set(addr common.Address, s PoolStatus) {
	prev, had := r.status[addr]
	r.status[addr] = s
	r.j.Record(func() {
		if had {
			r.status[addr] = prev
		} else {
			delete(r.status, addr)
		}
	})
}

// Pools returns every address marked KnownPool, ordered by address.
func (r *Registry) Pools() []common.Address {
	var out []common.Address
	for a, s := range r.status {
		if s == KnownPool {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, k int) bool { return bytes.Compare(out[i][:], out[k][:]) < 0 })
	return out
}

// Classify labels a transfer. A pool sender makes it a buy, checked first,
// so a pool-to-pool transfer is a buy.
func Classify(r PoolRegistry, from, to common.Address) Classification {
	if r.PoolStatus(from) == KnownPool {
		return Buy
	}
	if r.PoolStatus(to) == KnownPool {
		return Sell
	}
	return Normal
}

// PoolEntry is one persisted registry entry.
type PoolEntry struct {
	Address common.Address
	Status  PoolStatus
}

// Entries returns every recorded address, ordered by address.
func (r *Registry) Entries() []PoolEntry {
	out := make([]PoolEntry, 0, len(r.status))
	for a, s := range r.status {
		out = append(out, PoolEntry{Address: a, Status: s})
	}
	sort.Slice(out, func(i, k int) bool { return bytes.Compare(out[i].Address[:], out[k].Address[:]) < 0 })
	return out
}

// Load replaces the registry contents. It is not journaled.
func (r *Registry) Load(entries []PoolEntry) {
	r.status = make(map[common.Address]PoolStatus, len(entries))
	for _, e := range entries {
		r.status[e.Address] = e.Status
	}
}
