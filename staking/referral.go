package staking

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cmtlabs/libcmt-go/journal"
)

// Referrals is the referrer registry. A referrer is set once and never
// overwritten.
type Referrals struct {
	referrer map[common.Address]common.Address
	referees map[common.Address][]common.Address
	j        *journal.Journal
}

// NewReferrals creates an empty registry. j may be nil.
func NewReferrals(j *journal.Journal) *Referrals {
	return &Referrals{
		referrer: make(map[common.Address]common.Address),
		referees: make(map[common.Address][]common.Address),
		j:        j,
	}
}

// Referrer returns the referrer of holder.
func (r *Referrals) Referrer(holder common.Address) (common.Address, bool) {
	ref, ok := r.referrer[holder]
	return ref, ok
}

// Referees returns the holders directly referred by referrer, in
// registration order.
func (r *Referrals) Referees(referrer common.Address) []common.Address {
	return append([]common.Address(nil), r.referees[referrer]...)
}

// SetReferrer registers referrer for holder. Self-referrals and cycles are
// rejected.
func (r *Referrals) SetReferrer(holder, referrer common.Address) error {
	if holder == (common.Address{}) || referrer == (common.Address{}) {
		return ErrZeroAddress
	}
	if _, ok := r.referrer[holder]; ok {
		return ErrReferrerAlreadySet
	}
	for a, ok := referrer, true; ok; a, ok = r.referrer[a] {
		if a == holder {
			return ErrInvalidReferrer
		}
	}

	r.referrer[holder] = referrer
	r.referees[referrer] = append(r.referees[referrer], holder)
	r.j.Record(func() {
		delete(r.referrer, holder)
		list := r.referees[referrer]
		if len(list) <= 1 {
			delete(r.referees, referrer)
		} else {
			r.referees[referrer] = list[:len(list)-1]
		}
	})
	return nil
}

// Referral is one persisted holder -> referrer link.
type Referral struct {
	Holder   common.Address
	Referrer common.Address
}

// All returns every link ordered by holder.
func (r *Referrals) All() []Referral {
	out := make([]Referral, 0, len(r.referrer))
	for h, ref := range r.referrer {
		out = append(out, Referral{Holder: h, Referrer: ref})
	}
	sort.Slice(out, func(i, k int) bool {
		return bytes.Compare(out[i].Holder[:], out[k].Holder[:]) < 0
	})
	return out
}

// Load replaces the registry contents. It is not journaled.
func (r *Referrals) Load(links []Referral) {
	r.referrer = make(map[common.Address]common.Address, len(links))
	r.referees = make(map[common.Address][]common.Address)
	for _, l := range links {
		r.referrer[l.Holder] = l.Referrer
		r.referees[l.Referrer] = append(r.referees[l.Referrer], l.Holder)
	}
}
