package fee

import "github.com/holiman/uint256"

var txOrder = [...]Category{CategoryNode, CategoryCluster, CategoryMarket, CategoryTech, CategorySub}

var profitOrder = [...]Category{CategoryNormal, CategoryNode, CategoryCluster, CategoryMarket, CategoryTech, CategorySub}

func (r Rates) rate(c Category) uint64 {
	switch c {
	case CategoryNode:
		return r.Node
	case CategoryCluster:
		return r.Cluster
	case CategoryMarket:
		return r.Market
	case CategoryTech:
		return r.Tech
	case CategorySub:
		return r.Sub
	case CategoryNormal:
		return r.Normal
	}
	return 0
}

// TransactionFee splits the transaction fee off amount. Normal transfers pay
// nothing. Each share is (amount / 10000) * rate: the division happens
// first, so amounts below 10000 units pay no fee at all.
// Zero shares are left out of the breakdown.
func (s *Schedule) TransactionFee(amount *uint256.Int, class Classification) (*uint256.Int, Breakdown) {
	net := new(uint256.Int).Set(amount)
	if class == ClassNormal {
		return net, nil
	}

	unit := new(uint256.Int).Div(amount, uint256.NewInt(BasisPoints))
	var shares Breakdown
	for _, c := range txOrder {
		v := new(uint256.Int).Mul(unit, uint256.NewInt(s.Transaction.rate(c)))
		if v.IsZero() {
			continue
		}
		shares = append(shares, Share{Category: c, To: s.Destinations.For(c), Amount: v})
		net.Sub(net, v)
	}
	return net, shares
}
