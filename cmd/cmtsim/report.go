package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/cmtlabs/libcmt-go/engine"
	"github.com/cmtlabs/libcmt-go/units"
)

// writeReport prints market state and every address the run touched.
func writeReport(w io.Writer, sys *engine.System, r *runner) error {
	dec := sys.Settings().Decimals

	tokenReserve, quoteReserve := sys.Reserves()
	fmt.Fprintf(w, "seq %d  now %s  market age %s\n", sys.Seq(), sys.Now().UTC().Format(time.RFC3339), sys.MarketAge())
	fmt.Fprintf(w, "reserves %s token / %s quote", units.Format(tokenReserve, dec), units.Format(quoteReserve, dec))
	if p, err := sys.SpotPrice(); err == nil {
		fmt.Fprintf(w, "  price %s", p.StringFixed(6))
	}
	fmt.Fprintf(w, "\nsupply %s  funding %s\n\n", units.Format(sys.TotalSupply(), dec), units.Format(sys.FundingTotal(), dec))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tBALANCE\tCOST BASIS\tSTAKED\tREWARDS\tCLAIMABLE\t")
	for _, a := range r.order {
		l := sys.RewardLedger(a)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.seen[a],
			units.Format(sys.BalanceOf(a), dec),
			units.Format(sys.CostBasisOf(a), dec),
			units.Format(sys.TotalStaked(a), dec),
			units.Format(&l.TotalReward, dec),
			units.Format(l.Claimable(), dec),
		)
	}
	return tw.Flush()
}
