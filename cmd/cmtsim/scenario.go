package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"github.com/cmtlabs/libcmt-go/config"
	"github.com/cmtlabs/libcmt-go/engine"
	"github.com/cmtlabs/libcmt-go/reward"
	"github.com/cmtlabs/libcmt-go/token"
	"github.com/cmtlabs/libcmt-go/units"
)

var (
	errUnknownOp      = errors.New("cmtsim: unknown op")
	errMissingField   = errors.New("cmtsim: missing field")
	errInvalidValue   = errors.New("cmtsim: invalid value")
	errUnexpectedPass = errors.New("cmtsim: step succeeded but an error was expected")
)

// Scenario is a replayable list of steps.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
	// Report lists extra addresses to print besides those the steps touch.
	Report []string `yaml:"report"`
}

// Step is one engine operation. Amounts are human-unit decimal strings and
// addresses are hex or @label.
type Step struct {
	Op          string       `yaml:"op"`
	Caller      string       `yaml:"caller"`
	From        string       `yaml:"from"`
	To          string       `yaml:"to"`
	Holder      string       `yaml:"holder"`
	Account     string       `yaml:"account"`
	Amount      string       `yaml:"amount"`
	Quote       string       `yaml:"quote"`
	Category    string       `yaml:"category"`
	Status      string       `yaml:"status"`
	On          bool         `yaml:"on"`
	Round       uint64       `yaml:"round"`
	Duration    string       `yaml:"duration"`
	Allocations []Allocation `yaml:"allocations"`

	// ExpectError makes the step pass only if it fails with an error whose
	// message contains this text.
	ExpectError string `yaml:"expect_error"`
}

// Allocation is one initial allocation entry.
type Allocation struct {
	To     string `yaml:"to"`
	Amount string `yaml:"amount"`
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cmtsim: read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("cmtsim: decode scenario: %w", err)
	}
	return &sc, nil
}

// runner replays steps and remembers every address it touched.
type runner struct {
	sys      *engine.System
	decimals int32
	seen     map[common.Address]string
	order    []common.Address
}

func newRunner(sys *engine.System) *runner {
	return &runner{sys: sys, decimals: sys.Settings().Decimals, seen: make(map[common.Address]string)}
}

func (r *runner) addr(field, s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, fmt.Errorf("%w: %s", errMissingField, field)
	}
	a, err := config.ParseAddress(s)
	if err != nil {
		return common.Address{}, err
	}
	if _, ok := r.seen[a]; !ok {
		r.seen[a] = s
		r.order = append(r.order, a)
	}
	return a, nil
}

func (r *runner) amount(field, s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: %s", errMissingField, field)
	}
	return units.Parse(s, r.decimals)
}

// Run replays every step of sc. It stops at the first step that does not
// behave as the scenario says.
func (r *runner) Run(sc *Scenario) error {
	for _, s := range sc.Report {
		if _, err := r.addr("report", s); err != nil {
			return err
		}
	}
	for i, st := range sc.Steps {
		err := r.step(st)
		switch {
		case st.ExpectError != "" && err == nil:
			return fmt.Errorf("step %d (%s): %w", i, st.Op, errUnexpectedPass)
		case st.ExpectError != "" && !strings.Contains(err.Error(), st.ExpectError):
			return fmt.Errorf("step %d (%s): want error containing %q: %w", i, st.Op, st.ExpectError, err)
		case st.ExpectError == "" && err != nil:
			return fmt.Errorf("step %d (%s): %w", i, st.Op, err)
		}
	}
	return nil
}

func (r *runner) step(st Step) error {
	switch strings.ToLower(st.Op) {
	case "allocate":
		caller, err := r.addr("caller", st.Caller)
		if err != nil {
			return err
		}
		allocs := make([]token.Allocation, 0, len(st.Allocations))
		for _, a := range st.Allocations {
			to, err := r.addr("allocations.to", a.To)
			if err != nil {
				return err
			}
			amt, err := r.amount("allocations.amount", a.Amount)
			if err != nil {
				return err
			}
			allocs = append(allocs, token.Allocation{To: to, Amount: amt})
		}
		return r.sys.Allocate(caller, allocs)

	case "transfer":
		from, err := r.addr("from", st.From)
		if err != nil {
			return err
		}
		to, err := r.addr("to", st.To)
		if err != nil {
			return err
		}
		caller := from
		if st.Caller != "" {
			if caller, err = r.addr("caller", st.Caller); err != nil {
				return err
			}
		}
		amt, err := r.amount("amount", st.Amount)
		if err != nil {
			return err
		}
		_, err = r.sys.Transfer(caller, from, to, amt)
		return err

	case "buy":
		to, err := r.addr("to", st.To)
		if err != nil {
			return err
		}
		quote, err := r.amount("quote", st.Quote)
		if err != nil {
			return err
		}
		_, err = r.sys.Buy(to, quote)
		return err

	case "sell":
		from, err := r.addr("from", st.From)
		if err != nil {
			return err
		}
		amt, err := r.amount("amount", st.Amount)
		if err != nil {
			return err
		}
		_, err = r.sys.Sell(from, amt)
		return err

	case "add_liquidity":
		from, err := r.addr("from", st.From)
		if err != nil {
			return err
		}
		amt, err := r.amount("amount", st.Amount)
		if err != nil {
			return err
		}
		quote, err := r.amount("quote", st.Quote)
		if err != nil {
			return err
		}
		_, err = r.sys.AddLiquidity(from, amt, quote)
		return err

	case "advance":
		d, err := time.ParseDuration(st.Duration)
		if err != nil {
			return fmt.Errorf("%w: duration %q", engine.ErrInvalidDuration, st.Duration)
		}
		_, err = r.sys.Advance(d)
		return err

	case "set_pool":
		caller, a, err := r.callerAccount(st)
		if err != nil {
			return err
		}
		status, err := parsePoolStatus(st.Status)
		if err != nil {
			return err
		}
		return r.sys.SetPool(caller, a, status)

	case "set_whitelisted":
		caller, a, err := r.callerAccount(st)
		if err != nil {
			return err
		}
		return r.sys.SetWhitelisted(caller, a, st.On)

	case "set_special":
		caller, a, err := r.callerAccount(st)
		if err != nil {
			return err
		}
		return r.sys.SetSpecial(caller, a, st.On)

	case "set_referrer":
		holder, err := r.addr("holder", st.Holder)
		if err != nil {
			return err
		}
		ref, err := r.addr("account", st.Account)
		if err != nil {
			return err
		}
		return r.sys.SetReferrer(holder, ref)

	case "deposit":
		holder, err := r.addr("holder", st.Holder)
		if err != nil {
			return err
		}
		amt, err := r.amount("amount", st.Amount)
		if err != nil {
			return err
		}
		_, err = r.sys.Deposit(holder, amt)
		return err

	case "end_round":
		holder, err := r.addr("holder", st.Holder)
		if err != nil {
			return err
		}
		_, err = r.sys.EndRound(holder, st.Round)
		return err

	case "grant":
		caller, err := r.addr("caller", st.Caller)
		if err != nil {
			return err
		}
		holder, err := r.addr("holder", st.Holder)
		if err != nil {
			return err
		}
		amt, err := r.amount("amount", st.Amount)
		if err != nil {
			return err
		}
		cat, err := reward.ParseCategory(st.Category)
		if err != nil {
			return err
		}
		_, err = r.sys.Grant(caller, holder, amt, cat)
		return err

	case "claim":
		holder, err := r.addr("holder", st.Holder)
		if err != nil {
			return err
		}
		amt, err := r.amount("amount", st.Amount)
		if err != nil {
			return err
		}
		_, err = r.sys.Claim(holder, amt)
		return err
	}
	return fmt.Errorf("%w: %q", errUnknownOp, st.Op)
}

func (r *runner) callerAccount(st Step) (common.Address, common.Address, error) {
	caller, err := r.addr("caller", st.Caller)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	a, err := r.addr("account", st.Account)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return caller, a, nil
}

func parsePoolStatus(s string) (token.PoolStatus, error) {
	switch strings.ToLower(s) {
	case "pool", "known":
		return token.KnownPool, nil
	case "not-pool", "none":
		return token.NotPool, nil
	case "unknown", "":
		return token.Unknown, nil
	}
	return 0, fmt.Errorf("%w: pool status %q", errInvalidValue, s)
}
