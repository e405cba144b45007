// Package address derives and parses the account addresses used across the
// ledger.
package address

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// LabelPrefix marks a string as a label rather than a hex address.
const LabelPrefix = "@"

// Zero is the zero address.
var Zero = common.Address{}

// FromLabel returns the last 20 bytes of Keccak-256(label).
// The mapping is stable, so configs and scenarios can name accounts
// ("@node-fee", "@alice") instead of spelling out hex.
func FromLabel(label string) common.Address {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(label))
	sum := h.Sum(nil)
	return common.BytesToAddress(sum[12:])
}

// Parse accepts either a 0x-prefixed hex address or an @label.
func Parse(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, LabelPrefix) {
		label := strings.TrimPrefix(s, LabelPrefix)
		if label == "" {
			return Zero, fmt.Errorf("%w: empty label", ErrInvalidAddress)
		}
		return FromLabel(label), nil
	}
	if !common.IsHexAddress(s) {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level defaults.
func MustParse(s string) common.Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether a is the zero address.
func IsZero(a common.Address) bool {
	return a == Zero
}
