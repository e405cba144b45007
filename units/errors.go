package units

import "errors"

// ErrInvalidAmount indicates a string that cannot be represented in units.
var ErrInvalidAmount = errors.New("units: invalid amount")
