package address

import "errors"

// ErrInvalidAddress indicates a string is neither a hex address nor a label.
var ErrInvalidAddress = errors.New("address: invalid address")
