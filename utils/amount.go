package utils

import (
	"strings"

	"github.com/holiman/uint256"

	"github.com/tinycoin/tinycoin/errors"
)

// ParseAmount parses a client-supplied amount. Decimal is the wire
// format; 0x-prefixed hex is accepted for tooling convenience.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.ErrInvalidAmount
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := uint256.FromHex(s)
		if err != nil {
			return nil, errors.ErrInvalidAmount
		}
		return v, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, errors.ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders an amount as a decimal string, treating nil as zero.
func FormatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
