package utils

import (
	"unicode"
	"unicode/utf8"

	"github.com/tinycoin/tinycoin/errors"
)

// MaxAddressLength bounds client-supplied addresses. Addresses are
// opaque identifiers, not derived keys, so the only rules are length
// and printability.
const MaxAddressLength = 128

// ValidateAddress rejects empty, oversized, or non-printable addresses.
func ValidateAddress(addr string) error {
	if addr == "" {
		return errors.ErrInvalidAddress
	}
	if utf8.RuneCountInString(addr) > MaxAddressLength {
		return errors.NewErrorf(errors.ErrCodeInvalidAddress, "address exceeds %d characters", MaxAddressLength)
	}
	for _, r := range addr {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return errors.ErrInvalidAddress
		}
	}
	return nil
}
