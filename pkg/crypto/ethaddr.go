package crypto

import (
	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress parses a 20-byte hex address. The "0x"/"0X" prefix is optional
// and letter case is ignored, so both checksummed and all-lower/all-upper
// forms are accepted. Anything else (wrong length, non-hex chars, empty)
// reports ok=false.
func ParseAddress(raw string) (common.Address, bool) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// MustParseAddress is ParseAddress for constants; it panics on malformed input.
func MustParseAddress(raw string) common.Address {
	addr, ok := ParseAddress(raw)
	if !ok {
		panic("crypto: malformed address " + raw)
	}
	return addr
}
