package order

import (
	"math/big"

	"github.com/holiman/uint256"
)

// toWord range-checks v and returns it as an unsigned 256-bit value.
// A nil v is zero.
func toWord(field string, v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, &EncodingError{Field: field, Value: v.String()}
	}
	w, overflow := uint256.FromBig(v)
	if overflow {
		return nil, &EncodingError{Field: field, Value: v.String()}
	}
	return w, nil
}

// word32 is toWord rendered as 32 big-endian bytes.
func word32(field string, v *big.Int) ([32]byte, error) {
	w, err := toWord(field, v)
	if err != nil {
		return [32]byte{}, err
	}
	return w.Bytes32(), nil
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
