package order

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Hash constants bound to the deployed SmolPuddle contract. They are copied
// from the deployment as-is and must not be re-derived.
var (
	// EIP712Header prefixes the final pre-image ("\x19\x01").
	EIP712Header = [2]byte{0x19, 0x01}

	// DomainHash is the contract's EIP-712 domain separator.
	DomainHash = common.HexToHash("0x14c3299708bbadb2b92f015adeee070599f6a05570b7711a0e8b3c4be7c4f90a")

	// OrderTypehash tags the order struct inside the domain.
	OrderTypehash = common.HexToHash("0x2fbfd17f75c3304428e25fe283d35e4b98b85e5a42064810e0ab9627a545e058")
)

// keccak256 hashes the concatenation of parts with a fresh Keccak state.
func keccak256(parts ...[]byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out common.Hash
	h.Sum(out[:0])
	return out
}

// feeRecipientsHash packs recipients at 20 bytes each (no padding).
func (f fields) feeRecipientsHash() common.Hash {
	packed := make([]byte, 0, len(f.fees)*common.AddressLength)
	for _, fee := range f.fees {
		packed = append(packed, fee.Recipient.Bytes()...)
	}
	return keccak256(packed)
}

// feeAmountsHash packs amounts as 32-byte big-endian words.
func (f fields) feeAmountsHash() (common.Hash, error) {
	packed := make([]byte, 0, len(f.fees)*32)
	for i, fee := range f.fees {
		w, err := word32(feeField(i), fee.AmountOrID)
		if err != nil {
			return common.Hash{}, err
		}
		packed = append(packed, w[:]...)
	}
	return keccak256(packed), nil
}

// structHash is keccak256 over the typehash followed by every field as a
// full 32-byte word, fee lists replaced by their packed hashes.
func (f fields) structHash() (common.Hash, error) {
	askAmount, err := word32("ask.amountOrId", f.ask.AmountOrID)
	if err != nil {
		return common.Hash{}, err
	}
	sellAmount, err := word32("sell.amountOrId", f.sell.AmountOrID)
	if err != nil {
		return common.Hash{}, err
	}
	expiration, err := word32("expiration", f.expiration)
	if err != nil {
		return common.Hash{}, err
	}
	feeAmounts, err := f.feeAmountsHash()
	if err != nil {
		return common.Hash{}, err
	}
	feeRecipients := f.feeRecipientsHash()

	var currency [32]byte
	currency[31] = byte(f.currency)

	return keccak256(
		OrderTypehash[:],
		common.LeftPadBytes(f.seller.Bytes(), 32),
		currency[:],
		common.LeftPadBytes(f.ask.Token.Bytes(), 32),
		common.LeftPadBytes(f.sell.Token.Bytes(), 32),
		askAmount[:],
		sellAmount[:],
		feeRecipients[:],
		feeAmounts[:],
		expiration[:],
		f.salt[:],
	), nil
}

func (f fields) computeHash() (common.Hash, error) {
	sh, err := f.structHash()
	if err != nil {
		return common.Hash{}, err
	}
	return keccak256(EIP712Header[:], DomainHash[:], sh[:]), nil
}

// Hash computes the canonical order hash the contract verifies signatures
// against. Out-of-range numeric fields fail with ErrOutOfRange; nothing is
// truncated.
func Hash(c Constructor) (common.Hash, error) {
	return c.computeHash()
}

func feeField(i int) string {
	return fmt.Sprintf("fees[%d].amountOrId", i)
}
