package order

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smolpuddle/puddle/pkg/crypto"
)

// Sign signs the order hash with signer and attaches the signature. The hash
// already carries the EIP-712 prefix and domain, so it is signed as-is.
func Sign(u Unsigned, signer *crypto.Signer) (Order, error) {
	signature, err := signer.Sign(u.hash.Bytes())
	if err != nil {
		return Order{}, fmt.Errorf("failed to sign order: %w", err)
	}
	return AttachSignature(u, signature)
}

// RecoverSigner returns the address that produced the order's signature over
// its carried hash.
func RecoverSigner(o Order) (common.Address, error) {
	addr, err := crypto.RecoverAddress(o.hash.Bytes(), o.signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrSignatureFormat, err)
	}
	return addr, nil
}

// VerifySignature checks that the carried hash is canonical and that the
// seller signed it.
func VerifySignature(o Order) error {
	if err := o.VerifyHash(); err != nil {
		return err
	}
	signer, err := RecoverSigner(o)
	if err != nil {
		return err
	}
	if signer != o.seller {
		return fmt.Errorf("%w: recovered %s, seller %s", ErrSignerMismatch, signer.Hex(), o.seller.Hex())
	}
	return nil
}
