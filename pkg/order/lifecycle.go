package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smolpuddle/puddle/pkg/crypto"
)

// Fields is a trade intent as a UI or CLI collects it: addresses are still
// strings and are parsed by Construct.
type Fields struct {
	Seller     string
	Currency   Currency
	Ask        RawAsset
	Sell       RawAsset
	Fees       []RawFee
	Expiration *big.Int
	Salt       common.Hash
}

// RawAsset is an AssetRef with an unparsed token address.
type RawAsset struct {
	Token      string
	AmountOrID *big.Int
}

// RawFee is a Fee with an unparsed recipient address.
type RawFee struct {
	Recipient  string
	AmountOrID *big.Int
}

// Construct parses the addresses in in and assembles a Constructor.
// Malformed addresses fail with ErrAddressFormat, numeric fields that do not
// fit uint256 with ErrOutOfRange.
func Construct(in Fields) (Constructor, error) {
	seller, err := parseAddress("seller", in.Seller)
	if err != nil {
		return Constructor{}, err
	}
	askToken, err := parseAddress("ask.token", in.Ask.Token)
	if err != nil {
		return Constructor{}, err
	}
	sellToken, err := parseAddress("sell.token", in.Sell.Token)
	if err != nil {
		return Constructor{}, err
	}

	fees := make([]Fee, len(in.Fees))
	for i, raw := range in.Fees {
		recipient, err := parseAddress(fmt.Sprintf("fees[%d].recipient", i), raw.Recipient)
		if err != nil {
			return Constructor{}, err
		}
		fees[i] = Fee{Recipient: recipient, AmountOrID: raw.AmountOrID}
	}

	return NewConstructor(
		seller,
		in.Currency,
		AssetRef{Token: askToken, AmountOrID: in.Ask.AmountOrID},
		AssetRef{Token: sellToken, AmountOrID: in.Sell.AmountOrID},
		fees,
		in.Expiration,
		in.Salt,
	)
}

func parseAddress(field, raw string) (common.Address, error) {
	addr, ok := crypto.ParseAddress(raw)
	if !ok {
		return common.Address{}, &AddressFormatError{Field: field, Raw: raw}
	}
	return addr, nil
}

// NewConstructor assembles a Constructor from typed values. Every numeric
// field is range-checked here, which is what makes Finalize total. Inputs are
// copied; later changes to the caller's big.Ints or fee slice do not leak in.
func NewConstructor(seller common.Address, currency Currency, ask, sell AssetRef, fees []Fee, expiration *big.Int, salt common.Hash) (Constructor, error) {
	if !currency.Known() {
		return Constructor{}, &EncodingError{Field: "currency", Value: fmt.Sprint(uint8(currency))}
	}
	if _, err := toWord("ask.amountOrId", ask.AmountOrID); err != nil {
		return Constructor{}, err
	}
	if _, err := toWord("sell.amountOrId", sell.AmountOrID); err != nil {
		return Constructor{}, err
	}
	if _, err := toWord("expiration", expiration); err != nil {
		return Constructor{}, err
	}

	copied := make([]Fee, len(fees))
	for i, fee := range fees {
		if _, err := toWord(feeField(i), fee.AmountOrID); err != nil {
			return Constructor{}, err
		}
		copied[i] = fee.clone()
	}

	return Constructor{fields: fields{
		seller:     seller,
		currency:   currency,
		ask:        ask.clone(),
		sell:       sell.clone(),
		fees:       copied,
		expiration: copyInt(expiration),
		salt:       salt,
	}}, nil
}

// Finalize computes the order hash and returns the unsigned order.
func Finalize(c Constructor) Unsigned {
	h, err := c.computeHash()
	if err != nil {
		// NewConstructor range-checks every field and the zero Constructor
		// is all zeros, so no reachable Constructor lands here.
		panic(fmt.Errorf("order: finalize: %w", err))
	}
	return Unsigned{fields: c.fields, hash: h}
}

// AttachSignature binds signature to u. The signature is not verified here;
// the contract does that. Empty signatures fail with ErrSignatureFormat.
func AttachSignature(u Unsigned, signature []byte) (Order, error) {
	if len(signature) == 0 {
		return Order{}, fmt.Errorf("%w: empty signature", ErrSignatureFormat)
	}
	return Order{
		fields:    u.fields,
		hash:      u.hash,
		signature: append([]byte(nil), signature...),
	}, nil
}

// VerifyHash recomputes the canonical hash and compares it with the carried
// one. Orders built by ValidateShape carry whatever hash the sender declared;
// callers that need more than a shape check run this.
func (o Order) VerifyHash() error {
	h, err := o.computeHash()
	if err != nil {
		return err
	}
	if h != o.hash {
		return fmt.Errorf("%w: carried %s, computed %s", ErrHashMismatch, o.hash.Hex(), h.Hex())
	}
	return nil
}

// Expired reports whether the order expiration (unix seconds) is at or
// before now. An expiration of zero never expires.
func (f fields) Expired(now time.Time) bool {
	if f.expiration == nil || f.expiration.Sign() == 0 {
		return false
	}
	return f.expiration.Cmp(big.NewInt(now.Unix())) <= 0
}

// NewSalt returns 32 random bytes for the order salt.
func NewSalt() (common.Hash, error) {
	var salt common.Hash
	if _, err := rand.Read(salt[:]); err != nil {
		return common.Hash{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}
