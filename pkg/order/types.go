// Package order models SmolPuddle trade orders: construction, the canonical
// ABI tuple, the EIP-712 style content hash and the unsigned -> signed
// transition. Everything here is pure; values are immutable once built.
package order

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Currency selects how ask/sell amountOrId fields are read by the contract.
type Currency uint8

const (
	CurrencyInvalid Currency = iota
	CurrencyNftToNft
	CurrencyBuyNFT
	CurrencySellNFT
)

func (c Currency) String() string {
	switch c {
	case CurrencyInvalid:
		return "Invalid"
	case CurrencyNftToNft:
		return "NftToNft"
	case CurrencyBuyNFT:
		return "BuyNFT"
	case CurrencySellNFT:
		return "SellNFT"
	default:
		return fmt.Sprintf("Currency(%d)", uint8(c))
	}
}

// Known reports whether c is one of the enumerated kinds (Invalid included).
func (c Currency) Known() bool {
	return c <= CurrencySellNFT
}

// AssetRef is a token plus either a fungible amount or an NFT token id.
type AssetRef struct {
	Token      common.Address
	AmountOrID *big.Int
}

func (a AssetRef) clone() AssetRef {
	return AssetRef{Token: a.Token, AmountOrID: copyInt(a.AmountOrID)}
}

// Fee is one payout taken from the trade. Order in a fee list is significant.
type Fee struct {
	Recipient  common.Address
	AmountOrID *big.Int
}

func (f Fee) clone() Fee {
	return Fee{Recipient: f.Recipient, AmountOrID: copyInt(f.AmountOrID)}
}

// fields are the hashed order fields shared by every lifecycle stage.
// Accessors return copies; nothing outside the package can reach the
// underlying values.
type fields struct {
	seller     common.Address
	currency   Currency
	ask        AssetRef
	sell       AssetRef
	fees       []Fee
	expiration *big.Int
	salt       common.Hash
}

func (f fields) Seller() common.Address { return f.seller }
func (f fields) Currency() Currency     { return f.currency }
func (f fields) Ask() AssetRef          { return f.ask.clone() }
func (f fields) Sell() AssetRef         { return f.sell.clone() }
func (f fields) Expiration() *big.Int   { return copyInt(f.expiration) }
func (f fields) Salt() common.Hash      { return f.salt }

// Collections returns the NFT contract(s) an order trades. A BuyNFT order
// sells the NFT for the ask amount, a SellNFT order asks for it.
func (f fields) Collections() []common.Address {
	switch f.currency {
	case CurrencySellNFT:
		return []common.Address{f.ask.Token}
	case CurrencyNftToNft:
		if f.ask.Token == f.sell.Token {
			return []common.Address{f.sell.Token}
		}
		return []common.Address{f.sell.Token, f.ask.Token}
	default:
		return []common.Address{f.sell.Token}
	}
}

// Fees returns a copy of the fee list in its original order.
func (f fields) Fees() []Fee {
	out := make([]Fee, len(f.fees))
	for i, fee := range f.fees {
		out[i] = fee.clone()
	}
	return out
}

// Constructor is a validated trade intent with no hash and no signature.
// Build one with NewConstructor or Construct.
type Constructor struct {
	fields
}

// Unsigned is a Constructor plus its canonical hash, computed once by
// Finalize.
type Unsigned struct {
	fields
	hash common.Hash
}

// Hash returns the canonical order hash.
func (u Unsigned) Hash() common.Hash { return u.hash }

// Constructor returns the fields the hash was computed from.
func (u Unsigned) Constructor() Constructor { return Constructor{fields: u.fields} }

// Order is a signed order. It is produced by AttachSignature, Sign, or by
// ValidateShape for values that arrive from an untrusted boundary.
type Order struct {
	fields
	hash      common.Hash
	signature []byte
}

// Hash returns the order hash carried by the order.
func (o Order) Hash() common.Hash { return o.hash }

// Signature returns a copy of the attached signature bytes.
func (o Order) Signature() []byte { return append([]byte(nil), o.signature...) }

// Unsigned drops the signature. The hash is recomputed from the fields, so a
// declared hash that was never verified does not carry over.
func (o Order) Unsigned() Unsigned { return Finalize(o.Constructor()) }

// Constructor returns the hashed fields.
func (o Order) Constructor() Constructor { return Constructor{fields: o.fields} }
