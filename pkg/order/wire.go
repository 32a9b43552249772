package order

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Quantity is a big integer on the wire. It marshals as a decimal string and
// unmarshals from a decimal or 0x-hex string, a bare JSON number, or the
// {"type":"BigNumber","hex":"0x.."} object browsers persist.
type Quantity struct {
	*big.Int
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	if q.Int == nil {
		return []byte(`"0"`), nil
	}
	return json.Marshal(q.Int.String())
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return errors.New("null quantity")
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return q.parse(s)
	case len(data) > 0 && data[0] == '{':
		var obj struct {
			Hex string `json:"hex"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.Hex == "" {
			return errors.New("quantity object without hex")
		}
		return q.parse(obj.Hex)
	default:
		return q.parse(string(data))
	}
}

func (q *Quantity) parse(s string) error {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok || s == "" {
		return fmt.Errorf("invalid quantity %q", s)
	}
	q.Int = v
	return nil
}

// WireAsset is AssetRef on the wire.
type WireAsset struct {
	Token      string   `json:"token"`
	AmountOrID Quantity `json:"amountOrId"`
}

// WireFee is Fee on the wire.
type WireFee struct {
	Recipient  string   `json:"recipient"`
	AmountOrID Quantity `json:"amountOrId"`
}

// UnmarshalJSON also accepts the misspelled "amontOrId" key older clients
// persisted; "amountOrId" wins when both are present.
func (f *WireFee) UnmarshalJSON(data []byte) error {
	type plain WireFee
	var aux struct {
		plain
		Legacy *Quantity `json:"amontOrId"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*f = WireFee(aux.plain)
	if f.AmountOrID.Int == nil && aux.Legacy != nil {
		f.AmountOrID = *aux.Legacy
	}
	return nil
}

// WireOrder is the JSON form exchanged with UIs, the store and peers.
// Hash is a pointer so a missing field can be told apart from an empty one.
type WireOrder struct {
	Hash       *string   `json:"hash"`
	Currency   uint8     `json:"currency"`
	Seller     string    `json:"seller"`
	Ask        WireAsset `json:"ask"`
	Sell       WireAsset `json:"sell"`
	Fees       []WireFee `json:"fees"`
	Expiration Quantity  `json:"expiration"`
	Salt       string    `json:"salt"`
	Signature  string    `json:"signature,omitempty"`
}

func (f fields) wire() WireOrder {
	fees := make([]WireFee, len(f.fees))
	for i, fee := range f.fees {
		fees[i] = WireFee{Recipient: fee.Recipient.Hex(), AmountOrID: Quantity{copyInt(fee.AmountOrID)}}
	}
	return WireOrder{
		Currency:   uint8(f.currency),
		Seller:     f.seller.Hex(),
		Ask:        WireAsset{Token: f.ask.Token.Hex(), AmountOrID: Quantity{copyInt(f.ask.AmountOrID)}},
		Sell:       WireAsset{Token: f.sell.Token.Hex(), AmountOrID: Quantity{copyInt(f.sell.AmountOrID)}},
		Fees:       fees,
		Expiration: Quantity{copyInt(f.expiration)},
		Salt:       f.salt.Hex(),
	}
}

// Wire returns the JSON form of the signed order.
func (o Order) Wire() WireOrder {
	w := o.wire()
	h := o.hash.Hex()
	w.Hash = &h
	w.Signature = hexutil.Encode(o.signature)
	return w
}

func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Wire())
}

func (u Unsigned) MarshalJSON() ([]byte, error) {
	w := u.wire()
	h := u.hash.Hex()
	w.Hash = &h
	return json.Marshal(w)
}

// ValidateShape turns an untrusted JSON candidate into an Order. It checks
// that hash is present and is a non-empty 32-byte hex string, and that every
// other field decodes into the typed model. The declared hash is kept
// as-is; use Order.VerifyHash to compare it with the canonical one.
func ValidateShape(candidate []byte) (Order, error) {
	var w WireOrder
	if err := json.Unmarshal(candidate, &w); err != nil {
		return Order{}, decodeError(err)
	}
	return w.Order()
}

// ValidateShapes is ValidateShape for a JSON array; one bad element rejects
// the whole array.
func ValidateShapes(candidate []byte) ([]Order, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(candidate, &raws); err != nil {
		return nil, decodeError(err)
	}
	out := make([]Order, 0, len(raws))
	for i, raw := range raws {
		o, err := ValidateShape(raw)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, o)
	}
	return out, nil
}

// Order validates the wire value and converts it.
func (w WireOrder) Order() (Order, error) {
	if w.Hash == nil {
		return Order{}, &ValidationError{Field: "hash", Reason: "missing"}
	}
	if *w.Hash == "" {
		return Order{}, &ValidationError{Field: "hash", Reason: "empty"}
	}
	hash, err := decodeBytes32(*w.Hash)
	if err != nil {
		return Order{}, &ValidationError{Field: "hash", Reason: "not a 32-byte hex string", Err: err}
	}

	salt, err := decodeBytes32(w.Salt)
	if err != nil {
		return Order{}, &ValidationError{Field: "salt", Reason: "not a 32-byte hex string", Err: err}
	}

	if w.Signature == "" {
		return Order{}, &ValidationError{Field: "signature", Reason: "missing"}
	}
	signature, err := hexutil.Decode(w.Signature)
	if err != nil {
		return Order{}, &ValidationError{Field: "signature", Reason: "not hex", Err: err}
	}

	if err := w.requireQuantities(); err != nil {
		return Order{}, err
	}

	raw := Fields{
		Seller:     w.Seller,
		Currency:   Currency(w.Currency),
		Ask:        RawAsset{Token: w.Ask.Token, AmountOrID: w.Ask.AmountOrID.Int},
		Sell:       RawAsset{Token: w.Sell.Token, AmountOrID: w.Sell.AmountOrID.Int},
		Fees:       make([]RawFee, len(w.Fees)),
		Expiration: w.Expiration.Int,
		Salt:       salt,
	}
	for i, fee := range w.Fees {
		raw.Fees[i] = RawFee{Recipient: fee.Recipient, AmountOrID: fee.AmountOrID.Int}
	}

	c, err := Construct(raw)
	if err != nil {
		return Order{}, &ValidationError{Field: errField(err), Err: err}
	}

	o, err := AttachSignature(Unsigned{fields: c.fields, hash: hash}, signature)
	if err != nil {
		return Order{}, &ValidationError{Field: "signature", Err: err}
	}
	return o, nil
}

// requireQuantities rejects numeric fields whose key was absent. Quantity
// refuses null, so a nil Int only comes from a missing key.
func (w WireOrder) requireQuantities() error {
	if w.Ask.AmountOrID.Int == nil {
		return &ValidationError{Field: "ask.amountOrId", Reason: "missing"}
	}
	if w.Sell.AmountOrID.Int == nil {
		return &ValidationError{Field: "sell.amountOrId", Reason: "missing"}
	}
	for i, fee := range w.Fees {
		if fee.AmountOrID.Int == nil {
			return &ValidationError{Field: feeField(i), Reason: "missing"}
		}
	}
	if w.Expiration.Int == nil {
		return &ValidationError{Field: "expiration", Reason: "missing"}
	}
	return nil
}

func decodeBytes32(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("got %d bytes", len(b))
	}
	return common.BytesToHash(b), nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ValidationError{Field: typeErr.Field, Reason: "wrong type", Err: err}
	}
	return &ValidationError{Reason: "malformed json", Err: err}
}

func errField(err error) string {
	var addrErr *AddressFormatError
	if errors.As(err, &addrErr) {
		return addrErr.Field
	}
	var encErr *EncodingError
	if errors.As(err, &encErr) {
		return encErr.Field
	}
	return ""
}
