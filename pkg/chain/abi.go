// Package chain talks to the deployed SmolPuddle contract: call-data for
// swap, cancel and status, and a Caller that sends signed transactions.
package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smolpuddle/puddle/pkg/crypto"
	"github.com/smolpuddle/puddle/pkg/order"
)

// Deployment defaults.
var (
	SmolPuddleContract = crypto.MustParseAddress("0xccCA17Bc63599025762F48D4B2Bb690C640C4239")
	DefaultChainID     = int64(10000)
	DefaultRPC         = "https://smartbch.greyh.at/"
)

const orderTupleJSON = `{"name":"order","type":"tuple","components":[
	{"name":"seller","type":"address"},
	{"name":"orderType","type":"uint256"},
	{"name":"askToken","type":"address"},
	{"name":"sellToken","type":"address"},
	{"name":"askAmountOrId","type":"uint256"},
	{"name":"sellAmountOrId","type":"uint256"},
	{"name":"feeRecipients","type":"address[]"},
	{"name":"feeAmounts","type":"uint256[]"},
	{"name":"expiration","type":"uint256"},
	{"name":"salt","type":"bytes32"}]}`

const smolPuddleABIJSON = `[
	{"type":"function","name":"swap","stateMutability":"payable",
	 "inputs":[` + orderTupleJSON + `,{"name":"signature","type":"bytes"}],
	 "outputs":[]},
	{"type":"function","name":"cancel","stateMutability":"nonpayable",
	 "inputs":[` + orderTupleJSON + `],"outputs":[]},
	{"type":"function","name":"status","stateMutability":"view",
	 "inputs":[{"name":"hash","type":"bytes32"}],
	 "outputs":[{"name":"","type":"uint8"}]}
]`

var smolPuddleABI = mustParseABI(smolPuddleABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("failed to parse SmolPuddle ABI: " + err.Error())
	}
	return parsed
}

// SmolPuddleABI returns the parsed contract ABI.
func SmolPuddleABI() abi.ABI { return smolPuddleABI }

// OrderStatus is the on-chain state of an order hash.
type OrderStatus uint8

const (
	StatusOpen OrderStatus = iota
	StatusExecuted
	StatusCanceled
)

func (s OrderStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusExecuted:
		return "executed"
	case StatusCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Tuple is anything that projects into the contract's order tuple:
// order.Constructor, order.Unsigned and order.Order all do.
type Tuple interface {
	EncodeForCall() (order.EncodedStruct, error)
}

// PackSwap builds call-data for swap(order, signature).
func PackSwap(o order.Order) ([]byte, error) {
	enc, err := o.EncodeForCall()
	if err != nil {
		return nil, err
	}
	data, err := smolPuddleABI.Pack("swap", enc, o.Signature())
	if err != nil {
		return nil, fmt.Errorf("failed to pack swap: %w", err)
	}
	return data, nil
}

// PackCancel builds call-data for cancel(order). Cancelling does not need
// the signature, only the seller's transaction.
func PackCancel(t Tuple) ([]byte, error) {
	enc, err := t.EncodeForCall()
	if err != nil {
		return nil, err
	}
	data, err := smolPuddleABI.Pack("cancel", enc)
	if err != nil {
		return nil, fmt.Errorf("failed to pack cancel: %w", err)
	}
	return data, nil
}

// PackStatus builds call-data for status(hash).
func PackStatus(hash common.Hash) ([]byte, error) {
	data, err := smolPuddleABI.Pack("status", [32]byte(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to pack status: %w", err)
	}
	return data, nil
}

// UnpackStatus decodes the return data of status(hash).
func UnpackStatus(data []byte) (OrderStatus, error) {
	var status uint8
	if err := smolPuddleABI.UnpackIntoInterface(&status, "status", data); err != nil {
		return 0, fmt.Errorf("failed to unpack status: %w", err)
	}
	return OrderStatus(status), nil
}
