package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/smolpuddle/puddle/pkg/crypto"
	"github.com/smolpuddle/puddle/pkg/order"
)

var (
	// ErrNoSigner is returned by transacting calls on a read-only Caller.
	ErrNoSigner = errors.New("caller has no signer")

	// ErrNotOpen is returned when swapping an order the contract no longer
	// considers open.
	ErrNotOpen = errors.New("order is not open")
)

// Backend is the part of *ethclient.Client the Caller uses.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Dial connects to an RPC endpoint.
func Dial(rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	return client, nil
}

// Caller sends SmolPuddle transactions and reads order status.
type Caller struct {
	backend  Backend
	contract common.Address
	chainID  *big.Int
	signer   *crypto.Signer
}

// NewCaller creates a Caller. signer may be nil for a read-only caller.
func NewCaller(backend Backend, contract common.Address, chainID int64, signer *crypto.Signer) *Caller {
	return &Caller{
		backend:  backend,
		contract: contract,
		chainID:  big.NewInt(chainID),
		signer:   signer,
	}
}

// Contract returns the contract address the caller targets.
func (c *Caller) Contract() common.Address { return c.contract }

// Status reads the on-chain status of an order hash.
func (c *Caller) Status(ctx context.Context, hash common.Hash) (OrderStatus, error) {
	data, err := PackStatus(hash)
	if err != nil {
		return 0, err
	}
	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to call status: %w", err)
	}
	return UnpackStatus(result)
}

// Swap fills o, sending value wei along with the call. The order must still
// be open on chain.
func (c *Caller) Swap(ctx context.Context, o order.Order, value *big.Int) (*types.Transaction, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	status, err := c.Status(ctx, o.Hash())
	if err != nil {
		return nil, err
	}
	if status != StatusOpen {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotOpen, o.Hash().Hex(), status)
	}

	data, err := PackSwap(o)
	if err != nil {
		return nil, err
	}
	tx, err := c.transact(ctx, data, value)
	if err != nil {
		return nil, fmt.Errorf("failed to execute swap: %w", err)
	}
	return tx, nil
}

// Cancel cancels t on chain. Only the seller's transaction succeeds.
func (c *Caller) Cancel(ctx context.Context, t Tuple) (*types.Transaction, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	data, err := PackCancel(t)
	if err != nil {
		return nil, err
	}
	tx, err := c.transact(ctx, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to execute cancel: %w", err)
	}
	return tx, nil
}

// transact builds, signs and sends a legacy EIP-155 transaction to the
// contract.
func (c *Caller) transact(ctx context.Context, data []byte, value *big.Int) (*types.Transaction, error) {
	if value == nil {
		value = new(big.Int)
	}
	from := c.signer.Address()

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &c.contract,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	// 20% margin over the estimate
	gas = gas * 120 / 100

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.signer.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	return signed, nil
}
