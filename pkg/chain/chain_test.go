package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smolpuddle/puddle/pkg/crypto"
	"github.com/smolpuddle/puddle/pkg/order"
)

const swapSignature = "swap((address,uint256,address,address,uint256,uint256,address[],uint256[],uint256,bytes32),bytes)"

type fakeBackend struct {
	status   uint8
	callErr  error
	calls    []ethereum.CallMsg
	sent     []*types.Transaction
	nonce    uint64
	gasPrice *big.Int
	gas      uint64
}

func (f *fakeBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls = append(f.calls, call)
	if f.callErr != nil {
		return nil, f.callErr
	}
	return common.LeftPadBytes([]byte{f.status}, 32), nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return f.gas, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}

func signedOrder(t *testing.T, signer *crypto.Signer) order.Order {
	t.Helper()
	c, err := order.Construct(order.Fields{
		Seller:   signer.Address().Hex(),
		Currency: order.CurrencyBuyNFT,
		Ask:      order.RawAsset{Token: "0x0000000000000000000000000000000000000002", AmountOrID: big.NewInt(1)},
		Sell:     order.RawAsset{Token: "0x0000000000000000000000000000000000000003", AmountOrID: big.NewInt(1000)},
		Fees: []order.RawFee{
			{Recipient: "0x0000000000000000000000000000000000000004", AmountOrID: big.NewInt(25)},
		},
	})
	require.NoError(t, err)
	o, err := order.Sign(order.Finalize(c), signer)
	require.NoError(t, err)
	return o
}

func TestSwapSelector(t *testing.T) {
	want := gethcrypto.Keccak256([]byte(swapSignature))[:4]
	assert.Equal(t, want, SmolPuddleABI().Methods["swap"].ID)
	assert.Equal(t, "0xd3f4bf62", hexutil.Encode(want))
	assert.Equal(t, swapSignature, SmolPuddleABI().Methods["swap"].Sig)
}

func TestPackSwap_RoundTrip(t *testing.T) {
	signer, err := crypto.GenerateKey()
	require.NoError(t, err)
	o := signedOrder(t, signer)

	data, err := PackSwap(o)
	require.NoError(t, err)
	assert.Equal(t, "0xd3f4bf62", hexutil.Encode(data[:4]))

	method := SmolPuddleABI().Methods["swap"]
	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, o.Signature(), args[1].([]byte))

	// the tuple decodes into an anonymous struct with the same field names
	packedAgain, err := method.Inputs.Pack(args...)
	require.NoError(t, err)
	assert.Equal(t, data[4:], packedAgain)
}

func TestPackCancel(t *testing.T) {
	signer, err := crypto.GenerateKey()
	require.NoError(t, err)
	o := signedOrder(t, signer)

	fromOrder, err := PackCancel(o)
	require.NoError(t, err)
	fromConstructor, err := PackCancel(o.Constructor())
	require.NoError(t, err)

	assert.Equal(t, fromOrder, fromConstructor)
	assert.Equal(t, SmolPuddleABI().Methods["cancel"].ID, fromOrder[:4])
}

func TestPackUnpackStatus(t *testing.T) {
	hash := common.HexToHash("0x72c86d80541e42a5dc18c796ae200252ae93b4874ef924321284955ab35db023")
	data, err := PackStatus(hash)
	require.NoError(t, err)
	require.Len(t, data, 36)
	assert.Equal(t, hash.Bytes(), data[4:])

	for _, s := range []OrderStatus{StatusOpen, StatusExecuted, StatusCanceled} {
		got, err := UnpackStatus(common.LeftPadBytes([]byte{byte(s)}, 32))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err = UnpackStatus(nil)
	assert.Error(t, err)
	assert.Equal(t, "canceled", StatusCanceled.String())
}

func TestCaller_Status(t *testing.T) {
	backend := &fakeBackend{status: uint8(StatusExecuted)}
	c := NewCaller(backend, SmolPuddleContract, DefaultChainID, nil)

	status, err := c.Status(context.Background(), common.Hash{1})
	require.NoError(t, err)
	assert.Equal(t, StatusExecuted, status)
	require.Len(t, backend.calls, 1)
	assert.Equal(t, SmolPuddleContract, *backend.calls[0].To)

	backend.callErr = errors.New("rpc down")
	_, err = c.Status(context.Background(), common.Hash{1})
	assert.Error(t, err)
}

func TestCaller_Swap(t *testing.T) {
	signer, err := crypto.GenerateKey()
	require.NoError(t, err)
	o := signedOrder(t, signer)

	backend := &fakeBackend{nonce: 7, gasPrice: big.NewInt(1050000000), gas: 100000}
	c := NewCaller(backend, SmolPuddleContract, DefaultChainID, signer)

	tx, err := c.Swap(context.Background(), o, big.NewInt(1000))
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(120000), tx.Gas())
	assert.Equal(t, big.NewInt(1000), tx.Value())
	assert.Equal(t, SmolPuddleContract, *tx.To())
	assert.Equal(t, big.NewInt(DefaultChainID), tx.ChainId())

	from, err := types.Sender(types.NewEIP155Signer(big.NewInt(DefaultChainID)), tx)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), from)

	want, err := PackSwap(o)
	require.NoError(t, err)
	assert.Equal(t, want, tx.Data())
}

func TestCaller_SwapNotOpen(t *testing.T) {
	signer, err := crypto.GenerateKey()
	require.NoError(t, err)

	backend := &fakeBackend{status: uint8(StatusCanceled), gasPrice: big.NewInt(1), gas: 1}
	c := NewCaller(backend, SmolPuddleContract, DefaultChainID, signer)

	_, err = c.Swap(context.Background(), signedOrder(t, signer), nil)
	assert.True(t, errors.Is(err, ErrNotOpen))
	assert.Empty(t, backend.sent)
}

func TestCaller_Cancel(t *testing.T) {
	signer, err := crypto.GenerateKey()
	require.NoError(t, err)
	o := signedOrder(t, signer)

	backend := &fakeBackend{gasPrice: big.NewInt(1), gas: 50000}
	c := NewCaller(backend, SmolPuddleContract, DefaultChainID, signer)

	tx, err := c.Cancel(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, 0, tx.Value().Sign())
	assert.Equal(t, SmolPuddleABI().Methods["cancel"].ID, tx.Data()[:4])
}

func TestCaller_ReadOnly(t *testing.T) {
	signer, err := crypto.GenerateKey()
	require.NoError(t, err)
	c := NewCaller(&fakeBackend{}, SmolPuddleContract, DefaultChainID, nil)

	_, err = c.Swap(context.Background(), signedOrder(t, signer), nil)
	assert.True(t, errors.Is(err, ErrNoSigner))
	_, err = c.Cancel(context.Background(), signedOrder(t, signer))
	assert.True(t, errors.Is(err, ErrNoSigner))
}
