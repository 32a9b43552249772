package order

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goldenFields() Fields {
	return Fields{
		Seller:     "0x0000000000000000000000000000000000000001",
		Currency:   CurrencyBuyNFT,
		Ask:        RawAsset{Token: "0x0000000000000000000000000000000000000002", AmountOrID: big.NewInt(1)},
		Sell:       RawAsset{Token: "0x0000000000000000000000000000000000000003", AmountOrID: oneEther},
		Expiration: big.NewInt(0),
	}
}

func TestConstruct_MatchesTyped(t *testing.T) {
	c, err := Construct(goldenFields())
	require.NoError(t, err)
	assert.Equal(t, Finalize(goldenConstructor(t)).Hash(), Finalize(c).Hash())
}

func TestConstruct_AddressFormat(t *testing.T) {
	cases := map[string]func(f *Fields){
		"seller":    func(f *Fields) { f.Seller = "0x1234" },
		"ask.token": func(f *Fields) { f.Ask.Token = "not an address" },
		"sell.token": func(f *Fields) {
			f.Sell.Token = ""
		},
		"fees[1].recipient": func(f *Fields) {
			f.Fees = []RawFee{
				{Recipient: "0x0000000000000000000000000000000000000004", AmountOrID: big.NewInt(1)},
				{Recipient: "0xzz00000000000000000000000000000000000005", AmountOrID: big.NewInt(1)},
			}
		},
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			in := goldenFields()
			mutate(&in)
			_, err := Construct(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrAddressFormat))
			var addrErr *AddressFormatError
			require.True(t, errors.As(err, &addrErr))
			assert.Equal(t, field, addrErr.Field)
		})
	}
}

func TestConstruct_CaseInsensitive(t *testing.T) {
	in := goldenFields()
	in.Sell.Token = "0xCCCA17BC63599025762F48D4B2BB690C640C4239"
	upper, err := Construct(in)
	require.NoError(t, err)

	in.Sell.Token = "0xccca17bc63599025762f48d4b2bb690c640c4239"
	lower, err := Construct(in)
	require.NoError(t, err)

	assert.Equal(t, Finalize(upper).Hash(), Finalize(lower).Hash())
}

func TestNewConstructor_CopiesInputs(t *testing.T) {
	amount := big.NewInt(25)
	fees := []Fee{{Recipient: addr(4), AmountOrID: amount}}
	ask := big.NewInt(1)

	c, err := NewConstructor(addr(1), CurrencyBuyNFT,
		AssetRef{Token: addr(2), AmountOrID: ask},
		AssetRef{Token: addr(3), AmountOrID: oneEther},
		fees, big.NewInt(0), common.Hash{})
	require.NoError(t, err)
	before := Finalize(c).Hash()

	amount.SetInt64(99)
	ask.SetInt64(99)
	fees[0].Recipient = addr(8)

	assert.Equal(t, before, Finalize(c).Hash())

	// accessors hand out copies too
	got := c.Fees()
	got[0].AmountOrID.SetInt64(7)
	c.Ask().AmountOrID.SetInt64(7)
	c.Expiration().SetInt64(7)
	assert.Equal(t, before, Finalize(c).Hash())
	assert.Equal(t, int64(25), c.Fees()[0].AmountOrID.Int64())
}

func TestAttachSignature(t *testing.T) {
	u := Finalize(goldenConstructor(t))

	_, err := AttachSignature(u, nil)
	assert.True(t, errors.Is(err, ErrSignatureFormat))
	_, err = AttachSignature(u, []byte{})
	assert.True(t, errors.Is(err, ErrSignatureFormat))

	sig := []byte{1, 2, 3}
	o, err := AttachSignature(u, sig)
	require.NoError(t, err)
	assert.Equal(t, u.Hash(), o.Hash())
	assert.Equal(t, []byte{1, 2, 3}, o.Signature())

	sig[0] = 9
	o.Signature()[1] = 9
	assert.Equal(t, []byte{1, 2, 3}, o.Signature())

	assert.Equal(t, u, o.Unsigned())
	assert.Equal(t, u.Constructor(), o.Constructor())
}

func TestAttachSignature_RoundTripHash(t *testing.T) {
	for _, c := range []Constructor{goldenConstructor(t), feeConstructor(t, twoFees()), {}} {
		u := Finalize(c)
		for _, sig := range [][]byte{{0}, make([]byte, 65), []byte("anything")} {
			o, err := AttachSignature(u, sig)
			require.NoError(t, err)
			assert.Equal(t, u.Hash(), o.Hash())
			assert.NoError(t, o.VerifyHash())
		}
	}
}

func TestExpired(t *testing.T) {
	now := time.Unix(1700000000, 0)

	never := Finalize(goldenConstructor(t))
	assert.False(t, never.Expired(now))

	c := feeConstructor(t, nil) // expiration 1700000000
	assert.True(t, c.Expired(now))
	assert.True(t, c.Expired(now.Add(time.Second)))
	assert.False(t, c.Expired(now.Add(-time.Second)))
}

func TestNewSalt(t *testing.T) {
	a, err := NewSalt()
	require.NoError(t, err)
	b, err := NewSalt()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, common.Hash{}, a)
}

func TestCurrencyString(t *testing.T) {
	assert.Equal(t, "BuyNFT", CurrencyBuyNFT.String())
	assert.Equal(t, "Currency(9)", Currency(9).String())
	assert.True(t, CurrencyInvalid.Known())
	assert.False(t, Currency(4).Known())
}

func TestCollections(t *testing.T) {
	build := func(currency Currency, ask, sell common.Address) Constructor {
		c, err := NewConstructor(addr(1), currency,
			AssetRef{Token: ask, AmountOrID: big.NewInt(1)},
			AssetRef{Token: sell, AmountOrID: big.NewInt(1)},
			nil, nil, common.Hash{})
		require.NoError(t, err)
		return c
	}

	assert.Equal(t, []common.Address{addr(3)}, build(CurrencyBuyNFT, addr(2), addr(3)).Collections())
	assert.Equal(t, []common.Address{addr(2)}, build(CurrencySellNFT, addr(2), addr(3)).Collections())
	assert.Equal(t, []common.Address{addr(3), addr(2)}, build(CurrencyNftToNft, addr(2), addr(3)).Collections())
	assert.Equal(t, []common.Address{addr(3)}, build(CurrencyNftToNft, addr(3), addr(3)).Collections())
	assert.Equal(t, []common.Address{addr(3)}, build(CurrencyInvalid, addr(2), addr(3)).Collections())
}
