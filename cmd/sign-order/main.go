package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/smolpuddle/puddle/pkg/chain"
	"github.com/smolpuddle/puddle/pkg/crypto"
	"github.com/smolpuddle/puddle/pkg/order"
)

func main() {
	var (
		keyHex     = flag.String("key", os.Getenv("PRIVATE_KEY"), "seller private key hex (default $PRIVATE_KEY, generated when empty)")
		currency   = flag.Uint("currency", uint(order.CurrencyBuyNFT), "1=NftToNft 2=BuyNFT 3=SellNFT")
		askToken   = flag.String("ask-token", "", "ask token address")
		askAmount  = flag.String("ask-amount", "1", "ask amount or token id")
		sellToken  = flag.String("sell-token", "", "sell token address")
		sellAmount = flag.String("sell-amount", "1", "sell amount or token id")
		fees       = flag.String("fees", "", "comma separated recipient:amount pairs")
		expiration = flag.String("expiration", "0", "unix seconds, 0 never expires")
	)
	flag.Parse()

	kind, err := parseCurrency(*currency)
	if err != nil {
		fail("currency", err)
	}

	// Step 1: Generate or load key
	signer, err := loadSigner(*keyHex)
	if err != nil {
		fail("key", err)
	}
	fmt.Fprintf(os.Stderr, "Seller: %s\n", signer.Address().Hex())
	if *keyHex == "" {
		fmt.Fprintf(os.Stderr, "Private Key: %s (KEEP SECRET!)\n", signer.PrivateKeyHex())
	}

	// Step 2: Build the order
	salt, err := order.NewSalt()
	if err != nil {
		fail("salt", err)
	}
	in := order.Fields{
		Seller:     signer.Address().Hex(),
		Currency:   kind,
		Ask:        order.RawAsset{Token: *askToken, AmountOrID: mustInt("ask-amount", *askAmount)},
		Sell:       order.RawAsset{Token: *sellToken, AmountOrID: mustInt("sell-amount", *sellAmount)},
		Expiration: mustInt("expiration", *expiration),
		Salt:       salt,
	}
	if in.Fees, err = parseFees(*fees); err != nil {
		fail("fees", err)
	}
	c, err := order.Construct(in)
	if err != nil {
		fail("construct", err)
	}

	// Step 3: Hash and sign
	signed, err := order.Sign(order.Finalize(c), signer)
	if err != nil {
		fail("sign", err)
	}
	if err := order.VerifySignature(signed); err != nil {
		fail("verify", err)
	}

	// Step 4: Print the wire order and the swap call a buyer would send
	out, err := json.MarshalIndent(signed, "", "  ")
	if err != nil {
		fail("marshal", err)
	}
	fmt.Println(string(out))

	data, err := chain.PackSwap(signed)
	if err != nil {
		fail("calldata", err)
	}
	fmt.Fprintf(os.Stderr, "\nswap call to %s on chain %d:\n%s\n",
		chain.SmolPuddleContract.Hex(), chain.DefaultChainID, hexutil.Encode(data))
	fmt.Fprintln(os.Stderr, "\nSubmit with: POST http://localhost:8080/api/v1/orders")
}

func loadSigner(keyHex string) (*crypto.Signer, error) {
	if keyHex == "" {
		return crypto.GenerateKey()
	}
	return crypto.FromPrivateKeyHex(keyHex)
}

// parseCurrency range-checks the flag before narrowing it to a Currency.
func parseCurrency(v uint) (order.Currency, error) {
	if v == 0 || v > uint(order.CurrencySellNFT) {
		return order.CurrencyInvalid, fmt.Errorf("currency %d: want 1 (NftToNft), 2 (BuyNFT) or 3 (SellNFT)", v)
	}
	return order.Currency(v), nil
}

func parseFees(s string) ([]order.RawFee, error) {
	var out []order.RawFee
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		recipient, amount, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("fee %q: want recipient:amount", pair)
		}
		v, ok := new(big.Int).SetString(amount, 0)
		if !ok {
			return nil, fmt.Errorf("fee %q: bad amount", pair)
		}
		out = append(out, order.RawFee{Recipient: recipient, AmountOrID: v})
	}
	return out, nil
}

func mustInt(name, s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		fail(name, fmt.Errorf("not an integer: %q", s))
	}
	return v
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "Error (%s): %v\n", step, err)
	os.Exit(1)
}
