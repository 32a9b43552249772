package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	eth_crypto "github.com/ethereum/go-ethereum/crypto"
)

func TestGenerateKey(t *testing.T) {
	signer, err := GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	if signer.Address() == (common.Address{}) {
		t.Error("generated zero address")
	}

	// 32 bytes
	privHex := signer.PrivateKeyHex()
	if len(privHex) != 64 {
		t.Errorf("private key hex length = %d, want 64", len(privHex))
	}
}

func TestFromPrivateKeyHex(t *testing.T) {
	signer1, _ := GenerateKey()
	privHex := signer1.PrivateKeyHex()
	expectedAddr := signer1.Address()

	for _, in := range []string{privHex, "0x" + privHex} {
		signer2, err := FromPrivateKeyHex(in)
		if err != nil {
			t.Fatalf("failed to load key %q: %v", in, err)
		}
		if signer2.Address() != expectedAddr {
			t.Errorf("address = %s, want %s", signer2.Address().Hex(), expectedAddr.Hex())
		}
	}

	if _, err := FromPrivateKeyHex("nothex"); err == nil {
		t.Error("expected error for malformed key")
	}
}

func TestFromPrivateKeyHex_KnownAddress(t *testing.T) {
	// Key 0x...01 maps to the well-known generator address.
	signer, err := FromPrivateKeyHex("0000000000000000000000000000000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("failed to load key: %v", err)
	}
	want := common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	if signer.Address() != want {
		t.Errorf("address = %s, want %s", signer.Address().Hex(), want.Hex())
	}
}

func TestSignAndVerify(t *testing.T) {
	signer, _ := GenerateKey()

	message := []byte("Hello, SmolPuddle!")
	signature, err := signer.Sign(eth_crypto.Keccak256(message))
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	if len(signature) != SignatureLength {
		t.Errorf("signature length = %d, want %d", len(signature), SignatureLength)
	}
	if v := signature[64]; v != 27 && v != 28 {
		t.Errorf("v = %d, want 27 or 28", v)
	}

	hash := eth_crypto.Keccak256Hash(message).Bytes()
	if !VerifySignature(signer.Address(), hash, signature) {
		t.Error("signature verification failed")
	}

	wrongAddr := common.HexToAddress("0x0000000000000000000000000000000000000001")
	if VerifySignature(wrongAddr, hash, signature) {
		t.Error("signature should not verify with wrong address")
	}
}

func TestRecoverAddress(t *testing.T) {
	signer, _ := GenerateKey()
	message := []byte("Test message")

	signature, err := signer.Sign(eth_crypto.Keccak256(message))
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	hash := eth_crypto.Keccak256Hash(message).Bytes()
	recoveredAddr, err := RecoverAddress(hash, signature)
	if err != nil {
		t.Fatalf("failed to recover address: %v", err)
	}
	if recoveredAddr != signer.Address() {
		t.Errorf("recovered address = %s, want %s", recoveredAddr.Hex(), signer.Address().Hex())
	}

	// 0/1 recovery ids are accepted as well
	raw, err := NormalizeV(signature)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	recoveredAddr, err = RecoverAddress(hash, raw)
	if err != nil {
		t.Fatalf("failed to recover address from raw v: %v", err)
	}
	if recoveredAddr != signer.Address() {
		t.Errorf("recovered address = %s, want %s", recoveredAddr.Hex(), signer.Address().Hex())
	}
}

func TestNormalizeV(t *testing.T) {
	sig := make([]byte, SignatureLength)

	sig[64] = 28
	out, err := NormalizeV(sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[64] != 1 {
		t.Errorf("v = %d, want 1", out[64])
	}
	if sig[64] != 28 {
		t.Error("input was modified")
	}

	sig[64] = 5
	if _, err := NormalizeV(sig); err == nil {
		t.Error("expected error for v=5")
	}

	if _, err := NormalizeV([]byte{1, 2, 3}); !errors.Is(err, ErrSignatureLength) {
		t.Errorf("err = %v, want ErrSignatureLength", err)
	}
}

func TestSignatureToRSV(t *testing.T) {
	signer, _ := GenerateKey()
	signature, _ := signer.Sign(eth_crypto.Keccak256([]byte("RSV test")))

	r, s, v, err := SignatureToRSV(signature)
	if err != nil {
		t.Fatalf("failed to split signature: %v", err)
	}

	if !bytes.Equal(r.FillBytes(make([]byte, 32)), signature[:32]) {
		t.Errorf("r = %x, want %x", r, signature[:32])
	}
	if !bytes.Equal(s.FillBytes(make([]byte, 32)), signature[32:64]) {
		t.Errorf("s = %x, want %x", s, signature[32:64])
	}
	if v != signature[64] {
		t.Errorf("v = %d, want %d", v, signature[64])
	}

	if _, _, _, err := SignatureToRSV([]byte{1, 2}); !errors.Is(err, ErrSignatureLength) {
		t.Errorf("err = %v, want ErrSignatureLength", err)
	}
}

func TestInvalidSignature(t *testing.T) {
	signer, _ := GenerateKey()
	hash := common.BytesToHash([]byte("test")).Bytes()

	if VerifySignature(signer.Address(), hash, []byte{1, 2, 3}) {
		t.Error("invalid signature should not verify")
	}

	validSig := make([]byte, SignatureLength)
	if VerifySignature(signer.Address(), []byte("short"), validSig) {
		t.Error("invalid hash should not verify")
	}
}
