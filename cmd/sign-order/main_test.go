package main

import (
	"testing"

	"github.com/smolpuddle/puddle/pkg/order"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in   uint
		want order.Currency
		ok   bool
	}{
		{1, order.CurrencyNftToNft, true},
		{2, order.CurrencyBuyNFT, true},
		{3, order.CurrencySellNFT, true},
		{0, order.CurrencyInvalid, false},
		{4, order.CurrencyInvalid, false},
		{258, order.CurrencyInvalid, false}, // would wrap to BuyNFT as a uint8
	}
	for _, tt := range tests {
		got, err := parseCurrency(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("parseCurrency(%d) err = %v, want ok=%v", tt.in, err, tt.ok)
		}
		if got != tt.want {
			t.Errorf("parseCurrency(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFees(t *testing.T) {
	fees, err := parseFees("0x0000000000000000000000000000000000000004:25, 0x0000000000000000000000000000000000000005:0x64")
	if err != nil {
		t.Fatal(err)
	}
	if len(fees) != 2 || fees[0].AmountOrID.Int64() != 25 || fees[1].AmountOrID.Int64() != 100 {
		t.Fatalf("parseFees = %+v", fees)
	}
	if _, err := parseFees("0x04"); err == nil {
		t.Error("expected error for missing amount")
	}
	if _, err := parseFees("0x04:ten"); err == nil {
		t.Error("expected error for bad amount")
	}
}
