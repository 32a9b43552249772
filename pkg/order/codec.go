package order

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OrderABIType is the Solidity tuple the contract takes as its order argument.
const OrderABIType = `tuple(
  address seller,
  uint256 orderType,
  address askToken,
  address sellToken,
  uint256 askAmountOrId,
  uint256 sellAmountOrId,
  address[] feeRecipients,
  uint256[] feeAmounts,
  uint256 expiration,
  bytes32 salt
)`

// EncodedStruct is the order in contract ABI tuple layout. The abi tags let
// go-ethereum's packer use it directly as a tuple argument.
type EncodedStruct struct {
	Seller         common.Address   `abi:"seller" json:"seller"`
	OrderType      *big.Int         `abi:"orderType" json:"orderType"`
	AskToken       common.Address   `abi:"askToken" json:"askToken"`
	SellToken      common.Address   `abi:"sellToken" json:"sellToken"`
	AskAmountOrID  *big.Int         `abi:"askAmountOrId" json:"askAmountOrId"`
	SellAmountOrID *big.Int         `abi:"sellAmountOrId" json:"sellAmountOrId"`
	FeeRecipients  []common.Address `abi:"feeRecipients" json:"feeRecipients"`
	FeeAmounts     []*big.Int       `abi:"feeAmounts" json:"feeAmounts"`
	Expiration     *big.Int         `abi:"expiration" json:"expiration"`
	Salt           [32]byte         `abi:"salt" json:"salt"`
}

// EncodeForCall projects the order into the contract tuple. Fee recipients
// and amounts become two parallel lists in the original fee order.
func (f fields) EncodeForCall() (EncodedStruct, error) {
	askAmount, err := toWord("ask.amountOrId", f.ask.AmountOrID)
	if err != nil {
		return EncodedStruct{}, err
	}
	sellAmount, err := toWord("sell.amountOrId", f.sell.AmountOrID)
	if err != nil {
		return EncodedStruct{}, err
	}
	expiration, err := toWord("expiration", f.expiration)
	if err != nil {
		return EncodedStruct{}, err
	}

	recipients := make([]common.Address, len(f.fees))
	amounts := make([]*big.Int, len(f.fees))
	for i, fee := range f.fees {
		amount, err := toWord(feeField(i), fee.AmountOrID)
		if err != nil {
			return EncodedStruct{}, err
		}
		recipients[i] = fee.Recipient
		amounts[i] = amount.ToBig()
	}

	return EncodedStruct{
		Seller:         f.seller,
		OrderType:      new(big.Int).SetUint64(uint64(f.currency)),
		AskToken:       f.ask.Token,
		SellToken:      f.sell.Token,
		AskAmountOrID:  askAmount.ToBig(),
		SellAmountOrID: sellAmount.ToBig(),
		FeeRecipients:  recipients,
		FeeAmounts:     amounts,
		Expiration:     expiration.ToBig(),
		Salt:           f.salt,
	}, nil
}
