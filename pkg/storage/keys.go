package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Order key schema:
//
//	ord:<hash>                  -> order JSON
//	sel:<seller>:<hash>         -> empty, seller index
//	col:<collection>:<hash>     -> empty, collection index
//
// Addresses and hashes are lower-case 0x-hex so prefix scans are exact.
const (
	prefixOrder      = "ord:"
	prefixSeller     = "sel:"
	prefixCollection = "col:"
)

// orderKey returns the primary key for an order
// Format: "ord:{hash}"
func orderKey(h common.Hash) []byte {
	return []byte(prefixOrder + h.Hex())
}

// sellerKey returns the seller index key
// Format: "sel:{seller}:{hash}"
func sellerKey(seller common.Address, h common.Hash) []byte {
	return append(sellerPrefix(seller), h.Hex()...)
}

// sellerPrefix returns the prefix for all orders of a seller
func sellerPrefix(seller common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixSeller, lowerHex(seller)))
}

// collectionKey returns the collection index key
// Format: "col:{collection}:{hash}"
func collectionKey(collection common.Address, h common.Hash) []byte {
	return append(collectionPrefix(collection), h.Hex()...)
}

// collectionPrefix returns the prefix for all orders of a collection
func collectionPrefix(collection common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixCollection, lowerHex(collection)))
}

// hashFromIndexKey returns the order hash at the tail of an index key.
func hashFromIndexKey(key []byte) (common.Hash, bool) {
	const hexLen = 2 + 2*common.HashLength
	if len(key) < hexLen {
		return common.Hash{}, false
	}
	return common.HexToHash(string(key[len(key)-hexLen:])), true
}

func lowerHex(a common.Address) string {
	return fmt.Sprintf("%#x", a.Bytes())
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
