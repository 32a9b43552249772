package p2p

import (
	"encoding/json"
	"io"

	"github.com/smolpuddle/puddle/pkg/order"
)

// maxSnapshotBytes bounds a sync response read from a peer.
const maxSnapshotBytes = 32 << 20

// Gossip messages carry one wire order as JSON, the same bytes the REST API
// accepts. Snapshots on the sync stream are a JSON array of wire orders.

func encodeOrder(o order.Order) ([]byte, error) {
	return json.Marshal(o)
}

func encodeSnapshot(orders []order.Order) ([]byte, error) {
	if orders == nil {
		orders = []order.Order{}
	}
	return json.Marshal(orders)
}

func readSnapshot(r io.Reader) ([]order.Order, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSnapshotBytes))
	if err != nil {
		return nil, err
	}
	return order.ValidateShapes(data)
}
